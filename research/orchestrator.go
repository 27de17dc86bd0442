package research

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/pageindex/core"
	"github.com/poiesic/pageindex/navigator"
)

const (
	// DefaultPoolSize bounds concurrent sub-question work within a pass.
	DefaultPoolSize = 4
	// DefaultMaxEpisodes caps the merged episode set handed to the deep pass.
	DefaultMaxEpisodes = 10
	// DefaultMaxQuotesPerQuestion caps the quotes one sub-question contributes.
	DefaultMaxQuotesPerQuestion = 12
	// DefaultMaxTotalQuotes caps the quotes handed to synthesis.
	DefaultMaxTotalQuotes = 30
	// DefaultMaxIterations bounds the rounds of navigation when the
	// sufficiency check is on.
	DefaultMaxIterations = 3

	releaseTimeout = 5 * time.Second
)

// Orchestrator runs the broad and deep retrieval passes for a plan.
type Orchestrator struct {
	nav                  *navigator.Navigator
	pool                 *ants.Pool
	maxEpisodes          int
	maxQuotesPerQuestion int
	maxTotalQuotes       int
	sufficiency          bool
	maxIterations        int
	logger               *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithPoolSize sets the number of sub-questions processed at once.
// Values below 1 are treated as 1.
func WithPoolSize(size int) Option {
	return func(o *Orchestrator) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if o.pool != nil {
			_ = o.pool.ReleaseTimeout(releaseTimeout)
		}
		o.pool = pool
		return nil
	}
}

// WithMaxEpisodes caps the merged episode set. Zero or less disables the cap.
func WithMaxEpisodes(n int) Option {
	return func(o *Orchestrator) error {
		o.maxEpisodes = n
		return nil
	}
}

// WithQuoteLimits sets the per sub-question and total quote caps.
// Zero or less disables a cap.
func WithQuoteLimits(perQuestion, total int) Option {
	return func(o *Orchestrator) error {
		o.maxQuotesPerQuestion = perQuestion
		o.maxTotalQuotes = total
		return nil
	}
}

// WithSufficiencyCheck asks the model, after each round of navigation,
// whether the quotes gathered answer the query. When they do not, the themes
// it suggests are explored in another round. Off by default.
func WithSufficiencyCheck(enabled bool) Option {
	return func(o *Orchestrator) error {
		o.sufficiency = enabled
		return nil
	}
}

// WithMaxIterations bounds the rounds of navigation under the sufficiency
// check. Values below 1 are treated as 1.
func WithMaxIterations(n int) Option {
	return func(o *Orchestrator) error {
		o.maxIterations = max(n, 1)
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger != nil {
			o.logger = logger
		}
		return nil
	}
}

// New creates an Orchestrator. Call Release when done with it.
func New(nav *navigator.Navigator, opts ...Option) (*Orchestrator, error) {
	if nav == nil {
		return nil, ErrNavigatorRequired
	}
	pool, err := ants.NewPool(DefaultPoolSize)
	if err != nil {
		return nil, err
	}
	o := &Orchestrator{
		nav:                  nav,
		pool:                 pool,
		maxEpisodes:          DefaultMaxEpisodes,
		maxQuotesPerQuestion: DefaultMaxQuotesPerQuestion,
		maxTotalQuotes:       DefaultMaxTotalQuotes,
		maxIterations:        DefaultMaxIterations,
		logger:               slog.Default().With("component", "research"),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			o.Release()
			return nil, err
		}
	}
	return o, nil
}

// Release stops the worker pool and waits briefly for its workers to exit.
// The orchestrator must not be used afterwards.
func (o *Orchestrator) Release() {
	if o.pool == nil {
		return
	}
	if err := o.pool.ReleaseTimeout(releaseTimeout); err != nil {
		o.logger.Warn("worker pool did not stop cleanly", "err", err)
	}
}

type broadOutcome struct {
	themes   navigator.Selection
	episodes navigator.Selection
}

type deepOutcome struct {
	topics navigator.Selection
	quotes []core.QuoteChunk
}

// Retrieve runs both passes for plan.
func (o *Orchestrator) Retrieve(ctx context.Context, plan *core.QueryPlan) (*core.RetrievalResult, error) {
	return o.RetrieveWithMonitor(ctx, plan, nil)
}

// RetrieveWithMonitor runs both passes for plan, reporting each stage to
// monitor. A nil monitor is allowed. With the sufficiency check on, further
// rounds follow while the model finds the quotes insufficient.
func (o *Orchestrator) RetrieveWithMonitor(ctx context.Context, plan *core.QueryPlan, monitor Monitor) (*core.RetrievalResult, error) {
	return o.retrieve(ctx, plan, monitor, o.sufficiency)
}

// RetrieveOnce runs a single round of both passes with no sufficiency check.
func (o *Orchestrator) RetrieveOnce(ctx context.Context, plan *core.QueryPlan, monitor Monitor) (*core.RetrievalResult, error) {
	return o.retrieve(ctx, plan, monitor, false)
}

func (o *Orchestrator) retrieve(ctx context.Context, plan *core.QueryPlan, monitor Monitor, assess bool) (*core.RetrievalResult, error) {
	if plan == nil {
		return nil, ErrPlanRequired
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(plan)
	result := &core.RetrievalResult{Iterations: 1}
	questions := plan.SubQuestions
	if plan.GuestFilter != "" {
		result.AddTrace("filter", "restricted to episodes featuring "+plan.GuestFilter)
	}

	broad := make([]broadOutcome, len(questions))
	o.fanOut(len(questions), func(i int) {
		themes := o.nav.SelectThemes(ctx, questions[i])
		candidates := o.nav.EpisodeCandidates(themes.IDs, plan.GuestFilter)
		broad[i] = broadOutcome{
			themes:   themes,
			episodes: o.nav.SelectEpisodes(ctx, questions[i], candidates, plan.GuestFilter),
		}
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	themeLists := make([][]string, len(broad))
	episodeLists := make([][]string, len(broad))
	for i, b := range broad {
		monitor.AfterThemes(i, b.themes)
		monitor.AfterEpisodes(i, b.episodes)
		themeLists[i] = b.themes.IDs
		episodeLists[i] = b.episodes.IDs
		result.AddTrace(stageName("themes", i), describe(b.themes))
		result.AddTrace(stageName("episodes", i), describe(b.episodes))
	}
	result.ThemeIDs = MergeRanked(themeLists)
	result.EpisodeIDs = o.capEpisodes(MergeRanked(episodeLists))
	monitor.AfterBroadPass(result.EpisodeIDs)

	if len(result.EpisodeIDs) == 0 {
		o.logger.Warn("broad pass found no episodes", "subQuestions", len(questions))
		return nil, core.NewRetrievalFailed(len(questions))
	}

	seen := make(map[core.ID]struct{})
	if err := o.deepPass(ctx, questions, result.EpisodeIDs, seen, result, monitor, ""); err != nil {
		return nil, err
	}

	for assess {
		a := o.nav.AssessSufficiency(ctx, plan.RawQuery, result.Quotes, result.ThemeIDs)
		monitor.AfterAssessment(result.Iterations, a)
		result.Sufficient, result.Confidence = a.Sufficient, a.Confidence
		if a.Sufficient || result.Iterations >= o.maxIterations || len(a.SuggestedThemes) == 0 {
			result.AddTrace("sufficiency", fmt.Sprintf("sufficient=%t confidence %.0f%% after %d round(s)",
				a.Sufficient, 100*a.Confidence, result.Iterations))
			break
		}
		result.Iterations++
		prefix := fmt.Sprintf("round %d ", result.Iterations)
		result.AddTrace("sufficiency", fmt.Sprintf("insufficient, confidence %.0f%%, exploring %v",
			100*a.Confidence, a.SuggestedThemes))
		result.ThemeIDs = append(result.ThemeIDs, a.SuggestedThemes...)

		added, err := o.expandEpisodes(ctx, plan, a.SuggestedThemes, result, monitor, prefix)
		if err != nil {
			return nil, err
		}
		if len(added) == 0 {
			continue
		}
		result.EpisodeIDs = append(result.EpisodeIDs, added...)
		if err := o.deepPass(ctx, questions, added, seen, result, monitor, prefix); err != nil {
			return nil, err
		}
	}

	if len(result.Quotes) == 0 {
		o.logger.Warn("deep pass found no quotes", "subQuestions", len(questions), "episodes", len(result.EpisodeIDs))
		return nil, core.NewRetrievalFailed(len(questions))
	}
	if o.maxTotalQuotes > 0 && len(result.Quotes) > o.maxTotalQuotes {
		result.Quotes = result.Quotes[:o.maxTotalQuotes]
	}
	result.AddTrace("quotes", fmt.Sprintf("%d unique quotes from %d topics", len(result.Quotes), len(result.TopicIDs)))

	o.logger.Debug("retrieval complete",
		"subQuestions", len(questions),
		"iterations", result.Iterations,
		"themes", len(result.ThemeIDs),
		"episodes", len(result.EpisodeIDs),
		"topics", len(result.TopicIDs),
		"quotes", len(result.Quotes))
	monitor.Finish(result)
	return result, nil
}

// deepPass selects topics within episodeIDs for every sub-question and
// appends the quotes not already in seen to result.
func (o *Orchestrator) deepPass(ctx context.Context, questions, episodeIDs []string, seen map[core.ID]struct{}, result *core.RetrievalResult, monitor Monitor, prefix string) error {
	topics := o.nav.TopicCandidates(episodeIDs)
	deep := make([]deepOutcome, len(questions))
	o.fanOut(len(questions), func(i int) {
		sel := o.nav.SelectTopics(ctx, questions[i], topics)
		quotes := o.nav.RetrieveQuotes(sel.IDs)
		deep[i] = deepOutcome{topics: sel, quotes: quotes}
	})
	if err := ctx.Err(); err != nil {
		return err
	}

	topicLists := make([][]string, len(deep))
	for i, d := range deep {
		monitor.AfterTopics(i, d.topics)
		topicLists[i] = d.topics.IDs
		result.AddTrace(stageName(prefix+"topics", i), describe(d.topics))

		kept := o.collectQuotes(d.quotes, seen)
		monitor.AfterQuotes(i, kept)
		result.Quotes = append(result.Quotes, kept...)
	}
	result.TopicIDs = appendNew(result.TopicIDs, MergeRanked(topicLists))
	return nil
}

// appendNew appends the ids of more not already in ids.
func appendNew(ids, more []string) []string {
	have := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		have[id] = struct{}{}
	}
	for _, id := range more {
		if _, ok := have[id]; !ok {
			have[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// expandEpisodes selects, for every sub-question, episodes under themeIDs
// that earlier rounds did not reach.
func (o *Orchestrator) expandEpisodes(ctx context.Context, plan *core.QueryPlan, themeIDs []string, result *core.RetrievalResult, monitor Monitor, prefix string) ([]string, error) {
	known := make(map[string]struct{}, len(result.EpisodeIDs))
	for _, id := range result.EpisodeIDs {
		known[id] = struct{}{}
	}
	var candidates []core.Episode
	for _, ep := range o.nav.EpisodeCandidates(themeIDs, plan.GuestFilter) {
		if _, ok := known[ep.ID]; !ok {
			candidates = append(candidates, ep)
		}
	}

	questions := plan.SubQuestions
	sels := make([]navigator.Selection, len(questions))
	o.fanOut(len(questions), func(i int) {
		sels[i] = o.nav.SelectEpisodes(ctx, questions[i], candidates, plan.GuestFilter)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lists := make([][]string, len(sels))
	for i, sel := range sels {
		monitor.AfterEpisodes(i, sel)
		lists[i] = sel.IDs
		result.AddTrace(stageName(prefix+"episodes", i), describe(sel))
	}
	return o.capEpisodes(MergeRanked(lists)), nil
}

func (o *Orchestrator) capEpisodes(ids []string) []string {
	if o.maxEpisodes > 0 && len(ids) > o.maxEpisodes {
		return ids[:o.maxEpisodes]
	}
	return ids
}

// collectQuotes keeps the quotes not already in seen, in selection-rank
// order, up to the per sub-question cap. Overflow drops the lowest ranked.
func (o *Orchestrator) collectQuotes(quotes []core.QuoteChunk, seen map[core.ID]struct{}) []core.QuoteChunk {
	var kept []core.QuoteChunk
	for _, q := range quotes {
		if o.maxQuotesPerQuestion > 0 && len(kept) >= o.maxQuotesPerQuestion {
			break
		}
		id := q.Identity()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		kept = append(kept, q)
	}
	return kept
}

// fanOut runs fn for 0..n-1 on the pool and waits for all of them.
// Each call writes only its own slot, so results need no locking.
func (o *Orchestrator) fanOut(n int, fn func(i int)) {
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			fn(i)
		}
		if err := o.pool.Submit(task); err != nil {
			o.logger.Warn("pool rejected task, running inline", "err", err)
			task()
		}
	}
	wg.Wait()
}

// Passages joins quotes with the episode and topic metadata synthesis needs.
// Quotes whose episode is unknown keep empty metadata.
func (o *Orchestrator) Passages(quotes []core.QuoteChunk) []core.Passage {
	store := o.nav.Store()
	out := make([]core.Passage, len(quotes))
	for i, q := range quotes {
		p := core.Passage{Chunk: q}
		if ep, ok := store.Episode(q.SourceEpisodeID); ok {
			p.EpisodeTitle = ep.Title
			p.Guest = ep.Guest
			p.DeepLinkBase = ep.DeepLinkBase
		}
		if t, ok := store.Topic(q.TopicID); ok {
			p.TopicLabel = t.Label
		}
		out[i] = p
	}
	return out
}

func stageName(stage string, i int) string {
	return fmt.Sprintf("%s q%d", stage, i+1)
}

func describe(sel navigator.Selection) string {
	s := fmt.Sprintf("%s %v", sel.Outcome, sel.IDs)
	if sel.Reasoning != "" {
		s += ": " + sel.Reasoning
	}
	return s
}

// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package pageindex

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/poiesic/pageindex/ai"
	"github.com/poiesic/pageindex/ai/openai"
	"github.com/poiesic/pageindex/cache"
	"github.com/poiesic/pageindex/citation"
	"github.com/poiesic/pageindex/core"
	"github.com/poiesic/pageindex/history"
	"github.com/poiesic/pageindex/index"
	"github.com/poiesic/pageindex/navigator"
	"github.com/poiesic/pageindex/planner"
	"github.com/poiesic/pageindex/research"
	"github.com/poiesic/pageindex/storage"
	"github.com/poiesic/pageindex/storage/badger"
	"github.com/poiesic/pageindex/synthesis"
	"golang.org/x/sync/errgroup"
)

// Request is one research query.
type Request struct {
	// Query is the user's question. Required.
	Query string
	// SessionID groups queries for history. Empty skips history.
	SessionID string
	// Guest restricts retrieval to one guest's episodes. It must resolve to
	// a single corpus guest; otherwise it is ignored. Guest-restricted
	// requests bypass the cache.
	Guest string
	// Quick answers the query directly in one round of navigation, with no
	// planning or speaker extraction call and at most QuickQuoteLimit quotes.
	// Quick answers bypass the cache.
	Quick bool
}

// QuickQuoteLimit caps the quotes a quick answer is written from.
const QuickQuoteLimit = 10

// Engine runs the research pipeline over a loaded index.
type Engine struct {
	store        *index.Store
	provider     ai.AIProvider
	ownsProvider bool

	planner  *planner.Planner
	nav      *navigator.Navigator
	orch     *research.Orchestrator
	synth    *synthesis.Synthesizer
	verifier *citation.Verifier
	cache    *cache.Manager
	history  *history.Recorder
	monitor  research.Monitor

	backend     *badger.Backend
	cacheRepo   storage.CacheRepository
	historyRepo storage.HistoryRepository

	logger *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig     *ai.Config
	provider     ai.AIProvider
	dbPath       string
	noStorage    bool
	navOpts      []navigator.Option
	researchOpts []research.Option
	synthOpts    []synthesis.Option
	citationOpts []citation.Option
	historyOpts  []history.Option
	monitor      research.Monitor
	logger       *slog.Logger
}

// WithAIConfig sets the model configuration used to build a provider.
// Ignored when WithProvider is given.
func WithAIConfig(cfg *ai.Config) EngineOption {
	return func(o *engineOptions) {
		o.aiConfig = cfg
	}
}

// WithProvider supplies a ready provider. The caller keeps ownership and
// must close it after the engine.
func WithProvider(p ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = p
	}
}

// WithDatabase stores the cache and history in a badger database at path.
func WithDatabase(path string) EngineOption {
	return func(o *engineOptions) {
		o.dbPath = path
		o.noStorage = false
	}
}

// WithInMemoryDatabase keeps the cache and history in memory. This is the
// default.
func WithInMemoryDatabase() EngineOption {
	return func(o *engineOptions) {
		o.dbPath = ""
		o.noStorage = false
	}
}

// WithoutCache disables the cache and history entirely.
func WithoutCache() EngineOption {
	return func(o *engineOptions) {
		o.noStorage = true
	}
}

// WithNavigatorOptions passes options to the navigator.
func WithNavigatorOptions(opts ...navigator.Option) EngineOption {
	return func(o *engineOptions) {
		o.navOpts = append(o.navOpts, opts...)
	}
}

// WithResearchOptions passes options to the retrieval orchestrator.
func WithResearchOptions(opts ...research.Option) EngineOption {
	return func(o *engineOptions) {
		o.researchOpts = append(o.researchOpts, opts...)
	}
}

// WithSynthesisOptions passes options to the synthesizer.
func WithSynthesisOptions(opts ...synthesis.Option) EngineOption {
	return func(o *engineOptions) {
		o.synthOpts = append(o.synthOpts, opts...)
	}
}

// WithCitationOptions passes options to the citation verifier.
func WithCitationOptions(opts ...citation.Option) EngineOption {
	return func(o *engineOptions) {
		o.citationOpts = append(o.citationOpts, opts...)
	}
}

// WithHistoryOptions passes options to the history recorder.
func WithHistoryOptions(opts ...history.Option) EngineOption {
	return func(o *engineOptions) {
		o.historyOpts = append(o.historyOpts, opts...)
	}
}

// WithMonitor reports retrieval progress for every request.
func WithMonitor(m research.Monitor) EngineOption {
	return func(o *engineOptions) {
		o.monitor = m
	}
}

// WithLogger sets the engine logger. A nil logger keeps the default.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewEngine wires the pipeline over store. If the cache database cannot be
// opened the engine runs without cache and history.
func NewEngine(store *index.Store, opts ...EngineOption) (*Engine, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default().With("component", "engine"),
	}
	for _, opt := range opts {
		opt(options)
	}

	e := &Engine{
		store:   store,
		monitor: options.monitor,
		logger:  options.logger,
	}

	if options.provider != nil {
		e.provider = options.provider
	} else {
		provider, err := openai.NewProvider(options.aiConfig)
		if err != nil {
			return nil, err
		}
		e.provider = provider
		e.ownsProvider = true
	}

	verifier := citation.New(options.citationOpts...)
	if err := verifier.Validate(); err != nil {
		e.closeProvider()
		return nil, err
	}
	e.verifier = verifier

	e.nav = navigator.New(store, e.provider.Reasoner(), options.navOpts...)
	e.planner = planner.New(e.provider.Reasoner(), planner.WithGuestResolver(store))
	e.synth = synthesis.New(e.provider.Writer(), options.synthOpts...)

	orch, err := research.New(e.nav, options.researchOpts...)
	if err != nil {
		e.closeProvider()
		return nil, err
	}
	e.orch = orch

	if !options.noStorage {
		e.openStorage(options.dbPath)
	}

	e.cache, err = cache.New(e.cacheRepo)
	if err != nil {
		e.Close()
		return nil, err
	}
	if e.historyRepo != nil {
		e.history, err = history.New(e.historyRepo, options.historyOpts...)
		if err != nil {
			e.Close()
			return nil, err
		}
	}
	return e, nil
}

func (e *Engine) openStorage(path string) {
	var (
		cacheRepo   storage.CacheRepository
		historyRepo storage.HistoryRepository
		backend     *badger.Backend
		err         error
	)
	if path == "" {
		cacheRepo, historyRepo, backend, err = badger.NewMemoryRepositories()
	} else {
		cacheRepo, historyRepo, backend, err = badger.OpenRepositories(path)
	}
	if err != nil {
		e.logger.Error("cache storage unavailable, continuing without cache", "path", path, "err", err)
		return
	}
	e.cacheRepo = cacheRepo
	e.historyRepo = historyRepo
	e.backend = backend
}

// Research answers one request. Failures are *core.PipelineError values
// with CodeInvalidQuery, CodeRetrievalFailed or CodeSynthesisFailed, or the
// context's error when ctx ends first. A cancelled request caches nothing.
func (e *Engine) Research(ctx context.Context, req Request) (*core.ResearchOutput, error) {
	logger := e.logger.With("request_id", uuid.NewString())
	if err := core.ValidateQuery(req.Query); err != nil {
		return nil, core.NewInvalidQuery(err)
	}
	query := strings.TrimSpace(req.Query)
	key := cache.Key(query)

	guest := ""
	if req.Guest != "" {
		if g, ok := e.store.ResolveSingleGuest(req.Guest); ok {
			guest = g
		} else {
			logger.Warn("requested guest not found, ignoring", "guest", req.Guest)
		}
	}

	cacheable := guest == "" && !req.Quick
	if cacheable {
		if out, ok := e.cache.Get(ctx, query); ok {
			logger.Info("served from cache", "cache_key", key)
			e.record(ctx, req.SessionID, query, key)
			return out, nil
		}
	}

	plan, retrieved, err := e.retrieve(ctx, logger, query, guest, req.Quick)
	if err != nil {
		logger.Warn("retrieval failed", "err", err)
		return nil, err
	}
	passages := e.orch.Passages(retrieved.Quotes)

	draft, err := e.synth.Synthesize(ctx, plan, passages)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	verified := e.verifier.Verify(draft.Content, passages)
	synthesis.LinkKeyQuotes(draft.Summary, verified.Citations)
	sources := citation.Sources(passages)

	out := &core.ResearchOutput{
		Content:          verified.Content + citation.FormatSourcesSection(verified.Citations, sources),
		Citations:        verified.Citations,
		Sources:          sources,
		UnverifiedQuotes: verified.Unverified,
		ExecutiveSummary: draft.Summary,
	}
	out.Normalize()

	if err := ctx.Err(); err != nil {
		logger.Info("request abandoned, result discarded", "err", err)
		return nil, err
	}

	logger.Info("research complete",
		"citations", len(out.Citations),
		"verified", out.VerifiedCount(),
		"unverified", len(out.UnverifiedQuotes),
		"sources", len(out.Sources))

	if cacheable {
		_ = e.cache.Put(ctx, query, out)
	}
	e.record(ctx, req.SessionID, query, key)
	return out, nil
}

// retrieve plans the query and runs retrieval. A quick request skips
// planning and takes a single round over the query itself.
func (e *Engine) retrieve(ctx context.Context, logger *slog.Logger, query, guest string, quick bool) (*core.QueryPlan, *core.RetrievalResult, error) {
	if quick {
		plan := &core.QueryPlan{
			RawQuery:     query,
			SubQuestions: []string{query},
			GuestFilter:  guest,
			Format:       core.OutputAnswer,
		}
		logger.Info("quick answer started", "guest", guest)
		retrieved, err := e.orch.RetrieveOnce(ctx, plan, e.monitor)
		if err != nil {
			return nil, nil, err
		}
		if len(retrieved.Quotes) > QuickQuoteLimit {
			retrieved.Quotes = retrieved.Quotes[:QuickQuoteLimit]
		}
		return plan, retrieved, nil
	}

	plan, speaker := e.plan(ctx, query, guest == "")
	if guest != "" {
		plan.GuestFilter = guest
	} else {
		planner.ReconcileGuest(plan, speaker.Guest)
	}
	logger.Info("research started",
		"subQuestions", len(plan.SubQuestions),
		"format", plan.Format,
		"guest", plan.GuestFilter)

	retrieved, err := e.orch.RetrieveWithMonitor(ctx, plan, e.monitor)
	if err != nil {
		return nil, nil, err
	}
	return plan, retrieved, nil
}

// plan runs query planning and, when wanted, speaker extraction
// concurrently. Neither step fails; both degrade internally.
func (e *Engine) plan(ctx context.Context, query string, wantSpeaker bool) (*core.QueryPlan, navigator.Speaker) {
	var (
		g       errgroup.Group
		plan    *core.QueryPlan
		speaker navigator.Speaker
	)
	g.Go(func() error {
		plan = e.planner.Plan(ctx, query)
		return nil
	})
	if wantSpeaker {
		g.Go(func() error {
			speaker = e.nav.ExtractSpeaker(ctx, query)
			return nil
		})
	}
	_ = g.Wait()
	return plan, speaker
}

func (e *Engine) record(ctx context.Context, sessionID, query, key string) {
	if e.history == nil || sessionID == "" {
		return
	}
	e.history.Record(ctx, sessionID, query, key)
}

// Store returns the index the engine reads.
func (e *Engine) Store() *index.Store {
	return e.store
}

// Cache returns the cache manager. It is never nil; without storage it is a
// pass-through.
func (e *Engine) Cache() *cache.Manager {
	return e.cache
}

// History returns the session history recorder, or nil when the engine runs
// without storage.
func (e *Engine) History() *history.Recorder {
	return e.history
}

// Close flushes pending history writes and releases every resource the
// engine opened.
func (e *Engine) Close() error {
	var errs []error
	if e.history != nil {
		if err := e.history.Close(); err != nil {
			e.logger.Error("error closing history recorder", "err", err)
			errs = append(errs, err)
		}
		e.history = nil
	}
	if e.orch != nil {
		e.orch.Release()
		e.orch = nil
	}
	if e.historyRepo != nil {
		if err := e.historyRepo.Close(); err != nil {
			errs = append(errs, err)
		}
		e.historyRepo = nil
	}
	if e.cacheRepo != nil {
		if err := e.cacheRepo.Close(); err != nil {
			e.logger.Error("error closing cache repository", "err", err)
			errs = append(errs, err)
		}
		e.cacheRepo = nil
	}
	if e.backend != nil {
		if err := e.backend.Close(); err != nil {
			e.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
		e.backend = nil
	}
	if err := e.closeProvider(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Engine) closeProvider() error {
	if !e.ownsProvider || e.provider == nil {
		return nil
	}
	err := e.provider.Close()
	if err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}
	e.provider = nil
	return err
}

package navigator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/pageindex/ai"
	"github.com/poiesic/pageindex/ai/mock"
	"github.com/poiesic/pageindex/core"
	"github.com/poiesic/pageindex/index"
	"github.com/poiesic/pageindex/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() Option {
	return WithRetryPolicy(retry.Policy{Attempts: 3, BaseDelay: time.Millisecond})
}

func newTestNavigator(t *testing.T, r ai.Reasoner, opts ...Option) *Navigator {
	t.Helper()
	store, err := index.Load(index.FixtureFS())
	require.NoError(t, err)
	return New(store, r, append([]Option{fastRetry()}, opts...)...)
}

func ids(eps []core.Episode) []string {
	out := make([]string, len(eps))
	for i, e := range eps {
		out[i] = e.ID
	}
	return out
}

func TestSelectThemes(t *testing.T) {
	tests := []struct {
		name          string
		responses     []string
		opts          []Option
		wantIDs       []string
		wantOutcome   Outcome
		wantAttempts  int
		wantDiscarded []string
	}{
		{
			name:         "valid selection",
			responses:    []string{`{"selected_themes": ["pmf"], "reasoning": "about fit"}`},
			wantIDs:      []string{"pmf"},
			wantOutcome:  OutcomeSelected,
			wantAttempts: 1,
		},
		{
			name:          "unknown ids discarded",
			responses:     []string{`{"selected_themes": ["pmf", "product-market-fit"]}`},
			wantIDs:       []string{"pmf"},
			wantOutcome:   OutcomeSelected,
			wantAttempts:  1,
			wantDiscarded: []string{"product-market-fit"},
		},
		{
			name:         "duplicates collapsed in rank order",
			responses:    []string{`{"selected_themes": ["growth", "pmf", "growth"]}`},
			wantIDs:      []string{"growth", "pmf"},
			wantOutcome:  OutcomeSelected,
			wantAttempts: 1,
		},
		{
			name:         "malformed then valid",
			responses:    []string{"I think growth", "```json\n{\"selected_themes\": [\"growth\"]}\n```"},
			wantIDs:      []string{"growth"},
			wantOutcome:  OutcomeSelected,
			wantAttempts: 2,
		},
		{
			name:         "every attempt empty",
			responses:    []string{`{"selected_themes": [], "reasoning": "nothing relevant"}`},
			wantIDs:      nil,
			wantOutcome:  OutcomeEmpty,
			wantAttempts: 3,
		},
		{
			name:          "every attempt hallucinated",
			responses:     []string{`{"selected_themes": ["made-up"]}`},
			opts:          []Option{WithFallbackSizes(2, 5, 8)},
			wantIDs:       []string{"pmf", "growth"},
			wantOutcome:   OutcomeFallback,
			wantAttempts:  3,
			wantDiscarded: []string{"made-up", "made-up", "made-up"},
		},
		{
			name:         "missing key",
			responses:    []string{`{"themes": ["pmf"]}`},
			wantIDs:      []string{"pmf", "growth", "leadership"},
			wantOutcome:  OutcomeFallback,
			wantAttempts: 3,
		},
		{
			name:         "empty then malformed falls back",
			responses:    []string{`{"selected_themes": []}`, `oops`, `oops`},
			opts:         []Option{WithFallbackSizes(1, 5, 8)},
			wantIDs:      []string{"pmf"},
			wantOutcome:  OutcomeFallback,
			wantAttempts: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mock.NewReasoner(tt.responses...)
			nav := newTestNavigator(t, r, tt.opts...)

			sel := nav.SelectThemes(context.Background(), "what is pmf")

			assert.Equal(t, tt.wantIDs, sel.IDs)
			assert.Equal(t, tt.wantOutcome, sel.Outcome)
			assert.Equal(t, tt.wantAttempts, sel.Attempts)
			assert.Equal(t, tt.wantAttempts, r.CallCount())
			assert.Equal(t, tt.wantDiscarded, sel.Discarded)
		})
	}
}

func TestSelectThemes_PromptListsEveryTheme(t *testing.T) {
	r := mock.NewReasoner(`{"selected_themes": ["pmf"]}`)
	nav := newTestNavigator(t, r)

	nav.SelectThemes(context.Background(), "what is pmf")

	calls := r.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].JSON)
	assert.Contains(t, calls[0].User, "what is pmf")
	for _, id := range []string{"**pmf**", "**growth**", "**leadership**"} {
		assert.Contains(t, calls[0].User, id)
	}
}

func TestSelectThemes_TransportErrorsFallBack(t *testing.T) {
	boom := errors.New("connection refused")
	r := mock.NewReasoner().WithReasonFunc(func(ctx context.Context, req ai.Request) (string, error) {
		return "", boom
	})
	nav := newTestNavigator(t, r)

	sel := nav.SelectThemes(context.Background(), "q")

	assert.Equal(t, OutcomeFallback, sel.Outcome)
	assert.True(t, sel.IsDegraded())
	assert.ErrorIs(t, sel.Err, boom)
	assert.Equal(t, []string{"pmf", "growth", "leadership"}, sel.IDs)
}

func TestSelectThemes_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := mock.NewReasoner(`{"selected_themes": ["pmf"]}`)
	nav := newTestNavigator(t, r)

	sel := nav.SelectThemes(ctx, "q")

	assert.Equal(t, OutcomeFallback, sel.Outcome)
	assert.ErrorIs(t, sel.Err, context.Canceled)
	assert.Equal(t, 0, r.CallCount())
}

func TestEpisodeCandidates(t *testing.T) {
	nav := newTestNavigator(t, mock.NewReasoner())

	tests := []struct {
		name   string
		themes []string
		guest  string
		want   []string
	}{
		{"single theme", []string{"pmf"}, "", []string{"sean-ellis", "rahul-vohra"}},
		{"union in corpus order", []string{"growth", "pmf"}, "", []string{"sean-ellis", "rahul-vohra", "brian-balfour", "sean-ellis-growth"}},
		{"guest within themes", []string{"pmf"}, "Sean Ellis", []string{"sean-ellis"}},
		{"guest outside themes gets all their episodes", []string{"leadership"}, "Sean Ellis", []string{"sean-ellis", "sean-ellis-growth"}},
		{"no themes", nil, "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(nav.EpisodeCandidates(tt.themes, tt.guest)))
		})
	}
}

func TestSelectEpisodes_RestrictedToCandidates(t *testing.T) {
	r := mock.NewReasoner(`{"selected_episodes": ["julie-zhuo"]}`)
	nav := newTestNavigator(t, r)
	candidates := nav.EpisodeCandidates([]string{"pmf"}, "Sean Ellis")

	sel := nav.SelectEpisodes(context.Background(), "what does sean ellis say", candidates, "Sean Ellis")

	assert.Equal(t, OutcomeFallback, sel.Outcome)
	assert.Equal(t, []string{"sean-ellis"}, sel.IDs)
	assert.Contains(t, r.Calls()[0].User, "NAMED SPEAKER: Sean Ellis")
	assert.NotContains(t, r.Calls()[0].User, "julie-zhuo")
}

func TestSelectEpisodes_CandidateCap(t *testing.T) {
	r := mock.NewReasoner(`{"selected_episodes": ["rahul-vohra"]}`)
	nav := newTestNavigator(t, r, WithMaxEpisodeCandidates(1))
	candidates := nav.EpisodeCandidates([]string{"pmf"}, "")

	sel := nav.SelectEpisodes(context.Background(), "q", candidates, "")

	// rahul-vohra was cut from the offered list, so the answer is invalid
	assert.Equal(t, OutcomeFallback, sel.Outcome)
	assert.Equal(t, []string{"sean-ellis"}, sel.IDs)
	assert.Contains(t, r.Calls()[0].User, "NAMED SPEAKER: None")
}

func TestSelectEpisodes_NoCandidates(t *testing.T) {
	r := mock.NewReasoner(`{"selected_episodes": ["sean-ellis"]}`)
	nav := newTestNavigator(t, r)

	sel := nav.SelectEpisodes(context.Background(), "q", nil, "")

	assert.Equal(t, OutcomeEmpty, sel.Outcome)
	assert.Empty(t, sel.IDs)
	assert.Equal(t, 0, r.CallCount())
}

func TestSelectTopics(t *testing.T) {
	r := mock.NewReasoner(`{"selected_topics": ["sean-ellis_t2", "sean-ellis_t1"], "reasoning": "both"}`)
	nav := newTestNavigator(t, r)
	candidates := nav.TopicCandidates([]string{"sean-ellis", "rahul-vohra"})
	require.Len(t, candidates, 3)

	sel := nav.SelectTopics(context.Background(), "q", candidates)

	assert.Equal(t, OutcomeSelected, sel.Outcome)
	assert.Equal(t, []string{"sean-ellis_t2", "sean-ellis_t1"}, sel.IDs)
	assert.Equal(t, "both", sel.Reasoning)
	assert.Contains(t, r.Calls()[0].User, "**rahul-vohra_t1** (Rahul Vohra)")
}

func TestRetrieveQuotes(t *testing.T) {
	nav := newTestNavigator(t, mock.NewReasoner())

	quotes := nav.RetrieveQuotes([]string{"sean-ellis_t2", "unknown", "sean-ellis_t1"})
	require.Len(t, quotes, 3)
	assert.Equal(t, "sean-ellis_t2", quotes[0].TopicID)
	assert.Equal(t, "00:05:10", quotes[1].Timestamp)

	capped := newTestNavigator(t, mock.NewReasoner(), WithMaxQuotesPerTopic(1))
	assert.Len(t, capped.RetrieveQuotes([]string{"sean-ellis_t1"}), 1)
}

func TestExtractSpeaker(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		response  string
		wantName  string
		wantGuest string
		wantCalls int
	}{
		{
			name:      "full name short-circuits",
			query:     "What does Sean Ellis say about PMF?",
			wantName:  "Sean Ellis",
			wantGuest: "Sean Ellis",
			wantCalls: 0,
		},
		{
			name:      "possessive full name short-circuits",
			query:     "Summarize Julie Zhuo's advice for new managers",
			wantName:  "Julie Zhuo",
			wantGuest: "Julie Zhuo",
			wantCalls: 0,
		},
		{
			name:      "name inside a longer word is not a match",
			query:     "Is Sean Ellisonian growth hacking still a thing?",
			response:  `{"named_speaker": null, "is_speaker_specific": false}`,
			wantCalls: 1,
		},
		{
			name:      "partial name resolved",
			query:     "Tell me about Rahul's thoughts on growth",
			response:  `{"named_speaker": "Rahul", "is_speaker_specific": true}`,
			wantName:  "Rahul",
			wantGuest: "Rahul Vohra",
			wantCalls: 1,
		},
		{
			name:      "no speaker",
			query:     "What is product-market fit?",
			response:  `{"named_speaker": null, "is_speaker_specific": false}`,
			wantCalls: 1,
		},
		{
			name:      "speaker not in corpus",
			query:     "What did Brian Chesky say about culture?",
			response:  `{"named_speaker": "Brian Chesky", "is_speaker_specific": true}`,
			wantName:  "Brian Chesky",
			wantGuest: "",
			wantCalls: 1,
		},
		{
			name:      "two guests named is ambiguous",
			query:     "Compare Sean Ellis and Rahul Vohra",
			response:  `{"named_speaker": "Sean Ellis and Rahul Vohra", "is_speaker_specific": true}`,
			wantName:  "Sean Ellis and Rahul Vohra",
			wantGuest: "",
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mock.NewReasoner(tt.response)
			nav := newTestNavigator(t, r)

			sp := nav.ExtractSpeaker(context.Background(), tt.query)

			assert.Equal(t, tt.wantName, sp.Name)
			assert.Equal(t, tt.wantGuest, sp.Guest)
			assert.Equal(t, tt.wantGuest != "", sp.Unambiguous())
			assert.Equal(t, tt.wantCalls, r.CallCount())
		})
	}
}

func TestContainsWord(t *testing.T) {
	tests := []struct {
		s, needle string
		want      bool
	}{
		{"what does ali think", "ali", true},
		{"ali on hiring", "ali", true},
		{"ask ali.", "ali", true},
		{"does quality matter", "ali", false},
		{"alibaba and ali", "ali", true},
		{"ali2 is a handle", "ali", false},
		{"élise said", "lise", false},
		{"anything", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.s, func(t *testing.T) {
			assert.Equal(t, tt.want, containsWord(tt.s, tt.needle))
		})
	}
}

func TestExtractSpeaker_FailureIsSilent(t *testing.T) {
	r := mock.NewReasoner().WithReasonFunc(func(ctx context.Context, req ai.Request) (string, error) {
		return "", errors.New("timeout")
	})
	nav := newTestNavigator(t, r)

	sp := nav.ExtractSpeaker(context.Background(), "what does rahul think")

	assert.Equal(t, Speaker{}, sp)
	assert.Equal(t, 3, r.CallCount())
}

func TestResolveSpeaker(t *testing.T) {
	nav := newTestNavigator(t, mock.NewReasoner())

	assert.Equal(t, Speaker{}, nav.ResolveSpeaker(" "))
	assert.Equal(t, Speaker{}, nav.ResolveSpeaker("null"))
	assert.Equal(t, Speaker{Name: "zhuo", Guest: "Julie Zhuo"}, nav.ResolveSpeaker("zhuo"))
}

func TestOutcome_String(t *testing.T) {
	for o, want := range map[Outcome]string{
		OutcomeSelected: "selected",
		OutcomeEmpty:    "empty",
		OutcomeFallback: "fallback",
		Outcome(9):      "unknown",
	} {
		assert.Equal(t, want, o.String())
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	assert.Equal(t, "héllo", truncate("héllo", 0))
	assert.True(t, strings.HasSuffix(truncate(strings.Repeat("é", 10), 3), "..."))
}

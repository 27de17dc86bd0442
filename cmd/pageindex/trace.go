package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/poiesic/pageindex/core"
	"github.com/poiesic/pageindex/index"
	"github.com/poiesic/pageindex/navigator"
	"github.com/poiesic/pageindex/planner"
	"github.com/poiesic/pageindex/research"
)

// traceMonitor prints each navigation decision as it is reported.
type traceMonitor struct {
	mu    sync.Mutex
	w     io.Writer
	store *index.Store
}

var _ research.Monitor = (*traceMonitor)(nil)

func newTraceMonitor(w io.Writer, store *index.Store) *traceMonitor {
	return &traceMonitor{w: w, store: store}
}

func (m *traceMonitor) printf(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintf(m.w, format, args...)
}

func (m *traceMonitor) Start(plan *core.QueryPlan) {
	m.printf("plan: %s\n", planner.MarshalPlan(plan))
}

func (m *traceMonitor) AfterThemes(i int, sel navigator.Selection) {
	m.printf("  [%d] themes %s: %s\n", i+1, sel.Outcome, strings.Join(sel.IDs, ", "))
}

func (m *traceMonitor) AfterEpisodes(i int, sel navigator.Selection) {
	names := make([]string, 0, len(sel.IDs))
	for _, id := range sel.IDs {
		if ep, ok := m.store.Episode(id); ok {
			names = append(names, ep.Guest+" ("+id+")")
		} else {
			names = append(names, id)
		}
	}
	m.printf("  [%d] episodes %s: %s\n", i+1, sel.Outcome, strings.Join(names, ", "))
	if len(sel.Discarded) > 0 {
		m.printf("  [%d] discarded: %s\n", i+1, strings.Join(sel.Discarded, ", "))
	}
}

func (m *traceMonitor) AfterBroadPass(episodeIDs []string) {
	m.printf("broad pass: %d episodes\n", len(episodeIDs))
}

func (m *traceMonitor) AfterTopics(i int, sel navigator.Selection) {
	m.printf("  [%d] topics %s: %s\n", i+1, sel.Outcome, strings.Join(sel.IDs, ", "))
}

func (m *traceMonitor) AfterQuotes(i int, quotes []core.QuoteChunk) {
	m.printf("  [%d] quotes: %d\n", i+1, len(quotes))
}

func (m *traceMonitor) AfterAssessment(round int, a navigator.Assessment) {
	if a.Err != nil {
		m.printf("round %d: sufficiency unknown: %v\n", round, a.Err)
		return
	}
	line := fmt.Sprintf("round %d: sufficient=%t confidence %.0f%%", round, a.Sufficient, 100*a.Confidence)
	if len(a.SuggestedThemes) > 0 {
		line += ", exploring " + strings.Join(a.SuggestedThemes, ", ")
	}
	m.printf("%s\n", line)
}

func (m *traceMonitor) Finish(result *core.RetrievalResult) {
	m.printf("retrieved %d quotes from %d topics in %d round(s)\n", len(result.Quotes), len(result.TopicIDs), result.Iterations)
}

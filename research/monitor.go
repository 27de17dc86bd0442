package research

import (
	"github.com/poiesic/pageindex/core"
	"github.com/poiesic/pageindex/navigator"
)

// Monitor provides hooks to observe retrieval.
// Implement this interface to track intermediate selections during a run.
type Monitor interface {
	Start(plan *core.QueryPlan)
	AfterThemes(subQuestion int, sel navigator.Selection)
	AfterEpisodes(subQuestion int, sel navigator.Selection)
	AfterBroadPass(episodeIDs []string)
	AfterTopics(subQuestion int, sel navigator.Selection)
	AfterQuotes(subQuestion int, quotes []core.QuoteChunk)
	AfterAssessment(iteration int, a navigator.Assessment)
	Finish(result *core.RetrievalResult)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ *core.QueryPlan)                       {}
func (n *noopMonitor) AfterThemes(_ int, _ navigator.Selection)      {}
func (n *noopMonitor) AfterEpisodes(_ int, _ navigator.Selection)    {}
func (n *noopMonitor) AfterBroadPass(_ []string)                     {}
func (n *noopMonitor) AfterTopics(_ int, _ navigator.Selection)      {}
func (n *noopMonitor) AfterQuotes(_ int, _ []core.QuoteChunk)        {}
func (n *noopMonitor) AfterAssessment(_ int, _ navigator.Assessment) {}
func (n *noopMonitor) Finish(_ *core.RetrievalResult)                {}

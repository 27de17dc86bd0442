// Package research runs the navigator across every sub-question of a plan.
//
// Retrieval happens in two strictly ordered passes. The broad pass selects
// themes and then episodes for each sub-question; the episode lists are merged
// with MergeRanked so an episode chosen by more sub-questions ranks higher.
// The deep pass restricts every sub-question to the merged episodes, selects
// topics and looks up their quote chunks. Quotes are deduplicated by their
// (text, timestamp, episode) identity and capped per sub-question.
//
// Sub-questions within a pass run concurrently on an ants worker pool whose
// size bounds the number of simultaneous navigator calls. If the broad pass
// finds no episode for any sub-question, Retrieve fails with a
// core.CodeRetrievalFailed error.
//
// A Monitor observes each stage. Callbacks are made from the calling
// goroutine in sub-question order after a pass completes, so implementations
// need no locking.
package research

package navigator

import (
	"context"
	"fmt"
	"strings"

	"github.com/poiesic/pageindex/ai"
	"github.com/poiesic/pageindex/core"
)

// SelectThemes asks the model which themes are relevant to query.
// Every theme in the index is a candidate.
func (n *Navigator) SelectThemes(ctx context.Context, query string) Selection {
	themes := n.store.Themes()

	var b strings.Builder
	fmt.Fprintf(&b, "USER QUERY: %s\n\nAVAILABLE THEMES (these are the ONLY valid theme ids):\n", query)
	ids := make([]string, len(themes))
	for i, t := range themes {
		ids[i] = t.ID
		fmt.Fprintf(&b, "- **%s**: %s. %s (%d episodes)\n",
			t.ID, t.Name, t.Description, len(n.store.EpisodesByTheme(t.ID)))
	}

	return n.run(ctx, selectionCall{
		stage:      "themes",
		key:        "selected_themes",
		request:    ai.Request{System: themePrompt, User: b.String(), JSON: true},
		candidates: ids,
		fallback:   n.fallbackThemes,
	})
}

// EpisodeCandidates lists the episodes eligible for selection, in corpus order.
//
// Without a guest, these are the episodes under any of themeIDs. With a guest,
// they are that guest's episodes under themeIDs, or all of the guest's
// episodes when none fall under the selected themes.
func (n *Navigator) EpisodeCandidates(themeIDs []string, guest string) []core.Episode {
	inTheme := make(map[string]struct{}, len(themeIDs))
	for _, id := range themeIDs {
		inTheme[id] = struct{}{}
	}
	underThemes := func(ep core.Episode) bool {
		for _, id := range ep.ThemeIDs {
			if _, ok := inTheme[id]; ok {
				return true
			}
		}
		return false
	}

	if guest != "" {
		all := n.store.EpisodesByGuest(guest)
		var matched []core.Episode
		for _, ep := range all {
			if underThemes(ep) {
				matched = append(matched, ep)
			}
		}
		if len(matched) > 0 {
			return matched
		}
		return all
	}

	var out []core.Episode
	for _, ep := range n.store.Episodes() {
		if underThemes(ep) {
			out = append(out, ep)
		}
	}
	return out
}

// SelectEpisodes asks the model which candidate episodes are relevant.
// Only the first MaxEpisodeCandidates candidates are offered.
func (n *Navigator) SelectEpisodes(ctx context.Context, query string, candidates []core.Episode, speaker string) Selection {
	if n.maxEpisodeCandidates > 0 && len(candidates) > n.maxEpisodeCandidates {
		candidates = candidates[:n.maxEpisodeCandidates]
	}
	if speaker == "" {
		speaker = "None"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "USER QUERY: %s\n\nNAMED SPEAKER: %s\n\nEPISODES:\n", query, speaker)
	ids := make([]string, len(candidates))
	for i, ep := range candidates {
		ids[i] = ep.ID
		fmt.Fprintf(&b, "- **%s** (%s): %s. %s\n", ep.ID, ep.Guest, ep.Title, truncate(ep.Summary, n.summaryChars))
	}

	return n.run(ctx, selectionCall{
		stage:      "episodes",
		key:        "selected_episodes",
		request:    ai.Request{System: episodePrompt, User: b.String(), JSON: true},
		candidates: ids,
		fallback:   n.fallbackEpisodes,
	})
}

// TopicCandidates lists the topics of the given episodes, in episode order.
func (n *Navigator) TopicCandidates(episodeIDs []string) []core.Topic {
	var out []core.Topic
	for _, id := range episodeIDs {
		out = append(out, n.store.TopicsByEpisode(id)...)
	}
	return out
}

// SelectTopics asks the model which candidate topics are relevant.
func (n *Navigator) SelectTopics(ctx context.Context, query string, candidates []core.Topic) Selection {
	var b strings.Builder
	fmt.Fprintf(&b, "USER QUERY: %s\n\nTOPICS:\n", query)
	ids := make([]string, len(candidates))
	for i, t := range candidates {
		ids[i] = t.ID
		guest := "Unknown"
		if ep, ok := n.store.Episode(t.EpisodeID); ok {
			guest = ep.Guest
		}
		fmt.Fprintf(&b, "- **%s** (%s): %s. %s\n", t.ID, guest, t.Label, truncate(t.Description, n.summaryChars))
	}

	return n.run(ctx, selectionCall{
		stage:      "topics",
		key:        "selected_topics",
		request:    ai.Request{System: topicPrompt, User: b.String(), JSON: true},
		candidates: ids,
		fallback:   n.fallbackTopics,
	})
}

// RetrieveQuotes returns the quote chunks of the given topics, in topic order.
// Unknown topic ids are skipped.
func (n *Navigator) RetrieveQuotes(topicIDs []string) []core.QuoteChunk {
	var out []core.QuoteChunk
	for _, id := range topicIDs {
		quotes := n.store.QuotesByTopic(id)
		if n.maxQuotesPerTopic > 0 && len(quotes) > n.maxQuotesPerTopic {
			quotes = quotes[:n.maxQuotesPerTopic]
		}
		out = append(out, quotes...)
	}
	return out
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

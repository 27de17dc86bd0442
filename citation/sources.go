package citation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/poiesic/pageindex/core"
)

// Sources lists the distinct episodes of passages in order of first use.
// The link of a source is its episode's link base.
func Sources(passages []core.Passage) []core.Source {
	seen := make(map[string]struct{})
	var out []core.Source
	for _, p := range passages {
		id := p.Chunk.SourceEpisodeID
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, core.Source{
			EpisodeID: id,
			Title:     p.EpisodeTitle,
			Guest:     p.Guest,
			DeepLink:  p.DeepLinkBase,
		})
	}
	return out
}

// FormatSourcesSection renders a markdown "Sources" section for the verified
// citations, one line per episode listing the referenced timestamps.
// It returns "" when no citation is verified.
func FormatSourcesSection(citations []core.Citation, sources []core.Source) string {
	byID := make(map[string]core.Source, len(sources))
	for _, s := range sources {
		byID[s.EpisodeID] = s
	}

	type group struct {
		title, guest, link string
		timestamps         map[string]struct{}
	}
	var order []string
	groups := make(map[string]*group)
	for _, c := range citations {
		if !c.Verified {
			continue
		}
		key := c.EpisodeID
		if key == "" {
			key = c.EpisodeTitle
		}
		g, ok := groups[key]
		if !ok {
			g = &group{title: c.EpisodeTitle, guest: c.Speaker, link: c.DeepLink, timestamps: make(map[string]struct{})}
			if s, ok := byID[c.EpisodeID]; ok {
				g.title, g.guest, g.link = s.Title, s.Guest, s.DeepLink
			}
			groups[key] = g
			order = append(order, key)
		}
		g.timestamps[c.Timestamp] = struct{}{}
	}
	if len(order) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\n---\n\n## Sources\n\n")
	for _, key := range order {
		g := groups[key]
		stamps := make([]string, 0, len(g.timestamps))
		for ts := range g.timestamps {
			stamps = append(stamps, ts)
		}
		sort.Strings(stamps)
		fmt.Fprintf(&b, "- **%s**: [%s](%s) (Referenced at: %s)\n", g.guest, g.title, g.link, strings.Join(stamps, ", "))
	}
	return b.String()
}

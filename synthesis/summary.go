package synthesis

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/poiesic/pageindex/ai"
	"github.com/poiesic/pageindex/core"
)

const (
	maxSupportingPoints = 4
	maxKeyQuotes        = 3
)

// Palette is the fixed colour order for supporting points.
var Palette = []string{"#8B5CF6", "#F59E0B", "#10B981", "#3B82F6"}

var summaryBlock = regexp.MustCompile("```(?:executive_summary|json)\\s*(\\{[\\s\\S]*?\\})\\s*```")

type summaryWire struct {
	MainInsight      string `json:"main_insight"`
	SupportingPoints []struct {
		ID          string `json:"id"`
		Label       string `json:"label"`
		Description string `json:"description"`
		Color       string `json:"color"`
	} `json:"supporting_points"`
	KeyQuotes []struct {
		Text        string `json:"text"`
		Speaker     string `json:"speaker"`
		Timestamp   string `json:"timestamp"`
		DeepLink    string `json:"deep_link"`
		YoutubeLink string `json:"youtube_link"`
		Supports    string `json:"supports"`
	} `json:"key_quotes"`
}

// ParseExecutiveSummary splits a draft into prose and its summary block.
// A malformed block is dropped from the prose and yields a nil summary; a
// draft without a block is returned unchanged.
func ParseExecutiveSummary(text string) (string, *core.ExecutiveSummary) {
	loc := summaryBlock.FindStringSubmatchIndex(text)
	if loc == nil {
		return text, nil
	}
	prose := strings.TrimRight(text[:loc[0]], " \t\r\n")
	if rest := strings.TrimSpace(text[loc[1]:]); rest != "" {
		prose += "\n\n" + rest
	}

	raw := text[loc[2]:loc[3]]
	var wire summaryWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		wire = summaryWire{}
		if err := ai.DecodeJSON(raw, &wire); err != nil {
			return prose, nil
		}
	}
	return prose, wire.normalize()
}

// normalize caps list lengths and fills missing ids and colours.
// It returns nil when there is no main insight.
func (w summaryWire) normalize() *core.ExecutiveSummary {
	insight := strings.TrimSpace(w.MainInsight)
	if insight == "" {
		return nil
	}
	s := &core.ExecutiveSummary{MainInsight: insight}
	for i, sp := range w.SupportingPoints {
		if i == maxSupportingPoints {
			break
		}
		p := core.SupportingPoint{
			ID:          strings.TrimSpace(sp.ID),
			Label:       strings.TrimSpace(sp.Label),
			Description: strings.TrimSpace(sp.Description),
			Color:       strings.TrimSpace(sp.Color),
		}
		if p.ID == "" {
			p.ID = fmt.Sprintf("sp%d", i+1)
		}
		if p.Color == "" {
			p.Color = Palette[i%len(Palette)]
		}
		s.SupportingPoints = append(s.SupportingPoints, p)
	}
	for i, kq := range w.KeyQuotes {
		if i == maxKeyQuotes {
			break
		}
		link := kq.DeepLink
		if link == "" {
			link = kq.YoutubeLink
		}
		s.KeyQuotes = append(s.KeyQuotes, core.KeyQuote{
			Text:      strings.TrimSpace(kq.Text),
			Speaker:   strings.TrimSpace(kq.Speaker),
			Timestamp: strings.TrimSpace(kq.Timestamp),
			DeepLink:  link,
			Supports:  strings.TrimSpace(kq.Supports),
		})
	}
	return s
}

// LinkKeyQuotes fills key quote deep links from verified citations, matching
// by timestamp first and then by speaker. Links the writer left in place are
// only replaced by a timestamp match.
func LinkKeyQuotes(summary *core.ExecutiveSummary, citations []core.Citation) {
	if summary == nil {
		return
	}
	byTimestamp := make(map[string]string)
	bySpeaker := make(map[string]string)
	for _, c := range citations {
		if !c.Verified || c.DeepLink == "" {
			continue
		}
		if _, ok := byTimestamp[c.Timestamp]; !ok {
			byTimestamp[c.Timestamp] = c.DeepLink
		}
		key := strings.ToLower(c.Speaker)
		if _, ok := bySpeaker[key]; !ok {
			bySpeaker[key] = c.DeepLink
		}
	}
	for i := range summary.KeyQuotes {
		kq := &summary.KeyQuotes[i]
		if link, ok := byTimestamp[kq.Timestamp]; ok {
			kq.DeepLink = link
			continue
		}
		if kq.DeepLink == "" {
			kq.DeepLink = bySpeaker[strings.ToLower(kq.Speaker)]
		}
	}
}

package navigator

import (
	"context"
	"fmt"
	"strings"

	"github.com/poiesic/pageindex/ai"
	"github.com/poiesic/pageindex/core"
)

const (
	// maxAssessedQuotes bounds the quotes shown to the model.
	maxAssessedQuotes = 20
	// defaultConfidence stands in when the model omits a confidence.
	defaultConfidence = 0.5
)

// Assessment is the model's judgement of whether retrieved quotes answer a
// query.
type Assessment struct {
	Sufficient bool
	// Confidence is the model's confidence raised by quote count and theme
	// coverage, capped at 1.
	Confidence float64
	// SuggestedThemes are valid theme ids not yet explored.
	SuggestedThemes []string
	Missing         []string
	// Err is set when the model could not be asked. The assessment is then
	// treated as sufficient.
	Err error
}

type sufficiencyResponse struct {
	Sufficient      bool     `json:"sufficient"`
	Confidence      *float64 `json:"confidence"`
	MissingAspects  []string `json:"missing_aspects"`
	SuggestedThemes []string `json:"suggested_themes"`
}

// AssessSufficiency asks the model whether quotes answer query, given the
// themes already explored.
//
// No quotes is never sufficient and needs no model call. A failed call ends
// the search rather than widening it, so the assessment reports sufficient
// with Err set.
func (n *Navigator) AssessSufficiency(ctx context.Context, query string, quotes []core.QuoteChunk, explored []string) Assessment {
	if len(quotes) == 0 {
		return Assessment{}
	}

	done := make(map[string]struct{}, len(explored))
	for _, id := range explored {
		done[id] = struct{}{}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "USER QUERY: %s\n\nRETRIEVED QUOTES AND CONTEXT:\n", query)
	for _, q := range quotes[:min(len(quotes), maxAssessedQuotes)] {
		label := ""
		if t, ok := n.store.Topic(q.TopicID); ok {
			label = t.Label
		}
		fmt.Fprintf(&b, "\n**%s** (%s)\n> \"%s\"\n", q.Speaker, label, q.Text)
	}
	b.WriteString("\nSUGGESTABLE THEMES:\n")
	for _, t := range n.store.Themes() {
		if _, ok := done[t.ID]; !ok {
			fmt.Fprintf(&b, "- **%s**: %s. %s\n", t.ID, t.Name, t.Description)
		}
	}

	var resp sufficiencyResponse
	res := n.policy.Do(ctx, func(ctx context.Context, _ int) error {
		text, err := n.reasoner.Reason(ctx, ai.Request{
			System: sufficiencyPrompt,
			User:   b.String(),
			JSON:   true,
		})
		if err != nil {
			return err
		}
		resp = sufficiencyResponse{}
		return ai.DecodeJSON(text, &resp)
	})
	if !res.Succeeded() {
		n.logger.Warn("sufficiency assessment failed", "err", res.Err, "attempts", res.Attempts)
		return Assessment{Sufficient: true, Err: res.Err}
	}

	confidence := defaultConfidence
	if resp.Confidence != nil {
		confidence = min(max(*resp.Confidence, 0), 1)
	}
	confidence += min(0.3, 0.01*float64(len(quotes)))
	confidence += min(0.2, 0.1*float64(len(explored)))

	a := Assessment{
		Sufficient: resp.Sufficient,
		Confidence: min(confidence, 1),
		Missing:    resp.MissingAspects,
	}
	if !a.Sufficient {
		a.SuggestedThemes = n.suggestedThemes(resp.SuggestedThemes, done)
	}
	return a
}

// suggestedThemes maps suggestions onto theme ids, matching ids exactly and
// names without case. Explored, unknown and repeated themes are dropped.
func (n *Navigator) suggestedThemes(named []string, explored map[string]struct{}) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, s := range named {
		s = strings.TrimSpace(s)
		id := ""
		if _, ok := n.store.Theme(s); ok {
			id = s
		} else {
			for _, t := range n.store.Themes() {
				if strings.EqualFold(t.Name, s) {
					id = t.ID
					break
				}
			}
		}
		if id == "" {
			n.logger.Debug("suggested theme is unknown", "theme", s)
			continue
		}
		if _, ok := explored[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

package research

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/poiesic/pageindex/ai"
)

// Script answers navigator calls from fixed tables keyed by the sub-question
// text. Questions missing from a table get an empty selection. It is meant
// for tests that need a deterministic navigator, for example:
//
//	r := mock.NewReasoner().WithReasonFunc(script.Reason)
type Script struct {
	Themes   map[string][]string
	Episodes map[string][]string
	Topics   map[string][]string
	// Suggest holds the themes a sufficiency assessment suggests, keyed by
	// the raw query. A query with no suggestions is judged sufficient.
	Suggest map[string][]string
	// Speaker is returned by speaker extraction. Empty means no speaker.
	Speaker string
}

// Reason implements ai.Reasoner for navigator requests.
func (s Script) Reason(ctx context.Context, req ai.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	query := scriptQuery(req.User)
	switch {
	case strings.Contains(req.User, "RETRIEVED QUOTES"):
		suggested := s.Suggest[query]
		b, err := json.Marshal(map[string]any{
			"sufficient":       len(suggested) == 0,
			"confidence":       0.5,
			"suggested_themes": append([]string{}, suggested...),
		})
		return string(b), err
	case strings.Contains(req.User, "AVAILABLE THEMES"):
		return selectionJSON("selected_themes", s.Themes[query])
	case strings.Contains(req.User, "\nEPISODES:"):
		return selectionJSON("selected_episodes", s.Episodes[query])
	case strings.Contains(req.User, "\nTOPICS:"):
		return selectionJSON("selected_topics", s.Topics[query])
	case strings.HasPrefix(req.User, "QUERY:"):
		if s.Speaker == "" {
			return `{"named_speaker": null, "is_speaker_specific": false}`, nil
		}
		b, err := json.Marshal(map[string]any{"named_speaker": s.Speaker, "is_speaker_specific": true})
		return string(b), err
	}
	return "{}", nil
}

func scriptQuery(user string) string {
	line, _, _ := strings.Cut(user, "\n")
	return strings.TrimSpace(strings.TrimPrefix(line, "USER QUERY:"))
}

func selectionJSON(key string, ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(map[string]any{key: ids, "reasoning": "scripted"})
	return string(b), err
}

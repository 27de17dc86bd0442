package navigator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/poiesic/pageindex/ai"
	"github.com/poiesic/pageindex/retry"
)

// Outcome tags how a selection stage concluded.
type Outcome int

const (
	// OutcomeSelected means the model returned at least one valid id.
	OutcomeSelected Outcome = iota
	// OutcomeEmpty means every attempt was a well-formed "nothing relevant".
	OutcomeEmpty
	// OutcomeFallback means attempts ended in errors or invalid output and the
	// stage degraded to the first candidates in corpus order.
	OutcomeFallback
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSelected:
		return "selected"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFallback:
		return "fallback"
	}
	return "unknown"
}

// Selection is the result of one selection stage.
type Selection struct {
	// IDs are the selected candidate ids, ranked, deduplicated and always a
	// subset of the candidate set.
	IDs       []string
	Reasoning string
	Outcome   Outcome
	Attempts  int
	// Discarded lists ids the model named that were not candidates.
	Discarded []string
	// Err is the last attempt's error when the stage fell back.
	Err error
}

// verdict classifies a single attempt.
type verdict int

const (
	verdictIDs verdict = iota
	verdictEmpty
	verdictInvalid
	verdictError
)

// attempt is the tagged result of one selection call.
type attempt struct {
	verdict   verdict
	ids       []string
	discarded []string
	reasoning string
	err       error
}

// selectionCall describes one stage's model call.
type selectionCall struct {
	stage      string
	key        string
	request    ai.Request
	candidates []string
	fallback   int
}

// run executes the call under the retry policy and reduces the attempts into
// a Selection.
func (n *Navigator) run(ctx context.Context, call selectionCall) Selection {
	if len(call.candidates) == 0 {
		return Selection{Outcome: OutcomeEmpty}
	}

	valid := make(map[string]struct{}, len(call.candidates))
	for _, id := range call.candidates {
		valid[id] = struct{}{}
	}

	var last attempt
	allEmpty := true
	var discarded []string
	res := n.policy.Do(ctx, func(ctx context.Context, try int) error {
		last = n.attempt(ctx, call, valid)
		discarded = append(discarded, last.discarded...)
		if last.verdict != verdictEmpty {
			allEmpty = false
		}
		switch last.verdict {
		case verdictIDs:
			return nil
		case verdictEmpty:
			return ErrEmptySelection
		default:
			n.logger.Debug("selection attempt failed",
				"stage", call.stage,
				"attempt", try,
				"err", last.err)
			return last.err
		}
	})

	switch {
	case res.Succeeded():
		return Selection{
			IDs:       last.ids,
			Reasoning: last.reasoning,
			Outcome:   OutcomeSelected,
			Attempts:  res.Attempts,
			Discarded: discarded,
		}
	case allEmpty && res.State == retry.StateExhausted:
		return Selection{
			Reasoning: last.reasoning,
			Outcome:   OutcomeEmpty,
			Attempts:  res.Attempts,
		}
	}

	limit := min(call.fallback, len(call.candidates))
	n.logger.Warn("selection degraded to corpus order",
		"stage", call.stage,
		"attempts", res.Attempts,
		"state", res.State.String(),
		"kept", limit,
		"err", res.Err)
	return Selection{
		IDs:       append([]string(nil), call.candidates[:limit]...),
		Reasoning: fmt.Sprintf("fallback to first %d candidates in corpus order", limit),
		Outcome:   OutcomeFallback,
		Attempts:  res.Attempts,
		Discarded: discarded,
		Err:       res.Err,
	}
}

// attempt makes one model call and validates its output against the candidate set.
func (n *Navigator) attempt(ctx context.Context, call selectionCall, valid map[string]struct{}) attempt {
	text, err := n.reasoner.Reason(ctx, call.request)
	if err != nil {
		return attempt{verdict: verdictError, err: err}
	}

	var raw map[string]json.RawMessage
	if err := ai.DecodeJSON(text, &raw); err != nil {
		return attempt{verdict: verdictInvalid, err: fmt.Errorf("%w: %v", ErrInvalidSelection, err)}
	}
	field, ok := raw[call.key]
	if !ok {
		return attempt{verdict: verdictInvalid, err: fmt.Errorf("%w: missing %q", ErrInvalidSelection, call.key)}
	}
	var named []string
	if string(field) != "null" {
		if err := json.Unmarshal(field, &named); err != nil {
			return attempt{verdict: verdictInvalid, err: fmt.Errorf("%w: %q is not a list of ids: %v", ErrInvalidSelection, call.key, err)}
		}
	}
	var reasoning string
	if r, ok := raw["reasoning"]; ok {
		_ = json.Unmarshal(r, &reasoning)
	}

	ids, discarded := filterIDs(named, valid)
	if len(discarded) > 0 {
		n.logger.Warn("selection named unknown ids", "stage", call.stage, "ids", discarded)
	}
	switch {
	case len(ids) > 0:
		return attempt{verdict: verdictIDs, ids: ids, discarded: discarded, reasoning: reasoning}
	case len(named) == 0:
		return attempt{verdict: verdictEmpty, reasoning: reasoning}
	default:
		return attempt{
			verdict:   verdictInvalid,
			discarded: discarded,
			err:       fmt.Errorf("%w: none of %d ids are candidates", ErrInvalidSelection, len(named)),
		}
	}
}

// filterIDs keeps candidate ids in response order, dropping duplicates.
func filterIDs(named []string, valid map[string]struct{}) (ids, discarded []string) {
	seen := make(map[string]struct{}, len(named))
	for _, id := range named {
		id = strings.TrimSpace(id)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := valid[id]; ok {
			ids = append(ids, id)
		} else {
			discarded = append(discarded, id)
		}
	}
	return ids, discarded
}

// IsDegraded reports whether a selection came from the fallback ordering.
func (s Selection) IsDegraded() bool {
	return s.Outcome == OutcomeFallback
}

package navigator

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/pageindex/ai"
)

// Speaker is the person a query asks about.
type Speaker struct {
	// Name is the name as extracted from the query.
	Name string
	// Guest is the canonical corpus guest when Name resolves unambiguously.
	Guest string
}

// Unambiguous reports whether the speaker maps to exactly one corpus guest.
func (s Speaker) Unambiguous() bool {
	return s.Guest != ""
}

type speakerResponse struct {
	NamedSpeaker      *string `json:"named_speaker"`
	IsSpeakerSpecific bool    `json:"is_speaker_specific"`
}

// ExtractSpeaker finds the guest a query asks about.
//
// A query that spells out exactly one corpus guest's full name short-circuits
// without a model call. Otherwise a single reasoning call extracts the name,
// which is then resolved against corpus guests. Failures are logged and yield
// the zero Speaker; speaker extraction never fails a request.
func (n *Navigator) ExtractSpeaker(ctx context.Context, query string) Speaker {
	if guest, ok := n.namedGuest(query); ok {
		n.logger.Debug("speaker named verbatim", "guest", guest)
		return Speaker{Name: guest, Guest: guest}
	}

	var resp speakerResponse
	res := n.policy.Do(ctx, func(ctx context.Context, _ int) error {
		text, err := n.reasoner.Reason(ctx, ai.Request{
			System: speakerPrompt,
			User:   "QUERY: " + query,
			JSON:   true,
		})
		if err != nil {
			return err
		}
		resp = speakerResponse{}
		return ai.DecodeJSON(text, &resp)
	})
	if !res.Succeeded() {
		n.logger.Warn("speaker extraction failed", "err", res.Err, "attempts", res.Attempts)
		return Speaker{}
	}
	if !resp.IsSpeakerSpecific || resp.NamedSpeaker == nil {
		return Speaker{}
	}
	return n.ResolveSpeaker(*resp.NamedSpeaker)
}

// ResolveSpeaker maps a free-form name onto a corpus guest.
func (n *Navigator) ResolveSpeaker(name string) Speaker {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "null") || strings.EqualFold(name, "none") {
		return Speaker{}
	}
	sp := Speaker{Name: name}
	if guest, ok := n.store.ResolveSingleGuest(name); ok {
		sp.Guest = guest
	} else {
		n.logger.Debug("speaker does not resolve to a single guest", "name", name)
	}
	return sp
}

// namedGuest returns the single corpus guest whose full name appears in
// query as whole words.
func (n *Navigator) namedGuest(query string) (string, bool) {
	q := strings.ToLower(query)
	found := ""
	for _, g := range n.store.Guests() {
		if containsWord(q, strings.ToLower(g)) {
			if found != "" {
				return "", false
			}
			found = g
		}
	}
	return found, found != ""
}

// containsWord reports whether needle occurs in s with no letter or digit
// directly before or after it.
func containsWord(s, needle string) bool {
	if needle == "" {
		return false
	}
	for from := 0; from < len(s); {
		i := strings.Index(s[from:], needle)
		if i < 0 {
			return false
		}
		start, end := from+i, from+i+len(needle)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if !isWordRune(before) && !isWordRune(after) {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		from = start + size
	}
	return false
}

func isWordRune(r rune) bool {
	return r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

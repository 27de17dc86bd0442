package index

import (
	"strings"

	"github.com/xrash/smetrics"
)

const (
	// guestSimilarity is the Jaro-Winkler score above which two spellings
	// name the same guest.
	guestSimilarity = 0.9

	// minGuestSubstring is the shortest name fragment matched by containment.
	minGuestSubstring = 3
)

// ResolveGuest maps a free-form name onto canonical corpus guests.
//
// An exact case-insensitive match wins outright. Otherwise every guest whose
// name contains, or is contained in, the query matches; when none do, close
// spellings by Jaro-Winkler similarity match. The caller treats anything other
// than exactly one result as ambiguous.
func (s *Store) ResolveGuest(name string) []string {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil
	}

	var contained []string
	for _, g := range s.guests {
		hay := strings.ToLower(g)
		if hay == needle {
			return []string{g}
		}
		if len(needle) >= minGuestSubstring && (strings.Contains(hay, needle) || strings.Contains(needle, hay)) {
			contained = append(contained, g)
		}
	}
	if len(contained) > 0 {
		return contained
	}

	var similar []string
	for _, g := range s.guests {
		if smetrics.JaroWinkler(needle, strings.ToLower(g), 0.7, 4) >= guestSimilarity {
			similar = append(similar, g)
		}
	}
	return similar
}

// ResolveSingleGuest returns the canonical guest when name resolves unambiguously.
func (s *Store) ResolveSingleGuest(name string) (string, bool) {
	matches := s.ResolveGuest(name)
	if len(matches) != 1 {
		return "", false
	}
	return matches[0], true
}

package research

import "sort"

// MergeRanked unions ranked id lists into one ranking.
//
// Ids chosen by more lists rank higher. Among ids with the same count, the
// one seen first wins, scanning lists in order and each list from its top.
// Every id appears once in the result.
func MergeRanked(lists [][]string) []string {
	type tally struct {
		id    string
		votes int
		first int
	}
	byID := make(map[string]*tally)
	var order []*tally
	for _, list := range lists {
		seen := make(map[string]struct{}, len(list))
		for _, id := range list {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			t, ok := byID[id]
			if !ok {
				t = &tally{id: id, first: len(order)}
				byID[id] = t
				order = append(order, t)
			}
			t.votes++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].votes != order[j].votes {
			return order[i].votes > order[j].votes
		}
		return order[i].first < order[j].first
	})

	out := make([]string, len(order))
	for i, t := range order {
		out[i] = t.id
	}
	return out
}

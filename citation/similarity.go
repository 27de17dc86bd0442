// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package citation

import (
	"cmp"
	"slices"
	"strings"

	"github.com/xrash/smetrics"
)

// Similarity returns how closely quote matches text on a 0-100 scale.
//
// A quote contained in text, ignoring ASCII case, scores 100. Otherwise the
// score is the best indel ratio between the quote and a window of text that
// starts and ends on word boundaries.
func Similarity(quote, text string) float64 {
	score, _, _ := partialMatch(quote, text, 0)
	return score
}

// partialMatch returns the similarity score and the byte range of text that
// produced it.
//
// Windows are scored most promising first, at most maxScoredWindows of them,
// and scoring stops once no remaining window can beat the best so far.
// Windows that cannot come within refineMargin of floor are not scored, so a
// score well under floor is an estimate.
func partialMatch(quote, text string, floor float64) (score float64, start, end int) {
	q := strings.TrimSpace(foldASCII(quote))
	t := foldASCII(text)
	if q == "" || t == "" {
		return 0, 0, 0
	}
	if i := strings.Index(t, q); i >= 0 {
		return 100, i, i + len(q)
	}
	if len(t) <= len(q) {
		return ratio(q, t), 0, len(text)
	}

	starts := wordStarts(t)
	cutoff := floor - refineMargin
	best, order := -1.0, 0
	for i, w := range coarseWindows(q, t, starts) {
		if i == maxScoredWindows || w.bound < best || (i > 0 && w.bound < cutoff) {
			break
		}
		r := ratio(q, t[w.start:w.end])
		if r > best || (r == best && w.order < order) {
			best, order, start, end = r, w.order, w.start, w.end
		}
	}
	end = extendToWordEnd(t, end)
	if best >= max(refineFloor, cutoff) {
		best, start, end = refine(q, t, starts, best, start, end)
	}
	return best, start, end
}

const (
	// refineFloor is the coarse score above which window edges are refined.
	refineFloor = 60.0
	// refineMargin is how far refining a window's edges may raise its score.
	refineMargin = 10.0
	// maxScoredWindows caps the coarse windows scored per text.
	maxScoredWindows = 8
	// maxRefinedWindows caps the refined windows scored per text.
	maxRefinedWindows = 24
)

// window is a candidate byte range of the text with an upper bound on the
// ratio it can score. order is the position the window would have in a left
// to right scan and breaks ties between equal scores.
type window struct {
	start, end int
	order      int
	bound      float64
}

// coarseWindows returns one quote-length window per word start, most
// promising first.
func coarseWindows(q, t string, starts []int) []window {
	bag := newBagDiff(q)
	var wins []window
	s, e := 0, 0
	for _, ws := range starts {
		we := min(ws+len(q), len(t))
		for e < we {
			bag.push(t, s, e)
			e++
		}
		for s < ws {
			bag.pop(t, s, e)
			s++
		}
		wins = append(wins, window{start: ws, end: we, order: len(wins), bound: bag.bound(len(q) + we - ws)})
		if we == len(t) {
			break
		}
	}
	sortWindows(wins)
	return wins
}

// refine moves the window edges by whole words, up to a quarter of the
// quote's length either way, keeping the best scoring window.
func refine(q, t string, starts []int, score float64, start, end int) (float64, int, int) {
	best := max(score, ratio(q, t[start:end]))
	s0, e0 := start, end
	slack := len(q) / 4
	ends := wordEnds(t)
	profile := newBagDiff(q)

	var wins []window
	for _, s := range starts {
		if s < s0-slack || s > s0+slack {
			continue
		}
		for _, e := range ends {
			if e <= s || e < e0-slack || e > e0+slack {
				continue
			}
			bag := *profile
			for i := s; i < e; i++ {
				bag.push(t, s, i)
			}
			wins = append(wins, window{start: s, end: e, order: len(wins), bound: bag.bound(len(q) + e - s)})
		}
	}
	sortWindows(wins)

	order := -1
	for i, w := range wins {
		if i == maxRefinedWindows || w.bound < best {
			break
		}
		r := ratio(q, t[w.start:w.end])
		if r > best || (r == best && w.order < order) {
			best, order, start, end = r, w.order, w.start, w.end
		}
	}
	return best, start, end
}

func sortWindows(wins []window) {
	slices.SortFunc(wins, func(a, b window) int {
		if c := cmp.Compare(b.bound, a.bound); c != 0 {
			return c
		}
		return cmp.Compare(a.order, b.order)
	})
}

// bigramBuckets is the number of hash buckets for byte pairs. Collisions
// only loosen the bound.
const bigramBuckets = 2048

// bagDiff tracks the difference between the byte and byte-pair counts of
// the quote and of a window of text.
//
// Every insertion or deletion changes the byte counts by one and the pair
// counts by at most three, so both differences give a lower bound on the
// indel distance.
type bagDiff struct {
	uni    [256]int32
	bi     [bigramBuckets]int32
	d1, d2 int
}

func newBagDiff(q string) *bagDiff {
	b := &bagDiff{}
	for i := 0; i < len(q); i++ {
		b.addUni(q[i], 1)
		if i > 0 {
			b.addBi(q[i-1], q[i], 1)
		}
	}
	return b
}

// push adds t[e] to the end of the window t[s:e].
func (b *bagDiff) push(t string, s, e int) {
	b.addUni(t[e], -1)
	if e > s {
		b.addBi(t[e-1], t[e], -1)
	}
}

// pop removes t[s] from the front of the window t[s:e].
func (b *bagDiff) pop(t string, s, e int) {
	b.addUni(t[s], 1)
	if s+1 < e {
		b.addBi(t[s], t[s+1], 1)
	}
}

func (b *bagDiff) addUni(c byte, delta int32) {
	old := b.uni[c]
	b.uni[c] += delta
	b.d1 += abs(b.uni[c]) - abs(old)
}

func (b *bagDiff) addBi(x, y byte, delta int32) {
	h := (int(x)*131 + int(y)) & (bigramBuckets - 1)
	old := b.bi[h]
	b.bi[h] += delta
	b.d2 += abs(b.bi[h]) - abs(old)
}

// bound is the highest ratio the window can score, given the combined
// length of quote and window.
func (b *bagDiff) bound(total int) float64 {
	d := max(b.d1, (b.d2+2)/3)
	return 100 * (1 - float64(d)/float64(total))
}

func abs(n int32) int {
	if n < 0 {
		return int(-n)
	}
	return int(n)
}

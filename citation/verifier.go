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
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/poiesic/pageindex/core"
)

const (
	// DefaultVerifyThreshold is the ratio at or above which a quote is verified as written.
	DefaultVerifyThreshold = 85.0
	// DefaultFixThreshold is the ratio at or above which a quote is rewritten to the source text.
	DefaultFixThreshold = 80.0
	// DefaultUnverifiedMarker is appended after the closing quote of unverified quotes.
	DefaultUnverifiedMarker = " [UNVERIFIED]"

	minQuoteLen = 15
)

var (
	straightQuote = regexp.MustCompile(`"([^"]+)"`)
	curlyQuote    = regexp.MustCompile(`\x{201C}([^\x{201D}]+)\x{201D}`)
	attribution   = regexp.MustCompile(`^\s*(?:\x{2014}|\x{2013}|--|-)\s*([^,\n\["\x{201C}]+)`)

	// attributionTail is a whole attribution after a closing quote: the
	// speaker, then an optional quoted or linked title and timestamp.
	attributionTail = regexp.MustCompile(`^[ \t]*(?:\x{2014}|\x{2013}|--|-)[ \t]*([^,\n\["\x{201C}.!?;:]{1,60})` +
		`(,[ \t]*(?:"[^"\n]*"|\x{201C}[^\x{201D}\n]*\x{201D}|\[[^\]\n]*\]\([^)\n]*\)))?` +
		`([ \t]*\[\d{1,2}:\d{2}(?::\d{2})?\])?`)

	// titlePosition matches a dash, a speaker and a comma directly before an
	// opening quote.
	titlePosition = regexp.MustCompile(`(?:^|\s)(?:\x{2014}|\x{2013}|--|-)[ \t]*[^,\n\["\x{201C}\x{201D}.!?;:]{1,60},[ \t]*$`)
)

const (
	// titleLookback bounds how far before a quote titlePosition looks.
	titleLookback = 96
	maxNameWords  = 4
)

// Verifier checks draft quotes against source passages.
type Verifier struct {
	verifyThreshold float64
	fixThreshold    float64
	marker          string
	logger          *slog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithThresholds sets the verify and fix thresholds. Use Validate to check
// them before verifying.
func WithThresholds(verify, fix float64) Option {
	return func(v *Verifier) {
		v.verifyThreshold = verify
		v.fixThreshold = fix
	}
}

// WithUnverifiedMarker sets the text appended after unverified quotes.
// An empty marker leaves unverified quotes untouched.
func WithUnverifiedMarker(marker string) Option {
	return func(v *Verifier) {
		v.marker = marker
	}
}

// WithLogger sets the logger. A nil logger keeps the default.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// New creates a Verifier.
func New(opts ...Option) *Verifier {
	v := &Verifier{
		verifyThreshold: DefaultVerifyThreshold,
		fixThreshold:    DefaultFixThreshold,
		marker:          DefaultUnverifiedMarker,
		logger:          slog.Default().With("component", "citation"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks the configured thresholds.
func (v *Verifier) Validate() error {
	if v.fixThreshold < 0 || v.verifyThreshold > 100 || v.fixThreshold > v.verifyThreshold {
		return fmt.Errorf("%w: verify %.1f, fix %.1f", ErrInvalidThresholds, v.verifyThreshold, v.fixThreshold)
	}
	return nil
}

// Result is the outcome of verifying one draft.
type Result struct {
	// Content is the draft with auto-fixed quotes, canonical attributions after
	// verified quotes, and unverified markers.
	Content string
	// Citations holds one entry per distinct quote, in order of first appearance.
	Citations []core.Citation
	// Unverified lists the quotes that matched no passage well enough.
	Unverified []string
}

type span struct {
	start, end int // the whole quoted span, delimiters included
	open, shut string
	text       string
	speaker    string
}

type verdict struct {
	citation core.Citation
	replace  string
}

// Verify checks every quote in draft against passages.
func (v *Verifier) Verify(draft string, passages []core.Passage) Result {
	spans := v.extract(draft, passages)
	if len(spans) == 0 {
		return Result{Content: draft}
	}

	verdicts := make(map[string]verdict, len(spans))
	var res Result
	for _, sp := range spans {
		if _, done := verdicts[sp.text]; done {
			continue
		}
		vd := v.check(sp, passages)
		verdicts[sp.text] = vd
		res.Citations = append(res.Citations, vd.citation)
		if !vd.citation.Verified {
			res.Unverified = append(res.Unverified, sp.text)
		}
	}

	var b strings.Builder
	last := 0
	for i, sp := range spans {
		vd := verdicts[sp.text]
		b.WriteString(draft[last:sp.start])
		b.WriteString(sp.open)
		if vd.replace != "" {
			b.WriteString(vd.replace)
		} else {
			b.WriteString(sp.text)
		}
		b.WriteString(sp.shut)
		last = sp.end
		if vd.citation.Verified {
			limit := len(draft)
			if i+1 < len(spans) {
				limit = spans[i+1].start
			}
			b.WriteString(canonicalAttribution(vd.citation))
			last += attributionLen(draft[sp.end:limit])
		} else if v.marker != "" && !strings.HasPrefix(draft[sp.end:], v.marker) {
			b.WriteString(v.marker)
		}
	}
	b.WriteString(draft[last:])
	res.Content = b.String()

	v.logger.Debug("verified draft",
		"quotes", len(res.Citations),
		"unverified", len(res.Unverified))
	return res
}

// check finds the best passage for one quote and classifies the match.
func (v *Verifier) check(sp span, passages []core.Passage) verdict {
	candidates := passages
	if sp.speaker != "" {
		var bySpeaker []core.Passage
		for _, p := range passages {
			if strings.EqualFold(p.Chunk.Speaker, sp.speaker) || strings.EqualFold(p.Guest, sp.speaker) {
				bySpeaker = append(bySpeaker, p)
			}
		}
		if len(bySpeaker) > 0 {
			candidates = bySpeaker
		}
	}

	best := -1
	bestScore := -1.0
	var bestStart, bestEnd int
	for i, p := range candidates {
		score, start, end := partialMatch(sp.text, p.Chunk.Text, max(v.fixThreshold, bestScore))
		if score > bestScore {
			best, bestScore, bestStart, bestEnd = i, score, start, end
		}
		if score == 100 {
			break
		}
	}

	c := core.Citation{
		QuoteText:  sp.text,
		Speaker:    sp.speaker,
		Similarity: max(bestScore, 0),
	}
	if best < 0 || bestScore < v.fixThreshold {
		v.logger.Warn("quote not matched", "quote", preview(sp.text), "similarity", c.Similarity)
		return verdict{citation: c}
	}

	p := candidates[best]
	c.Speaker = p.Chunk.Speaker
	c.EpisodeID = p.Chunk.SourceEpisodeID
	c.EpisodeTitle = p.EpisodeTitle
	c.Timestamp = p.Chunk.Timestamp
	c.DeepLink = p.DeepLink()
	c.Verified = true

	if bestScore >= v.verifyThreshold {
		return verdict{citation: c}
	}
	fixed := strings.TrimSpace(strings.TrimRight(p.Chunk.Text[bestStart:bestEnd], " ,;:"))
	if fixed == "" {
		fixed = p.Chunk.Text
	}
	v.logger.Debug("quote auto-fixed", "similarity", bestScore, "from", preview(sp.text), "to", preview(fixed))
	c.QuoteText = fixed
	return verdict{citation: c, replace: fixed}
}

// extract finds the quoted spans of draft in order, skipping short spans,
// table cells and episode titles. A quoted string in the title slot of an
// attribution is a title even when it is not an exact episode title.
func (v *Verifier) extract(draft string, passages []core.Passage) []span {
	titles := make(map[string]struct{})
	for _, p := range passages {
		if p.EpisodeTitle != "" {
			titles[strings.ToLower(p.EpisodeTitle)] = struct{}{}
		}
	}

	var spans []span
	collect := func(re *regexp.Regexp, open, shut string) {
		for _, m := range re.FindAllStringSubmatchIndex(draft, -1) {
			text := draft[m[2]:m[3]]
			trimmed := strings.TrimSpace(text)
			if len([]rune(trimmed)) < minQuoteLen || strings.Contains(text, "|") {
				continue
			}
			if _, ok := titles[strings.ToLower(trimmed)]; ok {
				continue
			}
			if titlePosition.MatchString(draft[max(0, m[0]-titleLookback):m[0]]) {
				continue
			}
			spans = append(spans, span{
				start:   m[0],
				end:     m[1],
				open:    open,
				shut:    shut,
				text:    text,
				speaker: attributedSpeaker(draft[m[1]:]),
			})
		}
	}
	collect(straightQuote, `"`, `"`)
	collect(curlyQuote, "“", "”")

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	out := spans[:0]
	lastEnd := 0
	for _, sp := range spans {
		if sp.start < lastEnd {
			continue
		}
		out = append(out, sp)
		lastEnd = sp.end
	}
	return out
}

// attributedSpeaker reads "— Speaker," directly after a closing quote.
func attributedSpeaker(rest string) string {
	m := attribution.FindStringSubmatch(rest)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// canonicalAttribution renders the dash, speaker, quoted episode title and
// bracketed timestamp that follow a verified quote.
func canonicalAttribution(c core.Citation) string {
	var b strings.Builder
	b.WriteString(" — ")
	b.WriteString(c.Speaker)
	if c.EpisodeTitle != "" {
		b.WriteString(`, "`)
		b.WriteString(c.EpisodeTitle)
		b.WriteString(`"`)
	}
	if c.Timestamp != "" {
		b.WriteString(" [")
		b.WriteString(c.Timestamp)
		b.WriteString("]")
	}
	return b.String()
}

// attributionLen is the length of the attribution at the start of rest, or
// zero. A bare name after a dash only counts when it is short and ends the
// line, so prose after a dash is kept.
func attributionLen(rest string) int {
	m := attributionTail.FindStringSubmatchIndex(rest)
	if m == nil {
		return 0
	}
	if m[4] >= 0 || m[6] >= 0 {
		return m[1]
	}
	if len(strings.Fields(rest[m[2]:m[3]])) > maxNameWords {
		return 0
	}
	after := strings.TrimLeft(rest[m[1]:], " \t.")
	if after == "" || after[0] == '\n' {
		return len(strings.TrimRight(rest[:m[1]], " \t"))
	}
	return 0
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= 60 {
		return s
	}
	return string(r[:60]) + "..."
}

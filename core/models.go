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

package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Theme is a top-level topical grouping of episodes.
type Theme struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// Episode is one recorded conversation with an associated guest.
type Episode struct {
	ID           string   `json:"id" validate:"required"`
	Title        string   `json:"title" validate:"required"`
	Guest        string   `json:"guest" validate:"required"`
	Summary      string   `json:"summary"`
	ThemeIDs     []string `json:"theme_ids" validate:"min=1,dive,required"`
	DeepLinkBase string   `json:"deep_link_base"`
}

// Topic is a conversation segment within an episode.
type Topic struct {
	ID          string `json:"id" validate:"required"`
	EpisodeID   string `json:"episode_id"`
	Label       string `json:"label" validate:"required"`
	Description string `json:"description"`
}

// QuoteChunk is a verbatim transcript excerpt. It is the ground truth
// citations are verified against.
type QuoteChunk struct {
	TopicID         string `json:"topic_id"`
	Text            string `json:"text" validate:"required"`
	Speaker         string `json:"speaker" validate:"required"`
	Timestamp       string `json:"timestamp" validate:"required"`
	SourceEpisodeID string `json:"episode_id" validate:"required"`
}

// Identity returns the chunk's deduplication identity, derived from the
// (text, timestamp, episode) triple.
func (q QuoteChunk) Identity() ID {
	return IDFromContent(q.Text + "\x00" + q.Timestamp + "\x00" + q.SourceEpisodeID)
}

// Passage is a retrieved quote chunk joined with the episode and topic
// metadata needed for synthesis and citation.
type Passage struct {
	Chunk        QuoteChunk
	EpisodeTitle string
	Guest        string
	TopicLabel   string
	DeepLinkBase string
}

// DeepLink returns the timestamped link to the passage.
func (p Passage) DeepLink() string {
	return DeepLink(p.DeepLinkBase, p.Chunk.Timestamp)
}

// OutputFormat selects the shape of the synthesized answer.
type OutputFormat string

const (
	OutputArticle OutputFormat = "article"
	OutputReport  OutputFormat = "report"
	OutputAnswer  OutputFormat = "answer"
)

// ParseOutputFormat maps free-form model output onto a known format.
// Unknown values map to OutputArticle.
func ParseOutputFormat(s string) OutputFormat {
	switch s {
	case "report":
		return OutputReport
	case "answer", "qa", "qa_response":
		return OutputAnswer
	default:
		return OutputArticle
	}
}

// QueryPlan is the decomposition of one incoming query. It is created once per
// request and never persisted.
type QueryPlan struct {
	RawQuery     string
	SubQuestions []string
	// GuestFilter is the canonical corpus guest name, empty when no hard
	// filter applies.
	GuestFilter string
	Format      OutputFormat
}

// RetrievalResult accumulates the output of the orchestrator's passes.
type RetrievalResult struct {
	ThemeIDs   []string
	EpisodeIDs []string
	TopicIDs   []string
	Quotes     []QuoteChunk
	Trace      []string
	// Iterations counts the rounds of navigation, at least 1.
	Iterations int
	// Sufficient and Confidence hold the last sufficiency assessment, when
	// one was made.
	Sufficient bool
	Confidence float64
}

// AddTrace appends a step to the reasoning trace.
func (r *RetrievalResult) AddTrace(step, reasoning string) {
	r.Trace = append(r.Trace, "["+step+"] "+reasoning)
}

// Citation is one in-text quoted reference, verified or not.
type Citation struct {
	QuoteText    string  `json:"quote"`
	Speaker      string  `json:"speaker"`
	EpisodeID    string  `json:"episode_id,omitempty"`
	EpisodeTitle string  `json:"title"`
	Timestamp    string  `json:"timestamp"`
	DeepLink     string  `json:"deep_link"`
	Verified     bool    `json:"verified"`
	Similarity   float64 `json:"similarity_score"`
}

// Source is a unique episode that contributed passages.
type Source struct {
	EpisodeID string `json:"episode_id"`
	Title     string `json:"title"`
	Guest     string `json:"guest"`
	DeepLink  string `json:"deep_link"`
}

// SupportingPoint is one headline insight of an executive summary.
type SupportingPoint struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// KeyQuote is a quote backing a supporting point.
type KeyQuote struct {
	Text      string `json:"text"`
	Speaker   string `json:"speaker"`
	Timestamp string `json:"timestamp"`
	DeepLink  string `json:"deep_link"`
	Supports  string `json:"supports"`
}

// ExecutiveSummary is the optional structured block of a synthesized answer.
type ExecutiveSummary struct {
	MainInsight      string            `json:"main_insight"`
	SupportingPoints []SupportingPoint `json:"supporting_points"`
	KeyQuotes        []KeyQuote        `json:"key_quotes"`
}

// ResearchOutput is the externally visible result of the pipeline.
type ResearchOutput struct {
	Content          string            `json:"content"`
	Citations        []Citation        `json:"citations"`
	Sources          []Source          `json:"sources"`
	UnverifiedQuotes []string          `json:"unverified_quotes"`
	ExecutiveSummary *ExecutiveSummary `json:"executive_summary,omitempty"`
}

// Normalize replaces nil lists with empty ones, so a result reads the same
// before and after a cache round trip.
func (o *ResearchOutput) Normalize() {
	if o.Citations == nil {
		o.Citations = []Citation{}
	}
	if o.Sources == nil {
		o.Sources = []Source{}
	}
	if o.UnverifiedQuotes == nil {
		o.UnverifiedQuotes = []string{}
	}
	if s := o.ExecutiveSummary; s != nil {
		if s.SupportingPoints == nil {
			s.SupportingPoints = []SupportingPoint{}
		}
		if s.KeyQuotes == nil {
			s.KeyQuotes = []KeyQuote{}
		}
	}
}

// VerifiedCount returns the number of verified citations.
func (o *ResearchOutput) VerifiedCount() int {
	n := 0
	for _, c := range o.Citations {
		if c.Verified {
			n++
		}
	}
	return n
}

// CacheEntry is a stored pipeline result addressed by the digest of its
// normalized query.
type CacheEntry struct {
	Key             string
	NormalizedQuery string
	Query           string
	CachedAt        time.Time
	AccessCount     int64
	// Seq records insertion order and breaks popularity ties.
	Seq    uint64
	Result *ResearchOutput
}

// HistoryEntry records that a query was served within a session.
type HistoryEntry struct {
	Query     string    `json:"query"`
	CacheKey  string    `json:"cache_key"`
	Timestamp time.Time `json:"timestamp"`
}

// IndexStats summarizes the size of a loaded index.
type IndexStats struct {
	Themes   int `json:"total_themes"`
	Episodes int `json:"total_episodes"`
	Topics   int `json:"total_topics"`
	Quotes   int `json:"total_quotes"`
}

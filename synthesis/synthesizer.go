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


package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/pageindex/ai"
	"github.com/poiesic/pageindex/core"
	"github.com/poiesic/pageindex/retry"
)

// DefaultMaxTokens caps the length of a generated draft.
const DefaultMaxTokens = 4000

// Draft is the writer's output before citation verification.
type Draft struct {
	// Content is the prose with the summary block removed.
	Content string
	// Summary is nil when the writer produced no usable summary block.
	Summary *core.ExecutiveSummary
}

// Synthesizer issues the final generation call.
type Synthesizer struct {
	writer    ai.Reasoner
	policy    retry.Policy
	maxTokens int
	logger    *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithRetryPolicy sets how the generation call is retried.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Synthesizer) {
		s.policy = p
	}
}

// WithMaxTokens caps the draft length. Zero leaves it to the backend.
func WithMaxTokens(n int) Option {
	return func(s *Synthesizer) {
		s.maxTokens = n
	}
}

// WithLogger sets the logger. A nil logger keeps the default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Synthesizer that writes with writer.
func New(writer ai.Reasoner, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		writer:    writer,
		policy:    retry.DefaultPolicy(),
		maxTokens: DefaultMaxTokens,
		logger:    slog.Default().With("component", "synthesis"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize writes the answer for plan from passages.
// It returns a *core.PipelineError with CodeSynthesisFailed when the call
// exhausts its retries.
func (s *Synthesizer) Synthesize(ctx context.Context, plan *core.QueryPlan, passages []core.Passage) (*Draft, error) {
	if len(passages) == 0 {
		return nil, core.NewSynthesisFailed(ErrNoPassages)
	}
	req := ai.Request{
		System:    promptFor(plan.Format),
		User:      userMessage(plan, passages),
		MaxTokens: s.maxTokens,
	}

	var text string
	res := s.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		out, err := s.writer.Reason(ctx, req)
		if err != nil {
			return err
		}
		if strings.TrimSpace(out) == "" {
			return ErrEmptyDraft
		}
		text = out
		return nil
	})
	if !res.Succeeded() {
		s.logger.Error("synthesis failed", "attempts", res.Attempts, "state", res.State.String(), "err", res.Err)
		return nil, core.NewSynthesisFailed(res.Err)
	}

	content, summary := ParseExecutiveSummary(text)
	s.logger.Debug("draft written",
		"format", plan.Format,
		"passages", len(passages),
		"chars", len(content),
		"summary", summary != nil)
	return &Draft{Content: content, Summary: summary}, nil
}

func userMessage(plan *core.QueryPlan, passages []core.Passage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research query: %s\n", plan.RawQuery)
	if len(plan.SubQuestions) > 1 {
		b.WriteString("\nCover these sub-questions:\n")
		for i, q := range plan.SubQuestions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, q)
		}
	}
	b.WriteString("\nContext from transcripts:\n")
	b.WriteString(FormatContext(passages))
	return b.String()
}

// FormatContext renders passages as the context block of the prompt.
func FormatContext(passages []core.Passage) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = fmt.Sprintf("---\nSource: %s\nGuest: %s\nSpeaker: %s\nTimestamp: %s\n\n%s\n---",
			orUnknown(p.EpisodeTitle), orUnknown(p.Guest), orUnknown(p.Chunk.Speaker),
			p.Chunk.Timestamp, p.Chunk.Text)
	}
	return strings.Join(parts, "\n\n")
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

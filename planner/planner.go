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


package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/pageindex/ai"
	"github.com/poiesic/pageindex/core"
)

// GuestResolver maps a free-form name onto a single canonical corpus guest.
// *index.Store satisfies it.
type GuestResolver interface {
	ResolveSingleGuest(name string) (string, bool)
}

// Planner turns a raw query into a QueryPlan.
type Planner struct {
	reasoner ai.Reasoner
	guests   GuestResolver
	logger   *slog.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithGuestResolver resolves the guest the model names to a corpus guest.
// Without a resolver the plan never proposes a guest.
func WithGuestResolver(r GuestResolver) Option {
	return func(p *Planner) {
		p.guests = r
	}
}

// WithLogger sets the logger. A nil logger keeps the default.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Planner backed by reasoner.
func New(reasoner ai.Reasoner, opts ...Option) *Planner {
	p := &Planner{
		reasoner: reasoner,
		logger:   slog.Default().With("component", "planner"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type planResponse struct {
	SubQuestions []string `json:"sub_questions"`
	// SubQueries is accepted as an alias some models prefer.
	SubQueries []string `json:"sub_queries"`
	Guest      *string  `json:"guest"`
	OutputType string   `json:"output_type"`
}

// Plan decomposes query into a QueryPlan. It never fails: after two
// unusable responses it returns Fallback(query).
//
// GuestFilter on the returned plan is the planner's own proposal, resolved
// to a canonical guest. Callers must pass it through ReconcileGuest before
// treating it as a hard filter.
func (p *Planner) Plan(ctx context.Context, query string) *core.QueryPlan {
	query = strings.TrimSpace(query)
	system := planPrompt
	for attempt := 1; attempt <= 2; attempt++ {
		plan, err := p.try(ctx, query, system)
		if err == nil {
			p.logger.Debug("query planned",
				"subQuestions", len(plan.SubQuestions),
				"format", plan.Format,
				"guest", plan.GuestFilter,
				"attempt", attempt)
			return plan
		}
		if ctx.Err() != nil {
			p.logger.Warn("planning cancelled", "err", ctx.Err())
			break
		}
		p.logger.Warn("plan attempt failed", "attempt", attempt, "err", err)
		system = planPrompt + strictSuffix
	}
	return Fallback(query)
}

func (p *Planner) try(ctx context.Context, query, system string) (*core.QueryPlan, error) {
	text, err := p.reasoner.Reason(ctx, ai.Request{
		System: system,
		User:   "Research query: " + query,
		JSON:   true,
	})
	if err != nil {
		return nil, err
	}

	var resp planResponse
	if err := ai.DecodeJSON(text, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPlan, err)
	}
	if resp.SubQuestions == nil {
		resp.SubQuestions = resp.SubQueries
	}

	plan := &core.QueryPlan{
		RawQuery:     query,
		SubQuestions: cleanQuestions(resp.SubQuestions),
		Format:       core.ParseOutputFormat(strings.ToLower(strings.TrimSpace(resp.OutputType))),
	}
	if err := core.ValidatePlan(plan); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPlan, err)
	}
	if resp.Guest != nil && p.guests != nil {
		if guest, ok := p.guests.ResolveSingleGuest(*resp.Guest); ok {
			plan.GuestFilter = guest
		}
	}
	return plan, nil
}

// cleanQuestions trims, drops empty and repeated questions, and keeps at
// most core.MaxSubQuestions.
func cleanQuestions(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, q := range in {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		k := strings.ToLower(q)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, q)
		if len(out) == core.MaxSubQuestions {
			break
		}
	}
	return out
}

// Fallback is the plan used when planning fails: the raw query as the sole
// sub-question, no guest, article format.
func Fallback(query string) *core.QueryPlan {
	return &core.QueryPlan{
		RawQuery:     query,
		SubQuestions: []string{query},
		Format:       core.OutputArticle,
	}
}

// ReconcileGuest keeps plan.GuestFilter only when the navigator's speaker
// extraction resolved to the same guest. Any disagreement clears it.
func ReconcileGuest(plan *core.QueryPlan, speakerGuest string) {
	if plan.GuestFilter == "" || speakerGuest == "" || !strings.EqualFold(plan.GuestFilter, speakerGuest) {
		plan.GuestFilter = ""
	}
}

// MarshalPlan renders a plan for trace output.
func MarshalPlan(plan *core.QueryPlan) string {
	b, err := json.Marshal(struct {
		SubQuestions []string `json:"sub_questions"`
		Guest        string   `json:"guest,omitempty"`
		Format       string   `json:"format"`
	}{plan.SubQuestions, plan.GuestFilter, string(plan.Format)})
	if err != nil {
		return fmt.Sprintf("%v", plan.SubQuestions)
	}
	return string(b)
}

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


package navigator

import (
	"log/slog"

	"github.com/poiesic/pageindex/ai"
	"github.com/poiesic/pageindex/index"
	"github.com/poiesic/pageindex/retry"
)

const (
	DefaultFallbackThemes       = 3
	DefaultFallbackEpisodes     = 5
	DefaultFallbackTopics       = 8
	DefaultMaxEpisodeCandidates = 30
	DefaultMaxQuotesPerTopic    = 5
	DefaultSummaryChars         = 200
)

// Navigator performs reasoning-based selection at each index level.
// It is safe for concurrent use.
type Navigator struct {
	store    *index.Store
	reasoner ai.Reasoner
	policy   retry.Policy

	fallbackThemes       int
	fallbackEpisodes     int
	fallbackTopics       int
	maxEpisodeCandidates int
	maxQuotesPerTopic    int
	summaryChars         int

	logger *slog.Logger
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithRetryPolicy sets the retry budget for each selection call.
func WithRetryPolicy(p retry.Policy) Option {
	return func(n *Navigator) {
		n.policy = p
	}
}

// WithFallbackSizes sets how many candidates each stage keeps, in corpus
// order, when its selection call keeps failing.
func WithFallbackSizes(themes, episodes, topics int) Option {
	return func(n *Navigator) {
		n.fallbackThemes = themes
		n.fallbackEpisodes = episodes
		n.fallbackTopics = topics
	}
}

// WithMaxEpisodeCandidates bounds the episode list shown to the model.
func WithMaxEpisodeCandidates(max int) Option {
	return func(n *Navigator) {
		n.maxEpisodeCandidates = max
	}
}

// WithMaxQuotesPerTopic bounds the quotes returned per topic. Zero means no limit.
func WithMaxQuotesPerTopic(max int) Option {
	return func(n *Navigator) {
		n.maxQuotesPerTopic = max
	}
}

// WithLogger sets the logger. A nil logger keeps the default.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Navigator) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// New creates a navigator over store using reasoner for selection calls.
func New(store *index.Store, reasoner ai.Reasoner, opts ...Option) *Navigator {
	n := &Navigator{
		store:                store,
		reasoner:             reasoner,
		policy:               retry.DefaultPolicy(),
		fallbackThemes:       DefaultFallbackThemes,
		fallbackEpisodes:     DefaultFallbackEpisodes,
		fallbackTopics:       DefaultFallbackTopics,
		maxEpisodeCandidates: DefaultMaxEpisodeCandidates,
		maxQuotesPerTopic:    DefaultMaxQuotesPerTopic,
		summaryChars:         DefaultSummaryChars,
		logger:               slog.Default().With("component", "navigator"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Store returns the index the navigator reads.
func (n *Navigator) Store() *index.Store {
	return n.store
}

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


package index

import (
	"slices"

	"github.com/poiesic/pageindex/core"
)

// Store is the immutable, in-memory corpus index.
type Store struct {
	themes    []core.Theme
	themeByID map[string]int

	episodes        []core.Episode
	episodeByID     map[string]int
	episodesByTheme map[string][]int
	episodesByGuest map[string][]int
	guests          []string

	topicByID       map[string]core.Topic
	topicsByEpisode map[string][]core.Topic

	quotesByTopic map[string][]core.QuoteChunk
	quoteCount    int
}

func newStore() *Store {
	return &Store{
		themeByID:       make(map[string]int),
		episodeByID:     make(map[string]int),
		episodesByTheme: make(map[string][]int),
		episodesByGuest: make(map[string][]int),
		topicByID:       make(map[string]core.Topic),
		topicsByEpisode: make(map[string][]core.Topic),
		quotesByTopic:   make(map[string][]core.QuoteChunk),
	}
}

// Themes returns every theme in corpus order.
func (s *Store) Themes() []core.Theme {
	return slices.Clone(s.themes)
}

// Theme looks up a theme by id.
func (s *Store) Theme(id string) (core.Theme, bool) {
	i, ok := s.themeByID[id]
	if !ok {
		return core.Theme{}, false
	}
	return s.themes[i], true
}

// Episodes returns every episode in corpus order.
func (s *Store) Episodes() []core.Episode {
	out := make([]core.Episode, len(s.episodes))
	for i := range s.episodes {
		out[i] = cloneEpisode(s.episodes[i])
	}
	return out
}

// Episode looks up an episode by id.
func (s *Store) Episode(id string) (core.Episode, bool) {
	i, ok := s.episodeByID[id]
	if !ok {
		return core.Episode{}, false
	}
	return cloneEpisode(s.episodes[i]), true
}

// EpisodesByTheme lists the episodes under a theme in corpus order.
func (s *Store) EpisodesByTheme(themeID string) []core.Episode {
	return s.collect(s.episodesByTheme[themeID])
}

// EpisodesByGuest lists a guest's episodes in corpus order. The guest must be
// given in its canonical corpus spelling; see ResolveGuest.
func (s *Store) EpisodesByGuest(guest string) []core.Episode {
	return s.collect(s.episodesByGuest[guest])
}

// TopicsByEpisode lists the topics of an episode in file order.
func (s *Store) TopicsByEpisode(episodeID string) []core.Topic {
	return slices.Clone(s.topicsByEpisode[episodeID])
}

// Topic looks up a topic by id.
func (s *Store) Topic(id string) (core.Topic, bool) {
	t, ok := s.topicByID[id]
	return t, ok
}

// QuotesByTopic lists the quote chunks of a topic in file order.
func (s *Store) QuotesByTopic(topicID string) []core.QuoteChunk {
	return slices.Clone(s.quotesByTopic[topicID])
}

// Guests returns the distinct guest names in order of first appearance.
func (s *Store) Guests() []string {
	return slices.Clone(s.guests)
}

// Stats summarizes the size of the index.
func (s *Store) Stats() core.IndexStats {
	return core.IndexStats{
		Themes:   len(s.themes),
		Episodes: len(s.episodes),
		Topics:   len(s.topicByID),
		Quotes:   s.quoteCount,
	}
}

func (s *Store) collect(idx []int) []core.Episode {
	out := make([]core.Episode, 0, len(idx))
	for _, i := range idx {
		out = append(out, cloneEpisode(s.episodes[i]))
	}
	return out
}

func cloneEpisode(e core.Episode) core.Episode {
	e.ThemeIDs = slices.Clone(e.ThemeIDs)
	return e
}

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
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/poiesic/pageindex/core"
)

const (
	themesFile   = "themes.json"
	episodesFile = "episodes.json"
	topicsDir    = "topics"
	quotesDir    = "quotes"
)

type themesDoc struct {
	Themes []core.Theme `json:"themes"`
}

type episodesDoc struct {
	Episodes []core.Episode `json:"episodes"`
}

type topicsDoc struct {
	Topics []core.Topic `json:"topics"`
}

type quotesDoc struct {
	Quotes []core.QuoteChunk `json:"quotes"`
}

// Option configures loading.
type Option func(*loader)

// WithLogger sets the logger used while loading.
func WithLogger(logger *slog.Logger) Option {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

type loader struct {
	fsys     fs.FS
	validate *validator.Validate
	logger   *slog.Logger
}

// LoadDir loads the index rooted at a directory on disk.
func LoadDir(dir string, opts ...Option) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrIndexMissing, dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrIndexMissing, dir)
	}
	return Load(os.DirFS(dir), opts...)
}

// Load reads and validates the complete index from fsys.
func Load(fsys fs.FS, opts ...Option) (*Store, error) {
	l := &loader{
		fsys:     fsys,
		validate: newValidator(),
		logger:   slog.Default().With("component", "index-loader"),
	}
	for _, opt := range opts {
		opt(l)
	}

	s := newStore()
	if err := l.loadThemes(s); err != nil {
		return nil, err
	}
	if err := l.loadEpisodes(s); err != nil {
		return nil, err
	}
	for _, ep := range s.episodes {
		if err := l.loadTopics(s, ep.ID); err != nil {
			return nil, err
		}
	}

	stats := s.Stats()
	l.logger.Info("index loaded",
		"themes", stats.Themes,
		"episodes", stats.Episodes,
		"topics", stats.Topics,
		"quotes", stats.Quotes)
	return s, nil
}

// newValidator reports field errors by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func (l *loader) loadThemes(s *Store) error {
	var doc themesDoc
	if err := l.readJSON(themesFile, &doc, true); err != nil {
		return err
	}
	if len(doc.Themes) == 0 {
		return fmt.Errorf("%w: %s: no themes", ErrIndexMalformed, themesFile)
	}
	for i, t := range doc.Themes {
		if err := l.check(themesFile, i, t); err != nil {
			return err
		}
		if _, dup := s.themeByID[t.ID]; dup {
			return fmt.Errorf("%w: %s: duplicate theme id %q", ErrIndexMalformed, themesFile, t.ID)
		}
		s.themeByID[t.ID] = len(s.themes)
		s.themes = append(s.themes, t)
	}
	return nil
}

func (l *loader) loadEpisodes(s *Store) error {
	var doc episodesDoc
	if err := l.readJSON(episodesFile, &doc, true); err != nil {
		return err
	}
	if len(doc.Episodes) == 0 {
		return fmt.Errorf("%w: %s: no episodes", ErrIndexMalformed, episodesFile)
	}
	for i, ep := range doc.Episodes {
		if err := l.check(episodesFile, i, ep); err != nil {
			return err
		}
		if !fs.ValidPath(ep.ID) || strings.Contains(ep.ID, "/") {
			return fmt.Errorf("%w: %s: episode id %q is not a valid file name", ErrIndexMalformed, episodesFile, ep.ID)
		}
		if _, dup := s.episodeByID[ep.ID]; dup {
			return fmt.Errorf("%w: %s: duplicate episode id %q", ErrIndexMalformed, episodesFile, ep.ID)
		}
		for _, themeID := range ep.ThemeIDs {
			if _, ok := s.themeByID[themeID]; !ok {
				return fmt.Errorf("%w: %s: episode %q references unknown theme %q", ErrIndexMalformed, episodesFile, ep.ID, themeID)
			}
		}

		idx := len(s.episodes)
		s.episodeByID[ep.ID] = idx
		s.episodes = append(s.episodes, ep)
		for _, themeID := range ep.ThemeIDs {
			s.episodesByTheme[themeID] = append(s.episodesByTheme[themeID], idx)
		}
		if _, seen := s.episodesByGuest[ep.Guest]; !seen {
			s.guests = append(s.guests, ep.Guest)
		}
		s.episodesByGuest[ep.Guest] = append(s.episodesByGuest[ep.Guest], idx)
	}
	return nil
}

// loadTopics reads an episode's topics and their quotes. An episode without a
// topics file simply has no topics.
func (l *loader) loadTopics(s *Store, episodeID string) error {
	name := path.Join(topicsDir, episodeID+".json")
	var doc topicsDoc
	if err := l.readJSON(name, &doc, false); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("episode has no topics file", "episode", episodeID)
			return nil
		}
		return err
	}

	for i, t := range doc.Topics {
		if t.EpisodeID == "" {
			t.EpisodeID = episodeID
		}
		if err := l.check(name, i, t); err != nil {
			return err
		}
		if t.EpisodeID != episodeID {
			return fmt.Errorf("%w: %s: topic %q claims episode %q", ErrIndexMalformed, name, t.ID, t.EpisodeID)
		}
		if !fs.ValidPath(t.ID) || strings.Contains(t.ID, "/") {
			return fmt.Errorf("%w: %s: topic id %q is not a valid file name", ErrIndexMalformed, name, t.ID)
		}
		if _, dup := s.topicByID[t.ID]; dup {
			return fmt.Errorf("%w: %s: duplicate topic id %q", ErrIndexMalformed, name, t.ID)
		}
		s.topicByID[t.ID] = t
		s.topicsByEpisode[episodeID] = append(s.topicsByEpisode[episodeID], t)

		if err := l.loadQuotes(s, t); err != nil {
			return err
		}
	}
	return nil
}

// loadQuotes reads a topic's quote chunks. A topic without a quotes file has no quotes.
func (l *loader) loadQuotes(s *Store, topic core.Topic) error {
	name := path.Join(quotesDir, topic.ID+".json")
	var doc quotesDoc
	if err := l.readJSON(name, &doc, false); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	quotes := make([]core.QuoteChunk, 0, len(doc.Quotes))
	for i, q := range doc.Quotes {
		q.TopicID = topic.ID
		if q.SourceEpisodeID == "" {
			q.SourceEpisodeID = topic.EpisodeID
		}
		if err := l.check(name, i, q); err != nil {
			return err
		}
		if q.SourceEpisodeID != topic.EpisodeID {
			return fmt.Errorf("%w: %s: quote %d belongs to episode %q, topic belongs to %q",
				ErrIndexMalformed, name, i, q.SourceEpisodeID, topic.EpisodeID)
		}
		quotes = append(quotes, q)
	}
	s.quotesByTopic[topic.ID] = quotes
	s.quoteCount += len(quotes)
	return nil
}

// readJSON decodes one index file. Missing required files map to
// ErrIndexMissing; missing optional files return an fs.ErrNotExist error.
func (l *loader) readJSON(name string, v any, required bool) error {
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if required {
				return fmt.Errorf("%w: %s", ErrIndexMissing, name)
			}
			return err
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrIndexMalformed, name, err)
	}
	return nil
}

func (l *loader) check(file string, i int, v any) error {
	if err := l.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s: entry %d: field %q failed %q", ErrIndexMalformed, file, i, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %s: entry %d: %v", ErrIndexMalformed, file, i, err)
	}
	return nil
}

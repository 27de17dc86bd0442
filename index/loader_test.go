package index

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Fixture(t *testing.T) {
	s, err := Load(FixtureFS())
	require.NoError(t, err)

	stats := s.Stats()
	assert.Equal(t, 3, stats.Themes)
	assert.Equal(t, 5, stats.Episodes)
	assert.Equal(t, 6, stats.Topics)
	assert.Equal(t, 7, stats.Quotes)
}

func TestLoad_FillsParentIDs(t *testing.T) {
	s := MustLoadFixture()

	topic, ok := s.Topic("sean-ellis_t1")
	require.True(t, ok)
	assert.Equal(t, "sean-ellis", topic.EpisodeID)

	quotes := s.QuotesByTopic("sean-ellis_t1")
	require.Len(t, quotes, 2)
	for _, q := range quotes {
		assert.Equal(t, "sean-ellis_t1", q.TopicID)
		assert.Equal(t, "sean-ellis", q.SourceEpisodeID)
	}
}

func TestLoad_MissingFiles(t *testing.T) {
	tests := []struct {
		name   string
		remove string
	}{
		{"no themes", "themes.json"},
		{"no episodes", "episodes.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := FixtureFS()
			delete(fsys, tt.remove)

			_, err := Load(fsys)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrIndexMissing)
		})
	}
}

func TestLoad_OptionalFiles(t *testing.T) {
	fsys := FixtureFS()
	delete(fsys, "topics/julie-zhuo.json")
	delete(fsys, "quotes/brian-balfour_t1.json")

	s, err := Load(fsys)
	require.NoError(t, err)
	assert.Empty(t, s.TopicsByEpisode("julie-zhuo"))
	assert.Empty(t, s.QuotesByTopic("brian-balfour_t1"))
	assert.Equal(t, 5, s.Stats().Quotes)
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{"bad json", "themes.json", `{"themes": [`},
		{"empty themes", "themes.json", `{"themes": []}`},
		{"theme missing name", "themes.json", `{"themes": [{"id": "pmf"}]}`},
		{"duplicate theme", "themes.json", `{"themes": [{"id": "pmf", "name": "a"}, {"id": "pmf", "name": "b"}]}`},
		{"episode without themes", "episodes.json", `{"episodes": [{"id": "e", "title": "t", "guest": "g", "theme_ids": []}]}`},
		{"episode with unknown theme", "episodes.json", `{"episodes": [{"id": "e", "title": "t", "guest": "g", "theme_ids": ["nope"]}]}`},
		{"episode id with slash", "episodes.json", `{"episodes": [{"id": "a/b", "title": "t", "guest": "g", "theme_ids": ["pmf"]}]}`},
		{"topic missing label", "topics/sean-ellis.json", `{"topics": [{"id": "x"}]}`},
		{"topic for other episode", "topics/sean-ellis.json", `{"topics": [{"id": "x", "label": "l", "episode_id": "julie-zhuo"}]}`},
		{"duplicate topic across episodes", "topics/sean-ellis.json", `{"topics": [{"id": "julie-zhuo_t1", "label": "l"}]}`},
		{"quote missing timestamp", "quotes/sean-ellis_t2.json", `{"quotes": [{"text": "t", "speaker": "s"}]}`},
		{"quote from other episode", "quotes/sean-ellis_t2.json", `{"quotes": [{"text": "t", "speaker": "s", "timestamp": "00:01", "episode_id": "julie-zhuo"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := FixtureFS()
			fsys[tt.file] = &fstest.MapFile{Data: []byte(tt.data)}

			_, err := Load(fsys)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrIndexMalformed)
		})
	}
}

func TestLoad_ValidationNamesJSONField(t *testing.T) {
	fsys := FixtureFS()
	fsys["themes.json"] = &fstest.MapFile{Data: []byte(`{"themes": [{"id": "pmf"}]}`)}

	_, err := Load(fsys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"name"`)
}

func TestLoadDir(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
		assert.ErrorIs(t, err, ErrIndexMissing)
	})

	t.Run("path is a file", func(t *testing.T) {
		f := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))
		_, err := LoadDir(f)
		assert.ErrorIs(t, err, ErrIndexMissing)
	})

	t.Run("directory on disk", func(t *testing.T) {
		dir := t.TempDir()
		for name, file := range FixtureFS() {
			p := filepath.Join(dir, filepath.FromSlash(name))
			require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
			require.NoError(t, os.WriteFile(p, file.Data, 0o644))
		}

		s, err := LoadDir(dir)
		require.NoError(t, err)
		assert.Equal(t, 5, s.Stats().Episodes)
	})
}

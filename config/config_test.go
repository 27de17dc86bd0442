package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/pageindex/ai"
	"github.com/poiesic/pageindex/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pageindex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
index_dir: /data/index
db_path: /data/cache.db
ai:
  backend: ollama
  host: http://gpu:11434
  reasoning_model: qwen2.5:7b
  writing_model: qwen2.5:14b
  writing_temperature: 0.3
  call_timeout: 90s
retry:
  attempts: 5
research:
  concurrency: 8
  max_total_quotes: 20
  sufficiency_check: true
  max_iterations: 2
citations:
  verify_threshold: 90
  unverified_marker: ""
history:
  limit: 10
logging:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/data/index", cfg.IndexDir)
	assert.Equal(t, "/data/cache.db", cfg.DBPath)
	assert.Equal(t, 90*time.Second, cfg.AI.CallTimeout)
	assert.Equal(t, 8, cfg.Research.Concurrency)
	assert.True(t, cfg.Research.SufficiencyCheck)
	assert.Equal(t, 2, cfg.Research.MaxIterations)
	require.NotNil(t, cfg.Citation.UnverifiedMarker)
	assert.Empty(t, *cfg.Citation.UnverifiedMarker)

	aiCfg := cfg.AIConfig()
	assert.Equal(t, ai.BackendOllama, aiCfg.Backend)
	assert.Equal(t, "qwen2.5:14b", aiCfg.WritingModel)
	assert.Equal(t, 0.3, aiCfg.WritingTemperature)
	assert.Equal(t, 0.0, aiCfg.ReasoningTemperature)
	assert.Equal(t, 90*time.Second, aiCfg.CallTimeout)

	policy := cfg.RetryPolicy()
	assert.Equal(t, 5, policy.Attempts)
	assert.Equal(t, retry.DefaultPolicy().BaseDelay, policy.BaseDelay)

	assert.Len(t, cfg.ResearchOptions(), 4)
	assert.Len(t, cfg.CitationOptions(), 2)
	assert.Len(t, cfg.HistoryOptions(), 1)
	assert.Len(t, cfg.SynthesisOptions(), 1)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "index_dir: x\nembedding_model: nomic\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PAGEINDEX_INDEX_DIR":            "/env/index",
		"PAGEINDEX_AI_WRITING_MODEL":     "gpt-4o",
		"PAGEINDEX_AI_CALL_TIMEOUT":      "2m",
		"PAGEINDEX_RESEARCH_CONCURRENCY": "2",
		"PAGEINDEX_LOG_LEVEL":            "warn",
		"PAGEINDEX_DB_PATH":              "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, "/env/index", cfg.IndexDir)
	assert.Equal(t, "pageindex.db", cfg.DBPath)
	assert.Equal(t, "gpt-4o", cfg.AI.WritingModel)
	assert.Equal(t, 2*time.Minute, cfg.AI.CallTimeout)
	assert.Equal(t, 2, cfg.Research.Concurrency)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestApplyEnv_BadValues(t *testing.T) {
	env := map[string]string{
		"PAGEINDEX_RETRY_ATTEMPTS":  "three",
		"PAGEINDEX_AI_CALL_TIMEOUT": "soon",
	}
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAGEINDEX_RETRY_ATTEMPTS")
	assert.Contains(t, err.Error(), "PAGEINDEX_AI_CALL_TIMEOUT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*File)
		wantErr bool
	}{
		{"defaults", func(*File) {}, false},
		{"no index dir", func(f *File) { f.IndexDir = " " }, true},
		{"negative attempts", func(f *File) { f.Retry.Attempts = -1 }, true},
		{"fix above verify", func(f *File) {
			f.Citation.VerifyThreshold = 70
			f.Citation.FixThreshold = 80
		}, true},
		{"bad level", func(f *File) { f.Logging.Level = "loud" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		" error ": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("research started", "request_id", "abc")

	assert.NotContains(t, stderr.String(), "hidden")
	assert.Contains(t, stderr.String(), "research started")
	assert.Contains(t, file.String(), `"request_id":"abc"`)
}

func TestSetupLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pageindex.log")
	logger, cleanup := SetupLogger(path, slog.LevelInfo)
	logger.Info("hello")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

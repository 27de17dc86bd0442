package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/pageindex/ai"
	"github.com/poiesic/pageindex/citation"
	"github.com/poiesic/pageindex/history"
	"github.com/poiesic/pageindex/navigator"
	"github.com/poiesic/pageindex/research"
	"github.com/poiesic/pageindex/retry"
	"github.com/poiesic/pageindex/synthesis"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PAGEINDEX_"

// File is the on-disk configuration. Zero values mean "use the default".
type File struct {
	IndexDir string    `yaml:"index_dir"`
	DBPath   string    `yaml:"db_path"`
	AI       AI        `yaml:"ai"`
	Retry    Retry     `yaml:"retry"`
	Research Research  `yaml:"research"`
	Citation Citation  `yaml:"citations"`
	Synth    Synthesis `yaml:"synthesis"`
	History  History   `yaml:"history"`
	Logging  Logging   `yaml:"logging"`
}

// AI selects the model backend.
type AI struct {
	Backend              string        `yaml:"backend"`
	Host                 string        `yaml:"host"`
	APIKey               string        `yaml:"api_key"`
	APIVersion           string        `yaml:"api_version"`
	ReasoningModel       string        `yaml:"reasoning_model"`
	WritingModel         string        `yaml:"writing_model"`
	ReasoningTemperature *float64      `yaml:"reasoning_temperature"`
	WritingTemperature   *float64      `yaml:"writing_temperature"`
	CallTimeout          time.Duration `yaml:"call_timeout"`
	MaxInFlight          int           `yaml:"max_in_flight"`
}

// Retry is the budget for each model call.
type Retry struct {
	Attempts  int           `yaml:"attempts"`
	BaseDelay time.Duration `yaml:"base_delay"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Research tunes navigation and the retrieval passes.
type Research struct {
	Concurrency          int `yaml:"concurrency"`
	MaxEpisodes          int `yaml:"max_episodes"`
	MaxQuotesPerQuestion int `yaml:"max_quotes_per_question"`
	MaxTotalQuotes       int `yaml:"max_total_quotes"`
	MaxQuotesPerTopic    int `yaml:"max_quotes_per_topic"`
	FallbackThemes       int `yaml:"fallback_themes"`
	FallbackEpisodes     int `yaml:"fallback_episodes"`
	FallbackTopics       int `yaml:"fallback_topics"`
	// SufficiencyCheck repeats navigation over suggested themes while the
	// model judges the quotes insufficient, up to MaxIterations rounds.
	SufficiencyCheck bool `yaml:"sufficiency_check"`
	MaxIterations    int  `yaml:"max_iterations"`
}

// Citation tunes quote verification.
type Citation struct {
	VerifyThreshold  float64 `yaml:"verify_threshold"`
	FixThreshold     float64 `yaml:"fix_threshold"`
	UnverifiedMarker *string `yaml:"unverified_marker"`
}

// Synthesis tunes answer generation.
type Synthesis struct {
	MaxTokens int `yaml:"max_tokens"`
}

// History tunes session bookkeeping.
type History struct {
	Limit int `yaml:"limit"`
}

// Logging configures log output.
type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the configuration used when no file is given.
func Default() *File {
	return &File{
		IndexDir: "index",
		DBPath:   "pageindex.db",
		Logging:  Logging{Level: "info"},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults. Unknown keys are rejected.
func Load(path string) (*File, error) {
	f := Default()
	if path == "" {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := f.decode(data); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return f, nil
}

func (f *File) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overlays PAGEINDEX_* variables read through lookup. Pass
// os.LookupEnv in production.
func (f *File) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	str("INDEX_DIR", &f.IndexDir)
	str("DB_PATH", &f.DBPath)
	str("AI_BACKEND", &f.AI.Backend)
	str("AI_HOST", &f.AI.Host)
	str("AI_API_KEY", &f.AI.APIKey)
	str("AI_API_VERSION", &f.AI.APIVersion)
	str("AI_REASONING_MODEL", &f.AI.ReasoningModel)
	str("AI_WRITING_MODEL", &f.AI.WritingModel)
	dur("AI_CALL_TIMEOUT", &f.AI.CallTimeout)
	num("AI_MAX_IN_FLIGHT", &f.AI.MaxInFlight)
	num("RETRY_ATTEMPTS", &f.Retry.Attempts)
	num("RESEARCH_CONCURRENCY", &f.Research.Concurrency)
	num("SYNTHESIS_MAX_TOKENS", &f.Synth.MaxTokens)
	str("LOG_LEVEL", &f.Logging.Level)
	str("LOG_FILE", &f.Logging.File)
	return errors.Join(errs...)
}

// Validate checks values that cannot be defaulted away.
func (f *File) Validate() error {
	if strings.TrimSpace(f.IndexDir) == "" {
		return errors.New("config: index_dir is required")
	}
	if f.Retry.Attempts < 0 {
		return errors.New("config: retry.attempts must not be negative")
	}
	if f.Citation.VerifyThreshold != 0 || f.Citation.FixThreshold != 0 {
		v := citation.New(f.CitationOptions()...)
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if _, err := ParseLevel(f.Logging.Level); err != nil {
		return err
	}
	return nil
}

// AIConfig builds the model configuration over ai.DefaultConfig.
func (f *File) AIConfig() *ai.Config {
	var opts []ai.ConfigOption
	if f.AI.Backend != "" {
		opts = append(opts, ai.WithBackend(ai.Backend(f.AI.Backend)))
	}
	if f.AI.Host != "" {
		opts = append(opts, ai.WithHost(f.AI.Host))
	}
	if f.AI.APIKey != "" {
		opts = append(opts, ai.WithAPIKey(f.AI.APIKey))
	}
	if f.AI.APIVersion != "" {
		opts = append(opts, ai.WithAPIVersion(f.AI.APIVersion))
	}
	if f.AI.ReasoningModel != "" {
		opts = append(opts, ai.WithReasoningModel(f.AI.ReasoningModel))
	}
	if f.AI.WritingModel != "" {
		opts = append(opts, ai.WithWritingModel(f.AI.WritingModel))
	}
	if f.AI.CallTimeout > 0 {
		opts = append(opts, ai.WithCallTimeout(f.AI.CallTimeout))
	}
	if f.AI.MaxInFlight > 0 {
		opts = append(opts, ai.WithMaxInFlight(f.AI.MaxInFlight))
	}
	cfg := ai.NewConfig(opts...)
	if f.AI.ReasoningTemperature != nil {
		cfg.ReasoningTemperature = *f.AI.ReasoningTemperature
	}
	if f.AI.WritingTemperature != nil {
		cfg.WritingTemperature = *f.AI.WritingTemperature
	}
	return cfg
}

// RetryPolicy returns the model call budget over retry.DefaultPolicy.
func (f *File) RetryPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	if f.Retry.Attempts > 0 {
		p.Attempts = f.Retry.Attempts
	}
	if f.Retry.BaseDelay > 0 {
		p.BaseDelay = f.Retry.BaseDelay
	}
	if f.Retry.Timeout > 0 {
		p.Timeout = f.Retry.Timeout
	}
	return p
}

// NavigatorOptions returns the navigator tunables that are set.
func (f *File) NavigatorOptions() []navigator.Option {
	opts := []navigator.Option{navigator.WithRetryPolicy(f.RetryPolicy())}
	r := f.Research
	if r.FallbackThemes > 0 || r.FallbackEpisodes > 0 || r.FallbackTopics > 0 {
		opts = append(opts, navigator.WithFallbackSizes(
			orDefault(r.FallbackThemes, navigator.DefaultFallbackThemes),
			orDefault(r.FallbackEpisodes, navigator.DefaultFallbackEpisodes),
			orDefault(r.FallbackTopics, navigator.DefaultFallbackTopics),
		))
	}
	if r.MaxQuotesPerTopic > 0 {
		opts = append(opts, navigator.WithMaxQuotesPerTopic(r.MaxQuotesPerTopic))
	}
	return opts
}

// ResearchOptions returns the orchestrator tunables that are set.
func (f *File) ResearchOptions() []research.Option {
	var opts []research.Option
	r := f.Research
	if r.Concurrency > 0 {
		opts = append(opts, research.WithPoolSize(r.Concurrency))
	}
	if r.MaxEpisodes > 0 {
		opts = append(opts, research.WithMaxEpisodes(r.MaxEpisodes))
	}
	if r.MaxQuotesPerQuestion > 0 || r.MaxTotalQuotes > 0 {
		opts = append(opts, research.WithQuoteLimits(
			orDefault(r.MaxQuotesPerQuestion, research.DefaultMaxQuotesPerQuestion),
			orDefault(r.MaxTotalQuotes, research.DefaultMaxTotalQuotes),
		))
	}
	if r.SufficiencyCheck {
		opts = append(opts, research.WithSufficiencyCheck(true))
	}
	if r.MaxIterations > 0 {
		opts = append(opts, research.WithMaxIterations(r.MaxIterations))
	}
	return opts
}

// CitationOptions returns the verifier tunables that are set.
func (f *File) CitationOptions() []citation.Option {
	var opts []citation.Option
	c := f.Citation
	if c.VerifyThreshold != 0 || c.FixThreshold != 0 {
		verify := c.VerifyThreshold
		if verify == 0 {
			verify = citation.DefaultVerifyThreshold
		}
		fix := c.FixThreshold
		if fix == 0 {
			fix = citation.DefaultFixThreshold
		}
		opts = append(opts, citation.WithThresholds(verify, fix))
	}
	if c.UnverifiedMarker != nil {
		opts = append(opts, citation.WithUnverifiedMarker(*c.UnverifiedMarker))
	}
	return opts
}

// SynthesisOptions returns the synthesizer tunables that are set.
func (f *File) SynthesisOptions() []synthesis.Option {
	opts := []synthesis.Option{synthesis.WithRetryPolicy(f.RetryPolicy())}
	if f.Synth.MaxTokens > 0 {
		opts = append(opts, synthesis.WithMaxTokens(f.Synth.MaxTokens))
	}
	return opts
}

// HistoryOptions returns the history recorder tunables that are set.
func (f *File) HistoryOptions() []history.Option {
	var opts []history.Option
	if f.History.Limit > 0 {
		opts = append(opts, history.WithLimit(f.History.Limit))
	}
	return opts
}

// ParseLevel maps a level name onto slog. An empty name is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "", "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("config: unknown log level %q", s)
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

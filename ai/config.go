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


package ai

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Backend names a model API family.
type Backend string

const (
	BackendOpenAI    Backend = "openai"
	BackendAzure     Backend = "azure"
	BackendOllama    Backend = "ollama"
	BackendAnthropic Backend = "anthropic"
)

// Config holds configuration for AI service providers.
type Config struct {
	// Backend selects the model API. Default: openai (any OpenAI-compatible server).
	Backend Backend

	// Host is the base URL of the model API.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible server
	Host string

	// APIKey authenticates against hosted APIs. Local servers accept "none".
	APIKey string

	// APIVersion is required by Azure OpenAI deployments.
	APIVersion string

	// ReasoningModel is used for planning and navigation calls.
	// Example: "qwen2.5:7b", "gpt-4o-mini"
	ReasoningModel string

	// WritingModel is used for the final synthesis call.
	// Example: "qwen2.5:14b", "gpt-4o"
	WritingModel string

	// ReasoningTemperature applies to navigation and planning calls.
	// Default: 0.0
	ReasoningTemperature float64

	// WritingTemperature applies to synthesis calls.
	// Default: 0.7
	WritingTemperature float64

	// CallTimeout bounds a single model call.
	// Default: 60s
	CallTimeout time.Duration

	// MaxInFlight caps simultaneous model calls across the provider.
	// Default: 4
	MaxInFlight int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBackend sets the model API family.
func WithBackend(b Backend) ConfigOption {
	return func(c *Config) {
		c.Backend = b
	}
}

// WithHost sets the model API base URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithAPIVersion sets the API version used by Azure deployments.
func WithAPIVersion(v string) ConfigOption {
	return func(c *Config) {
		c.APIVersion = v
	}
}

// WithReasoningModel sets the navigation and planning model.
func WithReasoningModel(model string) ConfigOption {
	return func(c *Config) {
		c.ReasoningModel = model
	}
}

// WithWritingModel sets the synthesis model.
func WithWritingModel(model string) ConfigOption {
	return func(c *Config) {
		c.WritingModel = model
	}
}

// WithModel sets both reasoning and writing models to the same identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.ReasoningModel = model
		c.WritingModel = model
	}
}

// WithTemperatures sets the reasoning and writing temperatures.
func WithTemperatures(reasoning, writing float64) ConfigOption {
	return func(c *Config) {
		c.ReasoningTemperature = reasoning
		c.WritingTemperature = writing
	}
}

// WithCallTimeout sets the per-call timeout.
func WithCallTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.CallTimeout = d
	}
}

// WithMaxInFlight sets the cap on simultaneous model calls.
func WithMaxInFlight(n int) ConfigOption {
	return func(c *Config) {
		c.MaxInFlight = n
	}
}

// DefaultConfig returns a Config with sensible defaults for a local OpenAI-compatible service.
func DefaultConfig() *Config {
	return &Config{
		Backend:              BackendOpenAI,
		Host:                 "http://localhost:11434/v1",
		APIKey:               "none",
		ReasoningModel:       "qwen2.5:7b",
		WritingModel:         "qwen2.5:7b",
		ReasoningTemperature: 0.0,
		WritingTemperature:   0.7,
		CallTimeout:          60 * time.Second,
		MaxInFlight:          4,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithBackend(BackendAnthropic),
//	    WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")),
//	    WithModel("claude-sonnet-4-5"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize puts the configuration into canonical form.
// OpenAI-compatible hosts get a /v1 suffix; Ollama's native API wants the bare host.
func (c *Config) Normalize() {
	c.Backend = Backend(strings.ToLower(strings.TrimSpace(string(c.Backend))))
	if c.Backend == "" {
		c.Backend = BackendOpenAI
	}
	if c.Host == "" {
		return
	}
	host := strings.TrimSuffix(c.Host, "/")
	switch c.Backend {
	case BackendOpenAI:
		if !strings.HasSuffix(host, "/v1") {
			host += "/v1"
		}
	case BackendOllama:
		host = strings.TrimSuffix(host, "/v1")
	}
	c.Host = host
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Backend {
	case BackendOpenAI, BackendOllama:
		if c.Host == "" {
			return fmt.Errorf("ai config: Host is required for %s", c.Backend)
		}
	case BackendAzure:
		if c.Host == "" {
			return errors.New("ai config: Host is required for azure")
		}
		if c.APIKey == "" {
			return errors.New("ai config: APIKey is required for azure")
		}
		if c.APIVersion == "" {
			return errors.New("ai config: APIVersion is required for azure")
		}
	case BackendAnthropic:
		if c.APIKey == "" || c.APIKey == "none" {
			return errors.New("ai config: APIKey is required for anthropic")
		}
	default:
		return fmt.Errorf("ai config: unsupported Backend %q", c.Backend)
	}
	if c.ReasoningModel == "" {
		return errors.New("ai config: ReasoningModel is required")
	}
	if c.WritingModel == "" {
		return errors.New("ai config: WritingModel is required")
	}
	if c.ReasoningTemperature < 0 || c.ReasoningTemperature > 2 {
		return errors.New("ai config: ReasoningTemperature must be between 0 and 2")
	}
	if c.WritingTemperature < 0 || c.WritingTemperature > 2 {
		return errors.New("ai config: WritingTemperature must be between 0 and 2")
	}
	if c.CallTimeout <= 0 {
		return errors.New("ai config: CallTimeout must be positive")
	}
	if c.MaxInFlight < 1 {
		return errors.New("ai config: MaxInFlight must be at least 1")
	}
	return nil
}

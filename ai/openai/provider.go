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


package openai

import (
	"fmt"
	"log/slog"

	"github.com/poiesic/pageindex/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider implements ai.AIProvider using langchaingo model clients.
// The reasoning and writing models share one in-flight call limiter.
type Provider struct {
	config   *ai.Config
	reasoner ai.Reasoner
	writer   ai.Reasoner
	logger   *slog.Logger
}

// NewProvider creates a new AI provider for the configured backend.
// The config is validated and normalized before use.
//
// Returns ai.AIProvider interface (not *Provider) to enforce abstraction
// and prevent coupling to backend-specific implementation details.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	reasoningModel, err := newModel(config, config.ReasoningModel)
	if err != nil {
		return nil, err
	}
	writingModel := reasoningModel
	if config.WritingModel != config.ReasoningModel {
		writingModel, err = newModel(config, config.WritingModel)
		if err != nil {
			return nil, err
		}
	}

	limiter := ai.NewLimiter(config.MaxInFlight)
	return &Provider{
		config:   config,
		reasoner: limiter.Wrap(newReasoner(reasoningModel, config.ReasoningModel, config.ReasoningTemperature, config.CallTimeout)),
		writer:   limiter.Wrap(newReasoner(writingModel, config.WritingModel, config.WritingTemperature, config.CallTimeout)),
		logger:   slog.Default().With("component", "ai-provider", "backend", string(config.Backend)),
	}, nil
}

// newModel creates the langchaingo client for one model on the configured backend.
func newModel(config *ai.Config, model string) (llms.Model, error) {
	switch config.Backend {
	case ai.BackendOpenAI:
		// Local OpenAI-compatible services accept any token.
		token := config.APIKey
		if token == "" {
			token = "none"
		}
		m, err := openai.New(
			openai.WithBaseURL(config.Host),
			openai.WithToken(token),
			openai.WithModel(model),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}
		return m, nil

	case ai.BackendAzure:
		m, err := openai.New(
			openai.WithAPIType(openai.APITypeAzure),
			openai.WithBaseURL(config.Host),
			openai.WithToken(config.APIKey),
			openai.WithAPIVersion(config.APIVersion),
			openai.WithModel(model),
		)
		if err != nil {
			return nil, fmt.Errorf("create azure model: %w", err)
		}
		return m, nil

	case ai.BackendOllama:
		m, err := ollama.New(
			ollama.WithServerURL(config.Host),
			ollama.WithModel(model),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}
		return m, nil

	case ai.BackendAnthropic:
		opts := []anthropic.Option{
			anthropic.WithToken(config.APIKey),
			anthropic.WithModel(model),
		}
		if config.Host != "" {
			opts = append(opts, anthropic.WithBaseURL(config.Host))
		}
		m, err := anthropic.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}
		return m, nil
	}
	return nil, fmt.Errorf("unsupported backend: %s", config.Backend)
}

// Reasoner returns the navigation and planning model.
func (p *Provider) Reasoner() ai.Reasoner {
	return p.reasoner
}

// Writer returns the synthesis model.
func (p *Provider) Writer() ai.Reasoner {
	return p.writer
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing AI provider")
	return nil
}

package openai

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/pageindex/ai"
	"github.com/tmc/langchaingo/llms"
)

// Reasoner implements ai.Reasoner on top of a langchaingo chat model.
type Reasoner struct {
	client      llms.Model
	model       string
	temperature float64
	timeout     time.Duration
	logger      *slog.Logger
}

func newReasoner(client llms.Model, model string, temperature float64, timeout time.Duration) *Reasoner {
	return &Reasoner{
		client:      client,
		model:       model,
		temperature: temperature,
		timeout:     timeout,
		logger:      slog.Default().With("component", "ai-reasoner", "model", model),
	}
}

// NewReasoner wraps an existing langchaingo model.
//
// Returns ai.Reasoner interface to enforce abstraction.
func NewReasoner(client llms.Model, model string, temperature float64, timeout time.Duration) ai.Reasoner {
	return newReasoner(client, model, temperature, timeout)
}

// Reason sends a system and user message pair and returns the first choice's text.
func (r *Reasoner) Reason(ctx context.Context, req ai.Request) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	content := make([]llms.MessageContent, 0, 2)
	if req.System != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, req.User))

	temperature := r.temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	opts := []llms.CallOption{llms.WithTemperature(temperature)}
	if req.JSON {
		opts = append(opts, llms.WithJSONMode())
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	start := time.Now()
	response, err := r.client.GenerateContent(ctx, content, opts...)
	if err != nil {
		r.logger.Warn("model call failed", "err", err, "elapsed", time.Since(start))
		return "", err
	}
	if len(response.Choices) < 1 {
		r.logger.Debug("no choices returned from model")
		return "", ai.ErrEmptyResponse
	}

	r.logger.Debug("model call complete",
		"elapsed", time.Since(start),
		"json", req.JSON,
		"response_len", len(response.Choices[0].Content))
	return response.Choices[0].Content, nil
}

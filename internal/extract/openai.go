// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/joeott/legal-doc-processor-sub010/internal/logging"
	"github.com/joeott/legal-doc-processor-sub010/internal/metrics"
	"github.com/joeott/legal-doc-processor-sub010/internal/models"
)

const extractionPrompt = `You are an entity extraction system for legal documents.

Extract every entity mention from the text below. Allowed types:
PERSON, ORG, DATE, LOCATION, MONEY, CITATION.

Rules:
- "value" must be the exact substring from the text, character for character.
- "start" and "end" are byte offsets of the value within the text; end is exclusive.
- "confidence" is your certainty in [0,1].
- Report each occurrence separately, even repeats of the same entity.
- Output ONLY a JSON object: {"mentions":[{"value":...,"type":...,"confidence":...,"start":...,"end":...}]}

Text:
%s`

// OpenAIConfig configures the LLM-backed extractor.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string

	// RequestsPerSecond throttles API calls across all workers sharing
	// this extractor.
	RequestsPerSecond float64

	// MinConfidence drops mentions the model is unsure about.
	MinConfidence float64

	RequestTimeout     time.Duration
	BreakerMaxFailures int
	BreakerTimeout     time.Duration
}

// OpenAIExtractor extracts mentions with a chat-completion model. Calls are
// rate-limited and breaker-protected; a malformed model response is an error
// the worker retries, not a silent empty result.
type OpenAIExtractor struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]rawMention]
	minConf float64
	timeout time.Duration
}

// NewOpenAIExtractor creates the LLM-backed extractor.
func NewOpenAIExtractor(cfg OpenAIConfig) *OpenAIExtractor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.BreakerMaxFailures <= 0 {
		cfg.BreakerMaxFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = time.Minute
	}

	cb := gobreaker.NewCircuitBreaker[[]rawMention](gobreaker.Settings{
		Name:    "llm-extraction",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.BreakerMaxFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
			metrics.RecordBreakerTransition(name, from.String(), to.String())
		},
	})

	return &OpenAIExtractor{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		cb:      cb,
		minConf: cfg.MinConfidence,
		timeout: cfg.RequestTimeout,
	}
}

type mentionsResponse struct {
	Mentions []rawMention `json:"mentions"`
}

// Extract sends one chunk to the model and parses the mention list.
func (e *OpenAIExtractor) Extract(ctx context.Context, chunk models.Chunk) ([]models.EntityMention, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	raws, err := e.cb.Execute(func() ([]rawMention, error) {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		resp, err := e.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model:       e.model,
			Temperature: 0,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: fmt.Sprintf(extractionPrompt, chunk.Text),
				},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("chat completion returned no choices")
		}
		return parseMentions(resp.Choices[0].Message.Content)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.ExtractionLLMRequests.WithLabelValues("breaker_open").Inc()
		return nil, err
	case err != nil:
		metrics.ExtractionLLMRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.ExtractionLLMRequests.WithLabelValues("ok").Inc()

	mentions := finalize(chunk, raws, e.minConf)
	metrics.ExtractionMentionsPerChunk.Observe(float64(len(mentions)))
	return mentions, nil
}

// parseMentions extracts the JSON object from a model response that may be
// wrapped in prose or a code fence.
func parseMentions(response string) ([]rawMention, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in model response")
	}
	var out mentionsResponse
	if err := json.Unmarshal([]byte(response[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("parse model response: %w", err)
	}
	return out.Mentions, nil
}

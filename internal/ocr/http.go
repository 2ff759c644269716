// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/joeott/legal-doc-processor-sub010/internal/logging"
	"github.com/joeott/legal-doc-processor-sub010/internal/metrics"
)

// HTTPConfig configures the HTTP OCR client.
type HTTPConfig struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration

	// Breaker settings. The circuit opens after MaxFailures consecutive
	// failures and probes again after Timeout.
	BreakerMaxFailures int
	BreakerTimeout     time.Duration
}

// HTTPClient is a Client over the OCR service's REST API, protected by a
// circuit breaker so a dead service fails fast instead of tying up workers.
type HTTPClient struct {
	cfg  HTTPConfig
	http *http.Client
	cb   *gobreaker.CircuitBreaker[any]
}

// NewHTTPClient creates an HTTP OCR client.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.BreakerMaxFailures <= 0 {
		cfg.BreakerMaxFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = time.Minute
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "ocr-api",
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

	return &HTTPClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.RequestTimeout},
		cb:   cb,
	}
}

type submitResponse struct {
	JobID string `json:"job_id"`
}

// Submit uploads a blob for OCR and returns the job ID.
func (c *HTTPClient) Submit(ctx context.Context, docID uuid.UUID, contentType string, blob []byte) (string, error) {
	result, err := c.cb.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/jobs", bytes.NewReader(blob))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("X-Document-ID", docID.String())
		if c.cfg.APIKey != "" {
			req.Header.Set("X-API-Key", c.cfg.APIKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("submit request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
			return nil, httpError("submit", resp)
		}

		var out submitResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("decode submit response: %w", err)
		}
		if out.JobID == "" {
			return nil, fmt.Errorf("submit response missing job_id")
		}
		return out.JobID, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Poll fetches job status. A 404 maps to ErrJobNotFound.
func (c *HTTPClient) Poll(ctx context.Context, jobID string) (*JobStatus, error) {
	result, err := c.cb.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v1/jobs/"+jobID, nil)
		if err != nil {
			return nil, err
		}
		if c.cfg.APIKey != "" {
			req.Header.Set("X-API-Key", c.cfg.APIKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("poll request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrJobNotFound
		}
		if resp.StatusCode != http.StatusOK {
			return nil, httpError("poll", resp)
		}

		status := &JobStatus{}
		if err := json.NewDecoder(resp.Body).Decode(status); err != nil {
			return nil, fmt.Errorf("decode poll response: %w", err)
		}
		if status.JobID == "" {
			status.JobID = jobID
		}
		return status, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*JobStatus), nil
}

func httpError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("ocr %s: status %d: %s", op, resp.StatusCode, bytes.TrimSpace(body))
}

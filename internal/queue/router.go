// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/joeott/legal-doc-processor-sub010/internal/metrics"
)

// RouterConfig holds configuration for the Watermill router.
type RouterConfig struct {
	// CloseTimeout is how long to wait for handlers to finish when closing.
	CloseTimeout time.Duration

	// Retry configuration for transient handler failures.
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64

	// PoisonQueueTopic receives messages that fail after all retries.
	// Empty disables the poison queue.
	PoisonQueueTopic string
}

// DefaultRouterConfig returns production defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: time.Second,
		RetryMaxInterval:     time.Minute,
		RetryMultiplier:      2.0,
		PoisonQueueTopic:     PoisonTopic,
	}
}

// Router wraps the Watermill router with pre-configured middleware:
// panic recovery, exponential backoff retry, and poison queue routing.
// Handler success acks the message; handler error nacks it for redelivery.
type Router struct {
	router *message.Router
	config RouterConfig
	logger watermill.LoggerAdapter
}

// NewRouter creates a router with the middleware stack applied outer to
// inner: recoverer, retry, poison queue.
func NewRouter(cfg *RouterConfig, poisonPublisher message.Publisher, logger watermill.LoggerAdapter) (*Router, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if cfg == nil {
		defaultCfg := DefaultRouterConfig()
		cfg = &defaultCfg
	}

	wmRouter, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: cfg.CloseTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	wmRouter.AddMiddleware(middleware.Recoverer)

	retry := middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      cfg.RetryMultiplier,
		Logger:          logger,
	}
	wmRouter.AddMiddleware(retry.Middleware)

	if poisonPublisher != nil && cfg.PoisonQueueTopic != "" {
		poison, err := middleware.PoisonQueue(&countingPublisher{inner: poisonPublisher}, cfg.PoisonQueueTopic)
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		wmRouter.AddMiddleware(poison)
	}

	return &Router{
		router: wmRouter,
		config: *cfg,
		logger: logger,
	}, nil
}

// AddConsumerHandler registers a handler that consumes one stage topic and
// produces no output messages. Stage chaining happens through the chain
// controller's write-then-enqueue, not through router output topics.
func (r *Router) AddConsumerHandler(name, topic string, subscriber message.Subscriber, handler message.NoPublishHandlerFunc) {
	r.router.AddConsumerHandler(name, topic, subscriber, handler)
}

// countingPublisher counts poison-routed messages.
type countingPublisher struct {
	inner message.Publisher
}

func (p *countingPublisher) Publish(topic string, messages ...*message.Message) error {
	if err := p.inner.Publish(topic, messages...); err != nil {
		return err
	}
	metrics.QueuePoisonMessages.Add(float64(len(messages)))
	return nil
}

func (p *countingPublisher) Close() error { return p.inner.Close() }

// Run starts the router and blocks until context cancellation or Close().
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running returns a channel that closes once the router is running.
func (r *Router) Running() <-chan struct{} {
	return r.router.Running()
}

// Close gracefully stops the router, waiting up to CloseTimeout for
// in-flight handlers.
func (r *Router) Close() error {
	return r.router.Close()
}

// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/joeott/legal-doc-processor-sub010/internal/metrics"
	"github.com/joeott/legal-doc-processor-sub010/internal/queue"
	"github.com/joeott/legal-doc-processor-sub010/internal/statestore"
)

// RouterService adapts the Watermill router to suture.Service. Run blocks
// until context cancellation, which suture treats as a normal stop.
type RouterService struct {
	router *queue.Router
}

// NewRouterService wraps a queue router.
func NewRouterService(router *queue.Router) *RouterService {
	return &RouterService{router: router}
}

// String names the service in supervisor logs.
func (s *RouterService) String() string { return "queue-router" }

// Serve runs the router until the context is canceled.
func (s *RouterService) Serve(ctx context.Context) error {
	if err := s.router.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}

// UptimeService refreshes the uptime gauge. Trivial, but running it under
// the tree means a wedged metrics path shows up in supervisor logs.
type UptimeService struct {
	Interval time.Duration
}

// String names the service in supervisor logs.
func (s *UptimeService) String() string { return "uptime-ticker" }

// Serve ticks until the context is canceled.
func (s *UptimeService) Serve(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			metrics.UpdateUptime()
		}
	}
}

// StoreGCService runs the Badger value log garbage collector on an interval.
// Badger never reclaims value log space on its own; without this the state
// directory only grows.
type StoreGCService struct {
	Store    *statestore.Store
	Interval time.Duration
}

// String names the service in supervisor logs.
func (s *StoreGCService) String() string { return "store-gc" }

// Serve runs GC cycles until the context is canceled. ErrNoRewrite is the
// normal "nothing to collect" result, not a failure.
func (s *StoreGCService) Serve(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// One GC call rewrites at most one log file; loop until there
			// is nothing left worth rewriting.
			for {
				if err := s.Store.DB().RunValueLogGC(0.5); err != nil {
					break
				}
			}
		}
	}
}

// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package supervisor

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// blockingService runs until canceled and counts its starts.
type blockingService struct {
	starts atomic.Int32
}

func (s *blockingService) String() string { return "blocking" }

func (s *blockingService) Serve(ctx context.Context) error {
	s.starts.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestTreeServesAndStops(t *testing.T) {
	tree := NewTree(testLogger(), DefaultTreeConfig())

	svc := &blockingService{}
	tree.AddPipelineService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(2 * time.Second)
	for svc.starts.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("service never started")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop after cancel")
	}
}

func TestTreeRestartsCrashedService(t *testing.T) {
	cfg := DefaultTreeConfig()
	cfg.FailureBackoff = 50 * time.Millisecond
	tree := NewTree(testLogger(), cfg)

	var starts atomic.Int32
	crashOnce := serviceFunc(func(ctx context.Context) error {
		if starts.Add(1) == 1 {
			return nil // treated as a crash: service returned while ctx live
		}
		<-ctx.Done()
		return ctx.Err()
	})
	tree.AddPipelineService(crashOnce)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(3 * time.Second)
	for starts.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("service restarted %d times, want >= 2", starts.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-errCh
}

type serviceFunc func(ctx context.Context) error

func (f serviceFunc) Serve(ctx context.Context) error { return f(ctx) }

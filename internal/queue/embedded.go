// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package queue

import (
	"fmt"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"

	"github.com/joeott/legal-doc-processor-sub010/internal/logging"
)

// EmbeddedServerConfig configures the in-process NATS server used in
// single-binary deployments.
type EmbeddedServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
	MaxPayload        int32
	ReadyTimeout      time.Duration
}

// DefaultEmbeddedServerConfig returns sensible defaults for an embedded
// server storing JetStream state under dataDir.
func DefaultEmbeddedServerConfig(dataDir string) EmbeddedServerConfig {
	return EmbeddedServerConfig{
		Host:              "127.0.0.1",
		Port:              -1, // random available port
		StoreDir:          dataDir,
		JetStreamMaxMem:   256 << 20,
		JetStreamMaxStore: 8 << 30,
		MaxPayload:        8 << 20,
		ReadyTimeout:      30 * time.Second,
	}
}

// EmbeddedServer wraps an in-process NATS server with JetStream enabled.
type EmbeddedServer struct {
	srv *natsserver.Server
}

// StartEmbeddedServer starts an in-process NATS server and blocks until it
// is ready to accept connections.
func StartEmbeddedServer(cfg EmbeddedServerConfig) (*EmbeddedServer, error) {
	opts := &natsserver.Options{
		Host:       cfg.Host,
		Port:       cfg.Port,
		JetStream:  true,
		StoreDir:   cfg.StoreDir,
		MaxPayload: cfg.MaxPayload,
		NoSigs:     true,
		NoLog:      true,
	}
	opts.JetStreamMaxMemory = cfg.JetStreamMaxMem
	opts.JetStreamMaxStore = cfg.JetStreamMaxStore

	srv, err := natsserver.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create embedded NATS server: %w", err)
	}

	go srv.Start()

	if !srv.ReadyForConnections(cfg.ReadyTimeout) {
		srv.Shutdown()
		return nil, fmt.Errorf("embedded NATS server not ready within %s", cfg.ReadyTimeout)
	}

	logging.Info().Str("url", srv.ClientURL()).Msg("Embedded NATS server started")
	return &EmbeddedServer{srv: srv}, nil
}

// ClientURL returns the URL clients should connect to.
func (e *EmbeddedServer) ClientURL() string {
	return e.srv.ClientURL()
}

// Shutdown stops the server and waits for it to exit.
func (e *EmbeddedServer) Shutdown() {
	e.srv.Shutdown()
	e.srv.WaitForShutdown()
}

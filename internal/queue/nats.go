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
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSConfig holds connection and JetStream settings for the NATS backend.
type NATSConfig struct {
	URL              string
	StreamName       string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	MaxDeliver       int
	MaxAckPending    int
	AckWaitTimeout   time.Duration
	CloseTimeout     time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration
	RetentionAge     time.Duration
}

// DefaultNATSConfig returns production defaults for the pipeline stream.
func DefaultNATSConfig(url string) NATSConfig {
	return NATSConfig{
		URL:              url,
		StreamName:       "PIPELINE",
		DurableName:      "stage-worker",
		QueueGroup:       "workers",
		SubscribersCount: 4,
		MaxDeliver:       5,
		MaxAckPending:    64,
		AckWaitTimeout:   5 * time.Minute,
		CloseTimeout:     30 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		RetentionAge:     7 * 24 * time.Hour,
	}
}

// EnsureStream creates or updates the JetStream stream covering all stage
// topics ("pipeline.>"). Streams cannot be named after wildcard subjects, so
// provisioning happens here once and subscribers bind to the stream by name.
func EnsureStream(ctx context.Context, nc *natsgo.Conn, cfg NATSConfig) error {
	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	streamCfg := jetstream.StreamConfig{
		Name:       cfg.StreamName,
		Subjects:   []string{"pipeline.>"},
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     cfg.RetentionAge,
		Storage:    jetstream.FileStorage,
		Discard:    jetstream.DiscardOld,
		Duplicates: 2 * time.Minute,
	}

	if _, err := js.Stream(ctx, cfg.StreamName); err == nil {
		if _, err := js.UpdateStream(ctx, streamCfg); err != nil {
			return fmt.Errorf("update stream: %w", err)
		}
		return nil
	}
	if _, err := js.CreateStream(ctx, streamCfg); err != nil {
		return fmt.Errorf("create stream: %w", err)
	}
	return nil
}

// NewNATS creates a JetStream-backed queue: a publisher with reconnect
// handling and a durable queue-group subscriber bound to the pipeline stream.
func NewNATS(cfg NATSConfig, logger watermill.LoggerAdapter) (*Queue, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false, // stream is pre-created by EnsureStream
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}

	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(cfg.MaxDeliver),
		natsgo.MaxAckPending(cfg.MaxAckPending),
		natsgo.AckWait(cfg.AckWaitTimeout),
		natsgo.DeliverAll(),
		natsgo.BindStream(cfg.StreamName),
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    false,
			AckAsync:         false,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}

	return &Queue{
		Publisher:  pub,
		Subscriber: sub,
		closers:    []func() error{sub.Close, pub.Close},
	}, nil
}

// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package queue

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/joeott/legal-doc-processor-sub010/internal/metrics"
	"github.com/joeott/legal-doc-processor-sub010/internal/models"
)

// PoisonTopic receives messages that exhausted the router's retry budget.
const PoisonTopic = "pipeline.poison"

// Queue bundles a publisher and subscriber pair over one backend.
type Queue struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	closers    []func() error
}

// NewGoChannel creates an in-process queue. Messages are not persisted;
// the single-binary deployment relies on the stall monitor re-enqueueing
// anything lost across a restart (every enqueue is preceded by a durable
// status write, so nothing is silently dropped).
func NewGoChannel(logger watermill.LoggerAdapter) *Queue {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, logger)
	return &Queue{
		Publisher:  ch,
		Subscriber: ch,
		closers:    []func() error{ch.Close},
	}
}

// Close shuts down the backend.
func (q *Queue) Close() error {
	var firstErr error
	for _, c := range q.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PublishTask validates, serializes and publishes a task message to its
// stage topic. The Watermill message UUID doubles as the broker-level
// deduplication ID where the backend supports it.
func (q *Queue) PublishTask(ctx context.Context, task *models.TaskMessage) error {
	return PublishTask(ctx, q.Publisher, task)
}

// PublishTask publishes a task message via any Watermill publisher.
func PublishTask(ctx context.Context, pub message.Publisher, task *models.TaskMessage) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("validate task: %w", err)
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("stage", string(task.Stage))
	msg.Metadata.Set("document_id", task.DocumentID.String())
	if err := pub.Publish(task.Stage.Topic(), msg); err != nil {
		return fmt.Errorf("publish %s: %w", task.Stage.Topic(), err)
	}
	metrics.QueueMessagesPublished.WithLabelValues(task.Stage.String()).Inc()
	return nil
}

// DecodeTask deserializes and validates a task message.
func DecodeTask(msg *message.Message) (*models.TaskMessage, error) {
	task := &models.TaskMessage{}
	if err := json.Unmarshal(msg.Payload, task); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("validate task: %w", err)
	}
	return task, nil
}

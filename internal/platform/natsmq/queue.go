// Package natsmq implements task trigger transport and status-change
// publication on NATS JetStream. Triggers are delivered at-least-once; the
// claim protocol in the task package makes redelivery harmless.
package natsmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/palettekit/palette-api/internal/events"
	"github.com/palettekit/palette-api/internal/task"
)

const (
	streamName = "PALETTE"

	// triggerSubject carries task ids awaiting orchestration.
	triggerSubject = "tasks.trigger"

	// statusSubject carries StatusChange events for interested consumers.
	statusSubject = "tasks.status"

	// consumerName is the durable consumer shared by all server instances,
	// giving queue-group semantics for trigger delivery.
	consumerName = "palette-orchestrator"
)

// taskTrigger is the wire form of a trigger message.
type taskTrigger struct {
	TaskID uuid.UUID `json:"task_id"`
}

// Runner processes one triggered task. Satisfied by *task.Orchestrator.
type Runner interface {
	Run(ctx context.Context, taskID uuid.UUID) error
}

// Queue is the JetStream-backed message queue. It implements
// events.StatusPublisher and the trigger transport used by the task service.
type Queue struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger
}

// Connect establishes a connection to NATS and ensures the JetStream stream
// exists with the subjects this service uses.
func Connect(ctx context.Context, url string, logger *slog.Logger) (*Queue, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"tasks.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	logger.Info("nats connected", "url", url, "stream", streamName)
	return &Queue{nc: nc, js: js, logger: logger.With("component", "natsmq")}, nil
}

// PublishTaskTrigger enqueues a task for orchestration.
func (q *Queue) PublishTaskTrigger(ctx context.Context, taskID uuid.UUID) error {
	data, err := json.Marshal(taskTrigger{TaskID: taskID})
	if err != nil {
		return fmt.Errorf("marshal task trigger: %w", err)
	}
	if _, err := q.js.Publish(ctx, triggerSubject, data); err != nil {
		return fmt.Errorf("publish task trigger: %w", err)
	}
	return nil
}

// PublishStatusChange implements events.StatusPublisher.
func (q *Queue) PublishStatusChange(ctx context.Context, change events.StatusChange) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal status change: %w", err)
	}
	if _, err := q.js.Publish(ctx, statusSubject, data); err != nil {
		return fmt.Errorf("publish status change: %w", err)
	}
	return nil
}

// SubscribeTriggers starts consuming trigger messages, handing each task id to
// the runner. A claim conflict acks the message (the task is already being or
// has been handled elsewhere); any other runner error naks it for redelivery.
// The returned stop function halts consumption.
func (q *Queue) SubscribeTriggers(ctx context.Context, runner Runner) (func(), error) {
	consumer, err := q.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Durable:       consumerName,
		FilterSubject: triggerSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("nats consumer create: %w", err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		q.handleTrigger(ctx, runner, msg)
	})
	if err != nil {
		return nil, fmt.Errorf("nats consume: %w", err)
	}

	return cons.Stop, nil
}

func (q *Queue) handleTrigger(ctx context.Context, runner Runner, msg jetstream.Msg) {
	var trigger taskTrigger
	if err := json.Unmarshal(msg.Data(), &trigger); err != nil {
		// Malformed payloads never become processable; drop them.
		q.logger.Error("malformed task trigger, discarding",
			"subject", msg.Subject(), "error", err)
		q.ack(msg)
		return
	}

	err := runner.Run(ctx, trigger.TaskID)
	switch {
	case err == nil, errors.Is(err, task.ErrClaimConflict):
		q.ack(msg)
	default:
		q.logger.Error("task orchestration failed, requesting redelivery",
			"task_id", trigger.TaskID, "error", err)
		if nakErr := msg.Nak(); nakErr != nil {
			q.logger.Error("nats nak failed", "task_id", trigger.TaskID, "error", nakErr)
		}
	}
}

func (q *Queue) ack(msg jetstream.Msg) {
	if err := msg.Ack(); err != nil {
		q.logger.Error("nats ack failed", "subject", msg.Subject(), "error", err)
	}
}

// Close shuts down the NATS connection.
func (q *Queue) Close() error {
	q.nc.Close()
	return nil
}

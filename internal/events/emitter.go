package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Broadcaster fans a status change out to all registered publishers. If any
// publisher returns an error, the change is still delivered to all others and
// the errors are joined in the return value.
type Broadcaster struct {
	publishers []StatusPublisher
	mu         sync.RWMutex
	logger     *slog.Logger
}

// NewBroadcaster creates a Broadcaster with no publishers registered.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		publishers: make([]StatusPublisher, 0),
		logger:     logger.With("component", "status_broadcaster"),
	}
}

// Register adds a publisher to receive status changes.
func (b *Broadcaster) Register(p StatusPublisher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.publishers = append(b.publishers, p)
	b.logger.Debug("registered status publisher", "publisher_count", len(b.publishers))
}

// PublishStatusChange delivers the change to every registered publisher.
func (b *Broadcaster) PublishStatusChange(ctx context.Context, change StatusChange) error {
	b.mu.RLock()
	publishers := make([]StatusPublisher, len(b.publishers))
	copy(publishers, b.publishers)
	b.mu.RUnlock()

	var errs []error
	for i, p := range publishers {
		if err := p.PublishStatusChange(ctx, change); err != nil {
			b.logger.Error("status publisher failed",
				"error", err,
				"publisher_index", i,
				"task_id", change.TaskID,
				"status", change.Status)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher records status changes in the structured log. It is always
// registered so every transition is observable even with no external
// transport configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With("component", "status_log_publisher")}
}

// PublishStatusChange logs the transition.
func (p *LogPublisher) PublishStatusChange(_ context.Context, change StatusChange) error {
	p.logger.Info("task status changed",
		"task_id", change.TaskID,
		"owner", change.Owner,
		"status", change.Status,
		"has_result", change.ResultRef != nil,
		"error_message", change.ErrorMessage)
	return nil
}

// Package notify drains the notification outbox and delivers events to the
// pub/sub channel downstream systems subscribe to. Delivery is best-effort:
// a few bounded attempts, then the event is dropped and the degradation
// logged. The engine's committed state is never affected.
package notify

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"stageflow/internal/domain"
)

// Source yields enqueued notification events, blocking until one arrives.
type Source interface {
	Dequeue(ctx context.Context) (domain.NotificationEvent, error)
}

// Sink delivers an event downstream.
type Sink interface {
	Publish(ctx context.Context, event domain.NotificationEvent) error
}

type Dispatcher struct {
	source      Source
	sink        Sink
	logger      *zap.Logger
	maxAttempts int
	backoff     time.Duration
}

func NewDispatcher(source Source, sink Sink, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		source:      source,
		sink:        sink,
		logger:      logger,
		maxAttempts: 3,
		backoff:     250 * time.Millisecond,
	}
}

// Run loops until the context is cancelled. Call it in main as a goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("notification dispatcher started")
	for {
		event, err := d.source.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				d.logger.Info("notification dispatcher shutting down")
				return
			}
			d.logger.Warn("dequeue failed", zap.Error(err))
			continue
		}
		d.deliver(ctx, event)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event domain.NotificationEvent) {
	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if err := d.sink.Publish(ctx, event); err == nil {
			return
		} else {
			lastErr = err
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.backoff):
		}
	}
	d.logger.Error("notification delivery degraded, dropping event",
		zap.String("event_type", event.Type),
		zap.String("instance_id", event.InstanceID.String()),
		zap.Int("attempts", d.maxAttempts),
		zap.Error(lastErr))
}

package outbox

import (
	"context"
	"time"
)

// Dispatcher defaults. Both are externally configurable.
const (
	// DefaultDrainInterval is how often the dispatcher drains the outbox.
	DefaultDrainInterval = 5 * time.Minute

	// DefaultBatchSize is the maximum messages fetched per drain.
	DefaultBatchSize = 20
)

// Logger is the logging interface used by the dispatcher.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// DrainRecorder records drain outcomes to a metrics backend.
// Writes are best effort and must not block the drain loop.
type DrainRecorder interface {
	RecordOutboxDrain(delivered, failed int)
}

// Dispatcher periodically drains the outbox store and delivers pending
// messages through a bus publisher.
//
// Delivery is at least once: a message whose publish succeeded but whose
// mark-as-processed write failed is re-published on the next drain. There is
// no retry cap and no dead-letter path - failed messages stay pending with an
// incrementing retry count. Running multiple dispatcher instances is not
// guarded against; duplicate publish attempts are tolerated.
type Dispatcher struct {
	store     Store
	publisher Publisher
	interval  time.Duration
	batchSize int
	logger    Logger
	metrics   DrainRecorder
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	// Store is the outbox store to drain. Required.
	Store Store

	// Publisher delivers messages to the bus. Required.
	Publisher Publisher

	// Interval between drains. Defaults to DefaultDrainInterval.
	Interval time.Duration

	// BatchSize is the maximum messages per drain. Defaults to DefaultBatchSize.
	BatchSize int

	// Logger for drain outcomes. Optional.
	Logger Logger

	// Metrics records drain outcomes to a time-series backend. Optional.
	Metrics DrainRecorder
}

// NewDispatcher creates a dispatcher from the given options.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultDrainInterval
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Dispatcher{
		store:     opts.Store,
		publisher: opts.Publisher,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
		metrics:   opts.Metrics,
	}
}

// Run drains the outbox on a fixed interval until the context is cancelled.
// Drain errors are logged, never fatal - the next tick retries.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("outbox dispatcher started",
		"interval", d.interval.String(),
		"batch_size", d.batchSize,
	)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("outbox dispatcher stopped")
			return
		case <-ticker.C:
			if err := d.Drain(ctx); err != nil {
				d.logger.Error("outbox drain failed", "error", err)
			}
		}
	}
}

// Drain fetches up to the configured batch of unprocessed messages and
// attempts delivery of each one independently. One message's failure never
// blocks the others: a failed publish is recorded on that message and the
// loop continues.
func (d *Dispatcher) Drain(ctx context.Context) error {
	messages, err := d.store.ListUnprocessed(ctx, d.batchSize)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}

	var delivered, failed int
	for i := range messages {
		msg := &messages[i]

		if pubErr := d.publisher.Publish(ctx, msg.AsEvent()); pubErr != nil {
			failed++
			d.logger.Warn("outbox message delivery failed",
				"message_id", msg.ID,
				"event_type", msg.EventType,
				"retry_count", msg.RetryCount+1,
				"error", pubErr,
			)
			if markErr := d.store.MarkFailed(ctx, msg.ID, pubErr.Error()); markErr != nil {
				d.logger.Error("failed to record delivery failure",
					"message_id", msg.ID,
					"error", markErr,
				)
			}
			continue
		}

		delivered++
		if markErr := d.store.MarkProcessed(ctx, msg.ID); markErr != nil {
			// The publish succeeded but the outcome write failed: the next
			// drain re-publishes this message (at-least-once, not exactly-once).
			d.logger.Error("failed to mark message processed",
				"message_id", msg.ID,
				"error", markErr,
			)
		}
	}

	if d.metrics != nil {
		d.metrics.RecordOutboxDrain(delivered, failed)
	}

	d.logger.Debug("outbox drained",
		"fetched", len(messages),
		"delivered", delivered,
		"failed", failed,
	)

	return nil
}

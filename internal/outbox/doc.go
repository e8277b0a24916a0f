// Package outbox implements the transactional-outbox pattern for outbound
// domain events.
//
// Events are written durably to an outbox store alongside the state change
// that produced them, then delivered asynchronously to the message bus by a
// periodic dispatcher. This avoids losing events on publish failure at the
// cost of occasional duplicates (at-least-once delivery).
//
// # Key Types
//
//   - Event: the envelope handed to a Publisher
//   - Message: a queued event with delivery bookkeeping
//   - Store: persistence contract for queued messages
//   - StorePublisher: Publisher that appends to the store (used by the
//     reconciliation use case)
//   - BusPublisher: Publisher that delivers to the bus (used only by the
//     dispatcher)
//   - Dispatcher: periodic batch drain with per-message failure isolation
//
// # Usage
//
//	store := outbox.NewSQLiteStore(db)
//	dispatcher := outbox.NewDispatcher(outbox.DispatcherOptions{
//	    Store:     store,
//	    Publisher: outbox.NewBusPublisher(mqttClient, 1),
//	    Interval:  5 * time.Minute,
//	    BatchSize: 20,
//	    Logger:    log,
//	})
//	go dispatcher.Run(ctx)
//
// # Delivery Semantics
//
// At least once, never exactly once. If marking a message processed fails
// after a successful publish, the next drain re-publishes it. Downstream
// consumers must be idempotent. Failed messages are retried forever; there
// is no dead-letter set in this core.
package outbox

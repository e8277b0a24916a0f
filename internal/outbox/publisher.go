package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Publisher is the event publishing contract.
//
// Two roles implement it: StorePublisher appends events to the outbox store
// (used by the reconciliation use case), and BusPublisher delivers events to
// the message bus directly (used only by the dispatcher). The indirection is
// what makes the domain write and the event emission independently
// retryable.
type Publisher interface {
	// Publish emits a single event.
	Publish(ctx context.Context, event Event) error

	// PublishBatch emits events sequentially. There is no atomicity across
	// the batch: partial success is possible and expected, and the first
	// failure aborts the remainder.
	PublishBatch(ctx context.Context, events []Event) error
}

// validateEvent checks the envelope carries the required routing fields.
func validateEvent(event Event) error {
	if event.Topic == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidEvent)
	}
	if event.EventType == "" {
		return fmt.Errorf("%w: event type is required", ErrInvalidEvent)
	}
	return nil
}

// StorePublisher queues events in the outbox store instead of publishing
// them to the bus. The dispatcher delivers them later, at least once.
type StorePublisher struct {
	store Store
}

// NewStorePublisher creates a Publisher backed by the outbox store.
func NewStorePublisher(store Store) *StorePublisher {
	return &StorePublisher{store: store}
}

// Publish appends the event to the outbox as a pending message.
func (p *StorePublisher) Publish(ctx context.Context, event Event) error {
	if err := validateEvent(event); err != nil {
		return err
	}

	msg := NewMessage(event, time.Now())
	if err := p.store.Save(ctx, msg); err != nil {
		return fmt.Errorf("queueing event %s: %w", event.EventType, err)
	}
	return nil
}

// PublishBatch appends each event sequentially.
func (p *StorePublisher) PublishBatch(ctx context.Context, events []Event) error {
	for _, event := range events {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// BusClient is the subset of the MQTT client used for event delivery.
// The infrastructure client satisfies it directly.
type BusClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// BusPublisher delivers events straight to the message bus.
type BusPublisher struct {
	client BusClient
	qos    byte
}

// NewBusPublisher creates a Publisher that writes to the bus through client.
func NewBusPublisher(client BusClient, qos byte) *BusPublisher {
	return &BusPublisher{client: client, qos: qos}
}

// Publish serialises the envelope as JSON and publishes it on
// "{topic}/event/{eventType}". Events are not retained: consumers replaying
// state should read the availability store, not the bus.
func (p *BusPublisher) Publish(_ context.Context, event Event) error {
	if err := validateEvent(event); err != nil {
		return err
	}

	payload, err := json.Marshal(envelope{
		EventType:   event.EventType,
		Subject:     event.Subject,
		Data:        json.RawMessage(event.Data),
		DataVersion: event.DataVersion,
		EventTime:   event.EventTime.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encoding event %s: %w", event.EventType, err)
	}

	topic := fmt.Sprintf("%s/event/%s", event.Topic, event.EventType)
	if err := p.client.Publish(topic, payload, p.qos, false); err != nil {
		return fmt.Errorf("publishing event %s: %w", event.EventType, err)
	}
	return nil
}

// PublishBatch delivers each event sequentially.
func (p *BusPublisher) PublishBatch(ctx context.Context, events []Event) error {
	for _, event := range events {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// envelope is the wire format for bus events.
type envelope struct {
	EventType   string          `json:"event_type"`
	Subject     string          `json:"subject"`
	Data        json.RawMessage `json:"data"`
	DataVersion string          `json:"data_version"`
	EventTime   string          `json:"event_time"`
}

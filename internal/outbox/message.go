package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Event is the envelope handed to a Publisher.
type Event struct {
	// Topic is the logical destination (e.g. "availability").
	Topic string `json:"topic"`

	// EventType identifies the event schema (e.g. "Availability.Changed").
	EventType string `json:"event_type"`

	// Subject is the entity the event is about (e.g. the device ID).
	Subject string `json:"subject"`

	// Data is the JSON-encoded event payload.
	Data []byte `json:"data"`

	// DataVersion is the payload schema version.
	DataVersion string `json:"data_version"`

	// EventTime is when the event occurred (UTC).
	EventTime time.Time `json:"event_time"`
}

// Message is a queued outbound event awaiting delivery.
//
// A message is either pending (Processed=false) or terminally processed
// (Processed=true). There is no dead-letter state: failed deliveries stay
// pending with an incrementing RetryCount and the last seen error.
// Messages are created once by the reconciler-side publisher, mutated only
// by the dispatcher and never deleted by this core.
type Message struct {
	// ID is unique per publish request, not per delivery attempt.
	ID string `json:"id"`

	// Event envelope fields.
	Topic       string    `json:"topic"`
	EventType   string    `json:"event_type"`
	Subject     string    `json:"subject"`
	Data        []byte    `json:"data"`
	DataVersion string    `json:"data_version"`
	EventTime   time.Time `json:"event_time"`

	// Processed is the terminal-success flag.
	Processed bool `json:"processed"`

	// ProcessedAt is set when the message is marked processed.
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	// Error is the last delivery error, if any.
	Error *string `json:"error,omitempty"`

	// RetryCount is the number of failed delivery attempts.
	RetryCount int `json:"retry_count"`

	// CreatedAt orders messages for dispatch (insertion order).
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage creates a pending message for the given event.
func NewMessage(event Event, now time.Time) *Message {
	return &Message{
		ID:          uuid.New().String(),
		Topic:       event.Topic,
		EventType:   event.EventType,
		Subject:     event.Subject,
		Data:        event.Data,
		DataVersion: event.DataVersion,
		EventTime:   event.EventTime.UTC(),
		CreatedAt:   now.UTC(),
	}
}

// AsEvent rebuilds the event envelope from a stored message.
func (m *Message) AsEvent() Event {
	return Event{
		Topic:       m.Topic,
		EventType:   m.EventType,
		Subject:     m.Subject,
		Data:        m.Data,
		DataVersion: m.DataVersion,
		EventTime:   m.EventTime,
	}
}

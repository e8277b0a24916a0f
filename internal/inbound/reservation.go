package inbound

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lendware/availability-core/internal/availability"
)

// Reservation lifecycle event types, as published by the reservation service.
const (
	ReservationCreated   = "Created"
	ReservationCollected = "Collected"
	ReservationReturned  = "Returned"
	ReservationCancelled = "Cancelled"
	ReservationExpired   = "Expired"
)

// reservationEffect is the availability effect of one reservation event.
type reservationEffect struct {
	status           availability.Status
	clearReservation bool
}

// reservationEffects maps reservation lifecycle events to their effect.
// Events not in the table are ignored.
var reservationEffects = map[string]reservationEffect{
	ReservationCreated:   {status: availability.StatusUnavailable},
	ReservationCollected: {status: availability.StatusUnavailable},
	ReservationReturned:  {status: availability.StatusAvailable, clearReservation: true},
	ReservationCancelled: {status: availability.StatusAvailable, clearReservation: true},
	ReservationExpired:   {status: availability.StatusAvailable, clearReservation: true},
}

// reservationEvent is the inbound payload contract for reservation events.
// ReservationID is a pointer so an omitted field is distinguishable from an
// explicit empty string: omitted keeps the stored reservation, empty clears it.
type reservationEvent struct {
	DeviceID      string  `json:"deviceId"`
	ReservationID *string `json:"reservationId"`
}

// reconciler is the subset of the availability reconciler used by adapters.
type reconciler interface {
	Reconcile(ctx context.Context, deviceID string, status availability.Status, reservation availability.ReservationChange) (*availability.Record, error)
	Delete(ctx context.Context, deviceID string) error
}

// Logger is the logging interface used by inbound adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// ReservationAdapter folds reservation lifecycle events into availability
// records.
type ReservationAdapter struct {
	reconciler reconciler
	logger     Logger
}

// NewReservationAdapter creates an adapter over the given reconciler.
func NewReservationAdapter(r reconciler, logger Logger) *ReservationAdapter {
	if logger == nil {
		logger = noopLogger{}
	}
	return &ReservationAdapter{reconciler: r, logger: logger}
}

// Handle processes one reservation event. The event type is the final topic
// segment; the payload is the event data as JSON.
//
// Unknown event types and payloads missing deviceId are dropped without side
// effects. A reconcile failure is returned so the transport can log it and
// the broker can redeliver.
func (a *ReservationAdapter) Handle(topic string, payload []byte) error {
	eventType := lastTopicSegment(topic)

	effect, ok := reservationEffects[eventType]
	if !ok {
		a.logger.Debug("ignoring reservation event", "event_type", eventType)
		return nil
	}

	var event reservationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		// Malformed payloads are not transient; drop, never retry.
		a.logger.Warn("dropping malformed reservation event",
			"event_type", eventType,
			"error", err,
		)
		return nil
	}
	if strings.TrimSpace(event.DeviceID) == "" {
		a.logger.Warn("dropping reservation event without device id",
			"event_type", eventType,
		)
		return nil
	}

	reservation := availability.KeepReservation()
	switch {
	case effect.clearReservation:
		reservation = availability.ClearReservation()
	case event.ReservationID != nil:
		reservation = availability.SetReservation(*event.ReservationID)
	}

	_, err := a.reconciler.Reconcile(context.Background(), event.DeviceID, effect.status, reservation)
	if err != nil {
		return fmt.Errorf("reconciling reservation %s for device %s: %w", eventType, event.DeviceID, err)
	}

	return nil
}

// lastTopicSegment returns the text after the final '/' in an MQTT topic.
func lastTopicSegment(topic string) string {
	if i := strings.LastIndex(topic, "/"); i >= 0 {
		return topic[i+1:]
	}
	return topic
}

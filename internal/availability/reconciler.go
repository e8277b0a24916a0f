package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lendware/availability-core/internal/outbox"
)

// Outbound event envelope constants.
const (
	// EventTopic is the logical topic for availability events.
	EventTopic = "availability"

	// EventTypeChanged is emitted whenever a persisted status differs from
	// the prior status.
	EventTypeChanged = "Availability.Changed"

	// EventDataVersion is the ChangedEvent payload schema version.
	EventDataVersion = "1.0"
)

// ChangedEvent is the payload of an Availability.Changed event.
// PreviousStatus is null for records created by the change.
type ChangedEvent struct {
	DeviceID       string  `json:"deviceId"`
	PreviousStatus *string `json:"previousStatus"`
	NewStatus      string  `json:"newStatus"`
	ReservationID  *string `json:"reservationId,omitempty"`
	UpdatedAt      string  `json:"updatedAt"`
}

// HistoryRecorder records status transitions to a time-series backend.
// Writes are best effort and must not block the reconciliation path.
type HistoryRecorder interface {
	RecordStatusChange(deviceID string, previous, next string)
}

// Logger is the logging interface used by the reconciler.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ReservationChange expresses the three-way reservation semantics of a
// reconcile request: keep the existing reference, clear it, or replace it.
type ReservationChange struct {
	clear bool
	value *string
}

// KeepReservation leaves the existing reservation reference untouched.
func KeepReservation() ReservationChange {
	return ReservationChange{}
}

// ClearReservation removes the reservation reference.
func ClearReservation() ReservationChange {
	return ReservationChange{clear: true}
}

// SetReservation replaces the reservation reference. An empty id is
// equivalent to clearing it.
func SetReservation(reservationID string) ReservationChange {
	if reservationID == "" {
		return ClearReservation()
	}
	return ReservationChange{value: &reservationID}
}

// desired resolves the change against an existing reference.
func (c ReservationChange) desired(existing *string) *string {
	switch {
	case c.clear:
		return nil
	case c.value != nil:
		return c.value
	default:
		return existing
	}
}

// Reconciler folds inbound lifecycle events into availability records and
// queues an Availability.Changed event for every persisted status
// transition.
//
// The store is the single source of truth. Reads and writes are not guarded
// by a version token: two concurrent reconciliations for the same device can
// race and the later write wins. The domain write and the outbox enqueue are
// two independent, non-atomic operations.
type Reconciler struct {
	store     Store
	publisher outbox.Publisher
	history   HistoryRecorder
	logger    Logger
}

// ReconcilerOptions configures a Reconciler.
type ReconcilerOptions struct {
	// Store persists availability records. Required.
	Store Store

	// Publisher queues outbound events. Required - wire a
	// outbox.StorePublisher, not a direct bus publisher.
	Publisher outbox.Publisher

	// History records status transitions to a time-series backend. Optional.
	History HistoryRecorder

	// Logger for reconcile outcomes. Optional.
	Logger Logger
}

// NewReconciler creates a reconciler from the given options.
func NewReconciler(opts ReconcilerOptions) *Reconciler {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Reconciler{
		store:     opts.Store,
		publisher: opts.Publisher,
		history:   opts.History,
		logger:    logger,
	}
}

// Reconcile folds a desired (status, reservation) pair into the record for
// deviceID, creating the record lazily if it does not exist.
//
// Replayed and duplicate events are safe: when the desired status and
// reservation already match the stored record, Reconcile returns the
// existing record without a write and without an event. An event is queued
// if and only if the persisted status differs from the prior status -
// reservation-only changes are not externally observable.
func (r *Reconciler) Reconcile(ctx context.Context, deviceID string, status Status, reservation ReservationChange) (*Record, error) {
	// Records are stored under the trimmed id; trim before the read so a
	// padded id resolves to the same record it would be written as.
	deviceID = strings.TrimSpace(deviceID)
	now := time.Now()

	existing, err := r.store.GetByID(ctx, deviceID)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return nil, fmt.Errorf("reading availability record: %w", err)
	}

	var next *Record
	var previousStatus *string

	if existing == nil {
		next, err = NewRecord(deviceID, status, reservation.desired(nil), now)
		if err != nil {
			return nil, err
		}
	} else {
		prev := string(existing.Status)
		previousStatus = &prev

		// Idempotence guard: replayed events produce no write and no event.
		if existing.Status == status && existing.ReservationMatches(reservation.desired(existing.ReservationID)) {
			r.logger.Debug("reconcile no-op",
				"device_id", deviceID,
				"status", string(status),
			)
			return existing, nil
		}

		upd := Update{Status: &status}
		switch {
		case reservation.clear:
			upd.ClearReservation = true
		case reservation.value != nil:
			upd.ReservationID = reservation.value
		}

		next, err = ApplyUpdate(existing, upd, now)
		if err != nil {
			return nil, err
		}
	}

	if err := r.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("saving availability record: %w", err)
	}

	statusChanged := previousStatus == nil || *previousStatus != string(next.Status)
	if statusChanged {
		if err := r.queueChangedEvent(ctx, previousStatus, next); err != nil {
			// The domain write is already committed; the event is lost only
			// if the caller also drops the error. Surface it so inbound
			// adapters can trigger redelivery.
			return nil, err
		}
		if r.history != nil {
			prev := "none"
			if previousStatus != nil {
				prev = *previousStatus
			}
			r.history.RecordStatusChange(next.ID, prev, string(next.Status))
		}
	}

	r.logger.Debug("reconciled availability",
		"device_id", deviceID,
		"status", string(next.Status),
		"status_changed", statusChanged,
	)

	return next, nil
}

// Delete removes the availability record for a device. Idempotent: deleting
// an unknown device succeeds.
func (r *Reconciler) Delete(ctx context.Context, deviceID string) error {
	deviceID = strings.TrimSpace(deviceID)
	if err := ValidateDeviceID(deviceID); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, deviceID); err != nil {
		return fmt.Errorf("deleting availability record: %w", err)
	}
	return nil
}

// Get returns the record for a device.
// Returns ErrRecordNotFound when no record exists.
func (r *Reconciler) Get(ctx context.Context, deviceID string) (*Record, error) {
	return r.store.GetByID(ctx, deviceID)
}

// GetMany returns the records for the given device IDs, skipping unknown IDs.
func (r *Reconciler) GetMany(ctx context.Context, deviceIDs []string) ([]Record, error) {
	return r.store.GetByIDs(ctx, deviceIDs)
}

// queueChangedEvent appends one Availability.Changed event to the outbox.
func (r *Reconciler) queueChangedEvent(ctx context.Context, previousStatus *string, record *Record) error {
	payload, err := json.Marshal(ChangedEvent{
		DeviceID:       record.ID,
		PreviousStatus: previousStatus,
		NewStatus:      string(record.Status),
		ReservationID:  record.ReservationID,
		UpdatedAt:      record.UpdatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encoding changed event: %w", err)
	}

	event := outbox.Event{
		Topic:       EventTopic,
		EventType:   EventTypeChanged,
		Subject:     record.ID,
		Data:        payload,
		DataVersion: EventDataVersion,
		EventTime:   record.UpdatedAt,
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		return fmt.Errorf("queueing changed event: %w", err)
	}
	return nil
}

package availability

import (
	"fmt"
	"strings"
	"time"
)

// Pre-computed validation set for O(1) status lookups.
var validStatuses map[Status]struct{}

func init() {
	validStatuses = make(map[Status]struct{}, len(AllStatuses()))
	for _, s := range AllStatuses() {
		validStatuses[s] = struct{}{}
	}
}

// ValidateStatus checks if a status is within the closed enumeration.
func ValidateStatus(status Status) error {
	if _, ok := validStatuses[status]; ok {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
}

// ValidateDeviceID checks that a device ID is non-empty after trimming.
func ValidateDeviceID(deviceID string) error {
	if strings.TrimSpace(deviceID) == "" {
		return fmt.Errorf("%w: device id cannot be empty", ErrInvalidDeviceID)
	}
	return nil
}

// Update describes a requested change to an existing Record.
//
// ReservationID has three-way semantics:
//   - ReservationID nil and ClearReservation false: keep the existing reference
//   - ClearReservation true: clear the reference
//   - ReservationID non-nil: replace the reference
type Update struct {
	// Status is the desired status. Nil keeps the existing status.
	Status *Status

	// ReservationID replaces the reservation reference when non-nil.
	ReservationID *string

	// ClearReservation clears the reservation reference. Takes precedence
	// over ReservationID.
	ClearReservation bool
}

// NewRecord builds a fresh availability record for a device.
//
// The device ID is trimmed and must be non-empty. An empty status defaults
// to StatusAvailable; any other value must be within the closed enumeration.
// Both timestamps are stamped to now. Pure function, no I/O.
func NewRecord(deviceID string, status Status, reservationID *string, now time.Time) (*Record, error) {
	deviceID = strings.TrimSpace(deviceID)
	if err := ValidateDeviceID(deviceID); err != nil {
		return nil, err
	}

	if status == "" {
		status = StatusAvailable
	}
	if err := ValidateStatus(status); err != nil {
		return nil, err
	}

	rec := &Record{
		ID:            deviceID,
		Status:        status,
		LastCheckedAt: now.UTC(),
		UpdatedAt:     now.UTC(),
	}
	if reservationID != nil && *reservationID != "" {
		id := *reservationID
		rec.ReservationID = &id
	}

	return rec, nil
}

// ApplyUpdate folds an Update into an existing record and returns the result.
//
// The existing record is not mutated. Both timestamps are refreshed even when
// nothing else changed - callers decide whether a true no-op is worth
// persisting (the reconciler short-circuits one layer up). Never fails on
// no-op updates; only an out-of-enumeration status is rejected.
// Pure function, no I/O.
func ApplyUpdate(existing *Record, upd Update, now time.Time) (*Record, error) {
	if existing == nil {
		return nil, fmt.Errorf("%w: existing record is nil", ErrInvalidRecord)
	}

	next := existing.Clone()

	if upd.Status != nil {
		if err := ValidateStatus(*upd.Status); err != nil {
			return nil, err
		}
		next.Status = *upd.Status
	}

	switch {
	case upd.ClearReservation:
		next.ReservationID = nil
	case upd.ReservationID != nil && *upd.ReservationID != "":
		id := *upd.ReservationID
		next.ReservationID = &id
	}

	next.LastCheckedAt = now.UTC()
	next.UpdatedAt = now.UTC()

	return next, nil
}

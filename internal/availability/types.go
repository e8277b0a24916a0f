package availability

import "time"

// Record tracks the real-time availability of a single physical device.
// The record ID is the device ID - there is no surrogate key.
// This matches the database schema in migrations/20260810_120000_initial_schema.up.sql.
type Record struct {
	// ID is the unique device identifier (record identity, 1:1 with the device).
	ID string `json:"id"`

	// Status is the current availability status.
	Status Status `json:"status"`

	// ReservationID is an optional back-reference to the reservation currently
	// holding the device. It is not owned by this service and no referential
	// integrity is enforced against the reservation system.
	ReservationID *string `json:"reservation_id,omitempty"`

	// LastCheckedAt is refreshed on every write, including no-op updates.
	LastCheckedAt time.Time `json:"last_checked_at"`

	// UpdatedAt is the authoritative version marker, refreshed on every write.
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns an independent copy of the Record.
// The reservation pointer is duplicated so modifications to the copy
// do not affect the original.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	cpy := *r
	if r.ReservationID != nil {
		id := *r.ReservationID
		cpy.ReservationID = &id
	}
	return &cpy
}

// ReservationMatches reports whether the record's reservation reference equals
// the given value by value equality (nil matches only nil/empty).
func (r *Record) ReservationMatches(reservationID *string) bool {
	switch {
	case r.ReservationID == nil && reservationID == nil:
		return true
	case r.ReservationID == nil || reservationID == nil:
		return false
	default:
		return *r.ReservationID == *reservationID
	}
}

// Status is the closed enumeration of device availability states.
type Status string

// Status constants.
const (
	StatusAvailable   Status = "available"
	StatusUnavailable Status = "unavailable"
	StatusMaintenance Status = "maintenance"
	StatusRetired     Status = "retired"
	StatusLost        Status = "lost"
)

// AllStatuses returns all valid availability status values.
func AllStatuses() []Status {
	return []Status{
		StatusAvailable, StatusUnavailable, StatusMaintenance,
		StatusRetired, StatusLost,
	}
}

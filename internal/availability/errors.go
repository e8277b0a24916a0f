package availability

import "errors"

// Domain errors for the availability package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, availability.ErrRecordNotFound) {
//	    // handle not found case
//	}
var (
	// ErrRecordNotFound is returned when no availability record exists for a device ID.
	ErrRecordNotFound = errors.New("availability: record not found")

	// ErrInvalidRecord is returned when record validation fails.
	ErrInvalidRecord = errors.New("availability: invalid record")

	// ErrInvalidDeviceID is returned when a device ID is empty or blank.
	ErrInvalidDeviceID = errors.New("availability: invalid device id")

	// ErrInvalidStatus is returned when a status value is outside the closed enumeration.
	ErrInvalidStatus = errors.New("availability: invalid status")
)

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lendware/availability-core/internal/availability"
)

// maxBatchIDs caps the number of device IDs a single batch lookup may request.
const maxBatchIDs = 500

// handleGetAvailability returns the availability record for a single device.
func (s *Server) handleGetAvailability(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := s.reconciler.Get(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, availability.ErrRecordNotFound):
			writeNotFound(w, "availability record not found")
		case errors.Is(err, availability.ErrInvalidDeviceID):
			writeValidationError(w, "device id is required")
		default:
			writeInternalError(w, "failed to get availability record")
		}
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// batchRequest is the body of a batch availability lookup.
type batchRequest struct {
	IDs []string `json:"ids"`
}

// handleBatchAvailability returns records for a set of device IDs.
// Unknown IDs are silently skipped; the response preserves store order.
func (s *Server) handleBatchAvailability(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.IDs) == 0 {
		writeValidationError(w, "ids must not be empty")
		return
	}
	if len(req.IDs) > maxBatchIDs {
		writeValidationError(w, "too many ids in a single batch")
		return
	}

	records, err := s.reconciler.GetMany(r.Context(), req.IDs)
	if err != nil {
		writeInternalError(w, "failed to get availability records")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}

// patchRequest is the body of a manual availability override.
//
// ReservationID and ClearReservation express the three-way reservation
// semantics: set a new reference, clear the existing one, or (when both
// are omitted) leave it untouched.
type patchRequest struct {
	Status           string  `json:"status"`
	ReservationID    *string `json:"reservationId"`
	ClearReservation bool    `json:"clearReservation"`
}

// handlePatchAvailability applies a manual status override through the
// same reconcile path as bus events, so idempotence and change events
// behave identically.
func (s *Server) handlePatchAvailability(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	status := availability.Status(req.Status)
	if err := availability.ValidateStatus(status); err != nil {
		writeValidationError(w, "invalid status value")
		return
	}

	reservation := availability.KeepReservation()
	switch {
	case req.ReservationID != nil:
		reservation = availability.SetReservation(*req.ReservationID)
	case req.ClearReservation:
		reservation = availability.ClearReservation()
	}

	record, err := s.reconciler.Reconcile(r.Context(), id, status, reservation)
	if err != nil {
		switch {
		case errors.Is(err, availability.ErrInvalidDeviceID):
			writeValidationError(w, "device id is required")
		case errors.Is(err, availability.ErrInvalidStatus):
			writeValidationError(w, "invalid status value")
		default:
			writeInternalError(w, "failed to update availability record")
		}
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// handleDeleteAvailability removes a device's availability record.
// Deleting an unknown device succeeds with 204.
func (s *Server) handleDeleteAvailability(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.reconciler.Delete(r.Context(), id); err != nil {
		if errors.Is(err, availability.ErrInvalidDeviceID) {
			writeValidationError(w, "device id is required")
			return
		}
		writeInternalError(w, "failed to delete availability record")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package inbound

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lendware/availability-core/internal/availability"
)

// Catalogue lifecycle event types, as published by the catalogue service.
const (
	CatalogueDeviceUpserted = "DeviceUpserted"
	CatalogueDeviceDeleted  = "DeviceDeleted"
)

// catalogueStatuses maps the catalogue's status vocabulary to availability
// statuses. Values outside the table default to available.
var catalogueStatuses = map[string]availability.Status{
	"active":      availability.StatusAvailable,
	"available":   availability.StatusAvailable,
	"unavailable": availability.StatusUnavailable,
	"maintenance": availability.StatusMaintenance,
	"retired":     availability.StatusRetired,
	"lost":        availability.StatusLost,
}

// catalogueEvent is the inbound payload contract for catalogue events.
// Upserts carry id and status; deletes carry only id.
type catalogueEvent struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CatalogueAdapter folds catalogue lifecycle events into availability
// records.
type CatalogueAdapter struct {
	reconciler reconciler
	logger     Logger
}

// NewCatalogueAdapter creates an adapter over the given reconciler.
func NewCatalogueAdapter(r reconciler, logger Logger) *CatalogueAdapter {
	if logger == nil {
		logger = noopLogger{}
	}
	return &CatalogueAdapter{reconciler: r, logger: logger}
}

// Handle processes one catalogue event. The event type is the final topic
// segment; the payload is the event data as JSON.
//
// DeviceUpserted reconciles with the status mapped from the catalogue
// vocabulary, keeping any existing reservation reference. DeviceDeleted
// removes the availability record (idempotent - absence is success).
// Unknown event types and payloads missing the id are dropped.
func (a *CatalogueAdapter) Handle(topic string, payload []byte) error {
	eventType := lastTopicSegment(topic)

	switch eventType {
	case CatalogueDeviceUpserted, CatalogueDeviceDeleted:
	default:
		a.logger.Debug("ignoring catalogue event", "event_type", eventType)
		return nil
	}

	var event catalogueEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		a.logger.Warn("dropping malformed catalogue event",
			"event_type", eventType,
			"error", err,
		)
		return nil
	}
	if strings.TrimSpace(event.ID) == "" {
		a.logger.Warn("dropping catalogue event without device id",
			"event_type", eventType,
		)
		return nil
	}

	ctx := context.Background()

	if eventType == CatalogueDeviceDeleted {
		if err := a.reconciler.Delete(ctx, event.ID); err != nil {
			return fmt.Errorf("deleting availability for device %s: %w", event.ID, err)
		}
		return nil
	}

	status := MapCatalogueStatus(event.Status)
	if _, err := a.reconciler.Reconcile(ctx, event.ID, status, availability.KeepReservation()); err != nil {
		return fmt.Errorf("reconciling catalogue upsert for device %s: %w", event.ID, err)
	}

	return nil
}

// MapCatalogueStatus translates a catalogue status value into an
// availability status. Unknown values default to available.
func MapCatalogueStatus(value string) availability.Status {
	if status, ok := catalogueStatuses[strings.ToLower(strings.TrimSpace(value))]; ok {
		return status
	}
	return availability.StatusAvailable
}

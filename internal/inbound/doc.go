// Package inbound translates external event vocabularies into calls on the
// availability reconciler.
//
// Two independent adapters feed the same reconciliation entry point: the
// reservation lifecycle adapter (Created, Collected, Returned, Cancelled,
// Expired) and the catalogue lifecycle adapter (DeviceUpserted,
// DeviceDeleted). Both consume MQTT envelopes where the event type is the
// final topic segment and the payload is the event data as JSON.
//
// The mappings are declared as dispatch tables rather than branching code so
// every (event, effect) pair is visible and exhaustively testable.
//
// Error policy: malformed payloads and missing required fields are dropped
// without side effects - they are not transient failures and must never be
// retried. Store failures are returned to the MQTT layer, whose QoS handles
// redelivery. Unknown event types are ignored.
package inbound

// Package availability tracks the real-time availability of physical
// devices in the loan system.
//
// The package owns the availability record, the pure status-transition
// functions that fold lifecycle events into a record, the persistence
// contract, and the reconciliation use case that ties them together.
//
// # Architecture
//
//	inbound adapters ──▶ Reconciler ──▶ Store (availability_records)
//	                         │
//	                         └────────▶ outbox.Publisher (Availability.Changed)
//
// # Key Types
//
//   - Record: availability state for one device (record id IS the device id)
//   - Status: closed enumeration of availability states
//   - NewRecord / ApplyUpdate: pure transition functions, no I/O
//   - Store: persistence contract (SQLite implementation provided)
//   - Reconciler: read → transition → persist → event-on-change
//
// # Consistency Model
//
// Eventually consistent with the upstream reservation and catalogue
// services. Writes are last-write-wins with no version token; duplicate
// inbound events are made safe by the reconciler's idempotence guard rather
// than by the store. A record with a reservation reference logically implies
// the device is held, but status and reservation are deliberately not forced
// to stay mutually consistent.
package availability

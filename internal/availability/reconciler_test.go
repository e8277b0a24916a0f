package availability

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/lendware/availability-core/internal/outbox"
)

// fakeStore is an in-memory Store that counts writes.
type fakeStore struct {
	records map[string]*Record
	saves   int
	deletes int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*Record)}
}

func (s *fakeStore) Save(_ context.Context, record *Record) error {
	s.saves++
	s.records[record.ID] = record.Clone()
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*Record, error) {
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (s *fakeStore) GetByIDs(_ context.Context, ids []string) ([]Record, error) {
	var out []Record
	for _, id := range ids {
		if rec, ok := s.records[id]; ok {
			out = append(out, *rec.Clone())
		}
	}
	return out, nil
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	s.deletes++
	delete(s.records, id)
	return nil
}

// fakePublisher collects published events.
type fakePublisher struct {
	events []outbox.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, event outbox.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) PublishBatch(ctx context.Context, events []outbox.Event) error {
	for _, e := range events {
		if err := p.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// fakeHistory records status transitions.
type fakeHistory struct {
	transitions [][3]string
}

func (h *fakeHistory) RecordStatusChange(deviceID, previous, next string) {
	h.transitions = append(h.transitions, [3]string{deviceID, previous, next})
}

func newTestReconciler(t *testing.T) (*Reconciler, *fakeStore, *fakePublisher, *fakeHistory) {
	t.Helper()
	store := newFakeStore()
	publisher := &fakePublisher{}
	history := &fakeHistory{}
	r := NewReconciler(ReconcilerOptions{
		Store:     store,
		Publisher: publisher,
		History:   history,
	})
	return r, store, publisher, history
}

func decodeChangedEvent(t *testing.T, event outbox.Event) ChangedEvent {
	t.Helper()
	var payload ChangedEvent
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		t.Fatalf("decoding event payload: %v", err)
	}
	return payload
}

func TestReconcile_CreatesRecord(t *testing.T) {
	r, store, publisher, history := newTestReconciler(t)
	ctx := context.Background()

	rec, err := r.Reconcile(ctx, "dev-1", StatusUnavailable, SetReservation("res-1"))
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if rec.Status != StatusUnavailable {
		t.Errorf("Status = %q, want unavailable", rec.Status)
	}
	if rec.ReservationID == nil || *rec.ReservationID != "res-1" {
		t.Errorf("ReservationID = %v, want res-1", rec.ReservationID)
	}
	if store.saves != 1 {
		t.Errorf("saves = %d, want 1", store.saves)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("events = %d, want 1", len(publisher.events))
	}
	event := publisher.events[0]
	if event.Topic != EventTopic || event.EventType != EventTypeChanged {
		t.Errorf("event routing = %s/%s, want %s/%s", event.Topic, event.EventType, EventTopic, EventTypeChanged)
	}
	if event.Subject != "dev-1" {
		t.Errorf("event subject = %q, want dev-1", event.Subject)
	}

	payload := decodeChangedEvent(t, event)
	if payload.PreviousStatus != nil {
		t.Errorf("PreviousStatus = %v, want null for new record", *payload.PreviousStatus)
	}
	if payload.NewStatus != "unavailable" {
		t.Errorf("NewStatus = %q, want unavailable", payload.NewStatus)
	}

	if len(history.transitions) != 1 || history.transitions[0] != [3]string{"dev-1", "none", "unavailable"} {
		t.Errorf("history transitions = %v", history.transitions)
	}
}

func TestReconcile_StatusChangeEmitsEvent(t *testing.T) {
	r, _, publisher, history := newTestReconciler(t)
	ctx := context.Background()

	if _, err := r.Reconcile(ctx, "dev-1", StatusUnavailable, SetReservation("res-1")); err != nil {
		t.Fatalf("first Reconcile() error = %v", err)
	}
	if _, err := r.Reconcile(ctx, "dev-1", StatusAvailable, ClearReservation()); err != nil {
		t.Fatalf("second Reconcile() error = %v", err)
	}

	if len(publisher.events) != 2 {
		t.Fatalf("events = %d, want 2", len(publisher.events))
	}

	payload := decodeChangedEvent(t, publisher.events[1])
	if payload.PreviousStatus == nil || *payload.PreviousStatus != "unavailable" {
		t.Errorf("PreviousStatus = %v, want unavailable", payload.PreviousStatus)
	}
	if payload.NewStatus != "available" {
		t.Errorf("NewStatus = %q, want available", payload.NewStatus)
	}
	if payload.ReservationID != nil {
		t.Errorf("ReservationID = %v, want omitted after clear", payload.ReservationID)
	}

	if len(history.transitions) != 2 || history.transitions[1] != [3]string{"dev-1", "unavailable", "available"} {
		t.Errorf("history transitions = %v", history.transitions)
	}
}

func TestReconcile_ReplayIsNoOp(t *testing.T) {
	r, store, publisher, _ := newTestReconciler(t)
	ctx := context.Background()

	first, err := r.Reconcile(ctx, "dev-1", StatusUnavailable, SetReservation("res-1"))
	if err != nil {
		t.Fatalf("first Reconcile() error = %v", err)
	}

	replayed, err := r.Reconcile(ctx, "dev-1", StatusUnavailable, SetReservation("res-1"))
	if err != nil {
		t.Fatalf("replayed Reconcile() error = %v", err)
	}

	if store.saves != 1 {
		t.Errorf("saves = %d, want 1 (replay must not write)", store.saves)
	}
	if len(publisher.events) != 1 {
		t.Errorf("events = %d, want 1 (replay must not emit)", len(publisher.events))
	}
	if !replayed.UpdatedAt.Equal(first.UpdatedAt) {
		t.Errorf("UpdatedAt changed on replay: %v -> %v", first.UpdatedAt, replayed.UpdatedAt)
	}
}

func TestReconcile_PaddedDeviceIDResolvesSameRecord(t *testing.T) {
	r, store, publisher, _ := newTestReconciler(t)
	ctx := context.Background()

	first, err := r.Reconcile(ctx, "dev-1", StatusUnavailable, SetReservation("res-1"))
	if err != nil {
		t.Fatalf("first Reconcile() error = %v", err)
	}

	// Surrounding whitespace must hit the record stored under the trimmed
	// id, not create a duplicate with a spurious create event.
	replayed, err := r.Reconcile(ctx, "  dev-1 ", StatusUnavailable, SetReservation("res-1"))
	if err != nil {
		t.Fatalf("padded Reconcile() error = %v", err)
	}

	if replayed.ID != "dev-1" {
		t.Errorf("ID = %q, want dev-1", replayed.ID)
	}
	if store.saves != 1 {
		t.Errorf("saves = %d, want 1 (padded id must be a no-op)", store.saves)
	}
	if len(publisher.events) != 1 {
		t.Errorf("events = %d, want 1 (padded id must not emit)", len(publisher.events))
	}
	if !replayed.UpdatedAt.Equal(first.UpdatedAt) {
		t.Errorf("UpdatedAt changed: %v -> %v", first.UpdatedAt, replayed.UpdatedAt)
	}
}

func TestReconcile_ReservationOnlyChange(t *testing.T) {
	r, store, publisher, history := newTestReconciler(t)
	ctx := context.Background()

	if _, err := r.Reconcile(ctx, "dev-1", StatusUnavailable, SetReservation("res-1")); err != nil {
		t.Fatalf("first Reconcile() error = %v", err)
	}
	rec, err := r.Reconcile(ctx, "dev-1", StatusUnavailable, SetReservation("res-2"))
	if err != nil {
		t.Fatalf("second Reconcile() error = %v", err)
	}

	if rec.ReservationID == nil || *rec.ReservationID != "res-2" {
		t.Errorf("ReservationID = %v, want res-2", rec.ReservationID)
	}
	if store.saves != 2 {
		t.Errorf("saves = %d, want 2 (reservation change must persist)", store.saves)
	}
	if len(publisher.events) != 1 {
		t.Errorf("events = %d, want 1 (reservation-only change must not emit)", len(publisher.events))
	}
	if len(history.transitions) != 1 {
		t.Errorf("history transitions = %d, want 1", len(history.transitions))
	}
}

func TestReconcile_KeepReservation(t *testing.T) {
	r, _, _, _ := newTestReconciler(t)
	ctx := context.Background()

	if _, err := r.Reconcile(ctx, "dev-1", StatusUnavailable, SetReservation("res-1")); err != nil {
		t.Fatalf("first Reconcile() error = %v", err)
	}
	rec, err := r.Reconcile(ctx, "dev-1", StatusMaintenance, KeepReservation())
	if err != nil {
		t.Fatalf("second Reconcile() error = %v", err)
	}

	if rec.Status != StatusMaintenance {
		t.Errorf("Status = %q, want maintenance", rec.Status)
	}
	if rec.ReservationID == nil || *rec.ReservationID != "res-1" {
		t.Errorf("ReservationID = %v, want res-1 kept", rec.ReservationID)
	}
}

func TestReconcile_InvalidInputs(t *testing.T) {
	r, store, publisher, _ := newTestReconciler(t)
	ctx := context.Background()

	if _, err := r.Reconcile(ctx, "  ", StatusAvailable, KeepReservation()); !errors.Is(err, ErrInvalidDeviceID) {
		t.Errorf("Reconcile(blank id) error = %v, want ErrInvalidDeviceID", err)
	}
	if _, err := r.Reconcile(ctx, "dev-1", "borrowed", KeepReservation()); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("Reconcile(bad status) error = %v, want ErrInvalidStatus", err)
	}
	if store.saves != 0 || len(publisher.events) != 0 {
		t.Errorf("invalid input caused side effects: saves=%d events=%d", store.saves, len(publisher.events))
	}
}

func TestReconcile_PublishFailureSurfaces(t *testing.T) {
	r, store, publisher, _ := newTestReconciler(t)
	publisher.err = errors.New("outbox unavailable")
	ctx := context.Background()

	_, err := r.Reconcile(ctx, "dev-1", StatusUnavailable, KeepReservation())
	if err == nil {
		t.Fatal("Reconcile() should surface publish failure")
	}
	// The domain write commits before the enqueue; the record survives.
	if store.saves != 1 {
		t.Errorf("saves = %d, want 1", store.saves)
	}
}

func TestDelete(t *testing.T) {
	r, store, _, _ := newTestReconciler(t)
	ctx := context.Background()

	if _, err := r.Reconcile(ctx, "dev-1", StatusAvailable, KeepReservation()); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if err := r.Delete(ctx, "dev-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := r.Get(ctx, "dev-1"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrRecordNotFound", err)
	}

	// Idempotent: deleting an unknown device succeeds.
	if err := r.Delete(ctx, "dev-1"); err != nil {
		t.Errorf("repeat Delete() error = %v, want nil", err)
	}

	if err := r.Delete(ctx, "   "); !errors.Is(err, ErrInvalidDeviceID) {
		t.Errorf("Delete(blank id) error = %v, want ErrInvalidDeviceID", err)
	}
	if store.deletes != 2 {
		t.Errorf("deletes = %d, want 2", store.deletes)
	}
}

func TestGetMany(t *testing.T) {
	r, _, _, _ := newTestReconciler(t)
	ctx := context.Background()

	for _, id := range []string{"dev-1", "dev-2"} {
		if _, err := r.Reconcile(ctx, id, StatusAvailable, KeepReservation()); err != nil {
			t.Fatalf("Reconcile(%s) error = %v", id, err)
		}
	}

	records, err := r.GetMany(ctx, []string{"dev-1", "missing", "dev-2"})
	if err != nil {
		t.Fatalf("GetMany() error = %v", err)
	}
	if len(records) != 2 {
		t.Errorf("len(records) = %d, want 2", len(records))
	}
}

func TestReservationChange(t *testing.T) {
	existing := "res-1"

	t.Run("keep", func(t *testing.T) {
		if got := KeepReservation().desired(&existing); got == nil || *got != "res-1" {
			t.Errorf("desired() = %v, want res-1", got)
		}
	})

	t.Run("clear", func(t *testing.T) {
		if got := ClearReservation().desired(&existing); got != nil {
			t.Errorf("desired() = %v, want nil", got)
		}
	})

	t.Run("set", func(t *testing.T) {
		if got := SetReservation("res-2").desired(&existing); got == nil || *got != "res-2" {
			t.Errorf("desired() = %v, want res-2", got)
		}
	})

	t.Run("set empty clears", func(t *testing.T) {
		if got := SetReservation("").desired(&existing); got != nil {
			t.Errorf("desired() = %v, want nil", got)
		}
	})
}

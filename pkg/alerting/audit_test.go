package alerting

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/carepulse/platform/pkg/common/models"
	"github.com/google/uuid"
)

type fakeAuditStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]models.AlertLogEntry
}

func newFakeAuditStore() *fakeAuditStore {
	return &fakeAuditStore{entries: make(map[uuid.UUID]models.AlertLogEntry)}
}

func (f *fakeAuditStore) Append(_ context.Context, entry models.AlertLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[entry.ID] = entry
	return nil
}

func (f *fakeAuditStore) Get(_ context.Context, id uuid.UUID) (models.AlertLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[id]
	if !ok {
		return models.AlertLogEntry{}, ErrLogEntryNotFound
	}
	return entry, nil
}

func (f *fakeAuditStore) ListByPatient(_ context.Context, patientID uuid.UUID, limit int) ([]models.AlertLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AlertLogEntry
	for _, entry := range f.entries {
		if entry.PatientID == patientID {
			out = append(out, entry)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeAuditStore) SetAcknowledged(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[id]
	if !ok || entry.AcknowledgedAt != nil {
		return ErrLogEntryNotFound
	}
	entry.AcknowledgedAt = &at
	f.entries[id] = entry
	return nil
}

func (f *fakeAuditStore) AcknowledgeAll(_ context.Context, patientID uuid.UUID, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for id, entry := range f.entries {
		if entry.PatientID == patientID && entry.AcknowledgedAt == nil {
			entry.AcknowledgedAt = &at
			f.entries[id] = entry
			count++
		}
	}
	return count, nil
}

func (f *fakeAuditStore) CountUnacknowledged(_ context.Context, patientID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, entry := range f.entries {
		if entry.PatientID == patientID && entry.AcknowledgedAt == nil {
			count++
		}
	}
	return count, nil
}

func seedEntry(store *fakeAuditStore, patientID uuid.UUID) models.AlertLogEntry {
	entry := models.AlertLogEntry{
		ID:             uuid.New(),
		PatientID:      patientID,
		DoseID:         uuid.New(),
		MedicationName: "Metformin",
		DeliveryStatus: models.DeliverySimulated,
		Provider:       "simulation",
		TriggeredAt:    time.Now().UTC().Add(-time.Hour),
	}
	store.entries[entry.ID] = entry
	return entry
}

func TestAcknowledgeSetsTimestampOnce(t *testing.T) {
	store := newFakeAuditStore()
	svc := NewAuditService(store)
	entry := seedEntry(store, uuid.New())

	acked, err := svc.Acknowledge(context.Background(), entry.ID)
	if err != nil {
		t.Fatal(err)
	}
	if acked.AcknowledgedAt == nil {
		t.Fatal("expected acknowledged_at to be set")
	}
	if acked.DeliveryStatus != entry.DeliveryStatus || acked.MedicationName != entry.MedicationName {
		t.Fatal("acknowledging must not change other fields")
	}

	firstAck := *acked.AcknowledgedAt
	again, err := svc.Acknowledge(context.Background(), entry.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.AcknowledgedAt == nil || !again.AcknowledgedAt.Equal(firstAck) {
		t.Fatal("expected second acknowledge to preserve the original timestamp")
	}
}

func TestAcknowledgeUnknownEntry(t *testing.T) {
	svc := NewAuditService(newFakeAuditStore())
	if _, err := svc.Acknowledge(context.Background(), uuid.New()); err != ErrLogEntryNotFound {
		t.Fatalf("expected ErrLogEntryNotFound, got %v", err)
	}
}

func TestAcknowledgeAllCountsOnlyUnacknowledged(t *testing.T) {
	store := newFakeAuditStore()
	svc := NewAuditService(store)
	patientID := uuid.New()

	seedEntry(store, patientID)
	seedEntry(store, patientID)
	already := seedEntry(store, patientID)
	seedEntry(store, uuid.New())

	if _, err := svc.Acknowledge(context.Background(), already.ID); err != nil {
		t.Fatal(err)
	}

	count, err := svc.AcknowledgeAll(context.Background(), patientID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("expected 2 newly acknowledged entries, got %d", count)
	}

	remaining, err := svc.CountUnacknowledged(context.Background(), patientID)
	if err != nil {
		t.Fatal(err)
	}
	if remaining != 0 {
		t.Fatalf("expected no unacknowledged entries, got %d", remaining)
	}
}

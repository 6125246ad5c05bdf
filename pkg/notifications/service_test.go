package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/carepulse/platform/pkg/common/logger"
	"github.com/carepulse/platform/pkg/common/models"
	"github.com/google/uuid"
)

func init() {
	logger.Init()
}

type fakeStore struct {
	notifications map[uuid.UUID]models.Notification
	countCalls    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{notifications: make(map[uuid.UUID]models.Notification)}
}

func (f *fakeStore) Append(_ context.Context, notification models.Notification) error {
	f.notifications[notification.ID] = notification
	return nil
}

func (f *fakeStore) ListByPatient(_ context.Context, patientID uuid.UUID, limit int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range f.notifications {
		if n.PatientID == patientID {
			out = append(out, n)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) ListDoseIDs(_ context.Context, patientID uuid.UUID) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, n := range f.notifications {
		if n.PatientID != patientID || n.DoseID == nil {
			continue
		}
		if _, ok := seen[*n.DoseID]; ok {
			continue
		}
		seen[*n.DoseID] = struct{}{}
		ids = append(ids, *n.DoseID)
	}
	return ids, nil
}

func (f *fakeStore) MarkRead(_ context.Context, id uuid.UUID) error {
	if n, ok := f.notifications[id]; ok {
		n.Read = true
		f.notifications[id] = n
	}
	return nil
}

func (f *fakeStore) MarkAllRead(_ context.Context, patientID uuid.UUID) error {
	for id, n := range f.notifications {
		if n.PatientID == patientID {
			n.Read = true
			f.notifications[id] = n
		}
	}
	return nil
}

func (f *fakeStore) ClearAll(_ context.Context, patientID uuid.UUID) error {
	for id, n := range f.notifications {
		if n.PatientID == patientID {
			delete(f.notifications, id)
		}
	}
	return nil
}

func (f *fakeStore) CountUnread(_ context.Context, patientID uuid.UUID) (int64, error) {
	f.countCalls++
	var count int64
	for _, n := range f.notifications {
		if n.PatientID == patientID && !n.Read {
			count++
		}
	}
	return count, nil
}

func seedNotification(store *fakeStore, patientID uuid.UUID, read bool) models.Notification {
	doseID := uuid.New()
	n := models.Notification{
		ID:        uuid.New(),
		PatientID: patientID,
		DoseID:    &doseID,
		Type:      models.NotificationMissedDose,
		Message:   "missed dose",
		Timestamp: time.Now().UTC(),
		Read:      read,
	}
	store.notifications[n.ID] = n
	return n
}

func TestUnreadCountWithoutCache(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, time.Minute)
	patientID := uuid.New()

	seedNotification(store, patientID, false)
	seedNotification(store, patientID, false)
	seedNotification(store, patientID, true)
	seedNotification(store, uuid.New(), false)

	count, err := svc.UnreadCount(context.Background(), patientID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("expected 2 unread, got %d", count)
	}
}

func TestMarkAllReadZeroesBadge(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, time.Minute)
	patientID := uuid.New()

	seedNotification(store, patientID, false)
	seedNotification(store, patientID, false)

	if err := svc.MarkAllRead(context.Background(), patientID); err != nil {
		t.Fatal(err)
	}
	count, err := svc.UnreadCount(context.Background(), patientID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("expected 0 unread after mark-all-read, got %d", count)
	}
}

func TestClearAllRemovesOnlyThatPatient(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, time.Minute)
	patientID := uuid.New()
	otherID := uuid.New()

	seedNotification(store, patientID, false)
	seedNotification(store, otherID, false)

	if err := svc.ClearAll(context.Background(), patientID); err != nil {
		t.Fatal(err)
	}

	mine, _ := svc.List(context.Background(), patientID, 0)
	if len(mine) != 0 {
		t.Fatalf("expected empty feed, got %d entries", len(mine))
	}
	theirs, _ := svc.List(context.Background(), otherID, 0)
	if len(theirs) != 1 {
		t.Fatalf("expected other patient's feed intact, got %d entries", len(theirs))
	}
}

func TestHandleAlertEventTolerantOfBadPayloads(t *testing.T) {
	svc := NewService(newFakeStore(), nil, time.Minute)

	events := []models.Event{
		{ID: uuid.New().String(), Data: map[string]interface{}{}},
		{ID: uuid.New().String(), Data: map[string]interface{}{"patient_id": 42}},
		{ID: uuid.New().String(), Data: map[string]interface{}{"patient_id": "not-a-uuid"}},
		{ID: uuid.New().String(), Data: map[string]interface{}{"patient_id": uuid.New().String()}},
	}
	for _, event := range events {
		if err := svc.HandleAlertEvent(context.Background(), event); err != nil {
			t.Fatalf("expected handler to swallow malformed event, got %v", err)
		}
	}
}

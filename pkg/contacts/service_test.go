package contacts

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

type fakeContactStore struct {
	contacts map[uuid.UUID]models.EmergencyContact
}

func newFakeContactStore() *fakeContactStore {
	return &fakeContactStore{contacts: make(map[uuid.UUID]models.EmergencyContact)}
}

// demoteOthers mirrors the repository's transactional behaviour: writing a
// primary contact demotes every other primary for the same patient.
func (f *fakeContactStore) demoteOthers(contact models.EmergencyContact) {
	if !contact.IsPrimary {
		return
	}
	for id, other := range f.contacts {
		if id != contact.ID && other.PatientID == contact.PatientID && other.IsPrimary {
			other.IsPrimary = false
			f.contacts[id] = other
		}
	}
}

func (f *fakeContactStore) Create(_ context.Context, contact models.EmergencyContact) error {
	f.demoteOthers(contact)
	f.contacts[contact.ID] = contact
	return nil
}

func (f *fakeContactStore) Update(_ context.Context, contact models.EmergencyContact) error {
	if _, ok := f.contacts[contact.ID]; !ok {
		return ErrContactNotFound
	}
	f.demoteOthers(contact)
	f.contacts[contact.ID] = contact
	return nil
}

func (f *fakeContactStore) Get(_ context.Context, id uuid.UUID) (models.EmergencyContact, error) {
	contact, ok := f.contacts[id]
	if !ok {
		return models.EmergencyContact{}, ErrContactNotFound
	}
	return contact, nil
}

func (f *fakeContactStore) ListByPatient(_ context.Context, patientID uuid.UUID) ([]models.EmergencyContact, error) {
	var out []models.EmergencyContact
	for _, contact := range f.contacts {
		if contact.PatientID == patientID {
			out = append(out, contact)
		}
	}
	return out, nil
}

func (f *fakeContactStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.contacts[id]; !ok {
		return ErrContactNotFound
	}
	delete(f.contacts, id)
	return nil
}

func (f *fakeContactStore) MarkNotified(_ context.Context, id uuid.UUID, at time.Time) error {
	contact, ok := f.contacts[id]
	if !ok {
		return ErrContactNotFound
	}
	contact.NotifiedAt = &at
	f.contacts[id] = contact
	return nil
}

func (f *fakeContactStore) primaries(patientID uuid.UUID) int {
	count := 0
	for _, contact := range f.contacts {
		if contact.PatientID == patientID && contact.IsPrimary {
			count++
		}
	}
	return count
}

type fakeCaregiverStore struct {
	assignments map[uuid.UUID]uuid.UUID
}

func newFakeCaregiverStore() *fakeCaregiverStore {
	return &fakeCaregiverStore{assignments: make(map[uuid.UUID]uuid.UUID)}
}

func (f *fakeCaregiverStore) Assign(_ context.Context, patientID, caregiverID uuid.UUID) error {
	f.assignments[patientID] = caregiverID
	return nil
}

func (f *fakeCaregiverStore) GetAssignment(_ context.Context, patientID uuid.UUID) (models.CaregiverAssignment, error) {
	caregiverID, ok := f.assignments[patientID]
	if !ok {
		return models.CaregiverAssignment{}, ErrNoCaregiver
	}
	return models.CaregiverAssignment{PatientID: patientID, CaregiverID: caregiverID}, nil
}

func (f *fakeCaregiverStore) Unassign(_ context.Context, patientID uuid.UUID) error {
	delete(f.assignments, patientID)
	return nil
}

func TestAddContactRejectsInvalidInput(t *testing.T) {
	svc := NewService(newFakeContactStore(), newFakeCaregiverStore())
	patientID := uuid.New()

	cases := []models.CreateContactRequest{
		{PatientID: patientID, Name: "", Phone: "+15550100100"},
		{PatientID: patientID, Name: "Asha", Phone: ""},
		{PatientID: patientID, Name: "Asha", Phone: "not-a-number"},
	}
	for _, req := range cases {
		if _, err := svc.AddContact(context.Background(), req); !IsValidationError(err) {
			t.Errorf("expected validation error for %+v, got %v", req, err)
		}
	}
}

func TestAddContactKeepsSinglePrimary(t *testing.T) {
	store := newFakeContactStore()
	svc := NewService(store, newFakeCaregiverStore())
	patientID := uuid.New()

	first, err := svc.AddContact(context.Background(), models.CreateContactRequest{
		PatientID: patientID,
		Name:      "Asha",
		Phone:     "+919876543210",
		IsPrimary: true,
	})
	if err != nil {
		t.Fatalf("failed to add first contact: %v", err)
	}

	_, err = svc.AddContact(context.Background(), models.CreateContactRequest{
		PatientID: patientID,
		Name:      "Ravi",
		Phone:     "+919876543211",
		IsPrimary: true,
	})
	if err != nil {
		t.Fatalf("failed to add second contact: %v", err)
	}

	if got := store.primaries(patientID); got != 1 {
		t.Fatalf("expected exactly one primary contact, got %d", got)
	}
	demoted, _ := store.Get(context.Background(), first.ID)
	if demoted.IsPrimary {
		t.Fatal("expected first contact to be demoted")
	}
}

func TestUpdateContactPromotionDemotesOldPrimary(t *testing.T) {
	store := newFakeContactStore()
	svc := NewService(store, newFakeCaregiverStore())
	patientID := uuid.New()

	primary, err := svc.AddContact(context.Background(), models.CreateContactRequest{
		PatientID: patientID,
		Name:      "Asha",
		Phone:     "+919876543210",
		IsPrimary: true,
	})
	if err != nil {
		t.Fatalf("failed to add primary: %v", err)
	}
	secondary, err := svc.AddContact(context.Background(), models.CreateContactRequest{
		PatientID: patientID,
		Name:      "Ravi",
		Phone:     "+919876543211",
	})
	if err != nil {
		t.Fatalf("failed to add secondary: %v", err)
	}

	promote := true
	updated, err := svc.UpdateContact(context.Background(), secondary.ID, models.UpdateContactRequest{
		IsPrimary: &promote,
	})
	if err != nil {
		t.Fatalf("failed to promote secondary: %v", err)
	}
	if !updated.IsPrimary {
		t.Fatal("expected promoted contact to be primary")
	}
	if got := store.primaries(patientID); got != 1 {
		t.Fatalf("expected exactly one primary contact, got %d", got)
	}
	old, _ := store.Get(context.Background(), primary.ID)
	if old.IsPrimary {
		t.Fatal("expected old primary to be demoted")
	}
}

func TestUpdateContactRejectsBadPhone(t *testing.T) {
	store := newFakeContactStore()
	svc := NewService(store, newFakeCaregiverStore())

	contact, err := svc.AddContact(context.Background(), models.CreateContactRequest{
		PatientID: uuid.New(),
		Name:      "Asha",
		Phone:     "+919876543210",
	})
	if err != nil {
		t.Fatalf("failed to add contact: %v", err)
	}

	bad := "nope"
	if _, err := svc.UpdateContact(context.Background(), contact.ID, models.UpdateContactRequest{Phone: &bad}); !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	unchanged, _ := store.Get(context.Background(), contact.ID)
	if unchanged.Phone != "+919876543210" {
		t.Fatalf("expected phone to be unchanged, got %q", unchanged.Phone)
	}
}

func TestCaregiverAssignmentLifecycle(t *testing.T) {
	svc := NewService(newFakeContactStore(), newFakeCaregiverStore())
	patientID := uuid.New()
	caregiverID := uuid.New()

	if _, err := svc.GetCaregiver(context.Background(), patientID); err != ErrNoCaregiver {
		t.Fatalf("expected ErrNoCaregiver, got %v", err)
	}

	if err := svc.AssignCaregiver(context.Background(), patientID, caregiverID); err != nil {
		t.Fatalf("failed to assign caregiver: %v", err)
	}
	assignment, err := svc.GetCaregiver(context.Background(), patientID)
	if err != nil {
		t.Fatalf("failed to fetch assignment: %v", err)
	}
	if assignment.CaregiverID != caregiverID {
		t.Fatalf("expected caregiver %s, got %s", caregiverID, assignment.CaregiverID)
	}

	if err := svc.UnassignCaregiver(context.Background(), patientID); err != nil {
		t.Fatalf("failed to unassign caregiver: %v", err)
	}
	if _, err := svc.GetCaregiver(context.Background(), patientID); err != ErrNoCaregiver {
		t.Fatalf("expected ErrNoCaregiver after unassign, got %v", err)
	}
}

package alerting

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/carepulse/platform/pkg/adherence"
	"github.com/carepulse/platform/pkg/common/logger"
	"github.com/carepulse/platform/pkg/common/models"
	"github.com/carepulse/platform/pkg/contacts"
	"github.com/carepulse/platform/pkg/notify"
	"github.com/google/uuid"
)

func init() {
	logger.Init()
}

type fakeAdherenceStore struct {
	patients    map[uuid.UUID]models.Patient
	doses       map[uuid.UUID][]models.Dose
	medications map[uuid.UUID]models.Medication
}

func newFakeAdherenceStore() *fakeAdherenceStore {
	return &fakeAdherenceStore{
		patients:    make(map[uuid.UUID]models.Patient),
		doses:       make(map[uuid.UUID][]models.Dose),
		medications: make(map[uuid.UUID]models.Medication),
	}
}

func (f *fakeAdherenceStore) GetPatient(_ context.Context, id uuid.UUID) (models.Patient, error) {
	patient, ok := f.patients[id]
	if !ok {
		return models.Patient{}, adherence.ErrPatientNotFound
	}
	return patient, nil
}

func (f *fakeAdherenceStore) ListPendingDoses(_ context.Context, patientID uuid.UUID) ([]models.Dose, error) {
	var pending []models.Dose
	for _, dose := range f.doses[patientID] {
		if dose.TakenAt == nil {
			pending = append(pending, dose)
		}
	}
	return pending, nil
}

func (f *fakeAdherenceStore) GetMedication(_ context.Context, id uuid.UUID) (models.Medication, error) {
	med, ok := f.medications[id]
	if !ok {
		return models.Medication{}, adherence.ErrMedicationNotFound
	}
	return med, nil
}

type fakeDetectorContacts struct {
	mu       sync.Mutex
	contacts []models.EmergencyContact
	notified map[uuid.UUID]time.Time
}

func (f *fakeDetectorContacts) ListByPatient(_ context.Context, patientID uuid.UUID) ([]models.EmergencyContact, error) {
	var out []models.EmergencyContact
	for _, contact := range f.contacts {
		if contact.PatientID == patientID {
			out = append(out, contact)
		}
	}
	return out, nil
}

func (f *fakeDetectorContacts) MarkNotified(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notified == nil {
		f.notified = make(map[uuid.UUID]time.Time)
	}
	f.notified[id] = at
	return nil
}

type fakeCaregivers struct {
	assignments map[uuid.UUID]uuid.UUID
}

func (f *fakeCaregivers) GetAssignment(_ context.Context, patientID uuid.UUID) (models.CaregiverAssignment, error) {
	caregiverID, ok := f.assignments[patientID]
	if !ok {
		return models.CaregiverAssignment{}, contacts.ErrNoCaregiver
	}
	return models.CaregiverAssignment{PatientID: patientID, CaregiverID: caregiverID}, nil
}

type fakeFeed struct {
	mu      sync.Mutex
	entries []models.Notification
}

func (f *fakeFeed) Append(_ context.Context, notification models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, notification)
	return nil
}

func (f *fakeFeed) ListDoseIDs(_ context.Context, patientID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, entry := range f.entries {
		if entry.PatientID != patientID || entry.DoseID == nil {
			continue
		}
		if _, ok := seen[*entry.DoseID]; ok {
			continue
		}
		seen[*entry.DoseID] = struct{}{}
		ids = append(ids, *entry.DoseID)
	}
	return ids, nil
}

func (f *fakeFeed) byType(notificationType string) []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for _, entry := range f.entries {
		if entry.Type == notificationType {
			out = append(out, entry)
		}
	}
	return out
}

type recordingDetectorGateway struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (g *recordingDetectorGateway) Send(_ context.Context, msg notify.Message) notify.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, msg)
	return notify.Result{OK: true, Status: models.DeliverySimulated, Provider: "simulation"}
}

func (g *recordingDetectorGateway) messages() []notify.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]notify.Message(nil), g.sent...)
}

type detectorFixture struct {
	store      *fakeAdherenceStore
	contacts   *fakeDetectorContacts
	caregivers *fakeCaregivers
	feed       *fakeFeed
	gateway    *recordingDetectorGateway
	detector   *Detector

	patientID uuid.UUID
	doseID    uuid.UUID
	now       time.Time
}

// newDetectorFixture builds one patient with one pending dose scheduled
// exactly at the threshold boundary relative to the fixed clock.
func newDetectorFixture(overdue time.Duration) *detectorFixture {
	f := &detectorFixture{
		store:      newFakeAdherenceStore(),
		contacts:   &fakeDetectorContacts{},
		caregivers: &fakeCaregivers{assignments: make(map[uuid.UUID]uuid.UUID)},
		feed:       &fakeFeed{},
		gateway:    &recordingDetectorGateway{},
		now:        time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}

	patient := models.Patient{ID: uuid.New(), Name: "Asha Patel", Role: models.RolePatient}
	f.patientID = patient.ID
	f.store.patients[patient.ID] = patient

	med := models.Medication{ID: uuid.New(), PatientID: patient.ID, Name: "Metformin", Dosage: "500mg"}
	f.store.medications[med.ID] = med

	dose := models.Dose{
		ID:            uuid.New(),
		MedicationID:  med.ID,
		PatientID:     patient.ID,
		ScheduledTime: f.now.Add(-overdue),
	}
	f.doseID = dose.ID
	f.store.doses[patient.ID] = []models.Dose{dose}

	f.detector = NewDetector(
		f.store,
		f.contacts,
		f.caregivers,
		f.feed,
		f.gateway,
		nil,
		notify.DefaultTemplates(),
		DefaultThreshold,
	)
	f.detector.now = func() time.Time { return f.now }
	return f
}

func (f *detectorFixture) addContact(name, phone string) uuid.UUID {
	contact := models.EmergencyContact{
		ID:        uuid.New(),
		PatientID: f.patientID,
		Name:      name,
		Phone:     phone,
	}
	f.contacts.contacts = append(f.contacts.contacts, contact)
	return contact.ID
}

func TestDetectUnknownPatientIsNoop(t *testing.T) {
	f := newDetectorFixture(time.Hour)

	count, err := f.detector.Detect(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("expected nil error for unknown patient, got %v", err)
	}
	if count != 0 {
		t.Fatalf("expected zero alerts, got %d", count)
	}
	f.detector.Wait()
	if len(f.feed.entries) != 0 {
		t.Fatal("expected no feed entries for unknown patient")
	}
}

func TestDetectThresholdBoundary(t *testing.T) {
	// One millisecond short of the threshold: not missed yet.
	f := newDetectorFixture(DefaultThreshold - time.Millisecond)
	count, err := f.detector.Detect(context.Background(), f.patientID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("expected no alert below threshold, got %d", count)
	}

	// Exactly at the threshold: missed.
	f = newDetectorFixture(DefaultThreshold)
	count, err = f.detector.Detect(context.Background(), f.patientID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected one alert at threshold, got %d", count)
	}
	f.detector.Wait()
}

func TestDetectFansOutToContactsAndCaregiver(t *testing.T) {
	f := newDetectorFixture(time.Hour)
	f.addContact("Ravi", "+919876543210")
	f.addContact("Mina", "+919876543211")

	caregiver := models.Patient{ID: uuid.New(), Name: "Nurse Joy", Phone: "+15550100000", Role: models.RoleCaregiver}
	f.store.patients[caregiver.ID] = caregiver
	f.caregivers.assignments[f.patientID] = caregiver.ID

	count, err := f.detector.Detect(context.Background(), f.patientID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected one alerted dose, got %d", count)
	}
	f.detector.Wait()

	if got := len(f.feed.byType(models.NotificationMissedDose)); got != 1 {
		t.Fatalf("expected 1 missed_dose entry, got %d", got)
	}
	if got := len(f.feed.byType(models.NotificationSMSSent)); got != 2 {
		t.Fatalf("expected 2 sms_sent entries, got %d", got)
	}
	if got := len(f.feed.byType(models.NotificationCaregiverAlert)); got != 1 {
		t.Fatalf("expected 1 caregiver_alert entry, got %d", got)
	}

	sent := f.gateway.messages()
	if len(sent) != 3 {
		t.Fatalf("expected 3 sends, got %d", len(sent))
	}
	caregiverSends := 0
	for _, msg := range sent {
		if msg.AlertType == models.AlertCaregiver {
			caregiverSends++
			if msg.To != caregiver.Phone {
				t.Fatalf("expected caregiver send to %s, got %s", caregiver.Phone, msg.To)
			}
		}
	}
	if caregiverSends != 1 {
		t.Fatalf("expected 1 caregiver send, got %d", caregiverSends)
	}

	if len(f.contacts.notified) != 2 {
		t.Fatalf("expected both contacts marked notified, got %d", len(f.contacts.notified))
	}
}

func TestDetectSecondScanIsIdempotent(t *testing.T) {
	f := newDetectorFixture(time.Hour)
	f.addContact("Ravi", "+919876543210")

	first, err := f.detector.Detect(context.Background(), f.patientID)
	if err != nil {
		t.Fatal(err)
	}
	if first != 1 {
		t.Fatalf("expected one alert on first scan, got %d", first)
	}
	f.detector.Wait()

	second, err := f.detector.Detect(context.Background(), f.patientID)
	if err != nil {
		t.Fatal(err)
	}
	if second != 0 {
		t.Fatalf("expected no alerts on second scan, got %d", second)
	}
	f.detector.Wait()

	if got := len(f.gateway.messages()); got != 1 {
		t.Fatalf("expected exactly one send across both scans, got %d", got)
	}
}

func TestDetectCaregiverFallbackAddress(t *testing.T) {
	f := newDetectorFixture(time.Hour)

	caregiver := models.Patient{ID: uuid.New(), Name: "Nurse Joy", Role: models.RoleCaregiver}
	f.store.patients[caregiver.ID] = caregiver
	f.caregivers.assignments[f.patientID] = caregiver.ID

	if _, err := f.detector.Detect(context.Background(), f.patientID); err != nil {
		t.Fatal(err)
	}
	f.detector.Wait()

	sent := f.gateway.messages()
	if len(sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(sent))
	}
	want := "care:" + caregiver.ID.String()
	if sent[0].To != want {
		t.Fatalf("expected fallback address %q, got %q", want, sent[0].To)
	}
}

func TestDetectSkipsDoseWithMissingMedication(t *testing.T) {
	f := newDetectorFixture(time.Hour)
	f.store.doses[f.patientID][0].MedicationID = uuid.New()

	count, err := f.detector.Detect(context.Background(), f.patientID)
	if err != nil {
		t.Fatalf("expected missing medication to be non-fatal, got %v", err)
	}
	if count != 0 {
		t.Fatalf("expected zero alerts, got %d", count)
	}
	f.detector.Wait()
	if len(f.feed.entries) != 0 {
		t.Fatal("expected no feed entries")
	}
}

func TestDetectAuditTrailUnderSimulatedProvider(t *testing.T) {
	f := newDetectorFixture(31 * time.Minute)
	f.addContact("Ravi", "+919876543210")
	f.addContact("Mina", "+919876543211")

	caregiver := models.Patient{ID: uuid.New(), Name: "Nurse Joy", Phone: "+15550100000", Role: models.RoleCaregiver}
	f.store.patients[caregiver.ID] = caregiver
	f.caregivers.assignments[f.patientID] = caregiver.ID

	audit := newFakeAuditStore()
	f.detector.gateway = notify.NewAuditingGateway(notify.NewSimulatedGateway(), audit)

	count, err := f.detector.Detect(context.Background(), f.patientID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected one alerted dose, got %d", count)
	}
	f.detector.Wait()

	// One audit row per contact plus one for the caregiver.
	entries, err := audit.ListByPatient(context.Background(), f.patientID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 audit entries, got %d", len(entries))
	}
	caregiverRows := 0
	for _, entry := range entries {
		if entry.DeliveryStatus != models.DeliverySimulated {
			t.Fatalf("expected simulated status, got %q", entry.DeliveryStatus)
		}
		if entry.DoseID != f.doseID {
			t.Fatal("audit entry does not reference the missed dose")
		}
		if entry.AlertType == models.AlertCaregiver {
			caregiverRows++
		}
	}
	if caregiverRows != 1 {
		t.Fatalf("expected 1 caregiver audit row, got %d", caregiverRows)
	}
}

func TestDetectSkipsTakenDoses(t *testing.T) {
	f := newDetectorFixture(time.Hour)
	taken := f.now.Add(-30 * time.Minute)
	f.store.doses[f.patientID][0].TakenAt = &taken

	count, err := f.detector.Detect(context.Background(), f.patientID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("expected zero alerts for taken dose, got %d", count)
	}
}

package adherence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/carepulse/platform/pkg/common/logger"
	"github.com/carepulse/platform/pkg/common/models"
	"github.com/google/uuid"
)

var (
	errEmptyMedName   = errors.New("medication name is required")
	errEmptyDosage    = errors.New("dosage is required")
	errDoseTakenTwice = errors.New("dose already recorded as taken")
)

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// EventPublisher is satisfied by the kafka producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

type Service struct {
	repo       *Repository
	producer   EventPublisher
	windowDays int
}

func NewService(repo *Repository, producer EventPublisher, windowDays int) *Service {
	return &Service{repo: repo, producer: producer, windowDays: windowDays}
}

// PrescribeMedication creates the medication and its generated dose
// schedule over the configured window.
func (s *Service) PrescribeMedication(ctx context.Context, req models.PrescribeMedicationRequest) (models.Medication, error) {
	if strings.TrimSpace(req.Name) == "" {
		return models.Medication{}, ValidationError{reason: errEmptyMedName}
	}
	if strings.TrimSpace(req.Dosage) == "" {
		return models.Medication{}, ValidationError{reason: errEmptyDosage}
	}
	if !ValidFrequency(req.Frequency) {
		return models.Medication{}, ValidationError{reason: errUnknownFrequency}
	}
	if _, err := s.repo.GetPatient(ctx, req.PatientID); err != nil {
		return models.Medication{}, err
	}

	startDate := req.StartDate
	if startDate.IsZero() {
		startDate = time.Now().UTC()
	}

	med := models.Medication{
		ID:           uuid.New(),
		PatientID:    req.PatientID,
		PrescriberID: req.PrescriberID,
		Name:         strings.TrimSpace(req.Name),
		Dosage:       strings.TrimSpace(req.Dosage),
		Frequency:    req.Frequency,
		StartDate:    startDate,
		Note:         strings.TrimSpace(req.Note),
		CreatedAt:    time.Now().UTC(),
	}

	times, err := GenerateDoseTimes(med.Frequency, med.StartDate, s.windowDays)
	if err != nil {
		return models.Medication{}, ValidationError{reason: err}
	}

	doses := make([]models.Dose, 0, len(times))
	for _, t := range times {
		doses = append(doses, models.Dose{
			ID:            uuid.New(),
			MedicationID:  med.ID,
			PatientID:     med.PatientID,
			ScheduledTime: t,
		})
	}

	if err := s.repo.CreateMedicationWithDoses(ctx, med, doses); err != nil {
		return models.Medication{}, err
	}

	logger.Log.WithFields(map[string]interface{}{
		"medication_id": med.ID,
		"patient_id":    med.PatientID,
		"doses":         len(doses),
	}).Info("Medication prescribed")

	if s.producer != nil {
		_ = s.producer.PublishEvent(ctx, "medication.prescribed", "adherence-service", map[string]interface{}{
			"medication_id": med.ID.String(),
			"patient_id":    med.PatientID.String(),
			"name":          med.Name,
			"frequency":     med.Frequency,
			"dose_count":    len(doses),
		})
	}

	return med, nil
}

// MarkDoseTaken records intake once; a second call is rejected.
func (s *Service) MarkDoseTaken(ctx context.Context, doseID uuid.UUID) (models.Dose, error) {
	dose, err := s.repo.GetDose(ctx, doseID)
	if err != nil {
		return models.Dose{}, err
	}
	if dose.TakenAt != nil {
		return models.Dose{}, ValidationError{reason: errDoseTakenTwice}
	}

	now := time.Now().UTC()
	updated, err := s.repo.MarkDoseTaken(ctx, doseID, now)
	if err != nil {
		return models.Dose{}, err
	}
	if !updated {
		// Lost the race with another writer; treat like a repeat call.
		return models.Dose{}, ValidationError{reason: errDoseTakenTwice}
	}
	dose.TakenAt = &now

	if s.producer != nil {
		_ = s.producer.PublishEvent(ctx, "dose.taken", "adherence-service", map[string]interface{}{
			"dose_id":    dose.ID.String(),
			"patient_id": dose.PatientID.String(),
			"taken_at":   now,
		})
	}

	return dose, nil
}

func (s *Service) ListMedications(ctx context.Context, patientID uuid.UUID) ([]models.Medication, error) {
	return s.repo.ListMedications(ctx, patientID)
}

func (s *Service) DeleteMedication(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteMedication(ctx, id)
}

func (s *Service) ListDoses(ctx context.Context, patientID uuid.UUID, pendingOnly bool, limit int) ([]models.Dose, error) {
	if pendingOnly {
		return s.repo.ListPendingDoses(ctx, patientID)
	}
	return s.repo.ListDoses(ctx, patientID, limit)
}

func (s *Service) CreatePatient(ctx context.Context, patient models.Patient) (models.Patient, error) {
	if strings.TrimSpace(patient.Name) == "" {
		return models.Patient{}, ValidationError{reason: errors.New("patient name is required")}
	}
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	if patient.Role == "" {
		patient.Role = models.RolePatient
	}
	patient.CreatedAt = time.Now().UTC()
	if err := s.repo.CreatePatient(ctx, patient); err != nil {
		return models.Patient{}, err
	}
	return patient, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (models.Patient, error) {
	return s.repo.GetPatient(ctx, id)
}

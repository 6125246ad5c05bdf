package adherence

import (
	"context"
	"errors"
	"time"

	"github.com/carepulse/platform/pkg/common/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrPatientNotFound    = errors.New("patient not found")
	ErrMedicationNotFound = errors.New("medication not found")
	ErrDoseNotFound       = errors.New("dose not found")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type patientModel struct {
	ID        uuid.UUID `gorm:"primaryKey;column:id"`
	Name      string    `gorm:"column:name"`
	Email     string    `gorm:"column:email"`
	Phone     string    `gorm:"column:phone"`
	Role      string    `gorm:"column:role;index"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (patientModel) TableName() string { return "patients" }

type medicationModel struct {
	ID           uuid.UUID `gorm:"primaryKey;column:id"`
	PatientID    uuid.UUID `gorm:"column:patient_id;index"`
	PrescriberID uuid.UUID `gorm:"column:prescriber_id"`
	Name         string    `gorm:"column:name"`
	Dosage       string    `gorm:"column:dosage"`
	Frequency    string    `gorm:"column:frequency"`
	StartDate    time.Time `gorm:"column:start_date"`
	Note         string    `gorm:"column:note"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (medicationModel) TableName() string { return "medications" }

type doseModel struct {
	ID            uuid.UUID  `gorm:"primaryKey;column:id"`
	MedicationID  uuid.UUID  `gorm:"column:medication_id;index"`
	PatientID     uuid.UUID  `gorm:"column:patient_id;index"`
	ScheduledTime time.Time  `gorm:"column:scheduled_time"`
	TakenAt       *time.Time `gorm:"column:taken_at"`
}

func (doseModel) TableName() string { return "doses" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&patientModel{}, &medicationModel{}, &doseModel{})
}

func (r *Repository) CreatePatient(ctx context.Context, patient models.Patient) error {
	model := patientModel{
		ID:        patient.ID,
		Name:      patient.Name,
		Email:     patient.Email,
		Phone:     patient.Phone,
		Role:      patient.Role,
		CreatedAt: patient.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *Repository) GetPatient(ctx context.Context, id uuid.UUID) (models.Patient, error) {
	var model patientModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.Patient{}, ErrPatientNotFound
	}
	if result.Error != nil {
		return models.Patient{}, result.Error
	}
	return models.Patient{
		ID:        model.ID,
		Name:      model.Name,
		Email:     model.Email,
		Phone:     model.Phone,
		Role:      model.Role,
		CreatedAt: model.CreatedAt,
	}, nil
}

// ListPatientIDs returns every patient holding the patient role, for the
// scan sweep.
func (r *Repository) ListPatientIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&patientModel{}).
		Where("role = ?", models.RolePatient).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// CreateMedicationWithDoses persists a medication and its generated dose
// schedule in one transaction.
func (r *Repository) CreateMedicationWithDoses(ctx context.Context, med models.Medication, doses []models.Dose) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		medModel := medicationModel{
			ID:           med.ID,
			PatientID:    med.PatientID,
			PrescriberID: med.PrescriberID,
			Name:         med.Name,
			Dosage:       med.Dosage,
			Frequency:    med.Frequency,
			StartDate:    med.StartDate,
			Note:         med.Note,
			CreatedAt:    med.CreatedAt,
		}
		if err := tx.Create(&medModel).Error; err != nil {
			return err
		}

		rows := make([]doseModel, 0, len(doses))
		for _, d := range doses {
			rows = append(rows, doseModel{
				ID:            d.ID,
				MedicationID:  d.MedicationID,
				PatientID:     d.PatientID,
				ScheduledTime: d.ScheduledTime,
				TakenAt:       d.TakenAt,
			})
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 200).Error
	})
}

func (r *Repository) GetMedication(ctx context.Context, id uuid.UUID) (models.Medication, error) {
	var model medicationModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.Medication{}, ErrMedicationNotFound
	}
	if result.Error != nil {
		return models.Medication{}, result.Error
	}
	return fromMedicationModel(model), nil
}

func (r *Repository) ListMedications(ctx context.Context, patientID uuid.UUID) ([]models.Medication, error) {
	var rows []medicationModel
	if err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	meds := make([]models.Medication, 0, len(rows))
	for _, row := range rows {
		meds = append(meds, fromMedicationModel(row))
	}
	return meds, nil
}

// DeleteMedication removes a medication and every dose generated from it.
func (r *Repository) DeleteMedication(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&doseModel{}, "medication_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&medicationModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrMedicationNotFound
		}
		return nil
	})
}

func (r *Repository) GetDose(ctx context.Context, id uuid.UUID) (models.Dose, error) {
	var model doseModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.Dose{}, ErrDoseNotFound
	}
	if result.Error != nil {
		return models.Dose{}, result.Error
	}
	return fromDoseModel(model), nil
}

func (r *Repository) ListDoses(ctx context.Context, patientID uuid.UUID, limit int) ([]models.Dose, error) {
	if limit <= 0 {
		limit = 200
	}
	var rows []doseModel
	if err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("scheduled_time ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return fromDoseModels(rows), nil
}

// ListPendingDoses returns every dose for the patient that has not been
// taken yet, the detector's scan input.
func (r *Repository) ListPendingDoses(ctx context.Context, patientID uuid.UUID) ([]models.Dose, error) {
	var rows []doseModel
	if err := r.db.WithContext(ctx).
		Where("patient_id = ? AND taken_at IS NULL", patientID).
		Order("scheduled_time ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return fromDoseModels(rows), nil
}

// MarkDoseTaken sets taken_at once. A dose already recorded as taken is
// left untouched and reported via RowsAffected.
func (r *Repository) MarkDoseTaken(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&doseModel{}).
		Where("id = ? AND taken_at IS NULL", id).
		Update("taken_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func fromMedicationModel(m medicationModel) models.Medication {
	return models.Medication{
		ID:           m.ID,
		PatientID:    m.PatientID,
		PrescriberID: m.PrescriberID,
		Name:         m.Name,
		Dosage:       m.Dosage,
		Frequency:    m.Frequency,
		StartDate:    m.StartDate,
		Note:         m.Note,
		CreatedAt:    m.CreatedAt,
	}
}

func fromDoseModel(m doseModel) models.Dose {
	return models.Dose{
		ID:            m.ID,
		MedicationID:  m.MedicationID,
		PatientID:     m.PatientID,
		ScheduledTime: m.ScheduledTime,
		TakenAt:       m.TakenAt,
	}
}

func fromDoseModels(rows []doseModel) []models.Dose {
	doses := make([]models.Dose, 0, len(rows))
	for _, row := range rows {
		doses = append(doses, fromDoseModel(row))
	}
	return doses
}

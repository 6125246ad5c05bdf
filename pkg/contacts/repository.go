package contacts

import (
	"context"
	"errors"
	"time"

	"github.com/carepulse/platform/pkg/common/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrContactNotFound = errors.New("contact not found")
	ErrNoCaregiver     = errors.New("no caregiver assigned")
)

// ContactStore is implemented by the postgres repository below and by
// in-memory fakes in tests.
type ContactStore interface {
	Create(ctx context.Context, contact models.EmergencyContact) error
	Update(ctx context.Context, contact models.EmergencyContact) error
	Get(ctx context.Context, id uuid.UUID) (models.EmergencyContact, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]models.EmergencyContact, error)
	Delete(ctx context.Context, id uuid.UUID) error
	MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) error
}

type CaregiverStore interface {
	Assign(ctx context.Context, patientID, caregiverID uuid.UUID) error
	GetAssignment(ctx context.Context, patientID uuid.UUID) (models.CaregiverAssignment, error)
	Unassign(ctx context.Context, patientID uuid.UUID) error
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type contactModel struct {
	ID         uuid.UUID  `gorm:"primaryKey;column:id"`
	PatientID  uuid.UUID  `gorm:"column:patient_id;index"`
	Name       string     `gorm:"column:name"`
	Relation   string     `gorm:"column:relation"`
	Phone      string     `gorm:"column:phone"`
	IsPrimary  bool       `gorm:"column:is_primary"`
	NotifiedAt *time.Time `gorm:"column:notified_at"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at"`
}

func (contactModel) TableName() string { return "emergency_contacts" }

type caregiverAssignmentModel struct {
	PatientID   uuid.UUID `gorm:"primaryKey;column:patient_id"`
	CaregiverID uuid.UUID `gorm:"column:caregiver_id"`
	AssignedAt  time.Time `gorm:"column:assigned_at"`
}

func (caregiverAssignmentModel) TableName() string { return "caregiver_assignments" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&contactModel{}, &caregiverAssignmentModel{})
}

func (r *Repository) Create(ctx context.Context, contact models.EmergencyContact) error {
	if !contact.IsPrimary {
		return r.db.WithContext(ctx).Create(toContactModel(contact)).Error
	}
	// Demote and insert in one transaction so two concurrent primary
	// creations cannot both end up primary.
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&contactModel{}).
			Where("patient_id = ? AND is_primary = ?", contact.PatientID, true).
			Updates(map[string]interface{}{"is_primary": false, "updated_at": time.Now().UTC()}).Error; err != nil {
			return err
		}
		return tx.Create(toContactModel(contact)).Error
	})
}

func (r *Repository) Update(ctx context.Context, contact models.EmergencyContact) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if contact.IsPrimary {
			if err := tx.Model(&contactModel{}).
				Where("patient_id = ? AND id <> ? AND is_primary = ?", contact.PatientID, contact.ID, true).
				Updates(map[string]interface{}{"is_primary": false, "updated_at": time.Now().UTC()}).Error; err != nil {
				return err
			}
		}
		result := tx.Model(&contactModel{}).
			Where("id = ?", contact.ID).
			Updates(map[string]interface{}{
				"name":       contact.Name,
				"relation":   contact.Relation,
				"phone":      contact.Phone,
				"is_primary": contact.IsPrimary,
				"updated_at": contact.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrContactNotFound
		}
		return nil
	})
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (models.EmergencyContact, error) {
	var model contactModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.EmergencyContact{}, ErrContactNotFound
	}
	if result.Error != nil {
		return models.EmergencyContact{}, result.Error
	}
	return fromContactModel(model), nil
}

func (r *Repository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]models.EmergencyContact, error) {
	var rows []contactModel
	if err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("is_primary DESC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	contacts := make([]models.EmergencyContact, 0, len(rows))
	for _, row := range rows {
		contacts = append(contacts, fromContactModel(row))
	}
	return contacts, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&contactModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrContactNotFound
	}
	return nil
}

func (r *Repository) MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&contactModel{}).
		Where("id = ?", id).
		Update("notified_at", at).Error
}

func (r *Repository) Assign(ctx context.Context, patientID, caregiverID uuid.UUID) error {
	assignment := caregiverAssignmentModel{
		PatientID:   patientID,
		CaregiverID: caregiverID,
		AssignedAt:  time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Save(&assignment).Error
}

func (r *Repository) GetAssignment(ctx context.Context, patientID uuid.UUID) (models.CaregiverAssignment, error) {
	var model caregiverAssignmentModel
	result := r.db.WithContext(ctx).First(&model, "patient_id = ?", patientID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.CaregiverAssignment{}, ErrNoCaregiver
	}
	if result.Error != nil {
		return models.CaregiverAssignment{}, result.Error
	}
	return models.CaregiverAssignment{
		PatientID:   model.PatientID,
		CaregiverID: model.CaregiverID,
		AssignedAt:  model.AssignedAt,
	}, nil
}

func (r *Repository) Unassign(ctx context.Context, patientID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&caregiverAssignmentModel{}, "patient_id = ?", patientID).Error
}

func toContactModel(c models.EmergencyContact) *contactModel {
	return &contactModel{
		ID:         c.ID,
		PatientID:  c.PatientID,
		Name:       c.Name,
		Relation:   c.Relation,
		Phone:      c.Phone,
		IsPrimary:  c.IsPrimary,
		NotifiedAt: c.NotifiedAt,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func fromContactModel(m contactModel) models.EmergencyContact {
	return models.EmergencyContact{
		ID:         m.ID,
		PatientID:  m.PatientID,
		Name:       m.Name,
		Relation:   m.Relation,
		Phone:      m.Phone,
		IsPrimary:  m.IsPrimary,
		NotifiedAt: m.NotifiedAt,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

package notifications

import (
	"context"
	"time"

	"github.com/carepulse/platform/pkg/common/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store is the notification feed surface. The postgres repository below
// implements it; tests use in-memory fakes.
type Store interface {
	Append(ctx context.Context, notification models.Notification) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]models.Notification, error)
	ListDoseIDs(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, patientID uuid.UUID) error
	ClearAll(ctx context.Context, patientID uuid.UUID) error
	CountUnread(ctx context.Context, patientID uuid.UUID) (int64, error)
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type notificationModel struct {
	ID          uuid.UUID  `gorm:"primaryKey;column:id"`
	PatientID   uuid.UUID  `gorm:"column:patient_id;index"`
	DoseID      *uuid.UUID `gorm:"column:dose_id;index"`
	Type        string     `gorm:"column:type"`
	Message     string     `gorm:"column:message"`
	Timestamp   time.Time  `gorm:"column:timestamp"`
	Read        bool       `gorm:"column:read"`
	ContactID   *uuid.UUID `gorm:"column:contact_id"`
	CaregiverID *uuid.UUID `gorm:"column:caregiver_id"`
}

func (notificationModel) TableName() string { return "notifications" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&notificationModel{})
}

func (r *Repository) Append(ctx context.Context, n models.Notification) error {
	model := notificationModel{
		ID:          n.ID,
		PatientID:   n.PatientID,
		DoseID:      n.DoseID,
		Type:        n.Type,
		Message:     n.Message,
		Timestamp:   n.Timestamp,
		Read:        n.Read,
		ContactID:   n.ContactID,
		CaregiverID: n.CaregiverID,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *Repository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []notificationModel
	if err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]models.Notification, 0, len(rows))
	for _, row := range rows {
		items = append(items, models.Notification{
			ID:          row.ID,
			PatientID:   row.PatientID,
			DoseID:      row.DoseID,
			Type:        row.Type,
			Message:     row.Message,
			Timestamp:   row.Timestamp,
			Read:        row.Read,
			ContactID:   row.ContactID,
			CaregiverID: row.CaregiverID,
		})
	}
	return items, nil
}

// ListDoseIDs returns the dose ids already covered by a notification, the
// detector's dedup set.
func (r *Repository) ListDoseIDs(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&notificationModel{}).
		Where("patient_id = ? AND dose_id IS NOT NULL", patientID).
		Distinct().
		Pluck("dose_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Repository) MarkRead(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&notificationModel{}).
		Where("id = ? AND read = ?", id, false).
		Update("read", true).Error
}

func (r *Repository) MarkAllRead(ctx context.Context, patientID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&notificationModel{}).
		Where("patient_id = ? AND read = ?", patientID, false).
		Update("read", true).Error
}

func (r *Repository) ClearAll(ctx context.Context, patientID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&notificationModel{}, "patient_id = ?", patientID).Error
}

func (r *Repository) CountUnread(ctx context.Context, patientID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&notificationModel{}).
		Where("patient_id = ? AND read = ?", patientID, false).
		Count(&count).Error
	return count, err
}

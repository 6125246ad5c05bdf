package alerting

import (
	"context"
	"errors"
	"time"

	"github.com/carepulse/platform/pkg/common/models"
	"github.com/carepulse/platform/pkg/observability/metrics"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrLogEntryNotFound = errors.New("alert log entry not found")

// AuditLogStore is the durable, append-only record of delivery attempts.
// Entries are immutable except for acknowledged_at.
type AuditLogStore interface {
	Append(ctx context.Context, entry models.AlertLogEntry) error
	Get(ctx context.Context, id uuid.UUID) (models.AlertLogEntry, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]models.AlertLogEntry, error)
	SetAcknowledged(ctx context.Context, id uuid.UUID, at time.Time) error
	AcknowledgeAll(ctx context.Context, patientID uuid.UUID, at time.Time) (int64, error)
	CountUnacknowledged(ctx context.Context, patientID uuid.UUID) (int64, error)
}

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

type alertLogModel struct {
	ID             uuid.UUID         `gorm:"primaryKey;column:id"`
	PatientID      uuid.UUID         `gorm:"column:patient_id;index"`
	DoseID         uuid.UUID         `gorm:"column:dose_id;index"`
	MedicationName string            `gorm:"column:medication_name"`
	Dosage         string            `gorm:"column:dosage"`
	ScheduledTime  time.Time         `gorm:"column:scheduled_time"`
	RecipientID    uuid.UUID         `gorm:"column:recipient_id"`
	RecipientName  string            `gorm:"column:recipient_name"`
	RecipientPhone string            `gorm:"column:recipient_phone"`
	RecipientRole  string            `gorm:"column:recipient_role"`
	AlertType      string            `gorm:"column:alert_type"`
	MessageBody    string            `gorm:"column:message_body"`
	DeliveryStatus string            `gorm:"column:delivery_status"`
	Provider       string            `gorm:"column:provider"`
	ProviderDetail datatypes.JSONMap `gorm:"column:provider_detail;type:jsonb"`
	TriggeredAt    time.Time         `gorm:"column:triggered_at"`
	AcknowledgedAt *time.Time        `gorm:"column:acknowledged_at"`
}

func (alertLogModel) TableName() string { return "alert_log_entries" }

func (r *AuditRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&alertLogModel{})
}

func (r *AuditRepository) Append(ctx context.Context, entry models.AlertLogEntry) error {
	model := alertLogModel{
		ID:             entry.ID,
		PatientID:      entry.PatientID,
		DoseID:         entry.DoseID,
		MedicationName: entry.MedicationName,
		Dosage:         entry.Dosage,
		ScheduledTime:  entry.ScheduledTime,
		RecipientID:    entry.RecipientID,
		RecipientName:  entry.RecipientName,
		RecipientPhone: entry.RecipientPhone,
		RecipientRole:  entry.RecipientRole,
		AlertType:      entry.AlertType,
		MessageBody:    entry.MessageBody,
		DeliveryStatus: entry.DeliveryStatus,
		Provider:       entry.Provider,
		ProviderDetail: datatypes.JSONMap(entry.ProviderDetail),
		TriggeredAt:    entry.TriggeredAt,
		AcknowledgedAt: entry.AcknowledgedAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *AuditRepository) Get(ctx context.Context, id uuid.UUID) (models.AlertLogEntry, error) {
	var model alertLogModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.AlertLogEntry{}, ErrLogEntryNotFound
	}
	if result.Error != nil {
		return models.AlertLogEntry{}, result.Error
	}
	return fromAlertLogModel(model), nil
}

func (r *AuditRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]models.AlertLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []alertLogModel
	if err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("triggered_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]models.AlertLogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, fromAlertLogModel(row))
	}
	return entries, nil
}

func (r *AuditRepository) SetAcknowledged(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&alertLogModel{}).
		Where("id = ? AND acknowledged_at IS NULL", id).
		Update("acknowledged_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLogEntryNotFound
	}
	return nil
}

func (r *AuditRepository) AcknowledgeAll(ctx context.Context, patientID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&alertLogModel{}).
		Where("patient_id = ? AND acknowledged_at IS NULL", patientID).
		Update("acknowledged_at", at)
	return result.RowsAffected, result.Error
}

func (r *AuditRepository) CountUnacknowledged(ctx context.Context, patientID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&alertLogModel{}).
		Where("patient_id = ? AND acknowledged_at IS NULL", patientID).
		Count(&count).Error
	return count, err
}

func fromAlertLogModel(m alertLogModel) models.AlertLogEntry {
	return models.AlertLogEntry{
		ID:             m.ID,
		PatientID:      m.PatientID,
		DoseID:         m.DoseID,
		MedicationName: m.MedicationName,
		Dosage:         m.Dosage,
		ScheduledTime:  m.ScheduledTime,
		RecipientID:    m.RecipientID,
		RecipientName:  m.RecipientName,
		RecipientPhone: m.RecipientPhone,
		RecipientRole:  m.RecipientRole,
		AlertType:      m.AlertType,
		MessageBody:    m.MessageBody,
		DeliveryStatus: m.DeliveryStatus,
		Provider:       m.Provider,
		ProviderDetail: map[string]interface{}(m.ProviderDetail),
		TriggeredAt:    m.TriggeredAt,
		AcknowledgedAt: m.AcknowledgedAt,
	}
}

// AuditService exposes the read/acknowledge surface of the audit trail.
type AuditService struct {
	store AuditLogStore
	now   func() time.Time
}

func NewAuditService(store AuditLogStore) *AuditService {
	return &AuditService{store: store, now: time.Now}
}

func (s *AuditService) List(ctx context.Context, patientID uuid.UUID, limit int) ([]models.AlertLogEntry, error) {
	return s.store.ListByPatient(ctx, patientID, limit)
}

// Acknowledge sets acknowledged_at once. Acknowledging an already
// acknowledged entry leaves it untouched.
func (s *AuditService) Acknowledge(ctx context.Context, id uuid.UUID) (models.AlertLogEntry, error) {
	entry, err := s.store.Get(ctx, id)
	if err != nil {
		return models.AlertLogEntry{}, err
	}
	if entry.AcknowledgedAt != nil {
		return entry, nil
	}

	at := s.now().UTC()
	if err := s.store.SetAcknowledged(ctx, id, at); err != nil {
		if errors.Is(err, ErrLogEntryNotFound) {
			// Acknowledged concurrently between the read and the write.
			return s.store.Get(ctx, id)
		}
		return models.AlertLogEntry{}, err
	}
	entry.AcknowledgedAt = &at
	metrics.IncAcknowledged()
	return entry, nil
}

func (s *AuditService) AcknowledgeAll(ctx context.Context, patientID uuid.UUID) (int64, error) {
	count, err := s.store.AcknowledgeAll(ctx, patientID, s.now().UTC())
	if err != nil {
		return 0, err
	}
	metrics.AddAcknowledged(count)
	return count, nil
}

func (s *AuditService) CountUnacknowledged(ctx context.Context, patientID uuid.UUID) (int64, error) {
	return s.store.CountUnacknowledged(ctx, patientID)
}

package notify

import (
	"context"
	"time"

	"github.com/carepulse/platform/pkg/common/logger"
	"github.com/carepulse/platform/pkg/common/models"
	"github.com/google/uuid"
)

// AuditStore is the narrow slice of the alert log the gateway needs.
type AuditStore interface {
	Append(ctx context.Context, entry models.AlertLogEntry) error
}

// AuditingGateway wraps a Gateway so that every Send, whatever its outcome,
// appends exactly one alert log entry. A failed audit write is logged but
// not reported as a send failure.
type AuditingGateway struct {
	next  Gateway
	audit AuditStore
	now   func() time.Time
}

func NewAuditingGateway(next Gateway, audit AuditStore) *AuditingGateway {
	return &AuditingGateway{next: next, audit: audit, now: time.Now}
}

func (g *AuditingGateway) Send(ctx context.Context, msg Message) Result {
	result := g.next.Send(ctx, msg)

	entry := models.AlertLogEntry{
		ID:             uuid.New(),
		PatientID:      msg.PatientID,
		DoseID:         msg.DoseID,
		MedicationName: msg.MedicationName,
		Dosage:         msg.Dosage,
		ScheduledTime:  msg.ScheduledTime,
		RecipientID:    msg.Recipient.ID,
		RecipientName:  msg.Recipient.Name,
		RecipientPhone: msg.Recipient.Phone,
		RecipientRole:  msg.Recipient.Role,
		AlertType:      msg.AlertType,
		MessageBody:    msg.Body,
		DeliveryStatus: result.Status,
		Provider:       result.Provider,
		ProviderDetail: result.Detail,
		TriggeredAt:    g.now(),
	}

	if err := g.audit.Append(ctx, entry); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"patient_id": msg.PatientID,
			"dose_id":    msg.DoseID,
		}).Error("Failed to append alert log entry")
	}

	return result
}

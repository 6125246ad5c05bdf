package notify

import (
	"context"
	"time"

	"github.com/carepulse/platform/pkg/common/config"
	"github.com/google/uuid"
)

// Recipient identifies who an outbound alert is addressed to.
type Recipient struct {
	ID    uuid.UUID
	Name  string
	Phone string
	Role  string
}

// Message is one outbound alert destined for a single recipient.
type Message struct {
	PatientID      uuid.UUID
	DoseID         uuid.UUID
	To             string
	Body           string
	Recipient      Recipient
	AlertType      string // emergency_contact or caregiver
	MedicationName string
	Dosage         string
	ScheduledTime  time.Time
}

// Result is the terminal outcome of a single Send call. Failed sends are
// never retried by the gateway; the audit log is the only record of them.
type Result struct {
	OK       bool
	Status   string // simulated, sent, failed
	Provider string
	Detail   map[string]interface{}
}

// Gateway delivers a single alert message. Implementations convert all
// transport and provider errors into a failed Result rather than returning
// them.
type Gateway interface {
	Send(ctx context.Context, msg Message) Result
}

// New selects the delivery provider once at configuration time.
func New(cfg *config.Config) Gateway {
	switch cfg.SMSProvider {
	case "twilio":
		return NewTwilioGateway(cfg)
	case "msg91":
		return NewMSG91Gateway(cfg)
	default:
		return NewSimulatedGateway()
	}
}

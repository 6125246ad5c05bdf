package models

import (
	"time"

	"github.com/google/uuid"
)

// Patient roles recognised by the platform.
const (
	RolePatient   = "patient"
	RoleDoctor    = "doctor"
	RoleCaregiver = "caregiver"
)

type Patient struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Medication frequency slots per day.
const (
	FrequencyOnceDaily   = "once_daily"
	FrequencyTwiceDaily  = "twice_daily"
	FrequencyThriceDaily = "thrice_daily"
)

type Medication struct {
	ID           uuid.UUID `json:"id"`
	PatientID    uuid.UUID `json:"patient_id"`
	PrescriberID uuid.UUID `json:"prescriber_id"`
	Name         string    `json:"name"`
	Dosage       string    `json:"dosage"`
	Frequency    string    `json:"frequency"`
	StartDate    time.Time `json:"start_date"`
	Note         string    `json:"note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type Dose struct {
	ID            uuid.UUID  `json:"id"`
	MedicationID  uuid.UUID  `json:"medication_id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	ScheduledTime time.Time  `json:"scheduled_time"`
	TakenAt       *time.Time `json:"taken_at,omitempty"`
}

type EmergencyContact struct {
	ID         uuid.UUID  `json:"id"`
	PatientID  uuid.UUID  `json:"patient_id"`
	Name       string     `json:"name"`
	Relation   string     `json:"relation,omitempty"`
	Phone      string     `json:"phone"`
	IsPrimary  bool       `json:"is_primary"`
	NotifiedAt *time.Time `json:"notified_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type CaregiverAssignment struct {
	PatientID   uuid.UUID `json:"patient_id"`
	CaregiverID uuid.UUID `json:"caregiver_id"`
	AssignedAt  time.Time `json:"assigned_at"`
}

// Notification feed entry types.
const (
	NotificationMissedDose     = "missed_dose"
	NotificationSMSSent        = "sms_sent"
	NotificationCaregiverAlert = "caregiver_alert"
	NotificationSystem         = "system"
)

type Notification struct {
	ID          uuid.UUID  `json:"id"`
	PatientID   uuid.UUID  `json:"patient_id"`
	DoseID      *uuid.UUID `json:"dose_id,omitempty"`
	Type        string     `json:"type"`
	Message     string     `json:"message"`
	Timestamp   time.Time  `json:"timestamp"`
	Read        bool       `json:"read"`
	ContactID   *uuid.UUID `json:"contact_id,omitempty"`
	CaregiverID *uuid.UUID `json:"caregiver_id,omitempty"`
}

// Delivery statuses recorded in the alert audit log.
const (
	DeliveryPending   = "pending"
	DeliverySimulated = "simulated"
	DeliverySent      = "sent"
	DeliveryFailed    = "failed"
)

// Alert recipient classes.
const (
	AlertEmergencyContact = "emergency_contact"
	AlertCaregiver        = "caregiver"
)

type AlertLogEntry struct {
	ID             uuid.UUID              `json:"id"`
	PatientID      uuid.UUID              `json:"patient_id"`
	DoseID         uuid.UUID              `json:"dose_id"`
	MedicationName string                 `json:"medication_name"`
	Dosage         string                 `json:"dosage"`
	ScheduledTime  time.Time              `json:"scheduled_time"`
	RecipientID    uuid.UUID              `json:"recipient_id"`
	RecipientName  string                 `json:"recipient_name"`
	RecipientPhone string                 `json:"recipient_phone"`
	RecipientRole  string                 `json:"recipient_role"`
	AlertType      string                 `json:"alert_type"`
	MessageBody    string                 `json:"message_body"`
	DeliveryStatus string                 `json:"delivery_status"`
	Provider       string                 `json:"provider"`
	ProviderDetail map[string]interface{} `json:"provider_detail,omitempty"`
	TriggeredAt    time.Time              `json:"triggered_at"`
	AcknowledgedAt *time.Time             `json:"acknowledged_at,omitempty"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // medication.prescribed, dose.taken, alert.cycle, alert.delivery
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// Request payloads

type PrescribeMedicationRequest struct {
	PatientID    uuid.UUID `json:"patient_id"`
	PrescriberID uuid.UUID `json:"prescriber_id"`
	Name         string    `json:"name"`
	Dosage       string    `json:"dosage"`
	Frequency    string    `json:"frequency"`
	StartDate    time.Time `json:"start_date"`
	Note         string    `json:"note,omitempty"`
}

type CreateContactRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
	Name      string    `json:"name"`
	Relation  string    `json:"relation,omitempty"`
	Phone     string    `json:"phone"`
	IsPrimary bool      `json:"is_primary"`
}

type UpdateContactRequest struct {
	Name      *string `json:"name,omitempty"`
	Relation  *string `json:"relation,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	IsPrimary *bool   `json:"is_primary,omitempty"`
}

type AssignCaregiverRequest struct {
	CaregiverID uuid.UUID `json:"caregiver_id"`
}

type DetectResponse struct {
	PatientID uuid.UUID `json:"patient_id"`
	NewAlerts int       `json:"new_alerts"`
	ScannedAt time.Time `json:"scanned_at"`
}

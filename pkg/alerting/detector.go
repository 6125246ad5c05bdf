package alerting

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/carepulse/platform/pkg/adherence"
	"github.com/carepulse/platform/pkg/common/logger"
	"github.com/carepulse/platform/pkg/common/models"
	"github.com/carepulse/platform/pkg/contacts"
	"github.com/carepulse/platform/pkg/notify"
	"github.com/carepulse/platform/pkg/observability/metrics"
	"github.com/google/uuid"
)

const DefaultThreshold = 30 * time.Minute

// AdherenceStore is the slice of the adherence repository the detector
// reads. Patients double as caregivers; both live in the same table.
type AdherenceStore interface {
	GetPatient(ctx context.Context, id uuid.UUID) (models.Patient, error)
	ListPendingDoses(ctx context.Context, patientID uuid.UUID) ([]models.Dose, error)
	GetMedication(ctx context.Context, id uuid.UUID) (models.Medication, error)
}

type ContactStore interface {
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]models.EmergencyContact, error)
	MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) error
}

type CaregiverStore interface {
	GetAssignment(ctx context.Context, patientID uuid.UUID) (models.CaregiverAssignment, error)
}

// FeedStore is the notification feed slice the detector writes to and
// rebuilds its dedup set from.
type FeedStore interface {
	Append(ctx context.Context, notification models.Notification) error
	ListDoseIDs(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error)
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Detector scans a patient's outstanding doses and fans alerts out to
// emergency contacts and the assigned caregiver. It is stateless between
// calls except for the persisted stores it reads.
type Detector struct {
	adherence  AdherenceStore
	contacts   ContactStore
	caregivers CaregiverStore
	feed       FeedStore
	gateway    notify.Gateway
	producer   EventPublisher
	templates  notify.TemplatesConfig
	threshold  time.Duration
	now        func() time.Time

	wg sync.WaitGroup
}

func NewDetector(
	adherenceStore AdherenceStore,
	contactStore ContactStore,
	caregiverStore CaregiverStore,
	feed FeedStore,
	gateway notify.Gateway,
	producer EventPublisher,
	templates notify.TemplatesConfig,
	threshold time.Duration,
) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Detector{
		adherence:  adherenceStore,
		contacts:   contactStore,
		caregivers: caregiverStore,
		feed:       feed,
		gateway:    gateway,
		producer:   producer,
		templates:  templates,
		threshold:  threshold,
		now:        time.Now,
	}
}

// Detect runs one scan and returns the number of distinct doses that
// triggered a new alert cycle, not the number of messages sent. Sends are
// dispatched asynchronously; Detect returns before delivery outcomes are
// known. An unknown patient yields (0, nil) with no side effects.
func (d *Detector) Detect(ctx context.Context, patientID uuid.UUID) (int, error) {
	metrics.IncScan()

	patient, err := d.adherence.GetPatient(ctx, patientID)
	if err != nil {
		if errors.Is(err, adherence.ErrPatientNotFound) {
			return 0, nil
		}
		return 0, err
	}

	pending, err := d.adherence.ListPendingDoses(ctx, patientID)
	if err != nil {
		return 0, err
	}

	// Fresh dedup snapshot per scan: a dose that already produced a
	// notification never alerts again.
	alerted, err := d.feed.ListDoseIDs(ctx, patientID)
	if err != nil {
		return 0, err
	}
	dedup := make(map[uuid.UUID]struct{}, len(alerted))
	for _, id := range alerted {
		dedup[id] = struct{}{}
	}

	now := d.now()
	count := 0
	for _, dose := range pending {
		if dose.ScheduledTime.IsZero() {
			continue
		}
		if now.Sub(dose.ScheduledTime) < d.threshold {
			// Upcoming or due soon, not missed.
			continue
		}
		if _, done := dedup[dose.ID]; done {
			continue
		}

		med, err := d.adherence.GetMedication(ctx, dose.MedicationID)
		if err != nil {
			// Data inconsistency, not fatal: the rest of the batch proceeds.
			logger.Log.WithFields(map[string]interface{}{
				"dose_id":       dose.ID,
				"medication_id": dose.MedicationID,
			}).Warn("Skipping dose with missing medication")
			continue
		}

		if err := d.fireAlertCycle(ctx, patient, dose, med); err != nil {
			logger.Log.WithError(err).WithField("dose_id", dose.ID).Error("Failed to fire alert cycle")
			continue
		}
		dedup[dose.ID] = struct{}{}
		count++
		metrics.IncDoseAlerted()
	}

	if d.producer != nil && count > 0 {
		_ = d.producer.PublishEvent(ctx, "alert.cycle", "alert-service", map[string]interface{}{
			"patient_id": patientID.String(),
			"new_alerts": count,
		})
	}

	return count, nil
}

func (d *Detector) fireAlertCycle(ctx context.Context, patient models.Patient, dose models.Dose, med models.Medication) error {
	params := notify.MessageParams{
		PatientName:    patient.Name,
		MedicationName: med.Name,
		Dosage:         med.Dosage,
		DueTime:        dose.ScheduledTime,
	}
	doseID := dose.ID

	missed := models.Notification{
		ID:        uuid.New(),
		PatientID: patient.ID,
		DoseID:    &doseID,
		Type:      models.NotificationMissedDose,
		Message:   d.templates.RenderMissedDose(params),
		Timestamp: d.now(),
	}
	if err := d.feed.Append(ctx, missed); err != nil {
		// Without the feed entry the dose would alert again next scan, so
		// the whole cycle is abandoned.
		return err
	}

	contactList, err := d.contacts.ListByPatient(ctx, patient.ID)
	if err != nil {
		logger.Log.WithError(err).WithField("patient_id", patient.ID).Error("Failed to load emergency contacts")
		contactList = nil
	}

	contactBody := d.templates.RenderContactSMS(params)
	for _, contact := range contactList {
		contactID := contact.ID
		sent := models.Notification{
			ID:        uuid.New(),
			PatientID: patient.ID,
			DoseID:    &doseID,
			Type:      models.NotificationSMSSent,
			Message:   contactBody,
			Timestamp: d.now(),
			ContactID: &contactID,
		}
		if err := d.feed.Append(ctx, sent); err != nil {
			logger.Log.WithError(err).WithField("contact_id", contactID).Error("Failed to append sms_sent notification")
		}

		msg := notify.Message{
			PatientID: patient.ID,
			DoseID:    doseID,
			To:        contact.Phone,
			Body:      contactBody,
			Recipient: notify.Recipient{
				ID:    contact.ID,
				Name:  contact.Name,
				Phone: contact.Phone,
				Role:  contact.Relation,
			},
			AlertType:      models.AlertEmergencyContact,
			MedicationName: med.Name,
			Dosage:         med.Dosage,
			ScheduledTime:  dose.ScheduledTime,
		}
		d.dispatchContact(ctx, msg, contactID)
	}

	d.alertCaregiver(ctx, patient, dose, med, params)
	return nil
}

// dispatchContact sends asynchronously and records notified_at on
// completion. Cancelling the scan context never cancels an in-flight send.
func (d *Detector) dispatchContact(ctx context.Context, msg notify.Message, contactID uuid.UUID) {
	sendCtx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		result := d.gateway.Send(sendCtx, msg)
		observeDelivery(result)

		if err := d.contacts.MarkNotified(sendCtx, contactID, time.Now().UTC()); err != nil {
			logger.Log.WithError(err).WithField("contact_id", contactID).Error("Failed to record contact notification time")
		}
	}()
}

func (d *Detector) alertCaregiver(ctx context.Context, patient models.Patient, dose models.Dose, med models.Medication, params notify.MessageParams) {
	assignment, err := d.caregivers.GetAssignment(ctx, patient.ID)
	if err != nil {
		if !errors.Is(err, contacts.ErrNoCaregiver) {
			logger.Log.WithError(err).WithField("patient_id", patient.ID).Error("Failed to resolve caregiver assignment")
		}
		return
	}

	caregiver, err := d.adherence.GetPatient(ctx, assignment.CaregiverID)
	if err != nil {
		logger.Log.WithError(err).WithField("caregiver_id", assignment.CaregiverID).Warn("Assigned caregiver record missing")
		return
	}

	to := caregiver.Phone
	if to == "" {
		// No phone on file: route through the in-app caregiver channel.
		to = "care:" + caregiver.ID.String()
	}

	doseID := dose.ID
	caregiverID := caregiver.ID
	body := d.templates.RenderCaregiverSMS(params)

	alert := models.Notification{
		ID:          uuid.New(),
		PatientID:   patient.ID,
		DoseID:      &doseID,
		Type:        models.NotificationCaregiverAlert,
		Message:     body,
		Timestamp:   d.now(),
		CaregiverID: &caregiverID,
	}
	if err := d.feed.Append(ctx, alert); err != nil {
		logger.Log.WithError(err).WithField("caregiver_id", caregiverID).Error("Failed to append caregiver_alert notification")
	}

	msg := notify.Message{
		PatientID: patient.ID,
		DoseID:    doseID,
		To:        to,
		Body:      body,
		Recipient: notify.Recipient{
			ID:    caregiver.ID,
			Name:  caregiver.Name,
			Phone: caregiver.Phone,
			Role:  models.RoleCaregiver,
		},
		AlertType:      models.AlertCaregiver,
		MedicationName: med.Name,
		Dosage:         med.Dosage,
		ScheduledTime:  dose.ScheduledTime,
	}

	sendCtx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		result := d.gateway.Send(sendCtx, msg)
		observeDelivery(result)
	}()
}

// Wait blocks until every dispatched send has completed. Used on shutdown
// and in tests; normal operation never waits.
func (d *Detector) Wait() {
	d.wg.Wait()
}

func observeDelivery(result notify.Result) {
	switch result.Status {
	case models.DeliverySimulated:
		metrics.IncSimulated()
	case models.DeliverySent:
		metrics.IncSent()
	default:
		metrics.IncFailed()
	}
}

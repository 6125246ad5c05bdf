package contacts

import (
	"context"
	"strings"
	"time"

	"github.com/carepulse/platform/pkg/common/logger"
	"github.com/carepulse/platform/pkg/common/models"
	"github.com/google/uuid"
)

type Service struct {
	contacts   ContactStore
	caregivers CaregiverStore
}

func NewService(contacts ContactStore, caregivers CaregiverStore) *Service {
	return &Service{contacts: contacts, caregivers: caregivers}
}

func (s *Service) AddContact(ctx context.Context, req models.CreateContactRequest) (models.EmergencyContact, error) {
	if strings.TrimSpace(req.Name) == "" {
		return models.EmergencyContact{}, ValidationError{reason: errEmptyName}
	}
	if strings.TrimSpace(req.Phone) == "" {
		return models.EmergencyContact{}, ValidationError{reason: errEmptyPhone}
	}
	if !ValidPhone(req.Phone) {
		return models.EmergencyContact{}, ValidationError{reason: errInvalidPhone}
	}

	now := time.Now().UTC()
	contact := models.EmergencyContact{
		ID:        uuid.New(),
		PatientID: req.PatientID,
		Name:      strings.TrimSpace(req.Name),
		Relation:  strings.TrimSpace(req.Relation),
		Phone:     strings.TrimSpace(req.Phone),
		IsPrimary: req.IsPrimary,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.contacts.Create(ctx, contact); err != nil {
		return models.EmergencyContact{}, err
	}

	logger.Log.WithFields(map[string]interface{}{
		"contact_id": contact.ID,
		"patient_id": contact.PatientID,
		"primary":    contact.IsPrimary,
	}).Info("Emergency contact added")

	return contact, nil
}

func (s *Service) UpdateContact(ctx context.Context, id uuid.UUID, req models.UpdateContactRequest) (models.EmergencyContact, error) {
	contact, err := s.contacts.Get(ctx, id)
	if err != nil {
		return models.EmergencyContact{}, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return models.EmergencyContact{}, ValidationError{reason: errEmptyName}
		}
		contact.Name = strings.TrimSpace(*req.Name)
	}
	if req.Relation != nil {
		contact.Relation = strings.TrimSpace(*req.Relation)
	}
	if req.Phone != nil {
		if !ValidPhone(*req.Phone) {
			return models.EmergencyContact{}, ValidationError{reason: errInvalidPhone}
		}
		contact.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.IsPrimary != nil {
		contact.IsPrimary = *req.IsPrimary
	}

	contact.UpdatedAt = time.Now().UTC()
	if err := s.contacts.Update(ctx, contact); err != nil {
		return models.EmergencyContact{}, err
	}
	return contact, nil
}

func (s *Service) DeleteContact(ctx context.Context, id uuid.UUID) error {
	return s.contacts.Delete(ctx, id)
}

func (s *Service) ListContacts(ctx context.Context, patientID uuid.UUID) ([]models.EmergencyContact, error) {
	return s.contacts.ListByPatient(ctx, patientID)
}

func (s *Service) AssignCaregiver(ctx context.Context, patientID, caregiverID uuid.UUID) error {
	if err := s.caregivers.Assign(ctx, patientID, caregiverID); err != nil {
		return err
	}
	logger.Log.WithFields(map[string]interface{}{
		"patient_id":   patientID,
		"caregiver_id": caregiverID,
	}).Info("Caregiver assigned")
	return nil
}

func (s *Service) GetCaregiver(ctx context.Context, patientID uuid.UUID) (models.CaregiverAssignment, error) {
	return s.caregivers.GetAssignment(ctx, patientID)
}

func (s *Service) UnassignCaregiver(ctx context.Context, patientID uuid.UUID) error {
	return s.caregivers.Unassign(ctx, patientID)
}

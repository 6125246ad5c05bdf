package contacts

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/carepulse/platform/pkg/common/logger"
	"github.com/carepulse/platform/pkg/common/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/contacts", h.handleAddContact).Methods(http.MethodPost)
	r.HandleFunc("/contacts/{id}", h.handleUpdateContact).Methods(http.MethodPatch)
	r.HandleFunc("/contacts/{id}", h.handleDeleteContact).Methods(http.MethodDelete)
	r.HandleFunc("/patients/{id}/contacts", h.handleListContacts).Methods(http.MethodGet)
	r.HandleFunc("/patients/{id}/caregiver", h.handleAssignCaregiver).Methods(http.MethodPut)
	r.HandleFunc("/patients/{id}/caregiver", h.handleGetCaregiver).Methods(http.MethodGet)
	r.HandleFunc("/patients/{id}/caregiver", h.handleUnassignCaregiver).Methods(http.MethodDelete)
}

func (h *Handler) handleAddContact(w http.ResponseWriter, r *http.Request) {
	var req models.CreateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	contact, err := h.service.AddContact(r.Context(), req)
	if err != nil {
		if IsValidationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).Error("failed to add contact")
		http.Error(w, "failed to add contact", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"contact": contact})
}

func (h *Handler) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid contact id", http.StatusBadRequest)
		return
	}
	var req models.UpdateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	contact, err := h.service.UpdateContact(r.Context(), id, req)
	if err != nil {
		switch {
		case IsValidationError(err):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrContactNotFound):
			http.Error(w, "contact not found", http.StatusNotFound)
		default:
			logger.Log.WithError(err).Error("failed to update contact")
			http.Error(w, "failed to update contact", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"contact": contact})
}

func (h *Handler) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid contact id", http.StatusBadRequest)
		return
	}
	if err := h.service.DeleteContact(r.Context(), id); err != nil {
		if errors.Is(err, ErrContactNotFound) {
			http.Error(w, "contact not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to delete contact")
		http.Error(w, "failed to delete contact", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListContacts(w http.ResponseWriter, r *http.Request) {
	patientID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}
	contacts, err := h.service.ListContacts(r.Context(), patientID)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list contacts")
		http.Error(w, "failed to list contacts", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": contacts})
}

func (h *Handler) handleAssignCaregiver(w http.ResponseWriter, r *http.Request) {
	patientID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}
	var req models.AssignCaregiverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.CaregiverID == uuid.Nil {
		http.Error(w, "caregiver_id is required", http.StatusBadRequest)
		return
	}
	if err := h.service.AssignCaregiver(r.Context(), patientID, req.CaregiverID); err != nil {
		logger.Log.WithError(err).Error("failed to assign caregiver")
		http.Error(w, "failed to assign caregiver", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetCaregiver(w http.ResponseWriter, r *http.Request) {
	patientID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}
	assignment, err := h.service.GetCaregiver(r.Context(), patientID)
	if err != nil {
		if errors.Is(err, ErrNoCaregiver) {
			http.Error(w, "no caregiver assigned", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to get caregiver")
		http.Error(w, "failed to get caregiver", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"assignment": assignment})
}

func (h *Handler) handleUnassignCaregiver(w http.ResponseWriter, r *http.Request) {
	patientID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}
	if err := h.service.UnassignCaregiver(r.Context(), patientID); err != nil {
		logger.Log.WithError(err).Error("failed to unassign caregiver")
		http.Error(w, "failed to unassign caregiver", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}

package adherence

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

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
	r.HandleFunc("/patients", h.handleCreatePatient).Methods(http.MethodPost)
	r.HandleFunc("/patients/{id}", h.handleGetPatient).Methods(http.MethodGet)
	r.HandleFunc("/medications", h.handlePrescribe).Methods(http.MethodPost)
	r.HandleFunc("/medications/{id}", h.handleDeleteMedication).Methods(http.MethodDelete)
	r.HandleFunc("/patients/{id}/medications", h.handleListMedications).Methods(http.MethodGet)
	r.HandleFunc("/patients/{id}/doses", h.handleListDoses).Methods(http.MethodGet)
	r.HandleFunc("/doses/{id}/taken", h.handleMarkTaken).Methods(http.MethodPost)
}

func (h *Handler) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	var patient models.Patient
	if err := json.NewDecoder(r.Body).Decode(&patient); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	created, err := h.service.CreatePatient(r.Context(), patient)
	if err != nil {
		if IsValidationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).Error("failed to create patient")
		http.Error(w, "failed to create patient", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"patient": created})
}

func (h *Handler) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}
	patient, err := h.service.GetPatient(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to get patient")
		http.Error(w, "failed to get patient", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"patient": patient})
}

func (h *Handler) handlePrescribe(w http.ResponseWriter, r *http.Request) {
	var req models.PrescribeMedicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	med, err := h.service.PrescribeMedication(r.Context(), req)
	if err != nil {
		switch {
		case IsValidationError(err):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrPatientNotFound):
			http.Error(w, "patient not found", http.StatusNotFound)
		default:
			logger.Log.WithError(err).Error("failed to prescribe medication")
			http.Error(w, "failed to prescribe medication", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"medication": med})
}

func (h *Handler) handleDeleteMedication(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid medication id", http.StatusBadRequest)
		return
	}
	if err := h.service.DeleteMedication(r.Context(), id); err != nil {
		if errors.Is(err, ErrMedicationNotFound) {
			http.Error(w, "medication not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to delete medication")
		http.Error(w, "failed to delete medication", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListMedications(w http.ResponseWriter, r *http.Request) {
	patientID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}
	meds, err := h.service.ListMedications(r.Context(), patientID)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list medications")
		http.Error(w, "failed to list medications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": meds})
}

func (h *Handler) handleListDoses(w http.ResponseWriter, r *http.Request) {
	patientID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}
	pendingOnly := r.URL.Query().Get("pending") == "true"
	limit := parseLimit(r, 200)
	doses, err := h.service.ListDoses(r.Context(), patientID, pendingOnly, limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list doses")
		http.Error(w, "failed to list doses", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": doses})
}

func (h *Handler) handleMarkTaken(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid dose id", http.StatusBadRequest)
		return
	}
	dose, err := h.service.MarkDoseTaken(r.Context(), id)
	if err != nil {
		switch {
		case IsValidationError(err):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, ErrDoseNotFound):
			http.Error(w, "dose not found", http.StatusNotFound)
		default:
			logger.Log.WithError(err).Error("failed to mark dose taken")
			http.Error(w, "failed to mark dose taken", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"dose": dose})
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}

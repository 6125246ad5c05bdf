package alerting

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/carepulse/platform/pkg/common/logger"
	"github.com/carepulse/platform/pkg/common/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type Handler struct {
	detector *Detector
	audit    *AuditService
}

func NewHandler(detector *Detector, audit *AuditService) *Handler {
	return &Handler{detector: detector, audit: audit}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/patients/{id}/detect", h.handleDetect).Methods(http.MethodPost)
	r.HandleFunc("/patients/{id}/alert-log", h.handleListLog).Methods(http.MethodGet)
	r.HandleFunc("/patients/{id}/alert-log/acknowledge-all", h.handleAcknowledgeAll).Methods(http.MethodPost)
	r.HandleFunc("/alert-log/{id}/acknowledge", h.handleAcknowledge).Methods(http.MethodPost)
}

func (h *Handler) handleDetect(w http.ResponseWriter, r *http.Request) {
	patientID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}
	count, err := h.detector.Detect(r.Context(), patientID)
	if err != nil {
		logger.Log.WithError(err).Error("missed-dose detection failed")
		http.Error(w, "detection failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, models.DetectResponse{
		PatientID: patientID,
		NewAlerts: count,
		ScannedAt: time.Now().UTC(),
	})
}

func (h *Handler) handleListLog(w http.ResponseWriter, r *http.Request) {
	patientID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	entries, err := h.audit.List(r.Context(), patientID, limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list alert log")
		http.Error(w, "failed to list alert log", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": entries})
}

func (h *Handler) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid entry id", http.StatusBadRequest)
		return
	}
	entry, err := h.audit.Acknowledge(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrLogEntryNotFound) {
			http.Error(w, "alert log entry not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to acknowledge alert log entry")
		http.Error(w, "failed to acknowledge entry", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entry": entry})
}

func (h *Handler) handleAcknowledgeAll(w http.ResponseWriter, r *http.Request) {
	patientID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}
	count, err := h.audit.AcknowledgeAll(r.Context(), patientID)
	if err != nil {
		logger.Log.WithError(err).Error("failed to acknowledge alert log")
		http.Error(w, "failed to acknowledge alert log", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"acknowledged": count})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}

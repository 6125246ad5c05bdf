package notifications

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/carepulse/platform/pkg/common/logger"
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
	r.HandleFunc("/patients/{id}/notifications", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/patients/{id}/notifications", h.handleClearAll).Methods(http.MethodDelete)
	r.HandleFunc("/patients/{id}/notifications/unread-count", h.handleUnreadCount).Methods(http.MethodGet)
	r.HandleFunc("/patients/{id}/notifications/read-all", h.handleMarkAllRead).Methods(http.MethodPost)
	r.HandleFunc("/patients/{id}/notifications/{nid}/read", h.handleMarkRead).Methods(http.MethodPost)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
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
	items, err := h.service.List(r.Context(), patientID, limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list notifications")
		http.Error(w, "failed to list notifications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *Handler) handleClearAll(w http.ResponseWriter, r *http.Request) {
	patientID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}
	if err := h.service.ClearAll(r.Context(), patientID); err != nil {
		logger.Log.WithError(err).Error("failed to clear notifications")
		http.Error(w, "failed to clear notifications", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	patientID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}
	count, err := h.service.UnreadCount(r.Context(), patientID)
	if err != nil {
		logger.Log.WithError(err).Error("failed to count unread notifications")
		http.Error(w, "failed to count unread notifications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"unread": count})
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	patientID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}
	if err := h.service.MarkAllRead(r.Context(), patientID); err != nil {
		logger.Log.WithError(err).Error("failed to mark notifications read")
		http.Error(w, "failed to mark notifications read", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	patientID, err := uuid.Parse(vars["id"])
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}
	notificationID, err := uuid.Parse(vars["nid"])
	if err != nil {
		http.Error(w, "invalid notification id", http.StatusBadRequest)
		return
	}
	if err := h.service.MarkRead(r.Context(), notificationID, patientID); err != nil {
		logger.Log.WithError(err).Error("failed to mark notification read")
		http.Error(w, "failed to mark notification read", http.StatusInternalServerError)
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

package routes

import (
	"net/http"

	"github.com/carepulse/platform/pkg/common/logger"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// AlertsHandler serves the doctor dashboard's cross-patient alert overview
// straight from the audit trail.
type AlertsHandler struct {
	db *gorm.DB
}

type AlertSummary struct {
	Failed         int `json:"failed"`
	Delivered      int `json:"delivered"`
	Simulated      int `json:"simulated"`
	Unacknowledged int `json:"unacknowledged"`
}

type AlertRow struct {
	ID             string `json:"id"`
	PatientID      string `json:"patientId"`
	MedicationName string `json:"medicationName"`
	RecipientName  string `json:"recipientName"`
	AlertType      string `json:"alertType"`
	DeliveryStatus string `json:"deliveryStatus"`
	Provider       string `json:"provider"`
	TriggeredAt    string `json:"triggeredAt"`
}

type AlertsResponse struct {
	Summary AlertSummary `json:"summary"`
	Items   []AlertRow   `json:"items"`
}

func NewAlertsHandler(db *gorm.DB) *AlertsHandler {
	return &AlertsHandler{db: db}
}

func (h *AlertsHandler) Register(r *mux.Router) {
	r.HandleFunc("/alerts", h.handleList).Methods(http.MethodGet)
}

func (h *AlertsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	summary := AlertSummary{}
	if err := h.db.Raw(`
		SELECT
			SUM(CASE WHEN delivery_status = 'failed' THEN 1 ELSE 0 END) AS failed,
			SUM(CASE WHEN delivery_status = 'sent' THEN 1 ELSE 0 END) AS delivered,
			SUM(CASE WHEN delivery_status = 'simulated' THEN 1 ELSE 0 END) AS simulated,
			SUM(CASE WHEN acknowledged_at IS NULL THEN 1 ELSE 0 END) AS unacknowledged
		FROM alert_log_entries
		WHERE triggered_at > NOW() - INTERVAL '7 days'
	`).Scan(&summary).Error; err != nil {
		logger.Log.WithError(err).Error("failed to summarize alerts")
		http.Error(w, "failed to fetch alerts", http.StatusInternalServerError)
		return
	}

	var rows []struct {
		ID             string `gorm:"column:id"`
		PatientID      string `gorm:"column:patient_id"`
		MedicationName string `gorm:"column:medication_name"`
		RecipientName  string `gorm:"column:recipient_name"`
		AlertType      string `gorm:"column:alert_type"`
		DeliveryStatus string `gorm:"column:delivery_status"`
		Provider       string `gorm:"column:provider"`
		TriggeredAt    string `gorm:"column:triggered_at"`
	}

	if err := h.db.Raw(`
		SELECT id, patient_id, medication_name, recipient_name, alert_type, delivery_status, provider,
		       TO_CHAR(triggered_at, 'YYYY-MM-DD"T"HH24:MI:SSZ') AS triggered_at
		FROM alert_log_entries
		WHERE acknowledged_at IS NULL
		ORDER BY triggered_at DESC
		LIMIT 25
	`).Scan(&rows).Error; err != nil {
		logger.Log.WithError(err).Error("failed to load alert rows")
		http.Error(w, "failed to fetch alerts", http.StatusInternalServerError)
		return
	}

	items := make([]AlertRow, 0, len(rows))
	for _, row := range rows {
		items = append(items, AlertRow{
			ID:             row.ID,
			PatientID:      row.PatientID,
			MedicationName: row.MedicationName,
			RecipientName:  row.RecipientName,
			AlertType:      row.AlertType,
			DeliveryStatus: row.DeliveryStatus,
			Provider:       row.Provider,
			TriggeredAt:    row.TriggeredAt,
		})
	}

	writeJSON(w, http.StatusOK, AlertsResponse{Summary: summary, Items: items})
}

package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	scansTotal     atomic.Int64
	dosesAlerted   atomic.Int64
	smsSimulated   atomic.Int64
	smsSent        atomic.Int64
	smsFailed      atomic.Int64
	acknowledged   atomic.Int64
	schedulerSkips atomic.Int64
)

func Init() {}

func IncScan() { scansTotal.Add(1) }
func IncDoseAlerted() { dosesAlerted.Add(1) }
func IncSimulated() { smsSimulated.Add(1) }
func IncSent() { smsSent.Add(1) }
func IncFailed() { smsFailed.Add(1) }
func IncAcknowledged() { acknowledged.Add(1) }

func AddAcknowledged(n int64) { acknowledged.Add(n) }
func IncSchedulerSkip() { schedulerSkips.Add(1) }

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP carepulse_alert_scans_total Number of missed-dose scans executed.\n")
	fmt.Fprintf(w, "# TYPE carepulse_alert_scans_total counter\n")
	fmt.Fprintf(w, "carepulse_alert_scans_total %d\n", scansTotal.Load())

	fmt.Fprintf(w, "# HELP carepulse_alert_doses_alerted_total Number of doses that triggered a new alert cycle.\n")
	fmt.Fprintf(w, "# TYPE carepulse_alert_doses_alerted_total counter\n")
	fmt.Fprintf(w, "carepulse_alert_doses_alerted_total %d\n", dosesAlerted.Load())

	fmt.Fprintf(w, "# HELP carepulse_alert_sms_simulated_total Number of alert messages handled by the simulation provider.\n")
	fmt.Fprintf(w, "# TYPE carepulse_alert_sms_simulated_total counter\n")
	fmt.Fprintf(w, "carepulse_alert_sms_simulated_total %d\n", smsSimulated.Load())

	fmt.Fprintf(w, "# HELP carepulse_alert_sms_sent_total Number of alert messages accepted by a real provider.\n")
	fmt.Fprintf(w, "# TYPE carepulse_alert_sms_sent_total counter\n")
	fmt.Fprintf(w, "carepulse_alert_sms_sent_total %d\n", smsSent.Load())

	fmt.Fprintf(w, "# HELP carepulse_alert_sms_failed_total Number of alert messages that failed delivery.\n")
	fmt.Fprintf(w, "# TYPE carepulse_alert_sms_failed_total counter\n")
	fmt.Fprintf(w, "carepulse_alert_sms_failed_total %d\n", smsFailed.Load())

	fmt.Fprintf(w, "# HELP carepulse_alert_log_acknowledged_total Number of alert log entries acknowledged.\n")
	fmt.Fprintf(w, "# TYPE carepulse_alert_log_acknowledged_total counter\n")
	fmt.Fprintf(w, "carepulse_alert_log_acknowledged_total %d\n", acknowledged.Load())

	fmt.Fprintf(w, "# HELP carepulse_alert_scheduler_skips_total Number of scan ticks skipped because a scan was already in flight.\n")
	fmt.Fprintf(w, "# TYPE carepulse_alert_scheduler_skips_total counter\n")
	fmt.Fprintf(w, "carepulse_alert_scheduler_skips_total %d\n", schedulerSkips.Load())
}

func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WritePrometheus(w)
	}
}

package notify

import (
	"context"

	"github.com/carepulse/platform/pkg/common/logger"
	"github.com/carepulse/platform/pkg/common/models"
)

// SimulatedGateway performs no network I/O and always succeeds. It is the
// default provider so a fresh deployment never texts real phone numbers.
type SimulatedGateway struct{}

func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{}
}

func (g *SimulatedGateway) Send(ctx context.Context, msg Message) Result {
	logger.Log.WithFields(map[string]interface{}{
		"patient_id": msg.PatientID,
		"dose_id":    msg.DoseID,
		"to":         msg.To,
		"alert_type": msg.AlertType,
	}).Info("Simulated SMS dispatch")

	return Result{
		OK:       true,
		Status:   models.DeliverySimulated,
		Provider: "simulation",
	}
}

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/carepulse/platform/pkg/common/config"
	"github.com/carepulse/platform/pkg/common/logger"
	"github.com/carepulse/platform/pkg/common/models"
	"github.com/carepulse/platform/pkg/gateway/httpclient"
)

const msg91DefaultBaseURL = "https://control.msg91.com"

// MSG91Gateway sends SMS through the MSG91 v2 API.
type MSG91Gateway struct {
	authKey string
	sender  string
	baseURL string
	client  *http.Client
}

func NewMSG91Gateway(cfg *config.Config) *MSG91Gateway {
	return &MSG91Gateway{
		authKey: cfg.MSG91AuthKey,
		sender:  cfg.MSG91SenderID,
		baseURL: msg91DefaultBaseURL,
		client:  httpclient.New(cfg.GatewayRequestTimeout),
	}
}

type msg91Payload struct {
	Sender string      `json:"sender"`
	Route  string      `json:"route"`
	SMS    []msg91Item `json:"sms"`
}

type msg91Item struct {
	Message string   `json:"message"`
	To      []string `json:"to"`
}

func (g *MSG91Gateway) Send(ctx context.Context, msg Message) Result {
	payload := msg91Payload{
		Sender: g.sender,
		Route:  "4", // transactional
		SMS:    []msg91Item{{Message: msg.Body, To: []string{msg.To}}},
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return g.failed(msg, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/v2/sendsms", bytes.NewReader(raw))
	if err != nil {
		return g.failed(msg, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authkey", g.authKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return g.failed(msg, err)
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		body = map[string]interface{}{"decode_error": err.Error()}
	}

	// MSG91 reports errors both via HTTP status and a "type" field.
	if resp.StatusCode >= http.StatusMultipleChoices || body["type"] == "error" {
		logger.Log.WithFields(map[string]interface{}{
			"status_code": resp.StatusCode,
			"to":          msg.To,
		}).Warn("MSG91 rejected SMS")
		return Result{
			OK:       false,
			Status:   models.DeliveryFailed,
			Provider: "msg91",
			Detail:   body,
		}
	}

	return Result{
		OK:       true,
		Status:   models.DeliverySent,
		Provider: "msg91",
		Detail:   body,
	}
}

func (g *MSG91Gateway) failed(msg Message, err error) Result {
	logger.Log.WithError(err).WithField("to", msg.To).Warn("MSG91 SMS dispatch failed")
	return Result{
		OK:       false,
		Status:   models.DeliveryFailed,
		Provider: "msg91",
		Detail:   map[string]interface{}{"error": err.Error()},
	}
}

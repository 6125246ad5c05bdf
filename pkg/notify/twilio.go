package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/carepulse/platform/pkg/common/config"
	"github.com/carepulse/platform/pkg/common/logger"
	"github.com/carepulse/platform/pkg/common/models"
	"github.com/carepulse/platform/pkg/gateway/httpclient"
)

const twilioDefaultBaseURL = "https://api.twilio.com"

// TwilioGateway sends SMS through the Twilio Messages API.
type TwilioGateway struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	client     *http.Client
}

func NewTwilioGateway(cfg *config.Config) *TwilioGateway {
	return &TwilioGateway{
		accountSID: cfg.TwilioAccountSID,
		authToken:  cfg.TwilioAuthToken,
		from:       cfg.SMSFromNumber,
		baseURL:    twilioDefaultBaseURL,
		client:     httpclient.New(cfg.GatewayRequestTimeout),
	}
}

func (g *TwilioGateway) Send(ctx context.Context, msg Message) Result {
	form := url.Values{}
	form.Set("To", msg.To)
	form.Set("From", g.from)
	form.Set("Body", msg.Body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", g.baseURL, g.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return g.failed(msg, err)
	}
	req.SetBasicAuth(g.accountSID, g.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return g.failed(msg, err)
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		body = map[string]interface{}{"decode_error": err.Error()}
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		logger.Log.WithFields(map[string]interface{}{
			"status_code": resp.StatusCode,
			"to":          msg.To,
		}).Warn("Twilio rejected SMS")
		return Result{
			OK:       false,
			Status:   models.DeliveryFailed,
			Provider: "twilio",
			Detail:   body,
		}
	}

	return Result{
		OK:       true,
		Status:   models.DeliverySent,
		Provider: "twilio",
		Detail:   body,
	}
}

func (g *TwilioGateway) failed(msg Message, err error) Result {
	logger.Log.WithError(err).WithField("to", msg.To).Warn("Twilio SMS dispatch failed")
	return Result{
		OK:       false,
		Status:   models.DeliveryFailed,
		Provider: "twilio",
		Detail:   map[string]interface{}{"error": err.Error()},
	}
}

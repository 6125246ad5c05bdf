package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/carepulse/platform/pkg/common/logger"
	"github.com/carepulse/platform/pkg/gateway/httpclient"
	"github.com/gorilla/mux"
)

// ProxyHandler forwards API traffic to the backing services. The gateway owns
// authentication and rate limiting; the services stay internal.
type ProxyHandler struct {
	client          *http.Client
	adherenceURL    string
	contactURL      string
	alertURL        string
	notificationURL string
}

func NewProxyHandler(timeout time.Duration, adherenceURL, contactURL, alertURL, notificationURL string) *ProxyHandler {
	return &ProxyHandler{
		client:          httpclient.New(timeout),
		adherenceURL:    strings.TrimRight(adherenceURL, "/"),
		contactURL:      strings.TrimRight(contactURL, "/"),
		alertURL:        strings.TrimRight(alertURL, "/"),
		notificationURL: strings.TrimRight(notificationURL, "/"),
	}
}

func (h *ProxyHandler) Register(r *mux.Router) {
	r.PathPrefix("/adherence/").HandlerFunc(h.forwardTo("/adherence", func() string { return h.adherenceURL }))
	r.PathPrefix("/contacts/").HandlerFunc(h.forwardTo("/contacts", func() string { return h.contactURL }))
	r.PathPrefix("/alerting/").HandlerFunc(h.forwardTo("/alerting", func() string { return h.alertURL }))
	r.PathPrefix("/notifications/").HandlerFunc(h.forwardTo("/notifications", func() string { return h.notificationURL }))
}

func (h *ProxyHandler) forwardTo(prefix string, base func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := base() + strings.TrimPrefix(r.URL.Path, prefix)
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		h.forward(w, r, target)
	}
}

func (h *ProxyHandler) forward(w http.ResponseWriter, r *http.Request, target string) {
	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		http.Error(w, "bad upstream request", http.StatusInternalServerError)
		return
	}
	req.Header.Set("Content-Type", r.Header.Get("Content-Type"))
	if rid := r.Header.Get("X-Request-ID"); rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}

	resp, err := h.do(r.Context(), req)
	if err != nil {
		logger.Log.WithError(err).WithField("target", target).Error("upstream request failed")
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.Log.WithError(err).Warn("failed to relay upstream response")
	}
}

// do retries transient transport failures for GETs. Writes go through
// exactly once; the services own their idempotence.
func (h *ProxyHandler) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return h.client.Do(req)
	}

	var resp *http.Response
	var permanent error
	err := httpclient.Retry(ctx, 3, 200*time.Millisecond, func() error {
		var doErr error
		resp, doErr = h.client.Do(req)
		if doErr != nil && !httpclient.IsRetriable(doErr) {
			permanent = doErr
			return nil
		}
		return doErr
	})
	if err == nil && permanent != nil {
		err = permanent
	}
	return resp, err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}

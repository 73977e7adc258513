package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/churnhealth/backend/internal/models"
)

// Defaults applied to webhook payload fields absent from the upload.
const (
	DefaultEmailDomain = "telecommail.com"
	DefaultIssue       = "General dissatisfaction"
)

// WebhookDispatcher pushes one flat JSON payload per customer to an
// operator-supplied automation endpoint. Strictly one request per
// customer; only HTTP 200 counts as success.
type WebhookDispatcher struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
	Logger  zerolog.Logger
}

type webhookPayload struct {
	CustomerID  string  `json:"customer_id"`
	Email       string  `json:"email"`
	Issue       string  `json:"issue"`
	HealthScore float64 `json:"health_score"`
}

func (d *WebhookDispatcher) Mode() string { return ModeWebhook }

// WithURL returns a copy targeting a different endpoint; used when the
// operator supplies the URL per request instead of via config.
func (d *WebhookDispatcher) WithURL(url string) *WebhookDispatcher {
	out := *d
	out.URL = url
	return &out
}

func (d *WebhookDispatcher) Send(ctx context.Context, customer models.ScoredRecord, _ string) models.OutreachAttempt {
	attempt := models.OutreachAttempt{
		CustomerID:  customer.ID,
		Email:       payloadEmail(customer),
		HealthScore: customer.HealthScore,
		AttemptedAt: time.Now().UTC(),
	}

	if strings.TrimSpace(d.URL) == "" {
		attempt.Status = models.StatusFailedToSend
		attempt.Detail = "webhook URL not configured"
		return attempt
	}

	payload := webhookPayload{
		CustomerID:  customer.ID,
		Email:       attempt.Email,
		Issue:       customer.Complaint,
		HealthScore: customer.HealthScore,
	}
	if payload.Issue == "" {
		payload.Issue = DefaultIssue
	}

	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewBuffer(b))
	if err != nil {
		attempt.Status = models.StatusFailedToSend
		attempt.Detail = err.Error()
		return attempt
	}
	req.Header.Set("Content-Type", "application/json")

	client := d.Client
	if client == nil {
		timeout := d.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		d.Logger.Warn().Err(err).Str("customer_id", customer.ID).Msg("webhook request failed")
		attempt.Status = models.StatusFailedToSend
		attempt.Detail = err.Error()
		return attempt
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		attempt.Status = models.StatusFailedToSend
		attempt.Detail = fmt.Sprintf("webhook returned %s", resp.Status)
		return attempt
	}

	attempt.Status = models.StatusSent
	return attempt
}

func payloadEmail(customer models.ScoredRecord) string {
	if customer.Email != "" {
		return customer.Email
	}
	return strings.ToLower(customer.ID) + "@" + DefaultEmailDomain
}

package escalation

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/pathwatch/pathwatch/internal/logging"
	"github.com/pathwatch/pathwatch/internal/models"
)

// maxErrorBodyBytes caps how much of a failed response body is read for the
// error message.
const maxErrorBodyBytes = 512

// WebhookClient posts emergency alerts to an external collaborator endpoint.
type WebhookClient struct {
	url    string
	client *http.Client
}

// NewWebhookClient creates a client that posts alerts to the given URL.
func NewWebhookClient(url string, timeout time.Duration) *WebhookClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// SendAlert implements EmergencyClient. A 2xx response with a decodable body
// yields the collaborator's acknowledgment; any other response is an error.
func (c *WebhookClient) SendAlert(ctx context.Context, alert models.EmergencyAlert) (models.DispatchResult, error) {
	payload, err := json.Marshal(alert)
	if err != nil {
		return models.DispatchResult{}, fmt.Errorf("encode alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return models.DispatchResult{}, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return models.DispatchResult{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return models.DispatchResult{}, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result models.DispatchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// An empty-bodied 2xx still counts as an acknowledgment.
		if err == io.EOF {
			return models.DispatchResult{Success: true}, nil
		}
		return models.DispatchResult{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return result, nil
}

// LogClient is the fallback emergency collaborator used when no webhook URL
// is configured. It records the alert in the application log and always
// acknowledges.
type LogClient struct{}

// NewLogClient creates a log-only emergency client.
func NewLogClient() *LogClient {
	return &LogClient{}
}

// SendAlert implements EmergencyClient.
func (c *LogClient) SendAlert(_ context.Context, alert models.EmergencyAlert) (models.DispatchResult, error) {
	id := uuid.NewString()
	logging.Warn().
		Str("alert_id", id).
		Str("tourist_id", alert.TouristID).
		Str("type", alert.Type).
		Str("severity", string(alert.Severity)).
		Str("description", alert.Description).
		Msg("emergency alert (no webhook configured)")
	return models.DispatchResult{Success: true, AlertID: id}, nil
}

package escalation

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathwatch/pathwatch/internal/models"
)

func testAlert() models.EmergencyAlert {
	return models.EmergencyAlert{
		TouristID:   "tourist-1",
		Type:        "movement",
		Severity:    models.SeverityCritical,
		Description: "speed far above profile average",
		Timestamp:   time.Now().UTC(),
	}
}

func TestWebhookClient_SendAlert(t *testing.T) {
	var received models.EmergencyAlert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(models.DispatchResult{Success: true, AlertID: "ack-42"})
	}))
	defer srv.Close()

	client := NewWebhookClient(srv.URL, time.Second)
	res, err := client.SendAlert(context.Background(), testAlert())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "ack-42", res.AlertID)
	assert.Equal(t, "tourist-1", received.TouristID)
}

func TestWebhookClient_SendAlert_EmptyBodyIsAck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewWebhookClient(srv.URL, time.Second)
	res, err := client.SendAlert(context.Background(), testAlert())
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestWebhookClient_SendAlert_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "dispatch board offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewWebhookClient(srv.URL, time.Second)
	_, err := client.SendAlert(context.Background(), testAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestWebhookClient_SendAlert_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client disconnect and
		// cancels the request context; otherwise this handler never returns
		// and srv.Close deadlocks.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := NewWebhookClient(srv.URL, time.Second)
	_, err := client.SendAlert(ctx, testAlert())
	require.Error(t, err)
}

func TestLogClient_SendAlert(t *testing.T) {
	client := NewLogClient()
	res, err := client.SendAlert(context.Background(), testAlert())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.AlertID)
}

package stream

import (
	"context"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathwatch/pathwatch/internal/models"
)

func TestBus_AnomalyRoundTrip(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := bus.Subscribe(ctx, TopicAnomalyEvents)
	require.NoError(t, err)

	sent := models.AnomalyEvent{
		ID:          "ev-1",
		TouristID:   "tourist-1",
		Type:        models.AnomalyMovement,
		Severity:    models.SeverityCritical,
		Description: "speed anomaly",
		Confidence:  0.9,
		Timestamp:   time.Date(2026, 8, 14, 3, 0, 0, 0, time.UTC),
	}
	require.NoError(t, bus.PublishAnomaly(sent))

	select {
	case msg := <-messages:
		var got models.AnomalyEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, sent, got)
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestBus_TopicsAreIndependent(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scores, err := bus.Subscribe(ctx, TopicSafetyScores)
	require.NoError(t, err)

	require.NoError(t, bus.PublishAnomaly(models.AnomalyEvent{ID: "ev-1"}))
	require.NoError(t, bus.PublishScore(models.SafetyScore{TouristID: "tourist-1", Score: 72}))

	select {
	case msg := <-scores:
		var got models.SafetyScore
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, "tourist-1", got.TouristID)
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("no score received")
	}

	// The anomaly never crosses into the score topic.
	select {
	case msg := <-scores:
		t.Fatalf("unexpected extra message: %s", msg.Payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBus_PublishWithNoSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	// Best-effort: publishing into the void succeeds.
	require.NoError(t, bus.PublishScore(models.SafetyScore{TouristID: "tourist-1", Score: 90}))
}

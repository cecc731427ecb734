package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathwatch/pathwatch/internal/models"
)

// startHub runs the hub loop for the duration of the test.
func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// registerClient connects a pump-less client directly to the hub.
func registerClient(t *testing.T, hub *Hub) *Client {
	t.Helper()
	client := NewClient(hub, nil)
	hub.Register <- client
	require.Eventually(t, func() bool {
		return hub.ClientCount() > 0
	}, 2*time.Second, 5*time.Millisecond)
	return client
}

func receive(t *testing.T, client *Client) Message {
	t.Helper()
	select {
	case msg := <-client.send:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
		return Message{}
	}
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub := startHub(t)
	first := registerClient(t, hub)
	second := registerClient(t, hub)
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 2
	}, 2*time.Second, 5*time.Millisecond)

	hub.BroadcastJSON(MessageTypeSafetyScore, models.SafetyScore{TouristID: "tourist-1", Score: 55})

	for _, client := range []*Client{first, second} {
		msg := receive(t, client)
		assert.Equal(t, MessageTypeSafetyScore, msg.Type)
	}
}

func TestHub_UnregisterStopsDelivery(t *testing.T) {
	hub := startHub(t)
	client := registerClient(t, hub)

	hub.Unregister <- client
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, 2*time.Second, 5*time.Millisecond)

	// The hub closed the send channel on unregister.
	_, open := <-client.send
	assert.False(t, open)
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := startHub(t)
	client := registerClient(t, hub)

	// Jam the client queue so the next broadcast cannot be delivered.
	for i := 0; i < cap(client.send); i++ {
		client.send <- Message{Type: MessageTypePing}
	}
	hub.BroadcastJSON(MessageTypeAnomalyAlert, models.AnomalyEvent{ID: "ev-1"})

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()

	client := registerClient(t, hub)
	cancel()
	<-done

	_, open := <-client.send
	assert.False(t, open)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestMarshalMessage(t *testing.T) {
	data, err := MarshalMessage(Message{Type: MessageTypePong})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong","data":null}`, string(data))
}

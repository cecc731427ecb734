package websocket

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/pathwatch/pathwatch/internal/logging"
	"github.com/pathwatch/pathwatch/internal/models"
	"github.com/pathwatch/pathwatch/internal/stream"
)

// Bridge forwards anomaly events and safety score updates from the stream
// bus to websocket clients.
type Bridge struct {
	hub *Hub
	bus *stream.Bus
}

// NewBridge connects a stream bus to a hub.
func NewBridge(hub *Hub, bus *stream.Bus) *Bridge {
	return &Bridge{hub: hub, bus: bus}
}

// RunWithContext consumes both stream topics until the context is canceled.
func (b *Bridge) RunWithContext(ctx context.Context) error {
	anomalies, err := b.bus.Subscribe(ctx, stream.TopicAnomalyEvents)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", stream.TopicAnomalyEvents, err)
	}
	scores, err := b.bus.Subscribe(ctx, stream.TopicSafetyScores)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", stream.TopicSafetyScores, err)
	}
	escalations, err := b.bus.Subscribe(ctx, stream.TopicEscalationUpdates)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", stream.TopicEscalationUpdates, err)
	}

	logging.Info().Str("component", "websocket-bridge").Msg("stream bridge started")
	for {
		select {
		case <-ctx.Done():
			logging.Info().Str("component", "websocket-bridge").Msg("stream bridge stopped")
			return ctx.Err()

		case msg, ok := <-anomalies:
			if !ok {
				return nil
			}
			b.forwardAnomaly(msg)

		case msg, ok := <-scores:
			if !ok {
				return nil
			}
			b.forwardScore(msg)

		case msg, ok := <-escalations:
			if !ok {
				return nil
			}
			b.forwardEscalation(msg)
		}
	}
}

func (b *Bridge) forwardAnomaly(msg *message.Message) {
	defer msg.Ack()

	var event models.AnomalyEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping malformed anomaly event")
		return
	}
	b.hub.BroadcastJSON(MessageTypeAnomalyAlert, event)
}

func (b *Bridge) forwardScore(msg *message.Message) {
	defer msg.Ack()

	var score models.SafetyScore
	if err := json.Unmarshal(msg.Payload, &score); err != nil {
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping malformed safety score")
		return
	}
	b.hub.BroadcastJSON(MessageTypeSafetyScore, score)
}

func (b *Bridge) forwardEscalation(msg *message.Message) {
	defer msg.Ack()

	var update models.EscalationUpdate
	if err := json.Unmarshal(msg.Payload, &update); err != nil {
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping malformed escalation update")
		return
	}
	b.hub.BroadcastJSON(MessageTypeEscalationUpdate, update)
}

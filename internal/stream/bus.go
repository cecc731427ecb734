// Package stream is the in-process pub/sub fan-out for anomaly events and
// safety score updates. Consumers may be zero or many; delivery is
// best-effort with no persisted queue.
package stream

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	json "github.com/goccy/go-json"

	"github.com/pathwatch/pathwatch/internal/models"
)

// Stream topics.
const (
	TopicAnomalyEvents     = "anomaly.events"
	TopicSafetyScores      = "safety.scores"
	TopicEscalationUpdates = "escalation.updates"
)

// Bus wraps the in-memory pub/sub. Subscribers registered after a publish
// never see it; that is the intended best-effort contract.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus creates the in-memory event bus.
func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, NewLoggerAdapter()),
	}
}

// PublishAnomaly publishes an anomaly event to the anomaly topic.
func (b *Bus) PublishAnomaly(event models.AnomalyEvent) error {
	return b.publishJSON(TopicAnomalyEvents, event)
}

// PublishScore publishes a safety score update to the score topic.
func (b *Bus) PublishScore(score models.SafetyScore) error {
	return b.publishJSON(TopicSafetyScores, score)
}

// PublishEscalation publishes an escalation state transition.
func (b *Bus) PublishEscalation(update models.EscalationUpdate) error {
	return b.publishJSON(TopicEscalationUpdates, update)
}

func (b *Bus) publishJSON(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return b.pubsub.Publish(topic, message.NewMessage(watermill.NewUUID(), data))
}

// Subscribe returns a channel of messages for the topic. The subscription
// ends when the context is canceled or the bus closes.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// Close tears down the bus and all subscriptions.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

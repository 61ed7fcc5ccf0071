package service

import (
	"context"
	"encoding/json"

	"auto-replier-be/internal/pkg/logger"
	"auto-replier-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventMirror receives a copy of every published event, e.g. the NATS publisher.
type EventMirror interface {
	Publish(ctx context.Context, event events.Event) error
}

// IPublisherService puts bus events on the in-process topic and hands them to
// subscribers in publish order.
type IPublisherService interface {
	events.Publisher
	Subscribe(ctx context.Context) (<-chan events.BusEvent, error)
}

type publisherService struct {
	topicName string
	pubSub    *gochannel.GoChannel
	mirrors   []EventMirror
	logger    logger.ILogger
}

// NewPubSub builds the gochannel used for the bus topic. Publish waits until
// every subscriber acked, which keeps events of one attempt in order.
func NewPubSub() *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{BlockPublishUntilSubscriberAck: true},
		watermill.NewStdLogger(false, false),
	)
}

func NewPublisherService(topicName string, pubSub *gochannel.GoChannel, log logger.ILogger, mirrors ...EventMirror) IPublisherService {
	return &publisherService{
		topicName: topicName,
		pubSub:    pubSub,
		mirrors:   mirrors,
		logger:    log,
	}
}

func (p *publisherService) Publish(ctx context.Context, event events.BusEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("PUBLISHER", "Failed to marshal event", map[string]interface{}{"type": event.Type, "error": err.Error()})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("type", event.Type)
	if err := p.pubSub.Publish(p.topicName, msg); err != nil {
		p.logger.Warn("PUBLISHER", "Failed to publish event", map[string]interface{}{"type": event.Type, "error": err.Error()})
	}

	for _, m := range p.mirrors {
		if err := m.Publish(ctx, event); err != nil {
			p.logger.Debug("PUBLISHER", "Mirror publish failed", map[string]interface{}{"type": event.Type, "error": err.Error()})
		}
	}
}

// Subscribe delivers every event published after the call until ctx ends.
// Messages are acked as soon as they are decoded, so a slow reader of the
// returned channel holds up publishers; readers must not block.
func (p *publisherService) Subscribe(ctx context.Context) (<-chan events.BusEvent, error) {
	messages, err := p.pubSub.Subscribe(ctx, p.topicName)
	if err != nil {
		return nil, err
	}

	out := make(chan events.BusEvent, 64)
	go func() {
		defer close(out)
		for msg := range messages {
			var event events.BusEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				p.logger.Warn("PUBLISHER", "Dropping undecodable message", map[string]interface{}{"uuid": msg.UUID, "error": err.Error()})
				msg.Ack()
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				msg.Ack()
				return
			}
			msg.Ack()
		}
	}()
	return out, nil
}

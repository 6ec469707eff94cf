package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub"
)

// EventLeadCreated is the event attribute set on published lead messages.
const EventLeadCreated = "lead.created"

// Notifier is told about every stored lead.
type Notifier interface {
	Notify(ctx context.Context, lead Lead) error
}

// NopNotifier discards notifications.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, Lead) error { return nil }

// PubSubNotifier publishes each lead as JSON to a Pub/Sub topic.
type PubSubNotifier struct {
	topic *pubsub.Topic
}

// NewPubSubNotifier constructs a notifier for topic.
func NewPubSubNotifier(topic *pubsub.Topic) (*PubSubNotifier, error) {
	if topic == nil {
		return nil, errors.New("pubsub lead notifier: topic is required")
	}
	return &PubSubNotifier{topic: topic}, nil
}

// Notify publishes lead and waits for the server acknowledgement.
func (p *PubSubNotifier) Notify(ctx context.Context, lead Lead) error {
	data, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("marshal lead: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event":  EventLeadCreated,
			"leadId": strconv.FormatInt(lead.ID, 10),
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish lead: %w", err)
	}
	return nil
}

// Stop flushes pending messages.
func (p *PubSubNotifier) Stop() {
	p.topic.Stop()
}

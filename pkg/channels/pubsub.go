package channels

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// pubsubChannel implements the Channel interface for Google Cloud Pub/Sub.
type pubsubChannel struct {
	id     string
	typ    string
	client *pubsub.Client
	topic  *pubsub.Topic
	log    Logger
}

// newPubSubChannel creates a Pub/Sub channel with the given configuration.
func newPubSubChannel(ctx context.Context, cfg ChannelConfig, log Logger) (Channel, error) {
	if cfg.PubSub == nil {
		return nil, fmt.Errorf("channel %q missing pubsub configuration", cfg.ID)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	return &pubsubChannel{
		id:     cfg.ID,
		typ:    TypePubSub,
		client: client,
		topic:  client.Topic(cfg.PubSub.Topic),
		log:    ensureLogger(log),
	}, nil
}

func (p *pubsubChannel) ID() string   { return p.id }
func (p *pubsubChannel) Type() string { return p.typ }

// Publish sends the batch to the configured Pub/Sub topic.
func (p *pubsubChannel) Publish(ctx context.Context, batch Batch) error {
	return p.send(ctx, batch, map[string]string{
		"kind":     "batch",
		"category": string(batch.Category),
	})
}

func (p *pubsubChannel) Notify(ctx context.Context, text string) error {
	return p.send(ctx, newStatusEnvelope(text), map[string]string{"kind": "status"})
}

func (p *pubsubChannel) send(ctx context.Context, payload any, attrs map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       body,
		Attributes: attrs,
	})
	if _, err := result.Get(ctx); err != nil {
		p.log.ErrorObj("pubsub channel publish failed", "channel_pubsub_error", map[string]any{
			"channel_id": p.id,
			"error":      err.Error(),
		})
		return fmt.Errorf("publish to pubsub: %w", err)
	}
	return nil
}

// Close releases the Pub/Sub client resources.
func (p *pubsubChannel) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

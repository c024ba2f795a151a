package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gpadash/internal/config"
	"gpadash/internal/model"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
)

const publishTimeout = 10 * time.Second

// Publisher defines an interface for publishing messages.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) (string, error)
}

// PubSubPublisher is an implementation of Publisher using Google Pub/Sub.
type PubSubPublisher struct {
	client *pubsub.Client
}

// NewPublisher creates a new PubSubPublisher using the GCP project from config.
func NewPublisher(ctx context.Context, cfg *config.Config) (*PubSubPublisher, error) {
	if cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("GCP_PROJECT_ID is required for Pub/Sub")
	}
	client, err := pubsub.NewClient(ctx, cfg.GCPProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pub/Sub client: %w", err)
	}
	return &PubSubPublisher{client: client}, nil
}

// Publish sends the payload to the given Pub/Sub topic and returns the message ID.
func (p *PubSubPublisher) Publish(ctx context.Context, topic string, payload []byte) (string, error) {
	t := p.client.Topic(topic)
	result := t.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: map[string]string{"content_type": "application/json"},
	})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to publish message to topic %s: %w", topic, err)
	}
	return id, nil
}

func (p *PubSubPublisher) Close() error {
	return p.client.Close()
}

// GradeEventPublisher forwards course list changes to a topic. Publishing
// happens off the caller's path and failures are only logged.
type GradeEventPublisher struct {
	publisher Publisher
	topic     string
	logger    zerolog.Logger
	// async is false in tests so publishes complete before assertions.
	async bool
}

func NewGradeEventPublisher(publisher Publisher, topic string, logger zerolog.Logger) *GradeEventPublisher {
	return &GradeEventPublisher{
		publisher: publisher,
		topic:     topic,
		logger:    logger.With().Str("service", "GradeEventPublisher").Str("topic", topic).Logger(),
		async:     true,
	}
}

func (g *GradeEventPublisher) NotifyGradeChange(ctx context.Context, event model.GradeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		g.logger.Error().Err(err).Msg("Failed to marshal grade event")
		return
	}
	// The request that caused the change may finish before the publish does.
	ctx = context.WithoutCancel(ctx)
	if g.async {
		go g.publish(ctx, event, payload)
		return
	}
	g.publish(ctx, event, payload)
}

func (g *GradeEventPublisher) publish(ctx context.Context, event model.GradeEvent, payload []byte) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	id, err := g.publisher.Publish(ctx, g.topic, payload)
	if err != nil {
		g.logger.Error().Err(err).Str("user_id", event.UserID).Str("action", string(event.Action)).Msg("Failed to publish grade event")
		return
	}
	g.logger.Debug().Str("message_id", id).Str("action", string(event.Action)).Msg("Grade event published")
}

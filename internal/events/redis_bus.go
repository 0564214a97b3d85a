package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher delivers committed domain events to other subsystems.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// RedisPublisher implements Publisher using Redis Pub/Sub
type RedisPublisher struct {
	client   *redis.Client
	resolver ChannelResolver
}

func NewRedisPublisher(client *redis.Client, resolver ChannelResolver) *RedisPublisher {
	if resolver == nil {
		resolver = NewInboxChannelResolver()
	}
	return &RedisPublisher{client: client, resolver: resolver}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	if p.client == nil {
		return errors.New("redis client not configured")
	}

	channels := p.resolver.ResolveChannels(event)
	if len(channels) == 0 {
		return nil
	}

	envelope, err := NewEnvelope(event)
	if err != nil {
		return fmt.Errorf("failed to build envelope: %w", err)
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	var errs []error
	for _, channel := range channels {
		if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
			errs = append(errs, fmt.Errorf("publish to %s: %w", channel, err))
		}
	}
	return errors.Join(errs...)
}

// NopPublisher drops every event. Used when Redis is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const BookingUpdatesChannel = "booking:updates"

// RedisPublisher publishes booking events on a Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher connects to redisURL and checks the connection.
func NewRedisPublisher(ctx context.Context, redisURL string) (*RedisPublisher, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisPublisher{client: client, channel: BookingUpdatesChannel}, nil
}

func (p *RedisPublisher) PublishBookingEvent(ctx context.Context, e BookingEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", e.Type, err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

/*
Copyright (C) 2026 Segue Media

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/seguemedia/segue/internal/events"
)

// RedisPublisher forwards events over Redis pubsub channels named
// segue.events.<type>.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher connects to Redis and verifies the connection.
func NewRedisPublisher(ctx context.Context, addr, password string, db int) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &RedisPublisher{client: client}, nil
}

// PublishEvent publishes data on the channel for eventType.
func (p *RedisPublisher) PublishEvent(ctx context.Context, eventType events.EventType, data []byte) error {
	return p.client.Publish(ctx, "segue.events."+string(eventType), data).Err()
}

// Close closes the Redis client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

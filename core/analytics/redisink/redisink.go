// Package redisink persists usage records to a Redis list, one JSON
// document per record. A consumer can drain the list with RPOP/BRPOP into
// whatever warehouse the deployment uses.
package redisink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leofalp/aigw/core/analytics"
)

// Config describes the Redis connection and target list.
type Config struct {
	Address  string
	Password string
	DB       int

	// Key is the list records are pushed to. Default: "aigw:usage".
	Key string

	// MaxLen, when positive, trims the list to approximately this many
	// records after each push so an unattended instance cannot grow
	// without bound.
	MaxLen int64
}

// Sink writes usage records to a Redis list via LPUSH.
type Sink struct {
	client *redis.Client
	key    string
	maxLen int64
}

// New connects to Redis and verifies the connection with a ping.
func New(config Config) (*Sink, error) {
	if config.Address == "" {
		return nil, errors.New("redisink: address is required")
	}
	key := config.Key
	if key == "" {
		key = "aigw:usage"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redisink: ping failed: %w", err)
	}

	return &Sink{client: client, key: key, maxLen: config.MaxLen}, nil
}

// Write pushes one record as JSON. It satisfies analytics.Sink.
func (s *Sink) Write(ctx context.Context, record analytics.UsageRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("redisink: marshal record: %w", err)
	}

	if err := s.client.LPush(ctx, s.key, payload).Err(); err != nil {
		return fmt.Errorf("redisink: push record: %w", err)
	}

	if s.maxLen > 0 {
		if err := s.client.LTrim(ctx, s.key, 0, s.maxLen-1).Err(); err != nil {
			return fmt.Errorf("redisink: trim list: %w", err)
		}
	}
	return nil
}

// Close releases the Redis connection.
func (s *Sink) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

var _ analytics.Sink = (*Sink)(nil)

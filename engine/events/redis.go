package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/chatstack/intentd/engine/decision"
)

const (
	// StreamKey is the Redis Stream downstream consumers read from.
	StreamKey = "intentd:decisions"

	// streamMaxLen caps the stream approximately so an unconsumed stream
	// cannot exhaust Redis memory.
	streamMaxLen = 100_000
)

// RedisSink appends decision events to a capped Redis Stream.
type RedisSink struct {
	client redis.UniversalClient
}

func NewRedisSink(client redis.UniversalClient) (*RedisSink, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	return &RedisSink{client: client}, nil
}

func (s *RedisSink) Emit(ctx context.Context, evt *decision.Event) error {
	if evt == nil {
		return fmt.Errorf("event cannot be nil")
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode decision event: %w", err)
	}
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{
			"messageId": evt.MessageID,
			"mode":      string(evt.Decision.Mode),
			"payload":   payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append decision event: %w", err)
	}
	return nil
}

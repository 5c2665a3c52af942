package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatstack/intentd/engine/decision"
)

func sampleEvent(mode decision.Mode) *decision.Event {
	return &decision.Event{
		MessageID:      "33333333-3333-4333-8333-333333333333",
		ConversationID: "44444444-4444-4444-8444-444444444444",
		Decision: decision.Decision{
			Intent:       decision.IntentSupport,
			Confidence:   0.9,
			Destination:  decision.Destination{Type: decision.DestinationQueue, ID: "q-support"},
			ModelVersion: "rule-0.1",
			PromptID:     "baseline-0",
			Thresholds:   decision.Thresholds{Route: 0.7, Unknown: 0.5},
			LatencyMS:    5,
			RequestID:    "11111111-1111-4111-8111-111111111111",
			TraceID:      "22222222-2222-4222-8222-222222222222",
			Reason:       decision.ReasonOK,
			Mode:         mode,
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestMemorySink(t *testing.T) {
	ctx := context.Background()

	t.Run("Should record emitted events in order", func(t *testing.T) {
		sink := NewMemorySink()
		require.NoError(t, sink.Emit(ctx, sampleEvent(decision.ModeLive)))
		require.NoError(t, sink.Emit(ctx, sampleEvent(decision.ModeShadow)))
		got := sink.Events()
		require.Len(t, got, 2)
		assert.Equal(t, decision.ModeLive, got[0].Decision.Mode)
		assert.Equal(t, decision.ModeShadow, got[1].Decision.Mode)
	})

	t.Run("Should ignore nil events", func(t *testing.T) {
		sink := NewMemorySink()
		require.NoError(t, sink.Emit(ctx, nil))
		assert.Empty(t, sink.Events())
	})
}

func TestRedisSink(t *testing.T) {
	ctx := context.Background()

	t.Run("Should append the full event to the decisions stream", func(t *testing.T) {
		s := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: s.Addr()})
		sink, err := NewRedisSink(client)
		require.NoError(t, err)

		evt := sampleEvent(decision.ModeLive)
		require.NoError(t, sink.Emit(ctx, evt))

		entries, err := client.XRange(ctx, StreamKey, "-", "+").Result()
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, evt.MessageID, entries[0].Values["messageId"])
		assert.Equal(t, "live", entries[0].Values["mode"])

		var got decision.Event
		require.NoError(t, json.Unmarshal([]byte(entries[0].Values["payload"].(string)), &got))
		assert.Equal(t, evt.Decision, got.Decision)
	})

	t.Run("Should reject construction without a client", func(t *testing.T) {
		_, err := NewRedisSink(nil)
		require.Error(t, err)
	})

	t.Run("Should reject nil events", func(t *testing.T) {
		s := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: s.Addr()})
		sink, err := NewRedisSink(client)
		require.NoError(t, err)
		require.Error(t, sink.Emit(ctx, nil))
	})
}

// Package cache provides the idempotency store for classify decisions.
// A second request with the same key inside the TTL receives the exact
// previously computed decision, preserving at-most-once side effects
// across client retries.
package cache

import (
	"context"

	"github.com/chatstack/intentd/engine/decision"
)

// Key identifies a cached decision. Both parts are required: requests
// without an idempotency token are never cached.
type Key struct {
	IdempotencyKey string
	MessageID      string
}

// Valid reports whether the key can produce a cache hit.
func (k Key) Valid() bool {
	return k.IdempotencyKey != "" && k.MessageID != ""
}

func (k Key) String() string {
	return k.IdempotencyKey + ":" + k.MessageID
}

// DecisionCache is the capability interface the gateway depends on, so
// the store can be swapped (in-memory, Redis) without touching callers.
// Expired entries are treated as absent.
type DecisionCache interface {
	Get(ctx context.Context, key Key) (*decision.Decision, bool, error)
	Put(ctx context.Context, key Key, d *decision.Decision) error
}

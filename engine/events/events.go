// Package events publishes decision events. Emission is fire-and-forget
// from the gateway's perspective: failures are logged, never surfaced to
// the caller, and every evaluation (live, shadow, timeout, error) emits
// exactly one event.
package events

import (
	"context"

	"github.com/chatstack/intentd/engine/decision"
)

// Sink receives decision events. Implementations must be safe for
// concurrent use and must bound their own blocking.
type Sink interface {
	Emit(ctx context.Context, evt *decision.Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, evt *decision.Event) error

func (f SinkFunc) Emit(ctx context.Context, evt *decision.Event) error {
	return f(ctx, evt)
}

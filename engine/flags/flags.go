// Package flags holds the traffic-split flag: the percentage of live
// traffic routed through the new classification path. The flag is read by
// the message-routing collaborator on every inbound message and written
// only by the canary controller or an authorized admin override.
package flags

import (
	"context"
	"fmt"
)

// Store is the injected flag abstraction. Implementations must be safe
// for concurrent use; CompareAndSwap exists so two writers cannot
// silently clobber each other.
type Store interface {
	Get(ctx context.Context) (int, error)
	Set(ctx context.Context, percent int) error
	CompareAndSwap(ctx context.Context, old, new int) (bool, error)
}

// ValidatePercent rejects values outside [0,100].
func ValidatePercent(percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("canary percent must be in [0,100], got %d", percent)
	}
	return nil
}

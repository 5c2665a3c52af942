package events

import (
	"context"
	"sync"

	"github.com/chatstack/intentd/engine/decision"
)

// MemorySink records events in memory. Used when Redis is not configured
// and as a capture point in tests.
type MemorySink struct {
	mu     sync.Mutex
	events []decision.Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Emit(_ context.Context, evt *decision.Event) error {
	if evt == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *evt)
	return nil
}

// Events returns a snapshot of everything emitted so far.
func (s *MemorySink) Events() []decision.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]decision.Event, len(s.events))
	copy(out, s.events)
	return out
}

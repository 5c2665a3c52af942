package gateway

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces request/trace ids when the caller omits them.
type IDGenerator interface {
	NewID() string
}

type uuidGenerator struct{}

func (uuidGenerator) NewID() string {
	return uuid.NewString()
}

// deterministicGenerator yields a stable sequence so test assertions can
// predict generated ids. Selected once at startup via Runtime config.
type deterministicGenerator struct {
	counter atomic.Uint64
}

func (g *deterministicGenerator) NewID() string {
	n := g.counter.Add(1)
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
}

func newIDGenerator(deterministic bool) IDGenerator {
	if deterministic {
		return &deterministicGenerator{}
	}
	return uuidGenerator{}
}

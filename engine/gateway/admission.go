package gateway

import (
	"sync/atomic"
)

// admission is the bounded in-flight gate on the hot path. TryAcquire
// never blocks: at or above the ceiling the request is rejected
// immediately so overload turns into fast 429s instead of queueing.
type admission struct {
	ceiling  int64
	inFlight atomic.Int64
}

func newAdmission(ceiling int) *admission {
	return &admission{ceiling: int64(ceiling)}
}

// TryAcquire reserves an in-flight slot. Callers that receive true must
// call Release exactly once, on every exit path.
func (a *admission) TryAcquire() bool {
	if a.inFlight.Add(1) > a.ceiling {
		a.inFlight.Add(-1)
		return false
	}
	return true
}

func (a *admission) Release() {
	a.inFlight.Add(-1)
}

// InFlight reports the current occupancy.
func (a *admission) InFlight() int64 {
	return a.inFlight.Load()
}

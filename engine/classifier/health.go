package classifier

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

//go:embed testset.json
var testsetJSON []byte

// Testset returns the embedded labeled smoke-test dataset.
func Testset() ([]LabeledItem, error) {
	var items []LabeledItem
	if err := json.Unmarshal(testsetJSON, &items); err != nil {
		return nil, fmt.Errorf("failed to decode embedded testset: %w", err)
	}
	return items, nil
}

// HealthStatus is the cached outcome of one smoke-test run.
type HealthStatus struct {
	OK        bool      `json:"ok"`
	Tested    int       `json:"tested"`
	Passed    int       `json:"passed"`
	Accuracy  float64   `json:"accuracy"`
	CheckedAt time.Time `json:"checkedAt"`
}

// HealthChecker runs the engine against the labeled dataset at a bounded
// refresh interval and caches the result. A sustained accuracy drop below
// the bar flips the status to failing; deployment health checks key off it.
type HealthChecker struct {
	engine      Engine
	items       []LabeledItem
	refresh     time.Duration
	accuracyBar float64

	mu     sync.Mutex
	cached HealthStatus
	now    func() time.Time
}

func NewHealthChecker(engine Engine, items []LabeledItem, refresh time.Duration, accuracyBar float64) *HealthChecker {
	return &HealthChecker{
		engine:      engine,
		items:       items,
		refresh:     refresh,
		accuracyBar: accuracyBar,
		now:         time.Now,
	}
}

// Check returns the current health status, re-running the smoke test only
// when the cached result is older than the refresh interval.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now()
	if !h.cached.CheckedAt.IsZero() && now.Sub(h.cached.CheckedAt) < h.refresh {
		return h.cached
	}

	tested, passed := 0, 0
	for _, item := range h.items {
		tested++
		pred, err := h.engine.Classify(ctx, item.Text)
		if err == nil && pred.Intent == item.Intent {
			passed++
		}
	}
	accuracy := 0.0
	if tested > 0 {
		accuracy = float64(passed) / float64(tested)
	}
	h.cached = HealthStatus{
		OK:        tested > 0 && accuracy >= h.accuracyBar,
		Tested:    tested,
		Passed:    passed,
		Accuracy:  accuracy,
		CheckedAt: now,
	}
	return h.cached
}

package canary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testSLO() SLO {
	return SLO{MaxErrorRate: 0.02, MaxP95MS: 1500}
}

func goodSample(at time.Time) Sample {
	return Sample{At: at, ErrorRate: 0.001, P95MS: 120}
}

func badSample(at time.Time) Sample {
	return Sample{At: at, ErrorRate: 0.25, P95MS: 90}
}

func TestSampleBreaches(t *testing.T) {
	t.Run("Should breach on error rate alone", func(t *testing.T) {
		s := Sample{ErrorRate: 0.03, P95MS: 100}
		assert.True(t, s.Breaches(testSLO()))
	})

	t.Run("Should breach on latency alone", func(t *testing.T) {
		s := Sample{ErrorRate: 0.001, P95MS: 2000}
		assert.True(t, s.Breaches(testSLO()))
	})

	t.Run("Should not breach exactly at the thresholds", func(t *testing.T) {
		s := Sample{ErrorRate: 0.02, P95MS: 1500}
		assert.False(t, s.Breaches(testSLO()))
	})
}

func TestWindowViolation(t *testing.T) {
	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Should trigger when the last N samples all breach", func(t *testing.T) {
		w := &Window{}
		w.Append(goodSample(base))
		for i := 1; i <= 5; i++ {
			w.Append(badSample(base.Add(time.Duration(i) * time.Minute)))
		}
		assert.True(t, w.Violation(testSLO(), 5))
	})

	t.Run("Should not trigger when one of the last N recovers", func(t *testing.T) {
		w := &Window{}
		for i := 0; i < 4; i++ {
			w.Append(badSample(base.Add(time.Duration(i) * time.Minute)))
		}
		w.Append(goodSample(base.Add(4 * time.Minute)))
		w.Append(badSample(base.Add(5 * time.Minute)))
		assert.False(t, w.Violation(testSLO(), 5))
	})

	t.Run("Should defer with insufficient history", func(t *testing.T) {
		w := &Window{}
		for i := 0; i < 4; i++ {
			w.Append(badSample(base.Add(time.Duration(i) * time.Minute)))
		}
		assert.False(t, w.Violation(testSLO(), 5))
	})
}

func TestWindowStable(t *testing.T) {
	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Should report stable after N consecutive good samples", func(t *testing.T) {
		w := &Window{}
		w.Append(badSample(base))
		for i := 1; i <= 30; i++ {
			w.Append(goodSample(base.Add(time.Duration(i) * time.Minute)))
		}
		assert.True(t, w.Stable(testSLO(), 30))
	})

	t.Run("Should defer with insufficient history", func(t *testing.T) {
		w := &Window{}
		for i := 0; i < 29; i++ {
			w.Append(goodSample(base.Add(time.Duration(i) * time.Minute)))
		}
		assert.False(t, w.Stable(testSLO(), 30))
	})

	t.Run("Should not report stable with a recent breach", func(t *testing.T) {
		w := &Window{}
		for i := 0; i < 29; i++ {
			w.Append(goodSample(base.Add(time.Duration(i) * time.Minute)))
		}
		w.Append(badSample(base.Add(29 * time.Minute)))
		assert.False(t, w.Stable(testSLO(), 30))
	})
}

func TestWindowPrune(t *testing.T) {
	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Should drop samples older than the cutoff", func(t *testing.T) {
		w := &Window{}
		for i := 0; i < 10; i++ {
			w.Append(goodSample(base.Add(time.Duration(i) * time.Minute)))
		}
		w.Prune(base.Add(5 * time.Minute))
		assert.Equal(t, 5, w.Len())
		assert.Equal(t, base.Add(5*time.Minute), w.samples[0].At)
	})

	t.Run("Should keep everything within retention", func(t *testing.T) {
		w := &Window{}
		for i := 0; i < 3; i++ {
			w.Append(goodSample(base.Add(time.Duration(i) * time.Minute)))
		}
		w.Prune(base.Add(-time.Hour))
		assert.Equal(t, 3, w.Len())
	})
}

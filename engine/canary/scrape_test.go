package canary

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scrapeBodyFirst = `# TYPE intentd_http_requests_total counter
intentd_http_requests_total{method="POST",path="/classify",status="200"} 100
intentd_http_requests_total{method="POST",path="/classify",status="500"} 0
# TYPE intentd_http_request_duration_seconds histogram
intentd_http_request_duration_seconds_bucket{le="0.1"} 100
intentd_http_request_duration_seconds_bucket{le="0.25"} 100
intentd_http_request_duration_seconds_bucket{le="0.5"} 100
intentd_http_request_duration_seconds_bucket{le="+Inf"} 100
intentd_http_request_duration_seconds_sum 5
intentd_http_request_duration_seconds_count 100
`

const scrapeBodySecond = `# TYPE intentd_http_requests_total counter
intentd_http_requests_total{method="POST",path="/classify",status="200"} 190
intentd_http_requests_total{method="POST",path="/classify",status="500"} 10
# TYPE intentd_http_request_duration_seconds histogram
intentd_http_request_duration_seconds_bucket{le="0.1"} 150
intentd_http_request_duration_seconds_bucket{le="0.25"} 190
intentd_http_request_duration_seconds_bucket{le="0.5"} 200
intentd_http_request_duration_seconds_bucket{le="+Inf"} 200
intentd_http_request_duration_seconds_sum 25
intentd_http_request_duration_seconds_count 200
`

func TestScrapeSource(t *testing.T) {
	t.Run("Should derive windowed rates from consecutive scrapes", func(t *testing.T) {
		bodies := []string{scrapeBodyFirst, scrapeBodySecond}
		scrapes := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain; version=0.0.4")
			_, _ = w.Write([]byte(bodies[scrapes]))
			scrapes++
		}))
		defer srv.Close()

		src := NewScrapeSource(resty.New(), srv.URL)

		_, ok, err := src.Sample(context.Background())
		require.NoError(t, err)
		assert.False(t, ok, "first scrape only establishes the baseline")

		sample, ok, err := src.Sample(context.Background())
		require.NoError(t, err)
		require.True(t, ok)

		// 10 failures out of 100 new requests.
		assert.InDelta(t, 0.10, sample.ErrorRate, 1e-9)
		// Rank 95 of 100 lands in the (0.25, 0.5] bucket holding deltas
		// 90..100, interpolated halfway through.
		assert.InDelta(t, 375.0, sample.P95MS, 1e-6)
	})

	t.Run("Should restart the baseline after a counter reset", func(t *testing.T) {
		bodies := []string{scrapeBodySecond, scrapeBodyFirst}
		scrapes := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(bodies[scrapes]))
			scrapes++
		}))
		defer srv.Close()

		src := NewScrapeSource(resty.New(), srv.URL)
		_, _, err := src.Sample(context.Background())
		require.NoError(t, err)
		_, ok, err := src.Sample(context.Background())
		require.NoError(t, err)
		assert.False(t, ok, "a reset counter must not produce a sample")
	})

	t.Run("Should surface unreachable endpoints as errors", func(t *testing.T) {
		src := NewScrapeSource(resty.New(), "http://127.0.0.1:1/metrics")
		_, ok, err := src.Sample(context.Background())
		assert.Error(t, err)
		assert.False(t, ok)
	})
}

func TestEstimateP95(t *testing.T) {
	mkSnap := func(count float64, buckets ...bucket) *counterSnapshot {
		return &counterSnapshot{count: count, buckets: buckets}
	}

	t.Run("Should interpolate inside the containing bucket", func(t *testing.T) {
		prev := mkSnap(0,
			bucket{upper: 0.1, count: 0},
			bucket{upper: 0.5, count: 0},
			bucket{upper: math.Inf(1), count: 0},
		)
		cur := mkSnap(100,
			bucket{upper: 0.1, count: 90},
			bucket{upper: 0.5, count: 100},
			bucket{upper: math.Inf(1), count: 100},
		)
		// Rank 95 sits halfway through the (0.1, 0.5] bucket.
		assert.InDelta(t, 0.3, estimateP95(prev, cur), 1e-9)
	})

	t.Run("Should report the highest finite bound for the overflow bucket", func(t *testing.T) {
		prev := mkSnap(0,
			bucket{upper: 0.1, count: 0},
			bucket{upper: math.Inf(1), count: 0},
		)
		cur := mkSnap(100,
			bucket{upper: 0.1, count: 50},
			bucket{upper: math.Inf(1), count: 100},
		)
		assert.InDelta(t, 0.1, estimateP95(prev, cur), 1e-9)
	})

	t.Run("Should return zero without new observations", func(t *testing.T) {
		snap := mkSnap(100, bucket{upper: 0.1, count: 100})
		assert.Zero(t, estimateP95(snap, snap))
	})
}

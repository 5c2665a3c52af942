package canary

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"
)

const (
	requestsMetric = "intentd_http_requests_total"
	latencyMetric  = "intentd_http_request_duration_seconds"

	scrapeTimeout = 10 * time.Second
)

// MetricsSource produces one health sample per tick. The boolean is
// false when the source has no observation yet, e.g. before a scrape
// baseline exists.
type MetricsSource interface {
	Sample(ctx context.Context) (Sample, bool, error)
}

// ScrapeSource reads a service's Prometheus exposition endpoint
// directly and derives windowed rates from counter deltas between
// consecutive scrapes. Error rate comes from status-labeled request
// counters; P95 latency is interpolated from histogram bucket deltas.
type ScrapeSource struct {
	client *resty.Client
	url    string
	now    func() time.Time
	prev   *counterSnapshot
}

type bucket struct {
	upper float64
	count float64
}

type counterSnapshot struct {
	requests float64
	failures float64
	buckets  []bucket
	count    float64
}

func newScrapeClient() *resty.Client {
	return resty.New().SetTimeout(scrapeTimeout)
}

func NewScrapeSource(client *resty.Client, metricsURL string) *ScrapeSource {
	return &ScrapeSource{
		client: client,
		url:    metricsURL,
		now:    time.Now,
	}
}

func (s *ScrapeSource) Sample(ctx context.Context) (Sample, bool, error) {
	sctx, cancel := context.WithTimeout(ctx, scrapeTimeout)
	defer cancel()

	resp, err := s.client.R().SetContext(sctx).Get(s.url)
	if err != nil {
		return Sample{}, false, fmt.Errorf("failed to scrape %s: %w", s.url, err)
	}
	if resp.IsError() {
		return Sample{}, false, fmt.Errorf("scrape %s returned status %d", s.url, resp.StatusCode())
	}

	cur, err := parseSnapshot(string(resp.Body()))
	if err != nil {
		return Sample{}, false, fmt.Errorf("failed to parse metrics from %s: %w", s.url, err)
	}

	prev := s.prev
	s.prev = cur
	if prev == nil || cur.requests < prev.requests {
		// No baseline, or the counter was reset. Start over.
		return Sample{}, false, nil
	}

	deltaRequests := cur.requests - prev.requests
	sample := Sample{At: s.now()}
	if deltaRequests > 0 {
		sample.ErrorRate = (cur.failures - prev.failures) / deltaRequests
	}
	sample.P95MS = estimateP95(prev, cur) * 1000
	return sample, true, nil
}

func parseSnapshot(body string) (*counterSnapshot, error) {
	parser := expfmt.NewTextParser(model.UTF8Validation)
	families, err := parser.TextToMetricFamilies(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	snap := &counterSnapshot{}
	if fam, ok := families[requestsMetric]; ok {
		for _, m := range fam.GetMetric() {
			value := counterValue(m)
			snap.requests += value
			if isFailureStatus(m) {
				snap.failures += value
			}
		}
	}
	if fam, ok := families[latencyMetric]; ok {
		totals := map[float64]float64{}
		for _, m := range fam.GetMetric() {
			hist := m.GetHistogram()
			if hist == nil {
				continue
			}
			snap.count += float64(hist.GetSampleCount())
			for _, b := range hist.GetBucket() {
				totals[b.GetUpperBound()] += float64(b.GetCumulativeCount())
			}
		}
		for upper, count := range totals {
			snap.buckets = append(snap.buckets, bucket{upper: upper, count: count})
		}
		sort.Slice(snap.buckets, func(i, j int) bool {
			return snap.buckets[i].upper < snap.buckets[j].upper
		})
	}
	return snap, nil
}

func counterValue(m *dto.Metric) float64 {
	if c := m.GetCounter(); c != nil {
		return c.GetValue()
	}
	return m.GetUntyped().GetValue()
}

func isFailureStatus(m *dto.Metric) bool {
	for _, label := range m.GetLabel() {
		if label.GetName() != "status" {
			continue
		}
		code, err := strconv.Atoi(label.GetValue())
		return err == nil && code >= 500
	}
	return false
}

// estimateP95 interpolates the 95th percentile, in seconds, from the
// histogram bucket deltas between two snapshots. The +Inf bucket cannot
// be interpolated; percentiles landing there report the highest finite
// bound.
func estimateP95(prev, cur *counterSnapshot) float64 {
	total := cur.count - prev.count
	if total <= 0 || len(cur.buckets) == 0 {
		return 0
	}
	rank := 0.95 * total

	prevCounts := map[float64]float64{}
	for _, b := range prev.buckets {
		prevCounts[b.upper] = b.count
	}

	lower := 0.0
	cumBefore := 0.0
	for _, b := range cur.buckets {
		cum := b.count - prevCounts[b.upper]
		if cum >= rank {
			if math.IsInf(b.upper, 1) {
				return lower
			}
			width := b.upper - lower
			inBucket := cum - cumBefore
			if inBucket <= 0 {
				return b.upper
			}
			return lower + width*(rank-cumBefore)/inBucket
		}
		if !math.IsInf(b.upper, 1) {
			lower = b.upper
		}
		cumBefore = cum
	}
	return lower
}

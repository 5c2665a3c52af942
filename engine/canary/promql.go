package canary

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const queryTimeout = 10 * time.Second

// PromQLSource samples a service through a Prometheus server instead of
// scraping it directly. Useful when the controller cannot reach the
// service's own metrics endpoint.
type PromQLSource struct {
	client  *resty.Client
	baseURL string
	job     string
	now     func() time.Time
}

func NewPromQLSource(client *resty.Client, baseURL, job string) *PromQLSource {
	return &PromQLSource{
		client:  client,
		baseURL: baseURL,
		job:     job,
		now:     time.Now,
	}
}

type promQLResponse struct {
	Status string `json:"status"`
	Data   struct {
		Result []struct {
			Value [2]any `json:"value"`
		} `json:"result"`
	} `json:"data"`
}

func (s *PromQLSource) Sample(ctx context.Context) (Sample, bool, error) {
	errExpr := fmt.Sprintf(
		`sum(rate(%s{job=%q,status=~"5.."}[5m])) / sum(rate(%s{job=%q}[5m]))`,
		requestsMetric, s.job, requestsMetric, s.job,
	)
	p95Expr := fmt.Sprintf(
		`histogram_quantile(0.95, sum by (le) (rate(%s_bucket{job=%q}[5m]))) * 1000`,
		latencyMetric, s.job,
	)

	errRate, okErr, err := s.queryScalar(ctx, errExpr)
	if err != nil {
		return Sample{}, false, err
	}
	p95, okP95, err := s.queryScalar(ctx, p95Expr)
	if err != nil {
		return Sample{}, false, err
	}
	if !okErr && !okP95 {
		return Sample{}, false, nil
	}
	return Sample{At: s.now(), ErrorRate: errRate, P95MS: p95}, true, nil
}

// queryScalar runs an instant query and returns the first vector value.
// An empty result or NaN (no traffic in the range) reads as zero with
// ok=false.
func (s *PromQLSource) queryScalar(ctx context.Context, expr string) (float64, bool, error) {
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var out promQLResponse
	resp, err := s.client.R().
		SetContext(qctx).
		SetQueryParam("query", expr).
		SetResult(&out).
		Get(s.baseURL + "/api/v1/query")
	if err != nil {
		return 0, false, fmt.Errorf("prometheus query failed: %w", err)
	}
	if resp.IsError() || out.Status != "success" {
		return 0, false, fmt.Errorf("prometheus query returned status %d", resp.StatusCode())
	}
	if len(out.Data.Result) == 0 {
		return 0, false, nil
	}
	raw, ok := out.Data.Result[0].Value[1].(string)
	if !ok {
		return 0, false, fmt.Errorf("unexpected prometheus value type %T", out.Data.Result[0].Value[1])
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse prometheus value %q: %w", raw, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false, nil
	}
	return value, true, nil
}

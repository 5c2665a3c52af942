package canary

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// FlagAPI is the controller's view of the traffic-split flag.
type FlagAPI interface {
	Get(ctx context.Context) (int, error)
	Set(ctx context.Context, percent int) error
}

// FlagClient drives the flag through the gateway's authorized admin
// surface rather than touching the backing store directly, so every
// write goes through the same validation and audit logging as a manual
// operator change.
type FlagClient struct {
	client *resty.Client
}

func NewFlagClient(baseURL, token string) *FlagClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(token).
		SetTimeout(10 * time.Second)
	return &FlagClient{client: client}
}

type flagResponse struct {
	CanaryPercent int `json:"canaryPercent"`
}

func (c *FlagClient) Get(ctx context.Context) (int, error) {
	var out flagResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/admin/flags/canary")
	if err != nil {
		return 0, fmt.Errorf("failed to read canary flag: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("canary flag read returned status %d", resp.StatusCode())
	}
	return out.CanaryPercent, nil
}

func (c *FlagClient) Set(ctx context.Context, percent int) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]int{"percent": percent}).
		Put("/admin/flags/canary")
	if err != nil {
		return fmt.Errorf("failed to write canary flag: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("canary flag write returned status %d", resp.StatusCode())
	}
	return nil
}

package canary

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/chatstack/intentd/pkg/config"
	"github.com/chatstack/intentd/pkg/logger"
)

const sideEffectTimeout = 15 * time.Second

// Controller is the rollout loop. Each tick it prunes expired history,
// samples every monitored service and acts on the result:
//
//   - any service sustaining an SLO breach rolls the flag back to zero,
//     triggers the rollback workflow and ends the run
//   - all services sustaining good health ramps the flag one stage
//   - reaching the final stage ends the run
//
// Side effects are best-effort: their failures are logged and retried
// but never crash the loop.
type Controller struct {
	cfg      config.CanaryConfig
	sources  map[string]MetricsSource
	windows  map[string]*Window
	flags    FlagAPI
	notifier Notifier
	now      func() time.Time
}

// Params collects the controller's injected collaborators. Sources may
// be nil, in which case they are built from the configured service
// targets.
type Params struct {
	Config   *config.Config
	Flags    FlagAPI
	Notifier Notifier
	Sources  map[string]MetricsSource
}

func New(p Params) (*Controller, error) {
	if p.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if p.Flags == nil {
		return nil, fmt.Errorf("flag client is required")
	}
	cfg := p.Config.Canary
	sources := p.Sources
	if sources == nil {
		var err error
		sources, err = buildSources(cfg)
		if err != nil {
			return nil, err
		}
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one monitored service is required")
	}
	notifier := p.Notifier
	if notifier == nil {
		notifier = NewNotifier(cfg.GitHub)
	}
	windows := make(map[string]*Window, len(sources))
	for name := range sources {
		windows[name] = &Window{}
	}
	return &Controller{
		cfg:      cfg,
		sources:  sources,
		windows:  windows,
		flags:    p.Flags,
		notifier: notifier,
		now:      time.Now,
	}, nil
}

func buildSources(cfg config.CanaryConfig) (map[string]MetricsSource, error) {
	sources := make(map[string]MetricsSource, len(cfg.Services))
	for _, svc := range cfg.Services {
		switch {
		case svc.MetricsURL != "":
			sources[svc.Name] = NewScrapeSource(newScrapeClient(), svc.MetricsURL)
		case cfg.PrometheusURL != "":
			sources[svc.Name] = NewPromQLSource(newScrapeClient(), cfg.PrometheusURL, svc.Name)
		default:
			return nil, fmt.Errorf("service %s has no metrics url and no prometheus url is configured", svc.Name)
		}
	}
	return sources, nil
}

// Run ticks until the context is canceled or the rollout reaches a
// terminal state.
func (c *Controller) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	log.Info("canary controller started",
		"tick", c.cfg.TickInterval,
		"services", len(c.sources),
		"stages", c.cfg.Stages,
	)
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("canary controller stopped")
			return nil
		case <-ticker.C:
			if done := c.Tick(ctx); done {
				log.Info("canary run finished")
				return nil
			}
		}
	}
}

// Tick performs one monitoring cycle and reports whether the run is
// over.
func (c *Controller) Tick(ctx context.Context) bool {
	log := logger.FromContext(ctx)
	cutoff := c.now().Add(-c.cfg.Retention)
	slo := SLO{MaxErrorRate: c.cfg.SLOErrorRate, MaxP95MS: c.cfg.SLOP95LatencyMS}

	for _, name := range c.serviceNames() {
		c.windows[name].Prune(cutoff)
		sample, ok, err := c.sources[name].Sample(ctx)
		if err != nil {
			log.Warn("failed to sample service", "service", name, "error", err)
			continue
		}
		if ok {
			c.windows[name].Append(sample)
		}
	}

	for _, name := range c.serviceNames() {
		if c.windows[name].Violation(slo, c.cfg.ViolationWindow) {
			c.rollback(ctx, name)
			return true
		}
	}

	for _, name := range c.serviceNames() {
		if !c.windows[name].Stable(slo, c.cfg.StabilityWindow) {
			return false
		}
	}
	return c.ramp(ctx)
}

func (c *Controller) serviceNames() []string {
	names := make([]string, 0, len(c.sources))
	for name := range c.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// rollback is terminal: the flag goes back to zero and the run ends
// even if some side effects fail.
func (c *Controller) rollback(ctx context.Context, service string) {
	log := logger.FromContext(ctx)
	last := c.windows[service].samples[c.windows[service].Len()-1]
	reason := fmt.Sprintf(
		"%s breached its SLO for %d consecutive samples (errorRate=%.4f, p95=%.0fms)",
		service, c.cfg.ViolationWindow, last.ErrorRate, last.P95MS,
	)
	log.Error("canary violation, rolling back", "service", service, "reason", reason)

	c.bestEffort(ctx, "reset canary flag", func(ctx context.Context) error {
		return c.flags.Set(ctx, 0)
	})
	c.bestEffort(ctx, "dispatch rollback workflow", func(ctx context.Context) error {
		return c.notifier.DispatchRollback(ctx, reason)
	})
	c.bestEffort(ctx, "comment on release PR", func(ctx context.Context) error {
		return c.notifier.CommentOnReleasePR(ctx,
			fmt.Sprintf("🚨 Canary rolled back to 0%%: %s", reason))
	})
}

// ramp advances the flag one stage and reports whether the final stage
// was reached. A failed read or write is retried on the next tick.
func (c *Controller) ramp(ctx context.Context) bool {
	log := logger.FromContext(ctx)
	current, err := c.flags.Get(ctx)
	if err != nil {
		log.Warn("failed to read canary flag, deferring ramp", "error", err)
		return false
	}
	final := c.cfg.Stages[len(c.cfg.Stages)-1]
	if current >= final {
		return true
	}
	next := nextStage(c.cfg.Stages, current)
	if err := c.flags.Set(ctx, next); err != nil {
		log.Warn("failed to ramp canary flag, deferring", "next", next, "error", err)
		return false
	}
	log.Info("canary ramped", "from", current, "to", next)
	c.bestEffort(ctx, "comment on release PR", func(ctx context.Context) error {
		return c.notifier.CommentOnReleasePR(ctx,
			fmt.Sprintf("✅ Canary stable, ramped traffic from %d%% to %d%%", current, next))
	})
	return next >= final
}

func nextStage(stages []int, current int) int {
	for _, stage := range stages {
		if stage > current {
			return stage
		}
	}
	return stages[len(stages)-1]
}

// bestEffort runs a side effect under its own timeout with bounded
// retries. Exhausted retries are logged, never propagated.
func (c *Controller) bestEffort(ctx context.Context, action string, fn func(context.Context) error) {
	opCtx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()
	backoff := retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(opCtx, backoff, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).Error("canary side effect failed", "action", action, "error", err)
	}
}

// Package gateway is the request-handling service in front of the
// classification engine: admission control, validation, idempotent
// replay, timeout enforcement, threshold policy, shadow dispatch,
// decision-event emission and metrics.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/chatstack/intentd/engine/cache"
	"github.com/chatstack/intentd/engine/classifier"
	"github.com/chatstack/intentd/engine/decision"
	"github.com/chatstack/intentd/engine/events"
	"github.com/chatstack/intentd/engine/flags"
	"github.com/chatstack/intentd/engine/policy"
	"github.com/chatstack/intentd/pkg/config"
	"github.com/chatstack/intentd/pkg/logger"
)

const (
	// HeaderIdempotencyKey is the caller-supplied token that, together
	// with the message id, keys the decision cache.
	HeaderIdempotencyKey = "X-Idempotency-Key"

	// emitTimeout bounds fire-and-forget event emission.
	emitTimeout = 2 * time.Second

	fallbackVersionTag = "n/a"
)

// Params collects the gateway's injected collaborators.
type Params struct {
	Config *config.Config
	Engine classifier.Engine
	// ShadowEngine evaluates the shadow path; defaults to Engine.
	ShadowEngine classifier.Engine
	Cache        cache.DecisionCache
	Sink         events.Sink
	Flags        flags.Store
	Meter        metric.Meter
}

type Gateway struct {
	cfg          *config.Config
	engine       classifier.Engine
	shadowEngine classifier.Engine
	cache        cache.DecisionCache
	sink         events.Sink
	flags        flags.Store
	health       *classifier.HealthChecker
	metrics      *classifyMetrics
	gate         *admission
	ids          IDGenerator
}

func New(_ context.Context, p Params) (*Gateway, error) {
	if p.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if p.Engine == nil {
		return nil, fmt.Errorf("classification engine is required")
	}
	if p.Cache == nil {
		return nil, fmt.Errorf("decision cache is required")
	}
	if p.Sink == nil {
		return nil, fmt.Errorf("event sink is required")
	}
	if p.Flags == nil {
		return nil, fmt.Errorf("flag store is required")
	}
	if p.Meter == nil {
		return nil, fmt.Errorf("meter is required")
	}
	metrics, err := newClassifyMetrics(p.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create classify metrics: %w", err)
	}
	testset, err := classifier.Testset()
	if err != nil {
		return nil, err
	}
	shadowEngine := p.ShadowEngine
	if shadowEngine == nil {
		shadowEngine = p.Engine
	}
	return &Gateway{
		cfg:          p.Config,
		engine:       p.Engine,
		shadowEngine: shadowEngine,
		cache:        p.Cache,
		sink:         p.Sink,
		flags:        p.Flags,
		health: classifier.NewHealthChecker(
			p.Engine,
			testset,
			p.Config.Gateway.HealthRefresh,
			p.Config.Gateway.HealthAccuracyBar,
		),
		metrics: metrics,
		gate:    newAdmission(p.Config.Gateway.MaxInFlight),
		ids:     newIDGenerator(p.Config.Runtime.DeterministicIDs),
	}, nil
}

// deadlineFor resolves the classifier deadline: the client hint can only
// tighten the configured default.
func (g *Gateway) deadlineFor(req *decision.ClassifyRequest) time.Duration {
	deadline := g.cfg.Classifier.Timeout
	if req.DeadlineMS > 0 {
		if hint := time.Duration(req.DeadlineMS) * time.Millisecond; hint < deadline {
			deadline = hint
		}
	}
	return deadline
}

// retryHint produces the overload retry-after hint in milliseconds:
// fixed when configured (test mode), otherwise jittered so a rejected
// burst does not come back in lockstep.
func (g *Gateway) retryHint() int {
	if g.cfg.Runtime.RetryHintMS > 0 {
		return g.cfg.Runtime.RetryHintMS
	}
	return 500 + rand.IntN(1500)
}

// invoke runs an engine under its own deadline. The select guards
// against engines that ignore cancellation: the call is abandoned at the
// deadline even if the goroutine is still running.
func invoke(ctx context.Context, engine classifier.Engine, text string, deadline time.Duration) (classifier.Result, error) {
	cctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	type outcome struct {
		res classifier.Result
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("classifier panic: %v", r)}
			}
		}()
		res, err := engine.Classify(cctx, text)
		ch <- outcome{res: res, err: err}
	}()
	select {
	case <-cctx.Done():
		return classifier.Result{}, cctx.Err()
	case out := <-ch:
		if out.err != nil {
			return classifier.Result{}, out.err
		}
		return out.res, nil
	}
}

// decide turns a raw engine result into a full decision via the
// threshold policy.
func (g *Gateway) decide(req *decision.ClassifyRequest, res classifier.Result, mode decision.Mode, elapsed time.Duration) *decision.Decision {
	tUnknown := g.cfg.Classifier.ThresholdUnknown
	tRoute := g.cfg.Classifier.ThresholdRoute
	effective, reason := policy.Decide(res.Intent, res.Confidence, tUnknown, tRoute)
	return &decision.Decision{
		Intent:       effective,
		Confidence:   res.Confidence,
		Destination:  policy.DestinationFor(effective),
		ModelVersion: res.ModelVersion,
		PromptID:     res.PromptID,
		Thresholds:   decision.Thresholds{Route: tRoute, Unknown: tUnknown},
		LatencyMS:    elapsed.Milliseconds(),
		RequestID:    req.RequestID,
		TraceID:      req.TraceID,
		Reason:       reason,
		Mode:         mode,
	}
}

// fallbackDecision is the safe triage decision every failure path still
// produces: the system never silently drops a message.
func (g *Gateway) fallbackDecision(req *decision.ClassifyRequest, reason decision.Reason, mode decision.Mode, elapsed time.Duration) *decision.Decision {
	return &decision.Decision{
		Intent:       decision.IntentUnknown,
		Confidence:   0,
		Destination:  decision.Destination{Type: decision.DestinationTriage},
		ModelVersion: fallbackVersionTag,
		PromptID:     fallbackVersionTag,
		Thresholds: decision.Thresholds{
			Route:   g.cfg.Classifier.ThresholdRoute,
			Unknown: g.cfg.Classifier.ThresholdUnknown,
		},
		LatencyMS: elapsed.Milliseconds(),
		RequestID: req.RequestID,
		TraceID:   req.TraceID,
		Reason:    reason,
		Mode:      mode,
	}
}

func eventFor(req *decision.ClassifyRequest, d *decision.Decision) *decision.Event {
	return &decision.Event{
		MessageID:      req.MessageID,
		ConversationID: req.ConversationID,
		Decision:       *d,
		CreatedAt:      time.Now().UTC(),
	}
}

// emitAsync publishes a decision event as a background task with an
// isolated failure boundary: the caller never waits and never sees the
// outcome.
func (g *Gateway) emitAsync(evt *decision.Event) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.FromContext(context.Background()).Error("panic emitting decision event", "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := g.sink.Emit(ctx, evt); err != nil {
			logger.FromContext(ctx).Error("failed to emit decision event",
				"messageId", evt.MessageID, "mode", evt.Decision.Mode, "error", err)
		}
	}()
}

// dispatchShadow runs the second evaluation off the critical path. Its
// success or failure is invisible to the caller and to primary latency;
// it emits its own decision event tagged shadow.
func (g *Gateway) dispatchShadow(req decision.ClassifyRequest) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.FromContext(context.Background()).Error("panic in shadow evaluation", "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), g.cfg.Classifier.Timeout)
		defer cancel()

		start := time.Now()
		res, err := invoke(ctx, g.shadowEngine, req.Text, g.cfg.Classifier.Timeout)
		elapsed := time.Since(start)

		var d *decision.Decision
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			d = g.fallbackDecision(&req, decision.ReasonTimeout, decision.ModeShadow, elapsed)
		case err != nil:
			d = g.fallbackDecision(&req, decision.ReasonError, decision.ModeShadow, elapsed)
		default:
			d = g.decide(&req, res, decision.ModeShadow, elapsed)
		}
		g.metrics.recordOutcome(ctx, d, elapsed)
		g.emitAsync(eventFor(&req, d))
	}()
}

package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/chatstack/intentd/engine/cache"
	"github.com/chatstack/intentd/engine/classifier"
	"github.com/chatstack/intentd/engine/decision"
	"github.com/chatstack/intentd/pkg/logger"
)

// classifyHandler drives the per-request state machine:
// ADMITTED -> CACHE_CHECK -> CLASSIFYING -> POLICY_APPLIED ->
// (SHADOW_DISPATCHED) -> EMITTED -> RESPONDED, with terminal rejections
// for overload, invalid input, timeout and failure.
func (g *Gateway) classifyHandler(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)
	g.metrics.recordRequest(ctx)

	if !g.gate.TryAcquire() {
		respondOverload(c, g.retryHint())
		return
	}
	defer g.gate.Release()

	req, reqErr := g.bindRequest(c)
	if reqErr != nil {
		respondError(c, reqErr)
		return
	}

	start := time.Now()
	key := cache.Key{
		IdempotencyKey: c.GetHeader(HeaderIdempotencyKey),
		MessageID:      req.MessageID,
	}
	if key.Valid() {
		cached, ok, err := g.cache.Get(ctx, key)
		if err != nil {
			log.Warn("decision cache lookup failed", "messageId", req.MessageID, "error", err)
		} else if ok {
			// Replay: no classifier call, no new decision event.
			g.metrics.recordLatency(ctx, time.Since(start))
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	if g.cfg.Gateway.ShadowEnabled {
		g.dispatchShadow(*req)
	}

	res, err := invoke(ctx, g.engine, req.Text, g.deadlineFor(req))
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		g.finishFailure(c, req, decision.ReasonTimeout, elapsed)
	case err != nil:
		log.Error("classifier failed", "messageId", req.MessageID, "error", err)
		g.finishFailure(c, req, decision.ReasonError, elapsed)
	default:
		g.finishSuccess(c, req, key, res, elapsed)
	}
}

// bindRequest validates shape and size before any processing. Oversize
// text is rejected whole, never truncated, and checked separately from
// shape so it maps to 413 rather than 400.
func (g *Gateway) bindRequest(c *gin.Context) (*decision.ClassifyRequest, *RequestError) {
	var req decision.ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, NewRequestError(http.StatusBadRequest, ErrBadRequestCode, "malformed classify request", err)
	}
	if utf8.RuneCountInString(req.Text) > g.cfg.Gateway.MaxTextLen {
		return nil, NewRequestError(http.StatusRequestEntityTooLarge, ErrTextTooLargeCode, "text exceeds maximum length", nil)
	}
	if req.RequestID == "" {
		req.RequestID = g.ids.NewID()
	}
	if req.TraceID == "" {
		req.TraceID = g.ids.NewID()
	}
	return &req, nil
}

func (g *Gateway) finishSuccess(c *gin.Context, req *decision.ClassifyRequest, key cache.Key, res classifier.Result, elapsed time.Duration) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	d := g.decide(req, res, decision.ModeLive, elapsed)
	if err := d.Validate(); err != nil {
		// A self-validation failure is a programming defect; it must not
		// leak a malformed response to the caller.
		log.Error("outgoing decision failed contract validation",
			"messageId", req.MessageID, "error", err)
		respondError(c, NewRequestError(http.StatusInternalServerError, ErrInternalCode, "internal error", err))
		return
	}

	g.metrics.recordOutcome(ctx, d, elapsed)
	g.emitAsync(eventFor(req, d))
	if key.Valid() {
		if err := g.cache.Put(ctx, key, d); err != nil {
			log.Warn("failed to cache decision", "messageId", req.MessageID, "error", err)
		}
	}
	c.JSON(http.StatusOK, d)
}

// finishFailure emits the safe triage decision and maps the failure to
// its distinct status: 504 for deadline, 500 for anything else. Failed
// results are never cached.
func (g *Gateway) finishFailure(c *gin.Context, req *decision.ClassifyRequest, reason decision.Reason, elapsed time.Duration) {
	ctx := c.Request.Context()
	d := g.fallbackDecision(req, reason, decision.ModeLive, elapsed)
	g.metrics.recordOutcome(ctx, d, elapsed)
	g.emitAsync(eventFor(req, d))

	if reason == decision.ReasonTimeout {
		respondError(c, NewRequestError(http.StatusGatewayTimeout, ErrTimeoutCode, "classification exceeded deadline", nil))
		return
	}
	respondError(c, NewRequestError(http.StatusInternalServerError, ErrInternalCode, "classification failed", nil))
}

// healthHandler reports the cached smoke-test outcome; deployment health
// checks key off the status code.
func (g *Gateway) healthHandler(c *gin.Context) {
	status := g.health.Check(c.Request.Context())
	code := http.StatusOK
	if !status.OK {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chatstack/intentd/engine/classifier"
	"github.com/chatstack/intentd/engine/flags"
	"github.com/chatstack/intentd/pkg/logger"
)

// requireAdmin guards the traffic-split control surface. Constant-time
// comparison so the token cannot be probed byte by byte.
func requireAdmin(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		presented, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrorInfo{
				Code:    ErrUnauthorizedCode,
				Message: "admin authorization required",
			}})
			return
		}
		c.Next()
	}
}

func (g *Gateway) getCanaryHandler(c *gin.Context) {
	percent, err := g.flags.Get(c.Request.Context())
	if err != nil {
		logger.FromContext(c.Request.Context()).Error("failed to read canary flag", "error", err)
		respondError(c, NewRequestError(http.StatusInternalServerError, ErrInternalCode, "failed to read canary flag", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"canaryPercent": percent})
}

type setCanaryRequest struct {
	Percent *int `json:"percent" binding:"required"`
}

func (g *Gateway) setCanaryHandler(c *gin.Context) {
	ctx := c.Request.Context()
	var req setCanaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, NewRequestError(http.StatusBadRequest, ErrBadRequestCode, "malformed flag request", err))
		return
	}
	if err := flags.ValidatePercent(*req.Percent); err != nil {
		respondError(c, NewRequestError(http.StatusBadRequest, ErrBadRequestCode, err.Error(), nil))
		return
	}
	if err := g.flags.Set(ctx, *req.Percent); err != nil {
		logger.FromContext(ctx).Error("failed to write canary flag", "percent", *req.Percent, "error", err)
		respondError(c, NewRequestError(http.StatusInternalServerError, ErrInternalCode, "failed to write canary flag", err))
		return
	}
	logger.FromContext(ctx).Info("canary flag updated", "percent", *req.Percent)
	c.JSON(http.StatusOK, gin.H{"ok": true, "canaryPercent": *req.Percent})
}

// evalHandler runs the full evaluation suite against the embedded
// labeled dataset: accuracy, per-intent precision/recall/F1, confusion
// and unknown separability.
func (g *Gateway) evalHandler(c *gin.Context) {
	items, err := classifier.Testset()
	if err != nil {
		respondError(c, NewRequestError(http.StatusInternalServerError, ErrInternalCode, "failed to load testset", err))
		return
	}
	c.JSON(http.StatusOK, classifier.Evaluate(c.Request.Context(), g.engine, items))
}

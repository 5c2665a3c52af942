package gateway

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/chatstack/intentd/engine/infra/monitoring"
)

// BuildRouter assembles the gateway's HTTP surface:
//
//	POST /classify            classification
//	GET  /healthz             smoke-test health
//	GET  /metrics             Prometheus exposition
//	GET  /admin/flags/canary  traffic-split flag (authorized)
//	PUT  /admin/flags/canary  traffic-split flag (authorized)
//	GET  /admin/eval          engine evaluation report (authorized)
//
// Admin routes are registered only when an admin token is configured.
func (g *Gateway) BuildRouter(ctx context.Context, mon *monitoring.Service) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(g.ids))
	router.Use(mon.GinMiddleware(ctx))

	router.POST("/classify", g.classifyHandler)
	router.GET("/healthz", g.healthHandler)
	router.GET(mon.Path(), gin.WrapH(mon.ExporterHandler()))

	if token := g.cfg.Server.AdminToken; token != "" {
		admin := router.Group("/admin", requireAdmin(token))
		admin.GET("/flags/canary", g.getCanaryHandler)
		admin.PUT("/flags/canary", g.setCanaryHandler)
		admin.GET("/eval", g.evalHandler)
	}
	return router
}

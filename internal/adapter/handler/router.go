package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sruppelQPS/openclaw-meeting-assistant/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg             *config.Config
	pipelineHandler *Pipeline
	reviewHandler   *Review
	exportHandler   *Export
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, pipelineHandler *Pipeline, reviewHandler *Review, exportHandler *Export) *Router {
	return &Router{
		cfg:             cfg,
		pipelineHandler: pipelineHandler,
		reviewHandler:   reviewHandler,
		exportHandler:   exportHandler,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/health", rt.healthCheck)

	v1 := e.Group("/v1")

	rt.setupMeetingRoutes(v1)
	rt.setupExportRoutes(v1)
}

func (rt *Router) setupMeetingRoutes(g *echo.Group) {
	meetings := g.Group("/meetings")

	meetings.POST("/ingest", rt.pipelineHandler.Ingest)
	meetings.GET("/:id", rt.pipelineHandler.Get)
	meetings.POST("/:id/archive", rt.pipelineHandler.Archive)

	// review mutations carry an HMAC signature over the body
	signed := RequireSignature(rt.cfg.Review.SharedSecret)
	meetings.POST("/:id/items/:itemID/approve", rt.reviewHandler.Approve, signed)
	meetings.POST("/:id/items/:itemID/edit", rt.reviewHandler.Edit, signed)
	meetings.POST("/:id/items/:itemID/reject", rt.reviewHandler.Reject, signed)
	meetings.POST("/:id/approve-all", rt.reviewHandler.ApproveAll, signed)
}

func (rt *Router) setupExportRoutes(g *echo.Group) {
	exports := g.Group("/exports")

	exports.GET("/failed", rt.exportHandler.ListFailed)
	exports.POST("/:id/retry", rt.exportHandler.Retry)
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": rt.cfg.Server.Environment,
	})
}

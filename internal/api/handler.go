// Package api provides the HTTP control surface for runs and negotiations.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/negotiation"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/pipeline"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/store"
)

// Handler holds dependencies for the HTTP handlers.
type Handler struct {
	runs        *pipeline.Manager
	store       store.Store
	negotiation *negotiation.Engine
}

// NewHandler creates a new Handler.
func NewHandler(runs *pipeline.Manager, st store.Store, neg *negotiation.Engine) *Handler {
	return &Handler{runs: runs, store: st, negotiation: neg}
}

// RegisterRoutes registers all routes on the Echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	e.POST("/v1/runs", h.StartRun)
	e.GET("/v1/runs", h.ListRuns)
	e.GET("/v1/runs/:run_id", h.GetRun)
	e.GET("/v1/runs/:run_id/events", h.GetRunEvents)
	e.POST("/v1/runs/:run_id/stop", h.StopRun)
	e.POST("/v1/runs/:run_id/pause", h.PauseRun)
	e.POST("/v1/runs/:run_id/resume", h.ResumeRun)

	e.POST("/v1/negotiations", h.CreateNegotiation)
	e.GET("/v1/negotiations/:negotiation_id", h.GetNegotiation)
	e.POST("/v1/negotiations/:negotiation_id/messages", h.NegotiationMessage)
}

// Health is a liveness probe.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

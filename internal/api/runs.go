package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/domain"
)

// StartRun starts a pipeline run and returns its id.
func (h *Handler) StartRun(c echo.Context) error {
	var req domain.StartRunRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.SessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "session_id is required"})
	}
	if req.Query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}

	ctx := c.Request().Context()
	if h.store != nil {
		if _, err := h.store.GetOrCreateSession(ctx, req.SessionID, "default_user"); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get/create session"})
		}
	}

	runID, err := h.runs.Start(ctx, req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusAccepted, domain.StartRunResponse{RunID: runID, SessionID: req.SessionID})
}

// GetRun returns a run record.
func (h *Handler) GetRun(c echo.Context) error {
	runID := c.Param("run_id")

	run, err := h.store.GetRun(c.Request().Context(), runID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get run"})
	}
	if run == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}
	return c.JSON(http.StatusOK, run)
}

// ListRuns returns recent runs, optionally filtered by session_id.
func (h *Handler) ListRuns(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	runs, err := h.store.ListRuns(c.Request().Context(), c.QueryParam("session_id"), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list runs"})
	}
	if runs == nil {
		runs = []domain.Run{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"runs": runs})
}

// GetRunEvents pages a run's journaled events. Clients resume from the last
// event's ts and seq; seq disambiguates events sharing a millisecond.
func (h *Handler) GetRunEvents(c echo.Context) error {
	runID := c.Param("run_id")
	afterTs, _ := strconv.ParseInt(c.QueryParam("after_ts"), 10, 64)
	afterSeq, _ := strconv.ParseInt(c.QueryParam("after_seq"), 10, 64)
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	events, err := h.store.GetEvents(c.Request().Context(), runID, afterTs, afterSeq, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get events"})
	}
	if events == nil {
		events = []domain.Event{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"events": events})
}

// StopRun cancels a run cooperatively.
func (h *Handler) StopRun(c echo.Context) error {
	runID := c.Param("run_id")
	if err := h.runs.Stop(runID); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"run_id": runID, "status": "stopping"})
}

// PauseRun flips the run's running flag; the loop exits before its next
// step, leaving the last checkpoint in place.
func (h *Handler) PauseRun(c echo.Context) error {
	runID := c.Param("run_id")
	if err := h.runs.Pause(runID); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"run_id": runID, "status": "pausing"})
}

// ResumeRun restarts a paused or crashed run from its checkpoint.
func (h *Handler) ResumeRun(c echo.Context) error {
	runID := c.Param("run_id")
	if err := h.runs.Resume(c.Request().Context(), runID); err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"run_id": runID, "status": "resuming"})
}

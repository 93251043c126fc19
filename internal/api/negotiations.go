package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/domain"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/negotiation"
)

// CreateNegotiation opens a new negotiation in the OPENING phase.
func (h *Handler) CreateNegotiation(c echo.Context) error {
	var req domain.CreateNegotiationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.SessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "session_id is required"})
	}

	maxTurns := req.MaxTurns
	if maxTurns <= 0 {
		maxTurns = negotiation.DefaultMaxTurns
	}

	now := time.Now()
	n := &domain.Negotiation{
		NegotiationID: "neg_" + uuid.New().String()[:8],
		SessionID:     req.SessionID,
		JobID:         req.JobID,
		Turn:          0,
		MaxTurns:      maxTurns,
		Phase:         domain.NegotiationPhaseOpening,
		Status:        domain.NegotiationStatusActive,
		TargetSalary:  req.TargetSalary,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.store.CreateNegotiation(c.Request().Context(), n); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create negotiation"})
	}
	return c.JSON(http.StatusCreated, n)
}

// GetNegotiation returns a negotiation's full state and history.
func (h *Handler) GetNegotiation(c echo.Context) error {
	n, err := h.store.GetNegotiation(c.Request().Context(), c.Param("negotiation_id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get negotiation"})
	}
	if n == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "negotiation not found"})
	}
	return c.JSON(http.StatusOK, n)
}

// NegotiationMessage runs one negotiation turn: load state, advance it
// through the engine, persist, and return the counter-response.
func (h *Handler) NegotiationMessage(c echo.Context) error {
	negotiationID := c.Param("negotiation_id")

	var req domain.NegotiationMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message is required"})
	}

	ctx := c.Request().Context()
	n, err := h.store.GetNegotiation(ctx, negotiationID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get negotiation"})
	}
	if n == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "negotiation not found"})
	}

	reply, err := h.negotiation.HandleMessage(ctx, n, req.Message)
	if err != nil {
		if n.Status != domain.NegotiationStatusActive {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if err := h.store.UpdateNegotiation(ctx, n); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to update negotiation"})
	}

	return c.JSON(http.StatusOK, domain.NegotiationMessageResponse{
		NegotiationID: n.NegotiationID,
		Turn:          n.Turn,
		Phase:         n.Phase,
		Status:        n.Status,
		Response:      reply.Text,
	})
}

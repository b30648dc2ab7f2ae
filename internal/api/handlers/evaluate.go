package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"citypulse/internal/scheduler"
)

// RealtimeRunner triggers one realtime evaluation tick.
type RealtimeRunner interface {
	RunRealtime(ctx context.Context) error
}

// CulturalRunner triggers one cultural evaluation tick.
type CulturalRunner interface {
	RunCultural(ctx context.Context) error
}

// EvaluateHandler exposes manual tick triggers for operations and
// debugging. Ticks share the engine's single-flight guard, so a manual
// run never overlaps a scheduled one.
type EvaluateHandler struct {
	realtime RealtimeRunner
	cultural CulturalRunner
}

// NewEvaluateHandler creates a new EvaluateHandler.
func NewEvaluateHandler(r RealtimeRunner, cu CulturalRunner) *EvaluateHandler {
	return &EvaluateHandler{realtime: r, cultural: cu}
}

// Realtime runs one realtime tick synchronously.
func (h *EvaluateHandler) Realtime(c echo.Context) error {
	return h.run(c, func(ctx context.Context) error {
		return h.realtime.RunRealtime(ctx)
	})
}

// Cultural runs one cultural tick synchronously.
func (h *EvaluateHandler) Cultural(c echo.Context) error {
	return h.run(c, func(ctx context.Context) error {
		return h.cultural.RunCultural(ctx)
	})
}

func (*EvaluateHandler) run(c echo.Context, tick func(ctx context.Context) error) error {
	err := tick(c.Request().Context())
	if errors.Is(err, scheduler.ErrTickInProgress) {
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "tick completed"})
}

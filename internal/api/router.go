// Package api assembles the Echo router for the operational HTTP
// surface.
package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"citypulse/internal/api/handlers"
	"citypulse/internal/api/middleware"
	"citypulse/internal/store"
)

// Deps carries everything the router needs.
type Deps struct {
	Store    store.Store
	Realtime handlers.RealtimeRunner
	Cultural handlers.CulturalRunner
	Log      *slog.Logger
}

// NewRouter builds the Echo instance with middleware and all routes
// registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(d.Log))
	e.Use(middleware.RequestLog(d.Log))
	e.Use(middleware.Metrics())

	health := handlers.NewHealthHandler(d.Store)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	evaluate := handlers.NewEvaluateHandler(d.Realtime, d.Cultural)
	e.POST("/api/v1/evaluate/realtime", evaluate.Realtime)
	e.POST("/api/v1/evaluate/cultural", evaluate.Cultural)

	users := handlers.NewUsersHandler(d.Store)
	e.POST("/api/v1/users", users.Register)
	e.GET("/api/v1/users/:userID", users.Get)
	e.PUT("/api/v1/users/:userID/location", users.UpdateLocation)
	e.PUT("/api/v1/users/:userID/interests", users.SetInterests)
	e.PUT("/api/v1/users/:userID/channels", users.SetChannels)

	notifs := handlers.NewNotificationsHandler(d.Store)
	e.GET("/api/v1/users/:userID/notifications", notifs.List)
	e.GET("/api/v1/users/:userID/notifications/unread", notifs.Unread)
	e.POST("/api/v1/users/:userID/notifications/read", notifs.MarkAllRead)
	e.GET("/api/v1/notifications/:id", notifs.Get)
	e.POST("/api/v1/notifications/:id/read", notifs.MarkRead)

	return e
}

package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"vn.io.arda/notification-pipeline/internal/transport/mw"
)

// NewRouter sets up all Echo routes and middleware. gatherer backs /metrics.
func NewRouter(h *Handler, jwtSecret []byte, gatherer prometheus.Gatherer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
	}))

	// Health and metrics (no auth required)
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// API, requires a device token
	v1 := e.Group("")
	v1.Use(mw.JWTAuth(jwtSecret))

	// REST endpoints
	v1.GET("/notifications", h.ListNotifications)
	v1.POST("/notifications", h.Add)
	v1.GET("/notifications/channels", h.ChannelCounts)
	v1.GET("/notifications/wait", h.Wait)
	v1.POST("/notifications/expect", h.Expect)
	v1.POST("/notifications/prune", h.Prune)
	v1.POST("/notifications/delete", h.DeleteMany)
	v1.POST("/notifications/pending/process", h.ProcessPending)
	v1.POST("/notifications/:id/consume", h.Consume)
	v1.POST("/notifications/:id/read", h.MarkRead)
	v1.DELETE("/notifications/:id", h.Delete)

	v1.POST("/filters", h.AddFilter)
	v1.DELETE("/filters/:id", h.RemoveFilter)

	// SSE endpoint
	v1.GET("/notifications/stream", h.Stream)

	return e
}

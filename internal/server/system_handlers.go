package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kickgym/internal/api"
	"kickgym/internal/logger"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

type queue interface {
	Ping(ctx context.Context) error
	QueueLength(ctx context.Context) int64
}

// Health godoc
// @Summary      Health check
// @Description  Reports whether the database and the notification queue are reachable.
// @Tags         system
// @Produce      json
// @Success      200  {object}  api.HealthResponse
// @Failure      503  {object}  api.HealthResponse
// @Router       /health [get]
func Health(database pinger, notifications queue) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := database.PingContext(ctx); err != nil {
			logger.Error("health check: database unreachable", "error", err)
			c.JSON(http.StatusServiceUnavailable, api.HealthResponse{Status: "database unavailable"})
			return
		}
		if err := notifications.Ping(ctx); err != nil {
			// Email is best effort; the API still serves.
			logger.Warn("health check: notification queue unreachable", "error", err)
			c.JSON(http.StatusOK, api.HealthResponse{Status: "degraded"})
			return
		}
		notifications.QueueLength(ctx)
		c.JSON(http.StatusOK, api.HealthResponse{Status: "ok"})
	}
}

// Metrics godoc
// @Summary      Prometheus metrics
// @Description  Exposes Prometheus metrics in text format
// @Tags         system
// @Produce      text/plain
// @Success      200  {string}  string
// @Router       /metrics [get]
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

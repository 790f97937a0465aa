package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports liveness and readiness.  Redis is optional; a nil
// client is skipped.
type HealthHandler struct {
	DB    Pinger
	Redis *redis.Client
}

// Health is used by load balancers to verify that the process is up.  It
// returns a plain text "ok" with a 200 status code.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Ready pings the database and Redis.  Any failure yields 503 with the
// state of each dependency.
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	checks := map[string]string{"database": "ok"}
	healthy := true
	if err := h.DB.PingContext(ctx); err != nil {
		zerolog.Ctx(c.Request().Context()).Warn().Err(err).Msg("database not ready")
		checks["database"] = "unavailable"
		healthy = false
	}
	if h.Redis != nil {
		checks["redis"] = "ok"
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			zerolog.Ctx(c.Request().Context()).Warn().Err(err).Msg("redis not ready")
			checks["redis"] = "unavailable"
			healthy = false
		}
	}
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, map[string]any{"ready": healthy, "checks": checks})
}

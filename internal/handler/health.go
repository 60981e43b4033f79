package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jwt-auth-service/internal/store"
)

// HealthHandler reports the reachability of both state backends.
type HealthHandler struct {
	DB *sql.DB
	KV store.KV
}

func NewHealthHandler(db *sql.DB, kv store.KV) *HealthHandler {
	return &HealthHandler{DB: db, KV: kv}
}

// Health pings the database and the KV store. Both reachable means 200
// "healthy"; anything less is 503 "unhealthy" with the per-backend detail.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	dbStatus := "connected"
	if err := h.DB.PingContext(ctx); err != nil {
		dbStatus = "disconnected"
	}
	kvStatus := "connected"
	if err := h.KV.Ping(ctx); err != nil {
		kvStatus = "disconnected"
	}

	status := "healthy"
	code := http.StatusOK
	if dbStatus != "connected" || kvStatus != "connected" {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, echo.Map{
		"status":    status,
		"database":  dbStatus,
		"redis":     kvStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Index is the service directory returned at the root path.
func Index(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "JWT Auth System API",
		"version":     "1.0",
		"description": "Backend for the desktop client",
		"endpoints": echo.Map{
			"health":      "/api/health",
			"register":    "/api/register",
			"login_sql":   "/api/login",
			"login_redis": "/api-redis/login",
		},
	})
}

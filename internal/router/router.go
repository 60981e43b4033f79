// Package router wires the HTTP surface. The same handler methods are
// registered twice: under /api with SQL-backed token state and under
// /api-redis with KV-backed token state. Which flavor a client talks to is
// entirely a matter of path prefix.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jwt-auth-service/internal/auth"
	"github.com/iliyamo/jwt-auth-service/internal/config"
	"github.com/iliyamo/jwt-auth-service/internal/handler"
	"github.com/iliyamo/jwt-auth-service/internal/middleware"
)

// Deps carries everything route registration needs.
type Deps struct {
	Cfg       config.Config
	SQL       *handler.AuthHandler
	Redis     *handler.AuthHandler
	Health    *handler.HealthHandler
	Users     middleware.UserSource
	SQLLedger middleware.TokenLedger
	KVLedger  middleware.TokenLedger
}

// RegisterRoutes registers the full route table on e.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/", handler.Index)
	e.GET("/api/health", d.Health.Health)

	loginLimit := middleware.LoginRateLimit(d.Cfg.LoginRate)

	registerFlavor(e.Group("/api"), d.SQL, d.Cfg.JWTSecret, d.SQLLedger, d.Users, loginLimit, true)
	registerFlavor(e.Group("/api-redis"), d.Redis, d.Cfg.JWTSecret, d.KVLedger, d.Users, loginLimit, false)
}

// registerFlavor registers one backend flavor's endpoints on g. Register is
// backend-independent so only the SQL group exposes it.
func registerFlavor(g *echo.Group, h *handler.AuthHandler, secret string, ledger middleware.TokenLedger, users middleware.UserSource, loginLimit echo.MiddlewareFunc, withRegister bool) {
	access := middleware.BearerAuth(secret, auth.TypeAccess, ledger, users)
	refresh := middleware.BearerAuth(secret, auth.TypeRefresh, ledger, users)

	if withRegister {
		g.POST("/register", h.Register)
	}
	g.POST("/login", h.Login, loginLimit)
	g.POST("/refresh", h.Refresh, refresh)
	g.POST("/logout", h.Logout, access)
	g.POST("/logout-all", h.LogoutAll, access)
	g.GET("/profile", h.Profile, access)
	g.GET("/audit-log", h.AuditLog, access)
	g.GET("/admin/audit-log", h.AdminAuditLog, access)
}

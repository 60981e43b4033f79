package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/iliyamo/jwt-auth-service/internal/config"
)

// clientLimiter pairs a token bucket with its last use so idle entries can
// be dropped.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LoginRateLimit returns a per-client token bucket for the login endpoints,
// keyed by remote IP. Limiters for clients idle longer than IdleTTL are
// evicted opportunistically on each request.
func LoginRateLimit(cfg config.LoginRateConfig) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*clientLimiter)
	)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			now := time.Now()

			mu.Lock()
			for addr, cl := range clients {
				if now.Sub(cl.lastSeen) > cfg.IdleTTL {
					delete(clients, addr)
				}
			}
			cl, ok := clients[ip]
			if !ok {
				cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst)}
				clients[ip] = cl
			}
			cl.lastSeen = now
			allowed := cl.limiter.Allow()
			mu.Unlock()

			if !allowed {
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"message": "Too many login attempts",
					"error":   "too_many_requests",
				})
			}
			return next(c)
		}
	}
}

package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jwt-auth-service/internal/auth"
	"github.com/iliyamo/jwt-auth-service/internal/config"
	"github.com/iliyamo/jwt-auth-service/internal/middleware"
	"github.com/iliyamo/jwt-auth-service/internal/queue"
	"github.com/iliyamo/jwt-auth-service/internal/repository"
	"github.com/iliyamo/jwt-auth-service/internal/utils"
)

// TokenLedger is the write side of the revocation ledger. The SQL and the
// KV blocklist both satisfy it, which is what lets one handler serve the
// /api and /api-redis flavors with backend choice made purely at wiring.
type TokenLedger interface {
	Revoke(ctx context.Context, jti, tokenType string, userID uint64, expiresAt time.Time) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuditLog is the audit trail as seen by handlers. Record is best effort:
// implementations swallow store errors and a false return is never turned
// into a failed request.
type AuditLog interface {
	Record(ctx context.Context, userID uint64, action, jti, ip, userAgent string) bool
	GetForUser(ctx context.Context, userID uint64, limit int) []repository.AuditEntry
	GetAll(ctx context.Context, limit int) []repository.AuditEntry
}

// AuthHandler bundles one backend flavor's dependencies. Two instances are
// wired at startup: one over the SQL ledger/audit, one over the KV pair
// (which additionally keeps session snapshots). User lookup always goes to
// SQL.
type AuthHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Ledger   TokenLedger
	Audit    AuditLog
	Sessions *repository.SessionCache // nil for the SQL flavor
	Backend  string                   // "sql" or "redis", tagged onto published events

	// Publish fans audit events out to the broker. Nil disables fan-out.
	Publish func(context.Context, queue.AuditEvent) error
}

func NewAuthHandler(cfg config.Config, users *repository.UserRepo, ledger TokenLedger, audit AuditLog, sessions *repository.SessionCache, backend string) *AuthHandler {
	return &AuthHandler{
		Cfg:      cfg,
		Users:    users,
		Ledger:   ledger,
		Audit:    audit,
		Sessions: sessions,
		Backend:  backend,
		Publish:  queue.PublishAuditEvent,
	}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// userPart is the public projection of a user; the password hash never
// leaves the repository layer in a response.
type userPart struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}

func publicUser(u repository.User) userPart {
	return userPart{ID: u.ID, Username: u.Username, Email: u.Email, IsActive: u.IsActive}
}

// Register creates a user. Registration is backend-independent: users live
// in SQL regardless of which flavor handles tokens.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Username, email and password are required", "error": "missing_fields"})
	}
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" || email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Username, email and password are required", "error": "missing_fields"})
	}
	if len(username) < 3 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Username must be at least 3 characters", "error": "invalid_username"})
	}
	if len(req.Password) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Password must be at least 6 characters", "error": "invalid_password"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, username, email, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			return c.JSON(http.StatusConflict, echo.Map{"message": "Username is already taken", "error": "username_exists"})
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusConflict, echo.Map{"message": "Email is already taken", "error": "email_exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal server error", "error": "internal_error"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User registered successfully",
		"user":    userPart{ID: uid, Username: username, Email: email, IsActive: true},
	})
}

// Login authenticates and returns a fresh token pair. Username mismatch and
// password mismatch are reported identically so the response does not leak
// which field was wrong.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Username and password are required", "error": "missing_fields"})
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Username and password are required", "error": "missing_fields"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid credentials", "error": "invalid_credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal server error", "error": "internal_error"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid credentials", "error": "invalid_credentials"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "User is inactive", "error": "user_inactive"})
	}

	access, refresh, err := auth.NewPair(h.Cfg.JWTSecret, u.ID, h.Cfg.AccessTTL, h.Cfg.RefreshTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal server error", "error": "internal_error"})
	}

	// Advisory session snapshot, KV flavor only. Validation never reads it.
	if h.Sessions != nil {
		h.Sessions.Store(ctx, u)
	}
	h.audit(c, u.ID, repository.ActionLogin, "")

	return c.JSON(http.StatusOK, echo.Map{
		"message":       "Login successful",
		"access_token":  access.Value,
		"refresh_token": refresh.Value,
		"user":          publicUser(u),
	})
}

// Refresh issues one new access token. The refresh token presented to get
// here was already validated by the bearer middleware and is deliberately
// not rotated: the same refresh token keeps working until it expires or is
// revoked.
func (h *AuthHandler) Refresh(c echo.Context) error {
	u := c.Get(middleware.CtxUser).(repository.User)

	access, err := auth.New(h.Cfg.JWTSecret, u.ID, auth.TypeAccess, h.Cfg.AccessTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal server error", "error": "internal_error"})
	}
	h.audit(c, u.ID, repository.ActionRefresh, "")

	return c.JSON(http.StatusOK, echo.Map{
		"message":      "Token refreshed successfully",
		"access_token": access.Value,
	})
}

// Logout revokes the token that authenticated this very request. The
// revocation write happens before the audit write: on a partial failure the
// security-critical effect must be the one that survives.
func (h *AuthHandler) Logout(c echo.Context) error {
	claims := c.Get(middleware.CtxClaims).(*auth.Claims)
	userID := c.Get(middleware.CtxUserID).(uint64)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Ledger.Revoke(ctx, claims.ID, claims.TokenType, userID, claims.ExpiresAt.Time); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal server error", "error": "internal_error"})
	}
	if h.Sessions != nil {
		h.Sessions.Delete(ctx, userID)
	}
	h.audit(c, userID, repository.ActionLogout, claims.ID)

	return c.JSON(http.StatusOK, echo.Map{"message": "Logout successful"})
}

// LogoutAll revokes every outstanding token of the authenticated user.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	userID := c.Get(middleware.CtxUserID).(uint64)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Ledger.RevokeAllForUser(ctx, userID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal server error", "error": "internal_error"})
	}
	if h.Sessions != nil {
		h.Sessions.Delete(ctx, userID)
	}
	h.audit(c, userID, repository.ActionRevoke, "")

	return c.JSON(http.StatusOK, echo.Map{"message": "All sessions closed successfully"})
}

// Profile returns the authenticated user's record.
func (h *AuthHandler) Profile(c echo.Context) error {
	u := c.Get(middleware.CtxUser).(repository.User)
	return c.JSON(http.StatusOK, echo.Map{"user": publicUser(u)})
}

// AuditLog returns the authenticated user's audit entries, newest first.
func (h *AuthHandler) AuditLog(c echo.Context) error {
	userID := c.Get(middleware.CtxUserID).(uint64)
	limit := queryLimit(c, 50)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries := h.Audit.GetForUser(ctx, userID, limit)
	if entries == nil {
		entries = []repository.AuditEntry{}
	}
	return c.JSON(http.StatusOK, echo.Map{"audit_log": entries})
}

// AdminAuditLog returns the global audit trail. There is no role model, so
// any valid access token may call this.
func (h *AuthHandler) AdminAuditLog(c echo.Context) error {
	limit := queryLimit(c, 100)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries := h.Audit.GetAll(ctx, limit)
	if entries == nil {
		entries = []repository.AuditEntry{}
	}
	return c.JSON(http.StatusOK, echo.Map{"audit_log": entries})
}

// audit records one lifecycle event and fans it out to the broker. Both
// writes are best effort; neither can fail the request.
func (h *AuthHandler) audit(c echo.Context, userID uint64, action, jti string) {
	ip := c.RealIP()
	ua := c.Request().UserAgent()

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	h.Audit.Record(ctx, userID, action, jti, ip, ua)

	if h.Publish == nil {
		return
	}
	ev := queue.AuditEvent{
		UserID:    userID,
		Action:    action,
		TokenJTI:  jti,
		IPAddress: ip,
		UserAgent: ua,
		Backend:   h.Backend,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		pubCtx, pubCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pubCancel()
		_ = h.Publish(pubCtx, ev)
	}()
}

func queryLimit(c echo.Context, def int) int {
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jwt-auth-service/internal/auth"
	"github.com/iliyamo/jwt-auth-service/internal/repository"
)

const testSecret = "test-secret"

type fakeLedger struct {
	revoked map[string]bool
	since   time.Time
}

func (f *fakeLedger) IsRevoked(_ context.Context, jti string) bool { return f.revoked[jti] }
func (f *fakeLedger) ValidSince(context.Context, uint64) time.Time { return f.since }

type fakeUsers struct {
	user repository.User
	err  error
}

func (f *fakeUsers) GetByID(context.Context, uint64) (repository.User, error) {
	return f.user, f.err
}

func serve(mw echo.MiddlewareFunc, header string) *httptest.ResponseRecorder {
	e := echo.New()
	e.GET("/p", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, mw)
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestBearerAuthChecks(t *testing.T) {
	ledger := &fakeLedger{revoked: map[string]bool{}}
	users := &fakeUsers{user: repository.User{ID: 1, Username: "alice", IsActive: true}}
	mw := BearerAuth(testSecret, auth.TypeAccess, ledger, users)

	valid, err := auth.New(testSecret, 1, auth.TypeAccess, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if rec := serve(mw, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header = %d, want 401", rec.Code)
	}
	if rec := serve(mw, "Bearer garbage"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token = %d, want 401", rec.Code)
	}

	expired, _ := auth.New(testSecret, 1, auth.TypeAccess, -time.Minute)
	if rec := serve(mw, "Bearer "+expired.Value); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expired token = %d, want 401", rec.Code)
	}

	if rec := serve(mw, "Bearer "+valid.Value); rec.Code != http.StatusOK {
		t.Fatalf("valid token = %d, body %s", rec.Code, rec.Body.String())
	}

	ledger.revoked[valid.JTI] = true
	if rec := serve(mw, "Bearer "+valid.Value); rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token = %d, want 401", rec.Code)
	}
	ledger.revoked[valid.JTI] = false

	// A bumped epoch kills tokens issued before it.
	ledger.since = time.Now().Add(time.Minute)
	if rec := serve(mw, "Bearer "+valid.Value); rec.Code != http.StatusUnauthorized {
		t.Fatalf("pre-epoch token = %d, want 401", rec.Code)
	}
	ledger.since = time.Time{}

	users.user.IsActive = false
	if rec := serve(mw, "Bearer "+valid.Value); rec.Code != http.StatusUnauthorized {
		t.Fatalf("inactive user = %d, want 401", rec.Code)
	}
	users.user.IsActive = true

	users.err = sql.ErrNoRows
	if rec := serve(mw, "Bearer "+valid.Value); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown subject = %d, want 401", rec.Code)
	}
}

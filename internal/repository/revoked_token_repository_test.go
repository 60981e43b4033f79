package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestRevokedTokenRepoRevoke(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := NewRevokedTokenRepo(db)

	exp := time.Now().Add(15 * time.Minute)
	mock.ExpectExec("INSERT INTO revoked_tokens").
		WithArgs("jti-1", "access", uint64(9), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Revoke(context.Background(), "jti-1", "access", 9, exp); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	// A duplicate jti means the token is already dead: no-op success.
	mock.ExpectExec("INSERT INTO revoked_tokens").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'jti-1' for key 'uniq_revoked_jti'"))
	if err := repo.Revoke(context.Background(), "jti-1", "access", 9, exp); err != nil {
		t.Fatalf("duplicate Revoke should no-op, got %v", err)
	}
}

func TestRevokedTokenRepoIsRevoked(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := NewRevokedTokenRepo(db)

	// The lookup must filter by expires_at so a stale row behaves like an
	// absent one, matching the KV backend's TTL semantics.
	q := "SELECT id FROM revoked_tokens WHERE jti=(.+) AND expires_at > UTC_TIMESTAMP"

	mock.ExpectQuery(q).WithArgs("live").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	if !repo.IsRevoked(context.Background(), "live") {
		t.Fatalf("live blocklist entry should report revoked")
	}

	mock.ExpectQuery(q).WithArgs("gone").WillReturnError(sql.ErrNoRows)
	if repo.IsRevoked(context.Background(), "gone") {
		t.Fatalf("absent or expired entry should not report revoked")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRevokedTokenRepoRevokeAllBumpsEpoch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := NewRevokedTokenRepo(db)

	mock.ExpectExec("UPDATE users SET token_valid_from=UTC_TIMESTAMP").
		WithArgs(uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.RevokeAllForUser(context.Background(), 4); err != nil {
		t.Fatalf("RevokeAllForUser: %v", err)
	}

	epoch := time.Now().UTC().Truncate(time.Second)
	mock.ExpectQuery("SELECT token_valid_from FROM users WHERE id=").
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"token_valid_from"}).AddRow(epoch))
	if got := repo.ValidSince(context.Background(), 4); !got.Equal(epoch) {
		t.Fatalf("ValidSince = %v, want %v", got, epoch)
	}

	// NULL epoch (no logout-all yet) reads as the zero time.
	mock.ExpectQuery("SELECT token_valid_from FROM users WHERE id=").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"token_valid_from"}).AddRow(nil))
	if got := repo.ValidSince(context.Background(), 5); !got.IsZero() {
		t.Fatalf("ValidSince for NULL = %v, want zero", got)
	}
}

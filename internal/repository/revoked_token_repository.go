package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// RevokedTokenRepo is the durable (SQL) side of the token blocklist. Rows
// persist forever, so every lookup filters by expires_at: a blocklist row
// for a token that has already died of old age must behave exactly like an
// absent row, matching the TTL semantics of the Redis-backed variant.
type RevokedTokenRepo struct{ DB *sql.DB }

func NewRevokedTokenRepo(db *sql.DB) *RevokedTokenRepo { return &RevokedTokenRepo{DB: db} }

// Revoke inserts a blocklist row keyed by unique jti. Inserting the same jti
// twice is a no-op success: the token is already dead.
func (r *RevokedTokenRepo) Revoke(ctx context.Context, jti, tokenType string, userID uint64, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO revoked_tokens (jti, token_type, user_id, expires_at) VALUES (?,?,?,?)",
		jti, tokenType, userID, expiresAt.UTC())
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return nil
	}
	return err
}

// IsRevoked reports whether jti is on the blocklist and its entry is still
// live. Expired entries are ignored rather than deleted.
func (r *RevokedTokenRepo) IsRevoked(ctx context.Context, jti string) bool {
	var id uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM revoked_tokens WHERE jti=? AND expires_at > UTC_TIMESTAMP() LIMIT 1",
		jti).Scan(&id)
	return err == nil
}

// RevokeAllForUser bumps the user's token epoch. Every token issued before
// the bump fails validation afterwards, including tokens the server has
// never seen, without touching individual blocklist rows.
func (r *RevokedTokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET token_valid_from=UTC_TIMESTAMP() WHERE id=?",
		userID)
	return err
}

// ValidSince returns the user's current token epoch, or the zero time when
// no logout-all has ever happened (or the row is missing).
func (r *RevokedTokenRepo) ValidSince(ctx context.Context, userID uint64) time.Time {
	var since sql.NullTime
	err := r.DB.QueryRowContext(ctx,
		"SELECT token_valid_from FROM users WHERE id=? LIMIT 1",
		userID).Scan(&since)
	if err != nil || !since.Valid {
		return time.Time{}
	}
	return since.Time
}

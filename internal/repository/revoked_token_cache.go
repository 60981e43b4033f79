package repository

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/iliyamo/jwt-auth-service/internal/store"
)

const (
	revokedKeyPrefix = "revoked_token:"
	epochKeyPrefix   = "user_token_epoch:"

	// TTL re-applied to a user's blocklist entries during a logout-all sweep.
	revokeAllTTL = time.Hour
)

// revokedEntry is the JSON payload stored under revoked_token:{jti}.
type revokedEntry struct {
	JTI       string `json:"jti"`
	TokenType string `json:"token_type"`
	UserID    uint64 `json:"user_id"`
	RevokedAt string `json:"revoked_at"`
	ExpiresAt string `json:"expires_at"`
}

// RevokedTokenCache is the KV-backed token blocklist. Entries carry the
// token's own remaining lifetime as TTL, so the store physically drops them
// the moment the token would have died anyway: "expired" and "absent" are
// the same state here by construction.
type RevokedTokenCache struct{ KV store.KV }

func NewRevokedTokenCache(kv store.KV) *RevokedTokenCache { return &RevokedTokenCache{KV: kv} }

// Revoke records jti on the blocklist until expiresAt. A token that has
// already expired is not recorded: it is unusable without our help.
func (r *RevokedTokenCache) Revoke(ctx context.Context, jti, tokenType string, userID uint64, expiresAt time.Time) error {
	now := time.Now().UTC()
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return nil
	}
	entry := revokedEntry{
		JTI:       jti,
		TokenType: tokenType,
		UserID:    userID,
		RevokedAt: now.Format(time.RFC3339),
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.KV.Set(ctx, revokedKeyPrefix+jti, ttl, string(body))
}

// IsRevoked is key presence: TTL-expired entries are already gone.
func (r *RevokedTokenCache) IsRevoked(ctx context.Context, jti string) bool {
	_, ok, err := r.KV.Get(ctx, revokedKeyPrefix+jti)
	if err != nil {
		log.Printf("revoked-token cache: lookup %s failed: %v", jti, err)
		return false
	}
	return ok
}

// RevokeAllForUser sweeps the blocklist for the user's entries and re-arms
// each with a fixed TTL, then bumps the user's token epoch. The sweep alone
// cannot catch issued-but-never-revoked tokens; the epoch check during
// validation is what actually kills those.
func (r *RevokedTokenCache) RevokeAllForUser(ctx context.Context, userID uint64) error {
	keys, err := r.KV.Keys(ctx, revokedKeyPrefix+"*")
	if err != nil {
		return err
	}
	for _, key := range keys {
		body, ok, err := r.KV.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		var entry revokedEntry
		if err := json.Unmarshal([]byte(body), &entry); err != nil {
			continue
		}
		if entry.UserID != userID {
			continue
		}
		if err := r.KV.Set(ctx, key, revokeAllTTL, body); err != nil {
			log.Printf("revoked-token cache: rewrite %s failed: %v", key, err)
		}
	}
	// Nanosecond precision so tokens issued earlier in the same second are
	// still caught; token iat claims only carry whole seconds.
	epoch := time.Now().UTC().Format(time.RFC3339Nano)
	return r.KV.Set(ctx, epochKey(userID), 0, epoch)
}

// ValidSince returns the user's token epoch, or the zero time when no
// logout-all has happened.
func (r *RevokedTokenCache) ValidSince(ctx context.Context, userID uint64) time.Time {
	v, ok, err := r.KV.Get(ctx, epochKey(userID))
	if err != nil || !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func epochKey(userID uint64) string {
	return epochKeyPrefix + formatUint(userID)
}

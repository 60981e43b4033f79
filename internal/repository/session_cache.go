package repository

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/iliyamo/jwt-auth-service/internal/store"
)

const (
	sessionKeyPrefix = "user_session:"
	sessionTTL       = time.Hour
)

// Session is the advisory login snapshot cached per user. Its absence never
// invalidates a token; validation does not consult it.
type Session struct {
	UserID    uint64 `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	LoginTime string `json:"login_time"`
}

// SessionCache stores one TTL-bounded snapshot per user as a login side
// effect of the KV-flavored endpoints.
type SessionCache struct{ KV store.KV }

func NewSessionCache(kv store.KV) *SessionCache { return &SessionCache{KV: kv} }

func (r *SessionCache) Store(ctx context.Context, u User) bool {
	s := Session{
		UserID:    u.ID,
		Username:  u.Username,
		Email:     u.Email,
		LoginTime: time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(s)
	if err != nil {
		return false
	}
	if err := r.KV.Set(ctx, sessionKeyPrefix+formatUint(u.ID), sessionTTL, string(body)); err != nil {
		log.Printf("session cache: store for user %d failed: %v", u.ID, err)
		return false
	}
	return true
}

func (r *SessionCache) Get(ctx context.Context, userID uint64) (Session, bool) {
	body, ok, err := r.KV.Get(ctx, sessionKeyPrefix+formatUint(userID))
	if err != nil || !ok {
		return Session{}, false
	}
	var s Session
	if err := json.Unmarshal([]byte(body), &s); err != nil {
		return Session{}, false
	}
	return s, true
}

func (r *SessionCache) Delete(ctx context.Context, userID uint64) bool {
	if err := r.KV.Delete(ctx, sessionKeyPrefix+formatUint(userID)); err != nil {
		log.Printf("session cache: delete for user %d failed: %v", userID, err)
		return false
	}
	return true
}

package repository

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/iliyamo/jwt-auth-service/internal/store"
)

const (
	auditKeyPrefix   = "audit_log:"
	auditIndexPrefix = "user_audit_keys:"
	auditRetention   = 30 * 24 * time.Hour
)

// AuditCache is the KV-backed audit trail. Each entry lives under
// audit_log:{userID}:{unixMilli}; the millisecond suffix makes keys sort
// lexically by time, which GetAll relies on. A per-user list of entry keys
// doubles as an index so per-user reads avoid a full scan. Entries and
// index expire after 30 days. As with the durable variant, store errors are
// swallowed so auditing never fails the primary operation.
type AuditCache struct{ KV store.KV }

func NewAuditCache(kv store.KV) *AuditCache { return &AuditCache{KV: kv} }

// Record appends one entry and pushes its key onto the user's index list,
// refreshing the index TTL.
func (r *AuditCache) Record(ctx context.Context, userID uint64, action, jti, ip, userAgent string) bool {
	entry := AuditEntry{
		UserID:    userID,
		Action:    action,
		TokenJTI:  jti,
		IPAddress: ip,
		UserAgent: userAgent,
		CreatedAt: time.Now().UTC(),
	}
	body, err := json.Marshal(entry)
	if err != nil {
		log.Printf("audit cache: marshal failed: %v", err)
		return false
	}
	key := auditKeyPrefix + formatUint(userID) + ":" + strconv.FormatInt(entry.CreatedAt.UnixMilli(), 10)
	if err := r.KV.Set(ctx, key, auditRetention, string(body)); err != nil {
		log.Printf("audit cache: store %s failed: %v", key, err)
		return false
	}
	indexKey := auditIndexPrefix + formatUint(userID)
	if _, err := r.KV.LPush(ctx, indexKey, key); err != nil {
		log.Printf("audit cache: index push failed: %v", err)
		return false
	}
	if _, err := r.KV.Expire(ctx, indexKey, auditRetention); err != nil {
		log.Printf("audit cache: index expire failed: %v", err)
	}
	return true
}

// GetForUser reads the newest limit keys off the index list and resolves
// each one. Keys whose entry has already expired are skipped.
func (r *AuditCache) GetForUser(ctx context.Context, userID uint64, limit int) []AuditEntry {
	keys, err := r.KV.LRange(ctx, auditIndexPrefix+formatUint(userID), 0, int64(limit)-1)
	if err != nil {
		log.Printf("audit cache: index read for user %d failed: %v", userID, err)
		return nil
	}
	return r.resolve(ctx, keys)
}

// GetAll scans every entry key, sorts descending and resolves the newest
// limit entries.
func (r *AuditCache) GetAll(ctx context.Context, limit int) []AuditEntry {
	keys, err := r.KV.Keys(ctx, auditKeyPrefix+"*")
	if err != nil {
		log.Printf("audit cache: scan failed: %v", err)
		return nil
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if len(keys) > limit {
		keys = keys[:limit]
	}
	return r.resolve(ctx, keys)
}

func (r *AuditCache) resolve(ctx context.Context, keys []string) []AuditEntry {
	var entries []AuditEntry
	for _, key := range keys {
		body, ok, err := r.KV.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		var e AuditEntry
		if err := json.Unmarshal([]byte(body), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

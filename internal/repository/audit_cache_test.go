package repository

import (
	"context"
	"testing"
	"time"

	"github.com/iliyamo/jwt-auth-service/internal/store"
)

func TestAuditCacheRecordAndGetForUser(t *testing.T) {
	kv := store.NewMemoryStore()
	cache := NewAuditCache(kv)
	ctx := context.Background()

	actions := []string{ActionLogin, ActionRefresh, ActionLogout}
	for _, a := range actions {
		if !cache.Record(ctx, 9, a, "", "127.0.0.1", "test-agent") {
			t.Fatalf("Record %s failed", a)
		}
		time.Sleep(2 * time.Millisecond) // distinct millisecond key suffixes
	}
	cache.Record(ctx, 10, ActionLogin, "", "", "")

	got := cache.GetForUser(ctx, 9, 50)
	if len(got) != 3 {
		t.Fatalf("GetForUser returned %d entries, want 3", len(got))
	}
	// Most recent first.
	want := []string{ActionLogout, ActionRefresh, ActionLogin}
	for i, a := range want {
		if got[i].Action != a {
			t.Fatalf("entry %d action = %s, want %s", i, got[i].Action, a)
		}
		if got[i].UserID != 9 {
			t.Fatalf("entry %d belongs to user %d", i, got[i].UserID)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.After(got[i-1].CreatedAt) {
			t.Fatalf("entries not in descending creation order")
		}
	}
}

func TestAuditCacheLimit(t *testing.T) {
	kv := store.NewMemoryStore()
	cache := NewAuditCache(kv)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		cache.Record(ctx, 9, ActionLogin, "", "", "")
		time.Sleep(2 * time.Millisecond)
	}

	if got := cache.GetForUser(ctx, 9, 2); len(got) != 2 {
		t.Fatalf("GetForUser limit 2 returned %d entries", len(got))
	}
	if got := cache.GetAll(ctx, 3); len(got) != 3 {
		t.Fatalf("GetAll limit 3 returned %d entries", len(got))
	}
}

func TestAuditCacheSurvivesStoreMiss(t *testing.T) {
	kv := store.NewMemoryStore()
	now := time.Now()
	kv.SetClock(func() time.Time { return now })
	cache := NewAuditCache(kv)
	ctx := context.Background()

	cache.Record(ctx, 9, ActionLogin, "", "", "")

	// Entries older than the retention window have lapsed but their keys
	// may still sit on the index; retrieval just skips them.
	now = now.Add(31 * 24 * time.Hour)
	if got := cache.GetForUser(ctx, 9, 10); len(got) != 0 {
		t.Fatalf("expired entries surfaced: %v", got)
	}
}

func TestSessionCacheLifecycle(t *testing.T) {
	kv := store.NewMemoryStore()
	now := time.Now()
	kv.SetClock(func() time.Time { return now })
	sessions := NewSessionCache(kv)
	ctx := context.Background()

	u := User{ID: 9, Username: "alice", Email: "alice@x.com"}
	if !sessions.Store(ctx, u) {
		t.Fatalf("Store failed")
	}
	s, ok := sessions.Get(ctx, 9)
	if !ok || s.Username != "alice" || s.UserID != 9 {
		t.Fatalf("Get = (%+v, %v)", s, ok)
	}

	if !sessions.Delete(ctx, 9) {
		t.Fatalf("Delete failed")
	}
	if _, ok := sessions.Get(ctx, 9); ok {
		t.Fatalf("session should be gone after delete")
	}

	// Snapshots are TTL-bounded.
	sessions.Store(ctx, u)
	now = now.Add(2 * time.Hour)
	if _, ok := sessions.Get(ctx, 9); ok {
		t.Fatalf("session should lapse after its TTL")
	}
}

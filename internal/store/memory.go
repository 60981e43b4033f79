package store

import (
	"context"
	"path"
	"sync"
	"time"
)

// MemoryStore is an in-process KV simulator used when no Redis server is
// reachable (development, tests). All data is lost on restart. Every
// operation, including the lazy expiry performed during reads, runs under a
// single mutex so the store stays consistent under concurrent request handling.
type MemoryStore struct {
	mu     sync.Mutex
	data   map[string]string
	lists  map[string][]string
	expiry map[string]time.Time
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:   make(map[string]string),
		lists:  make(map[string][]string),
		expiry: make(map[string]time.Time),
		now:    time.Now,
	}
}

// SetClock replaces the store's time source. Tests use it to move time past
// an entry's TTL without sleeping.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// expired reports whether key has passed its TTL. Caller must hold mu.
func (s *MemoryStore) expired(key string) bool {
	exp, ok := s.expiry[key]
	return ok && s.now().After(exp)
}

// purge removes key from every map. Caller must hold mu.
func (s *MemoryStore) purge(key string) {
	delete(s.data, key)
	delete(s.lists, key)
	delete(s.expiry, key)
}

func (s *MemoryStore) Set(_ context.Context, key string, ttl time.Duration, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lists, key)
	s.data[key] = value
	if ttl > 0 {
		s.expiry[key] = s.now().Add(ttl)
	} else {
		delete(s.expiry, key)
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expired(key) {
		s.purge(key)
		return "", false, nil
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purge(key)
	return nil
}

func (s *MemoryStore) Keys(_ context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Purge expired keys before matching so dead entries never surface.
	for key := range s.expiry {
		if s.expired(key) {
			s.purge(key)
		}
	}
	var keys []string
	for key := range s.data {
		if ok, _ := path.Match(pattern, key); ok {
			keys = append(keys, key)
		}
	}
	for key := range s.lists {
		if ok, _ := path.Match(pattern, key); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *MemoryStore) LPush(_ context.Context, key string, values ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expired(key) {
		s.purge(key)
	}
	delete(s.data, key)
	lst := s.lists[key]
	// Each value is prepended in turn, matching LPUSH: the last argument
	// ends up at the head.
	for _, v := range values {
		lst = append([]string{v}, lst...)
	}
	s.lists[key] = lst
	return int64(len(lst)), nil
}

func (s *MemoryStore) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expired(key) {
		s.purge(key)
		return nil, nil
	}
	lst, ok := s.lists[key]
	if !ok {
		return nil, nil
	}
	n := int64(len(lst))
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop {
		return nil, nil
	}
	out := make([]string, stop-start+1)
	copy(out, lst[start:stop+1])
	return out, nil
}

func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expired(key) {
		s.purge(key)
		return false, nil
	}
	_, inData := s.data[key]
	_, inLists := s.lists[key]
	if !inData && !inLists {
		return false, nil
	}
	if ttl > 0 {
		s.expiry[key] = s.now().Add(ttl)
	} else {
		delete(s.expiry, key)
	}
	return true, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

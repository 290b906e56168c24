package lock

import (
	"context"
	"sync"
	"time"
)

type localEntry struct {
	owner string
	exp   time.Time
}

// LocalStore keeps locks in-process. It gives single-flight within one
// process only; use RedisStore when multiple replicas share the cache.
// It is the default when Options leave the lock store unset, and the
// workhorse for tests.
type LocalStore struct {
	mu sync.Mutex
	m  map[string]localEntry
}

var _ Store = (*LocalStore)(nil)

func NewLocalStore() *LocalStore {
	return &LocalStore{m: make(map[string]localEntry)}
}

func (s *LocalStore) TryAcquire(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.m[key]; ok && e.exp.After(now) {
		return false, nil
	}
	s.m[key] = localEntry{owner: owner, exp: now.Add(ttl)}
	return true, nil
}

func (s *LocalStore) Renew(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[key]
	if !ok || e.owner != owner || !e.exp.After(now) {
		return false, nil
	}
	e.exp = now.Add(ttl)
	s.m[key] = e
	return true, nil
}

func (s *LocalStore) Release(_ context.Context, key, owner string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[key]
	if !ok || e.owner != owner {
		return false, nil
	}
	delete(s.m, key)
	return true, nil
}

func (s *LocalStore) Close(context.Context) error { return nil }

// Holder returns the current owner of key, or "" when unheld. Test helper.
func (s *LocalStore) Holder(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[key]
	if !ok || !e.exp.After(time.Now()) {
		return ""
	}
	return e.owner
}

package idempotency

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	status      string
	fingerprint string
	result      string
	expiresAt   time.Time
}

// MemoryStore is a process-local Store
type MemoryStore struct {
	mu   sync.Mutex
	keys map[string]*entry
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{keys: make(map[string]*entry), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Reserve(ctx context.Context, key, fingerprint string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictExpired(now)
	if e, ok := s.keys[key]; ok {
		if e.fingerprint != fingerprint {
			return "", ErrKeyReused
		}
		switch e.status {
		case statusSuccess:
			return e.result, nil
		case statusProcessing:
			return "", ErrInProgress
		}
	}

	s.keys[key] = &entry{status: statusProcessing, fingerprint: fingerprint, expiresAt: now.Add(s.ttl)}
	return "", nil
}

func (s *MemoryStore) Complete(ctx context.Context, key, fingerprint, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[key] = &entry{status: statusSuccess, fingerprint: fingerprint, result: result, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.keys, key)
	return nil
}

// evictExpired drops every entry whose TTL has run out. Callers hold mu.
func (s *MemoryStore) evictExpired(now time.Time) {
	for k, e := range s.keys {
		if !now.Before(e.expiresAt) {
			delete(s.keys, k)
		}
	}
}

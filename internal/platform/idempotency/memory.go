package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps keys in process. Expired entries are treated as absent and removed by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]Entry{}}
}

func (s *MemoryStore) Claim(_ context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Entry, Outcome, error) {
	id := hashKey(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[id]; ok && now.Before(existing.ExpiresAt) {
		outcome, err := outcomeFor(existing, fingerprint)
		return existing, outcome, err
	}
	entry := Entry{Fingerprint: fingerprint, ExpiresAt: now.Add(ttl)}
	s.entries[id] = entry
	return entry, Claimed, nil
}

func (s *MemoryStore) Complete(_ context.Context, key string, entry Entry, _ time.Duration) error {
	entry.Done = true
	entry.Body = append([]byte(nil), entry.Body...)
	entry.Header = entry.Header.Clone()

	s.mu.Lock()
	s.entries[hashKey(key)] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, hashKey(key))
	s.mu.Unlock()
	return nil
}

// Sweep drops up to limit expired entries. A non-positive limit removes all of them.
func (s *MemoryStore) Sweep(_ context.Context, now time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.entries {
		if limit > 0 && removed == limit {
			break
		}
		if !now.Before(entry.ExpiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}

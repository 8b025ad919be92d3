package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"
)

// DefaultTTL bounds how long a create-order response stays replayable.
const DefaultTTL = 24 * time.Hour

// Outcome is the result of claiming a key.
type Outcome int

const (
	// Claimed means the caller owns the key and must Complete or Release it.
	Claimed Outcome = iota
	// Replay means a finished response is stored under the key.
	Replay
	// InFlight means another request holds the key and has not finished.
	InFlight
)

// ErrKeyReused is returned when a key comes back with a different request body or path.
var ErrKeyReused = errors.New("idempotency: key already used for a different request")

// Entry is the stored state of one key. Done entries carry the response to replay.
type Entry struct {
	Fingerprint string      `json:"fingerprint"`
	Done        bool        `json:"done"`
	Status      int         `json:"status,omitempty"`
	Header      http.Header `json:"header,omitempty"`
	Body        []byte      `json:"body,omitempty"`
	ExpiresAt   time.Time   `json:"expiresAt"`
}

// Store persists claims and finished responses. MemoryStore serves a single replica;
// RedisStore shares keys across replicas.
type Store interface {
	Claim(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Entry, Outcome, error)
	Complete(ctx context.Context, key string, entry Entry, ttl time.Duration) error
	Release(ctx context.Context, key string) error
	Sweep(ctx context.Context, now time.Time, limit int) (int, error)
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func outcomeFor(existing Entry, fingerprint string) (Outcome, error) {
	switch {
	case existing.Fingerprint != fingerprint:
		return 0, ErrKeyReused
	case existing.Done:
		return Replay, nil
	default:
		return InFlight, nil
	}
}

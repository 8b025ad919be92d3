package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"go.uber.org/zap"
)

var (
	ErrJWKSKeyNotFound = errors.New("auth: jwks key not found")
	// ErrJWKSFetchFailed covers transport and decoding failures. Callers map it to 503.
	ErrJWKSFetchFailed = errors.New("auth: jwks fetch failed")
)

// keySet is one downloaded JWKS document, valid until expires.
type keySet struct {
	byKid   map[string]any
	expires time.Time
}

func (s keySet) lookup(kid string, now time.Time) (any, bool) {
	if !now.Before(s.expires) {
		return nil, false
	}
	key, ok := s.byKid[kid]
	return key, ok
}

// JWKSCache holds the partner identity provider's signing keys. The set is replaced when its
// Cache-Control max-age lapses or a token names a kid the current set lacks.
type JWKSCache struct {
	url    string
	client *http.Client
	logger *zap.Logger
	now    func() time.Time
	ttl    time.Duration

	mu  sync.Mutex
	set keySet
}

type JWKSOption func(*JWKSCache)

func WithJWKSLogger(logger *zap.Logger) JWKSOption {
	return func(c *JWKSCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithJWKSClock(now func() time.Time) JWKSOption {
	return func(c *JWKSCache) {
		if now != nil {
			c.now = now
		}
	}
}

func NewJWKSCache(url string, opts ...JWKSOption) *JWKSCache {
	c := &JWKSCache{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: zap.NewNop(),
		now:    time.Now,
		ttl:    15 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the public key for kid, downloading the set at most once per call.
func (c *JWKSCache) Key(ctx context.Context, kid string) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key, ok := c.set.lookup(kid, c.now()); ok {
		return key, nil
	}
	fresh, err := c.download(ctx)
	if err != nil {
		return nil, err
	}
	c.set = fresh
	if key, ok := fresh.byKid[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrJWKSKeyNotFound, kid)
}

func (c *JWKSCache) download(ctx context.Context) (keySet, error) {
	fail := func(cause any) (keySet, error) {
		return keySet{}, fmt.Errorf("%w: %v", ErrJWKSFetchFailed, cause)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fail(err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fail("status " + strconv.Itoa(resp.StatusCode))
	}

	var doc jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fail(err)
	}
	set := keySet{byKid: make(map[string]any, len(doc.Keys))}
	for _, jwk := range doc.Keys {
		if jwk.KeyID != "" && jwk.Valid() {
			set.byKid[jwk.KeyID] = jwk.Key
		}
	}
	if len(set.byKid) == 0 {
		return fail("no usable keys")
	}

	ttl := maxAge(resp.Header.Get("Cache-Control"))
	if ttl == 0 {
		ttl = c.ttl
	}
	set.expires = c.now().Add(ttl)
	c.logger.Debug("jwks downloaded", zap.Int("keys", len(set.byKid)), zap.Duration("ttl", ttl))
	return set, nil
}

// maxAge extracts a positive max-age directive; anything else yields zero.
func maxAge(cacheControl string) time.Duration {
	for directive := range strings.SplitSeq(cacheControl, ",") {
		name, value, _ := strings.Cut(strings.TrimSpace(directive), "=")
		if !strings.EqualFold(name, "max-age") {
			continue
		}
		if secs, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

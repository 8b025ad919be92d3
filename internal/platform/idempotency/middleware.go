package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/auth"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/httpx"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/requestctx"
)

// ReplayHeader marks a response served from the store.
const ReplayHeader = "X-Idempotent-Replay"

type settings struct {
	header string
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*settings)

// WithHeader sets the request header carrying the key. The default is Idempotency-Key.
func WithHeader(name string) Option {
	return func(s *settings) {
		if name = strings.TrimSpace(name); name != "" {
			s.header = name
		}
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// Middleware makes POSTs that carry an idempotency key safe to retry: the first response
// below 500 is stored per caller and key and replayed for identical retries. Requests
// without a key run normally. A 5xx releases the key so the caller can try again.
func Middleware(store Store, opts ...Option) func(http.Handler) http.Handler {
	cfg := settings{header: "Idempotency-Key", ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(cfg.header))
			if r.Method != http.MethodPost || key == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			body, err := io.ReadAll(r.Body)
			if err != nil {
				httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeValidation, "unable to read request body", http.StatusBadRequest))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			caller := "anonymous"
			if identity, ok := auth.IdentityFromContext(ctx); ok && identity.UID != "" {
				caller = identity.UID
			}
			scoped := caller + "|" + key
			fingerprint := fingerprintOf(r.URL.Path, body)
			now := cfg.now().UTC()

			entry, outcome, err := store.Claim(ctx, scoped, fingerprint, now, cfg.ttl)
			switch {
			case errors.Is(err, ErrKeyReused):
				httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeConflict, "idempotency key already used for a different request", http.StatusConflict))
				return
			case err != nil:
				requestctx.Logger(ctx).Error("idempotency claim failed", zap.Error(err))
				httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeStoreUnavailable, "unable to process idempotency key", http.StatusServiceUnavailable))
				return
			case outcome == Replay:
				replay(w, entry)
				return
			case outcome == InFlight:
				httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeConflict, "another request is processing this idempotency key", http.StatusConflict))
				return
			}

			buf := &bufferedWriter{header: http.Header{}}
			next.ServeHTTP(buf, r)

			logger := requestctx.Logger(ctx)
			if buf.code() >= http.StatusInternalServerError {
				if err := store.Release(ctx, scoped); err != nil {
					logger.Warn("idempotency release failed", zap.Error(err))
				}
			} else {
				done := Entry{
					Fingerprint: fingerprint,
					Status:      buf.code(),
					Header:      replayable(buf.header),
					Body:        buf.body.Bytes(),
					ExpiresAt:   now.Add(cfg.ttl),
				}
				if err := store.Complete(ctx, scoped, done, cfg.ttl); err != nil {
					logger.Error("idempotency save failed", zap.Error(err))
					_ = store.Release(ctx, scoped)
				}
			}
			buf.flush(w)
		})
	}
}

func fingerprintOf(path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func replay(w http.ResponseWriter, entry Entry) {
	for name, values := range entry.Header {
		w.Header()[name] = append([]string(nil), values...)
	}
	w.Header().Set(ReplayHeader, "true")
	status := entry.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(entry.Body)
}

// replayable drops headers that describe the original connection rather than the payload.
func replayable(h http.Header) http.Header {
	out := h.Clone()
	for _, name := range []string{"Content-Length", "Date", "Connection", "Keep-Alive", "Transfer-Encoding", "Trailer", "Upgrade"} {
		out.Del(name)
	}
	return out
}

// bufferedWriter holds the handler's response so it can be stored before reaching the client.
type bufferedWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (b *bufferedWriter) Header() http.Header { return b.header }

func (b *bufferedWriter) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *bufferedWriter) code() int {
	if b.status == 0 {
		return http.StatusOK
	}
	return b.status
}

func (b *bufferedWriter) flush(w http.ResponseWriter) {
	for name, values := range b.header {
		w.Header()[name] = values
	}
	w.WriteHeader(b.code())
	_, _ = w.Write(b.body.Bytes())
}

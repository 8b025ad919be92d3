// Package requestctx carries per-request values (logger, trace, log annotations) between
// middleware and handlers.
package requestctx

import (
	"context"
	"maps"
	"sync"

	"go.uber.org/zap"
)

type (
	loggerKey     struct{}
	traceKey      struct{}
	annotationKey struct{}
)

var nop = zap.NewNop()

// TraceInfo is the Cloud Trace position of the current request.
type TraceInfo struct {
	TraceID   string
	SpanID    string
	Sampled   bool
	ProjectID string
}

// Annotations is a write-many holder that handlers fill (caller uid, order id) and the request
// logger reads after the handler returns.
type Annotations struct {
	mu     sync.Mutex
	fields map[string]string
}

// Set stores key=value. Blank keys and values are dropped.
func (a *Annotations) Set(key, value string) {
	if a == nil || key == "" || value == "" {
		return
	}
	a.mu.Lock()
	if a.fields == nil {
		a.fields = map[string]string{}
	}
	a.fields[key] = value
	a.mu.Unlock()
}

// Snapshot copies the current fields.
func (a *Annotations) Snapshot() map[string]string {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return maps.Clone(a.fields)
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if logger == nil {
		logger = nop
	}
	return context.WithValue(orBackground(ctx), loggerKey{}, logger)
}

// Logger returns the request logger, or a no-op logger when none was attached.
func Logger(ctx context.Context) *zap.Logger {
	return LoggerOr(ctx, nop)
}

// LoggerOr returns the request logger, or fallback when none was attached.
func LoggerOr(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if ctx != nil {
		if logger, _ := ctx.Value(loggerKey{}).(*zap.Logger); logger != nil {
			return logger
		}
	}
	return fallback
}

func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	return context.WithValue(orBackground(ctx), traceKey{}, info)
}

func Trace(ctx context.Context) (TraceInfo, bool) {
	if ctx == nil {
		return TraceInfo{}, false
	}
	info, ok := ctx.Value(traceKey{}).(TraceInfo)
	return info, ok
}

// TraceID is empty outside a traced request.
func TraceID(ctx context.Context) string {
	info, _ := Trace(ctx)
	return info.TraceID
}

// WithAnnotations installs an empty holder and returns it to the caller.
func WithAnnotations(ctx context.Context) (context.Context, *Annotations) {
	holder := new(Annotations)
	return context.WithValue(orBackground(ctx), annotationKey{}, holder), holder
}

// Annotate is a no-op when the context has no holder.
func Annotate(ctx context.Context, key, value string) {
	if ctx == nil {
		return
	}
	holder, _ := ctx.Value(annotationKey{}).(*Annotations)
	holder.Set(key, value)
}

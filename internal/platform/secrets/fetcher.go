// Package secrets resolves secret:// references against Secret Manager with a local file
// fallback for development.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const meterName = "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/secrets"

type accessClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// ErrNotFound is returned when neither Secret Manager nor the local file has the secret. The
// Secret Manager error, if any, is joined to it.
var ErrNotFound = errors.New("secrets: not found")

var newAccessClient = func(ctx context.Context, opts ...option.ClientOption) (accessClient, error) {
	return secretmanager.NewClient(ctx, opts...)
}

// Fetcher resolves gateway credentials. Lookups go cache, then Secret Manager, then the local
// file; values are cached for the life of the process.
type Fetcher struct {
	client    accessClient
	closeable bool
	project   string
	local     *localFile
	logger    *zap.Logger
	latency   metric.Float64Histogram

	mu    sync.RWMutex
	cache map[string]string
}

type settings struct {
	logger     *zap.Logger
	project    string
	localPath  string
	meter      metric.Meter
	client     accessClient
	clientOpts []option.ClientOption
}

type Option func(*settings)

func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithDefaultProject is used for references without ?project=.
func WithDefaultProject(projectID string) Option {
	return func(s *settings) { s.project = strings.TrimSpace(projectID) }
}

// WithFallbackFile sets the local secrets file. Empty disables it.
func WithFallbackFile(path string) Option {
	return func(s *settings) { s.localPath = strings.TrimSpace(path) }
}

func WithMeter(m metric.Meter) Option {
	return func(s *settings) { s.meter = m }
}

// WithSecretManagerClient supplies a client instead of dialing one. Close leaves it open.
func WithSecretManagerClient(client accessClient) Option {
	return func(s *settings) { s.client = client }
}

// WithClientOptions is forwarded to the Secret Manager client constructor.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(s *settings) { s.clientOpts = append(s.clientOpts, opts...) }
}

// NewFetcher never fails because Secret Manager is unreachable; it logs and serves from the
// local file instead.
func NewFetcher(ctx context.Context, opts ...Option) (*Fetcher, error) {
	s := settings{localPath: ".secrets.local"}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.meter == nil {
		s.meter = otel.GetMeterProvider().Meter(meterName)
	}
	latency, err := s.meter.Float64Histogram("secrets.fetch.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Secret resolution latency by source"),
	)
	if err != nil {
		return nil, fmt.Errorf("secrets: latency histogram: %w", err)
	}

	f := &Fetcher{
		client:  s.client,
		project: s.project,
		local:   &localFile{path: s.localPath},
		logger:  s.logger,
		latency: latency,
		cache:   map[string]string{},
	}
	if f.client == nil && f.project != "" {
		client, err := newAccessClient(ctx, s.clientOpts...)
		if err != nil {
			s.logger.Warn("secret manager unavailable, using local secrets only", zap.Error(err))
		} else {
			f.client, f.closeable = client, true
		}
	}
	return f, nil
}

func (f *Fetcher) Close() error {
	if f.closeable {
		return f.client.Close()
	}
	return nil
}

// ResolveSecret satisfies config.SecretResolver.
func (f *Fetcher) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f.Resolve(ctx, ref)
}

func (f *Fetcher) Resolve(ctx context.Context, raw string) (string, error) {
	start := time.Now()
	ref, err := parseReference(raw)
	if err != nil {
		return "", err
	}

	f.mu.RLock()
	cached, ok := f.cache[ref.key()]
	f.mu.RUnlock()
	if ok {
		f.observe(ctx, start, "cache")
		return cached, nil
	}

	value, source, err := f.fetch(ctx, ref)
	if err != nil {
		f.observe(ctx, start, "error")
		return "", err
	}
	f.mu.Lock()
	f.cache[ref.key()] = value
	f.mu.Unlock()
	f.observe(ctx, start, source)
	return value, nil
}

func (f *Fetcher) fetch(ctx context.Context, ref reference) (string, string, error) {
	project := ref.project
	if project == "" {
		project = f.project
	}
	var remoteErr error
	if project != "" && f.client != nil {
		resp, err := f.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: ref.resource(project)})
		switch {
		case err == nil && resp.GetPayload() != nil:
			return string(resp.GetPayload().GetData()), "remote", nil
		case err == nil:
			return "", "", fmt.Errorf("secrets: fetch failed for %s: empty payload", ref)
		case !recoverable(err):
			return "", "", fmt.Errorf("secrets: fetch failed for %s: %w", ref, err)
		}
		remoteErr = err
		f.logger.Debug("secret manager miss, trying local file", zap.String("secret", ref.name), zap.Error(err))
	}

	value, ok, err := f.local.lookup(ref)
	if err != nil {
		f.logger.Warn("local secrets file unreadable", zap.Error(err))
	}
	if !ok {
		return "", "", fmt.Errorf("secrets: %s: %w", ref, errors.Join(ErrNotFound, remoteErr))
	}
	return value, "fallback", nil
}

func (f *Fetcher) observe(ctx context.Context, start time.Time, source string) {
	ms := float64(time.Since(start)) / float64(time.Millisecond)
	f.latency.Record(ctx, ms, metric.WithAttributes(attribute.String("source", source)))
}

// recoverable reports the Secret Manager failures that should fall through to the local file.
func recoverable(err error) bool {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated, codes.Unavailable, codes.DeadlineExceeded, codes.NotFound:
		return true
	}
	return false
}

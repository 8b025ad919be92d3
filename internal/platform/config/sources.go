package config

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/v2"
)

// SecretResolver turns a secret://project/name reference into its plaintext value.
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc lets a plain function serve as a SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError lists the config fields that were absent or out of range.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return "config: invalid or missing " + strings.Join(e.fields, ", ")
}

// Fields returns the offending field paths, e.g. "Commerce.OrderPrefix".
func (e *ValidationError) Fields() []string {
	return slices.Clone(e.fields)
}

// SecretError wraps a resolver failure with the reference that triggered it.
type SecretError struct {
	Ref string
	Err error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("config: resolve %q: %v", e.Ref, e.Err)
}

func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError is returned when a secret named through WithRequiredSecrets resolved to
// an empty value. Names are kept private so logs can show the hashed form only.
type MissingSecretsError struct {
	names []string
}

func (e *MissingSecretsError) Error() string {
	if e == nil || len(e.names) == 0 {
		return "config: required secrets missing"
	}
	return "config: required secrets missing: " + strings.Join(e.RedactedNames(), ", ")
}

// Names returns the config field names of the missing secrets, sorted.
func (e *MissingSecretsError) Names() []string {
	if e == nil || len(e.names) == 0 {
		return nil
	}
	out := slices.Clone(e.names)
	slices.Sort(out)
	return out
}

// RedactedNames returns a short hash per missing secret, sorted.
func (e *MissingSecretsError) RedactedNames() []string {
	names := e.Names()
	for i, name := range names {
		names[i] = redactSecretName(name)
	}
	slices.Sort(names)
	return names
}

var errSecretResolverNotConfigured = errors.New("no secret resolver configured")

// Option adjusts how Load and EnvironmentValues gather values.
type Option func(*sources)

type sources struct {
	envFile         string
	overrides       map[string]string
	systemEnv       bool
	environ         func() []string
	resolver        SecretResolver
	required        []string
	panicOnRequired bool
}

func newSources(opts []Option) sources {
	s := sources{envFile: defaultEnvFile, systemEnv: true, environ: os.Environ}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithEnvFile points the loader at a dotenv file. An empty path skips dotenv entirely.
func WithEnvFile(path string) Option {
	return func(s *sources) { s.envFile = path }
}

// WithEnvMap supplies values that win over both the dotenv file and the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(s *sources) { s.overrides = values }
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(s *sources) { s.systemEnv = false }
}

// WithSecretResolver handles values written as secret:// or sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(s *sources) { s.resolver = resolver }
}

// WithRequiredSecrets names config fields (such as "PSP.RazorpayKeySecret") that must resolve
// to a non-empty value.
func WithRequiredSecrets(names ...string) Option {
	return func(s *sources) { s.required = append(s.required, names...) }
}

// WithPanicOnMissingSecrets makes Load panic with *MissingSecretsError instead of returning it.
func WithPanicOnMissingSecrets() Option {
	return func(s *sources) { s.panicOnRequired = true }
}

// EnvironmentValues returns the merged API_* values without interpreting them. main uses it to
// bootstrap the secret fetcher before Load runs.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	k, err := newSources(opts).merge()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(k.Keys()))
	for _, key := range k.Keys() {
		out[key] = k.String(key)
	}
	return out, nil
}

// merge layers dotenv, then the API_* process environment, then explicit overrides.
func (s sources) merge() (*koanf.Koanf, error) {
	k := koanf.New(".")

	fileValues, err := readDotEnv(s.envFile)
	if err != nil {
		return nil, err
	}
	if err := loadMap(k, fileValues, "dotenv"); err != nil {
		return nil, err
	}

	if s.systemEnv {
		provider := env.Provider(".", env.Opt{
			Prefix:      envPrefix,
			EnvironFunc: s.environ,
			TransformFunc: func(key, value string) (string, any) {
				return strings.TrimSpace(key), value
			},
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("config: environment: %w", err)
		}
	}

	if err := loadMap(k, s.overrides, "overrides"); err != nil {
		return nil, err
	}
	return k, nil
}

func loadMap(k *koanf.Koanf, values map[string]string, label string) error {
	if len(values) == 0 {
		return nil
	}
	flat := make(map[string]any, len(values))
	for key, value := range values {
		if key = strings.TrimSpace(key); key != "" {
			flat[key] = value
		}
	}
	if err := k.Load(confmap.Provider(flat, ""), nil); err != nil {
		return fmt.Errorf("config: %s: %w", label, err)
	}
	return nil
}

func readDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return values, nil
}

// reader exposes typed accessors over the merged values. Blank or unparsable values fall back
// to the default.
type reader struct {
	k *koanf.Koanf
}

func (r reader) raw(key string) string {
	if !r.k.Exists(key) {
		return ""
	}
	return strings.TrimSpace(r.k.String(key))
}

func (r reader) str(key, fallback string) string {
	if v := r.raw(key); v != "" {
		return v
	}
	return fallback
}

func (r reader) lower(key, fallback string) string { return strings.ToLower(r.str(key, fallback)) }

func (r reader) upper(key, fallback string) string { return strings.ToUpper(r.str(key, fallback)) }

func (r reader) duration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(r.raw(key)); err == nil {
		return d
	}
	return fallback
}

func (r reader) integer(key string, fallback int) int {
	if n, err := strconv.Atoi(r.raw(key)); err == nil {
		return n
	}
	return fallback
}

// list splits a comma separated value, dropping blanks.
func (r reader) list(key string) []string {
	out := []string{}
	for part := range strings.SplitSeq(r.raw(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// pairs parses "name=value" entries separated by commas. Names are lower-cased.
func (r reader) pairs(key string) map[string]string {
	out := make(map[string]string)
	for _, entry := range r.list(key) {
		name, value, ok := strings.Cut(entry, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(value)
		if ok && name != "" && value != "" {
			out[name] = value
		}
	}
	return out
}

// resolve replaces secret references in place and records what each named field ended up with.
func (s sources) resolve(ctx context.Context, fields map[string]*string) (map[string]string, error) {
	resolver := s.resolver
	if resolver == nil {
		resolver = SecretResolverFunc(func(context.Context, string) (string, error) {
			return "", errSecretResolverNotConfigured
		})
	}
	resolved := make(map[string]string, len(fields))
	for name, field := range fields {
		value := strings.TrimSpace(*field)
		ref, ok := secretRef(value)
		if ok {
			secret, err := resolver.ResolveSecret(ctx, ref)
			if err != nil {
				var secretErr *SecretError
				if errors.As(err, &secretErr) {
					return nil, err
				}
				return nil, &SecretError{Ref: ref, Err: err}
			}
			*field = secret
			value = strings.TrimSpace(secret)
		}
		resolved[name] = value
	}
	return resolved, nil
}

func (s sources) checkRequired(resolved map[string]string) *MissingSecretsError {
	var missing []string
	for _, name := range s.required {
		name = strings.TrimSpace(name)
		if name == "" || slices.Contains(missing, name) || resolved[name] != "" {
			continue
		}
		missing = append(missing, name)
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingSecretsError{names: missing}
}

// secretRef reports whether value is a secret reference and returns it in secret:// form.
func secretRef(value string) (string, bool) {
	if rest, ok := strings.CutPrefix(value, "sm://"); ok {
		return "secret://" + rest, true
	}
	return value, strings.HasPrefix(value, "secret://")
}

func redactSecretName(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:8])
}

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

func load(t *testing.T, env map[string]string, opts ...Option) (Config, error) {
	t.Helper()
	base := []Option{WithEnvMap(env), WithoutSystemEnv(), WithEnvFile("")}
	return Load(context.Background(), append(base, opts...)...)
}

func mustLoad(t *testing.T, env map[string]string, opts ...Option) Config {
	t.Helper()
	cfg, err := load(t, env, opts...)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg := mustLoad(t, map[string]string{"API_FIREBASE_PROJECT_ID": "uk-dev"})

	checks := []struct {
		field string
		ok    bool
	}{
		{"Server.Port", cfg.Server.Port == "8080"},
		{"Server.ReadTimeout", cfg.Server.ReadTimeout == defaultReadTimeout},
		{"Firestore.ProjectID", cfg.Firestore.ProjectID == "uk-dev"},
		{"Store.Mode", cfg.Store.Mode == StoreModeAuto},
		{"Commerce.Currency", cfg.Commerce.Currency == "INR"},
		{"Commerce.OrderPrefix", cfg.Commerce.OrderPrefix == "UK"},
		{"Commerce.CartTTL", cfg.Commerce.CartTTL == 30*24*time.Hour},
		{"PSP.DefaultProvider", cfg.PSP.DefaultProvider == "razorpay"},
		{"PSP.CurrencyRoutes", len(cfg.PSP.CurrencyRoutes) == 0},
		{"Events.Driver", cfg.Events.Driver == "log"},
		{"Security.Environment", cfg.Security.Environment == "local"},
		{"Security.OIDC.JWKSURL", cfg.Security.OIDC.JWKSURL == defaultOIDCJWKSURL},
		{"Security.OIDC.Issuers", slices.Equal(cfg.Security.OIDC.Issuers, []string{defaultSecurityIssuer})},
		{"Idempotency.Header", cfg.Idempotency.Header == "Idempotency-Key"},
		{"Idempotency.TTL", cfg.Idempotency.TTL == 24*time.Hour},
	}
	for _, c := range checks {
		if !c.ok {
			t.Errorf("unexpected default for %s: %+v", c.field, cfg)
		}
	}
}

func TestLoadOverridesAndResolvesSecrets(t *testing.T) {
	env := map[string]string{
		"API_SERVER_PORT":                 "9090",
		"API_SERVER_IDLE_TIMEOUT":         "2m",
		"API_FIREBASE_PROJECT_ID":         "uk-prod",
		"API_FIRESTORE_PROJECT_ID":        "uk-fire",
		"API_STORE_MODE":                  "Persistent",
		"API_COMMERCE_ORDER_PREFIX":       "ul",
		"API_PSP_DEFAULT_PROVIDER":        "STRIPE",
		"API_PSP_CURRENCY_ROUTES":         "USD=stripe, inr=razorpay, broken",
		"API_PSP_GATEWAY_TIMEOUT":         "4s",
		"API_PSP_RAZORPAY_KEY_SECRET":     "secret://razorpay/key",
		"API_PSP_RAZORPAY_WEBHOOK_SECRET": "secret://razorpay/webhook",
		"API_PSP_STRIPE_API_KEY":          "secret://stripe/api",
		"API_PSP_STRIPE_WEBHOOK_SECRET":   "plain-whsec",
		"API_EVENTS_DRIVER":               "kafka",
		"API_EVENTS_KAFKA_BROKERS":        "kafka-1:9092, ,kafka-2:9092",
		"API_REDIS_ADDR":                  "localhost:6379",
		"API_REDIS_DB":                    "2",
		"API_SECURITY_ENVIRONMENT":        "PROD",
		"API_SECURITY_OIDC_ISSUERS":       "https://accounts.google.com,https://cloud.google.com/iap",
		"API_IDEMPOTENCY_TTL":             "48h",
	}
	vault := map[string]string{
		"secret://razorpay/key":     "rzp-secret",
		"secret://razorpay/webhook": "rzp-webhook",
		"secret://stripe/api":       "sk_test",
	}
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if v, ok := vault[ref]; ok {
			return v, nil
		}
		return "", errors.New("unknown ref")
	})

	cfg := mustLoad(t, env, WithSecretResolver(resolver))

	if cfg.Server.Port != "9090" || cfg.Server.IdleTimeout != 2*time.Minute {
		t.Errorf("server overrides lost: %+v", cfg.Server)
	}
	if cfg.Firestore.ProjectID != "uk-fire" || cfg.Store.Mode != StoreModePersistent {
		t.Errorf("store overrides lost: %+v %+v", cfg.Firestore, cfg.Store)
	}
	if cfg.Commerce.OrderPrefix != "UL" || cfg.PSP.DefaultProvider != "stripe" {
		t.Errorf("case normalisation failed: %s %s", cfg.Commerce.OrderPrefix, cfg.PSP.DefaultProvider)
	}
	if cfg.PSP.RazorpayKeySecret != "rzp-secret" || cfg.PSP.RazorpayWebhookSecret != "rzp-webhook" || cfg.PSP.StripeAPIKey != "sk_test" {
		t.Errorf("secrets not resolved: %+v", cfg.PSP)
	}
	if cfg.PSP.StripeWebhookSecret != "plain-whsec" {
		t.Errorf("plain value should pass through, got %q", cfg.PSP.StripeWebhookSecret)
	}
	if len(cfg.PSP.CurrencyRoutes) != 2 || cfg.PSP.CurrencyRoutes["usd"] != "stripe" {
		t.Errorf("currency routes %v", cfg.PSP.CurrencyRoutes)
	}
	if !slices.Equal(cfg.Events.KafkaBrokers, []string{"kafka-1:9092", "kafka-2:9092"}) {
		t.Errorf("kafka brokers %v", cfg.Events.KafkaBrokers)
	}
	if cfg.Redis.DB != 2 || cfg.Security.Environment != "prod" || len(cfg.Security.OIDC.Issuers) != 2 {
		t.Errorf("unexpected redis/security config %+v %+v", cfg.Redis, cfg.Security)
	}
	if cfg.Idempotency.TTL != 48*time.Hour {
		t.Errorf("idempotency ttl %s", cfg.Idempotency.TTL)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env.test")
	content := "API_SERVER_PORT=7070\nAPI_FIREBASE_PROJECT_ID=uk-dot\n# comment\nexport API_STORE_MODE=\"memory\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(context.Background(), WithEnvFile(path), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "7070" || cfg.Firebase.ProjectID != "uk-dot" || cfg.Store.Mode != StoreModeMemory {
		t.Fatalf("dotenv values not applied: %+v", cfg)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want []string
	}{
		{"empty", map[string]string{}, []string{"Firebase.ProjectID"}},
		{
			"bad policy values",
			map[string]string{
				"API_FIREBASE_PROJECT_ID":   "uk-dev",
				"API_STORE_MODE":            "sqlite",
				"API_COMMERCE_ORDER_PREFIX": "UKL",
				"API_EVENTS_DRIVER":         "amqp",
				"API_PSP_DEFAULT_PROVIDER":  "paypal",
			},
			[]string{"Store.Mode", "Commerce.OrderPrefix", "Events.AMQPURL", "PSP.DefaultProvider"},
		},
		{
			"unknown event driver",
			map[string]string{"API_FIREBASE_PROJECT_ID": "uk-dev", "API_EVENTS_DRIVER": "nats"},
			[]string{"Events.Driver"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := load(t, tc.env)
			var invalid *ValidationError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			for _, field := range tc.want {
				if !slices.Contains(invalid.Fields(), field) {
					t.Errorf("missing %s in %v", field, invalid.Fields())
				}
			}
		})
	}
}

func TestLoadMemoryModeSkipsFirestoreProject(t *testing.T) {
	cfg := mustLoad(t, map[string]string{"API_FIREBASE_PROJECT_ID": "uk-dev", "API_STORE_MODE": "memory"})
	if cfg.Store.Mode != StoreModeMemory {
		t.Fatalf("mode = %s", cfg.Store.Mode)
	}
}

func TestLoadSecretReferenceErrors(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID":     "uk-dev",
		"API_PSP_RAZORPAY_KEY_SECRET": "secret://missing",
	}

	_, err := load(t, env)
	var secretErr *SecretError
	if !errors.As(err, &secretErr) || secretErr.Ref != "secret://missing" {
		t.Fatalf("expected SecretError for secret://missing, got %v", err)
	}
	if !errors.Is(err, errSecretResolverNotConfigured) {
		t.Fatalf("expected resolver-not-configured cause, got %v", err)
	}
}

func TestLoadLegacySecretScheme(t *testing.T) {
	var asked string
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		asked = ref
		return "legacy-secret", nil
	})
	cfg := mustLoad(t, map[string]string{
		"API_FIREBASE_PROJECT_ID":         "uk-dev",
		"API_PSP_RAZORPAY_WEBHOOK_SECRET": "sm://razorpay/webhook",
	}, WithSecretResolver(resolver))

	if asked != "secret://razorpay/webhook" || cfg.PSP.RazorpayWebhookSecret != "legacy-secret" {
		t.Fatalf("asked %q, got %q", asked, cfg.PSP.RazorpayWebhookSecret)
	}
}

func TestLoadRequiredSecrets(t *testing.T) {
	env := map[string]string{"API_FIREBASE_PROJECT_ID": "uk-dev"}

	_, err := load(t, env, WithRequiredSecrets("PSP.RazorpayKeySecret", "PSP.RazorpayKeySecret", " "))
	var missing *MissingSecretsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingSecretsError, got %v", err)
	}
	if got := missing.RedactedNames(); len(got) != 1 || got[0] != redactSecretName("PSP.RazorpayKeySecret") {
		t.Fatalf("redacted names %v", got)
	}

	defer func() {
		rec, ok := recover().(*MissingSecretsError)
		if !ok || !slices.Equal(rec.Names(), []string{"PSP.StripeWebhookSecret"}) {
			t.Fatalf("expected MissingSecretsError panic, got %v", rec)
		}
	}()
	load(t, env, WithRequiredSecrets("PSP.StripeWebhookSecret"), WithPanicOnMissingSecrets())
}

func TestEnvironmentValuesPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env.test")
	if err := os.WriteFile(path, []byte("API_FIREBASE_PROJECT_ID=dot\nAPI_SECRET_FALLBACK_FILE=.dot.local\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("API_FIREBASE_PROJECT_ID", "os")
	t.Setenv("API_SECRET_DEFAULT_PROJECT_ID", "secrets-prod")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	values, err := EnvironmentValues(WithEnvFile(path), WithEnvMap(map[string]string{"API_FIREBASE_PROJECT_ID": "override"}))
	if err != nil {
		t.Fatalf("EnvironmentValues: %v", err)
	}
	want := map[string]string{
		"API_FIREBASE_PROJECT_ID":       "override",
		"API_SECRET_FALLBACK_FILE":      ".dot.local",
		"API_SECRET_DEFAULT_PROJECT_ID": "secrets-prod",
	}
	for key, value := range want {
		if values[key] != value {
			t.Errorf("%s = %q, want %q", key, values[key], value)
		}
	}
	if _, ok := values["UNRELATED_VARIABLE"]; ok {
		t.Errorf("non API_ variable leaked")
	}
}

func TestReaderFallsBackOnBadValues(t *testing.T) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(map[string]any{
		"D": "soon",
		"N": "two",
		"P": "a=1,=2,b=,C=3",
	}, ""), nil); err != nil {
		t.Fatal(err)
	}
	r := reader{k: k}
	if r.duration("D", time.Second) != time.Second || r.integer("N", 7) != 7 {
		t.Fatalf("expected fallbacks for unparsable values")
	}
	if got := r.pairs("P"); len(got) != 2 || got["a"] != "1" || got["c"] != "3" {
		t.Fatalf("pairs = %v", got)
	}
	if got := r.list("missing"); got == nil || len(got) != 0 {
		t.Fatalf("list of missing key should be empty, got %#v", got)
	}
}

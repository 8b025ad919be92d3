package config

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

const (
	envPrefix                  = "API_"
	defaultEnvFile             = ".env"
	defaultPort                = "8080"
	defaultReadTimeout         = 15 * time.Second
	defaultWriteTimeout        = 30 * time.Second
	defaultIdleTimeout         = 120 * time.Second
	defaultShutdownTimeout     = 10 * time.Second
	defaultStoreMode           = StoreModeAuto
	defaultStoreProbeTimeout   = 3 * time.Second
	defaultCurrency            = "INR"
	defaultOrderPrefix         = "UK"
	defaultLocale              = "en-IN"
	defaultCartTTL             = 30 * 24 * time.Hour
	defaultDeliveryEstimate    = 5 * 24 * time.Hour
	defaultPaymentProvider     = "razorpay"
	defaultGatewayTimeout      = 10 * time.Second
	defaultEventsDriver        = "log"
	defaultPubSubTopic         = "order-events"
	defaultAMQPExchange        = "orders"
	defaultSecurityEnvironment = "local"
	defaultOIDCJWKSURL         = "https://www.googleapis.com/oauth2/v3/certs"
	defaultSecurityIssuer      = "https://accounts.google.com"
	defaultIdempotencyHeader   = "Idempotency-Key"
	defaultIdempotencyTTL      = 24 * time.Hour
	defaultIdempotencyInterval = time.Hour
)

// Store modes accepted by API_STORE_MODE.
const (
	StoreModeAuto       = "auto"
	StoreModePersistent = "persistent"
	StoreModeMemory     = "memory"
)

var orderPrefixPattern = regexp.MustCompile(`^[A-Z]{2}$`)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Firebase    FirebaseConfig
	Firestore   FirestoreConfig
	Store       StoreConfig
	Commerce    CommerceConfig
	PSP         PSPConfig
	Events      EventsConfig
	Redis       RedisConfig
	Receipts    ReceiptsConfig
	Security    SecurityConfig
	Idempotency IdempotencyConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// FirebaseConfig stores Firebase project settings.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Mode         string
	ProbeTimeout time.Duration
	CatalogFile  string
}

// CommerceConfig holds storefront policy values.
type CommerceConfig struct {
	Currency         string
	OrderPrefix      string
	Locale           string
	CartTTL          time.Duration
	DeliveryEstimate time.Duration
}

// PSPConfig collects credentials for payment providers.
type PSPConfig struct {
	DefaultProvider       string
	CurrencyRoutes        map[string]string
	GatewayTimeout        time.Duration
	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	StripeAPIKey          string
	StripeWebhookSecret   string
}

// EventsConfig selects the order event publisher.
type EventsConfig struct {
	Driver       string
	PubSubTopic  string
	KafkaBrokers []string
	AMQPURL      string
	AMQPExchange string
}

// RedisConfig points at the idempotency store. Empty Addr keeps the in-memory store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ReceiptsConfig controls receipt archiving. Empty Bucket disables it.
type ReceiptsConfig struct {
	Bucket string
}

// SecurityConfig groups server-to-server authentication settings.
type SecurityConfig struct {
	Environment string
	OIDC        OIDCConfig
}

// OIDCConfig controls Google-signed token verification for courier callbacks.
type OIDCConfig struct {
	JWKSURL  string
	Audience string
	Issuers  []string
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header          string
	TTL             time.Duration
	CleanupInterval time.Duration
}

// Load reads API_* settings from dotenv, the process environment and explicit overrides (in
// increasing precedence), resolves secret references and validates the result.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	src := newSources(opts)
	k, err := src.merge()
	if err != nil {
		return Config{}, err
	}
	r := reader{k: k}

	var cfg Config
	cfg.Server = ServerConfig{
		Port:            r.str("API_SERVER_PORT", defaultPort),
		ReadTimeout:     r.duration("API_SERVER_READ_TIMEOUT", defaultReadTimeout),
		WriteTimeout:    r.duration("API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
		IdleTimeout:     r.duration("API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		ShutdownTimeout: r.duration("API_SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}
	cfg.Firebase = FirebaseConfig{
		ProjectID:       r.raw("API_FIREBASE_PROJECT_ID"),
		CredentialsFile: r.raw("API_FIREBASE_CREDENTIALS_FILE"),
	}
	cfg.Firestore = FirestoreConfig{
		ProjectID:    r.str("API_FIRESTORE_PROJECT_ID", cfg.Firebase.ProjectID),
		EmulatorHost: r.raw("API_FIRESTORE_EMULATOR_HOST"),
	}
	cfg.Store = StoreConfig{
		Mode:         r.lower("API_STORE_MODE", defaultStoreMode),
		ProbeTimeout: r.duration("API_STORE_PROBE_TIMEOUT", defaultStoreProbeTimeout),
		CatalogFile:  r.raw("API_STORE_CATALOG_FILE"),
	}
	cfg.Commerce = CommerceConfig{
		Currency:         r.upper("API_COMMERCE_CURRENCY", defaultCurrency),
		OrderPrefix:      r.upper("API_COMMERCE_ORDER_PREFIX", defaultOrderPrefix),
		Locale:           r.str("API_COMMERCE_LOCALE", defaultLocale),
		CartTTL:          r.duration("API_COMMERCE_CART_TTL", defaultCartTTL),
		DeliveryEstimate: r.duration("API_COMMERCE_DELIVERY_ESTIMATE", defaultDeliveryEstimate),
	}
	cfg.PSP = PSPConfig{
		DefaultProvider:       r.lower("API_PSP_DEFAULT_PROVIDER", defaultPaymentProvider),
		CurrencyRoutes:        r.pairs("API_PSP_CURRENCY_ROUTES"),
		GatewayTimeout:        r.duration("API_PSP_GATEWAY_TIMEOUT", defaultGatewayTimeout),
		RazorpayKeyID:         r.raw("API_PSP_RAZORPAY_KEY_ID"),
		RazorpayKeySecret:     r.raw("API_PSP_RAZORPAY_KEY_SECRET"),
		RazorpayWebhookSecret: r.raw("API_PSP_RAZORPAY_WEBHOOK_SECRET"),
		StripeAPIKey:          r.raw("API_PSP_STRIPE_API_KEY"),
		StripeWebhookSecret:   r.raw("API_PSP_STRIPE_WEBHOOK_SECRET"),
	}
	cfg.Events = EventsConfig{
		Driver:       r.lower("API_EVENTS_DRIVER", defaultEventsDriver),
		PubSubTopic:  r.str("API_EVENTS_PUBSUB_TOPIC", defaultPubSubTopic),
		KafkaBrokers: r.list("API_EVENTS_KAFKA_BROKERS"),
		AMQPURL:      r.raw("API_EVENTS_AMQP_URL"),
		AMQPExchange: r.str("API_EVENTS_AMQP_EXCHANGE", defaultAMQPExchange),
	}
	cfg.Redis = RedisConfig{
		Addr:     r.raw("API_REDIS_ADDR"),
		Password: r.raw("API_REDIS_PASSWORD"),
		DB:       r.integer("API_REDIS_DB", 0),
	}
	cfg.Receipts = ReceiptsConfig{Bucket: r.raw("API_RECEIPTS_BUCKET")}
	cfg.Security = SecurityConfig{
		Environment: r.lower("API_SECURITY_ENVIRONMENT", defaultSecurityEnvironment),
		OIDC: OIDCConfig{
			JWKSURL:  r.str("API_SECURITY_OIDC_JWKS_URL", defaultOIDCJWKSURL),
			Audience: r.raw("API_SECURITY_OIDC_AUDIENCE"),
			Issuers:  r.list("API_SECURITY_OIDC_ISSUERS"),
		},
	}
	if len(cfg.Security.OIDC.Issuers) == 0 {
		cfg.Security.OIDC.Issuers = []string{defaultSecurityIssuer}
	}
	cfg.Idempotency = IdempotencyConfig{
		Header:          r.str("API_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
		TTL:             r.duration("API_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
		CleanupInterval: r.duration("API_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencyInterval),
	}

	resolved, err := src.resolve(ctx, map[string]*string{
		"PSP.RazorpayKeySecret":     &cfg.PSP.RazorpayKeySecret,
		"PSP.RazorpayWebhookSecret": &cfg.PSP.RazorpayWebhookSecret,
		"PSP.StripeAPIKey":          &cfg.PSP.StripeAPIKey,
		"PSP.StripeWebhookSecret":   &cfg.PSP.StripeWebhookSecret,
		"Redis.Password":            &cfg.Redis.Password,
	})
	if err != nil {
		return Config{}, err
	}

	if invalid := cfg.invalidFields(); len(invalid) > 0 {
		return Config{}, &ValidationError{fields: invalid}
	}

	if missing := src.checkRequired(resolved); missing != nil {
		if src.panicOnRequired {
			fmt.Fprintln(os.Stderr, missing.Error())
			panic(missing)
		}
		return Config{}, missing
	}
	return cfg, nil
}

func (cfg Config) invalidFields() []string {
	var bad []string
	check := func(ok bool, field string) {
		if !ok {
			bad = append(bad, field)
		}
	}

	check(cfg.Server.Port != "", "Server.Port")
	check(cfg.Firebase.ProjectID != "", "Firebase.ProjectID")
	switch cfg.Store.Mode {
	case StoreModeMemory:
	case StoreModeAuto, StoreModePersistent:
		check(cfg.Firestore.ProjectID != "", "Firestore.ProjectID")
	default:
		bad = append(bad, "Store.Mode")
	}
	check(cfg.Store.ProbeTimeout > 0, "Store.ProbeTimeout")

	check(len(cfg.Commerce.Currency) == 3, "Commerce.Currency")
	check(orderPrefixPattern.MatchString(cfg.Commerce.OrderPrefix), "Commerce.OrderPrefix")
	check(cfg.Commerce.CartTTL > 0, "Commerce.CartTTL")

	check(cfg.PSP.DefaultProvider == "razorpay" || cfg.PSP.DefaultProvider == "stripe", "PSP.DefaultProvider")
	check(cfg.PSP.GatewayTimeout > 0, "PSP.GatewayTimeout")

	switch cfg.Events.Driver {
	case "log":
	case "pubsub":
		check(strings.TrimSpace(cfg.Events.PubSubTopic) != "", "Events.PubSubTopic")
	case "kafka":
		check(len(cfg.Events.KafkaBrokers) > 0, "Events.KafkaBrokers")
	case "amqp":
		check(strings.TrimSpace(cfg.Events.AMQPURL) != "", "Events.AMQPURL")
	default:
		bad = append(bad, "Events.Driver")
	}

	check(strings.TrimSpace(cfg.Idempotency.Header) != "", "Idempotency.Header")
	check(cfg.Idempotency.TTL > 0, "Idempotency.TTL")
	check(cfg.Idempotency.CleanupInterval > 0, "Idempotency.CleanupInterval")
	return bad
}

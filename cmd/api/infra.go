package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	gcs "cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/di"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/payments"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/config"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/events"
	pfirestore "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/firestore"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/idempotency"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/observability"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/secrets"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/storage"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/repositories"
	firestorerepo "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/repositories/firestore"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/repositories/memory"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/services"
)

// infrastructure holds the adapters built from config before services are wired.
type infrastructure struct {
	store       repositories.Store
	metrics     *observability.Metrics
	payments    *payments.Manager
	events      events.Publisher
	receipts    services.ReceiptArchiver
	redis       *redis.Client
	idempotency idempotency.Store
	health      repositories.HealthRepository
}

func newInfrastructure(ctx context.Context, logger *zap.Logger, cfg config.Config, fetcher *secrets.Fetcher, td *teardown) (infrastructure, error) {
	var infra infrastructure
	var err error

	if infra.store, err = selectStore(ctx, logger.Named("store"), cfg); err != nil {
		return infra, fmt.Errorf("select store: %w", err)
	}
	logger.Info("store selected", zap.String("storeMode", string(infra.store.Mode())))

	if infra.metrics, err = observability.NewMetrics(nil); err != nil {
		return infra, fmt.Errorf("metrics: %w", err)
	}
	if infra.payments, err = newPaymentManager(logger.Named("payments"), cfg); err != nil {
		return infra, fmt.Errorf("payment gateways: %w", err)
	}
	if infra.events, err = newEventPublisher(ctx, logger.Named("events"), cfg, td); err != nil {
		return infra, fmt.Errorf("event publisher: %w", err)
	}
	if infra.receipts, err = newReceiptArchiver(ctx, cfg, td); err != nil {
		return infra, fmt.Errorf("receipts: %w", err)
	}

	if addr := strings.TrimSpace(cfg.Redis.Addr); addr != "" {
		infra.redis = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		td.addCloser("redis", infra.redis.Close)
		if infra.idempotency, err = idempotency.NewRedisStore(infra.redis); err != nil {
			return infra, fmt.Errorf("idempotency store: %w", err)
		}
	} else {
		infra.idempotency = idempotency.NewMemoryStore()
	}

	infra.health, err = repositories.NewDependencyHealthRepository(
		dependencyChecks(infra, fetcher),
		repositories.WithStoreMode(infra.store.Mode()),
	)
	if err != nil {
		return infra, fmt.Errorf("health checks: %w", err)
	}
	return infra, nil
}

func (i infrastructure) containerDeps(logger *zap.Logger, build services.BuildInfo) di.Infrastructure {
	return di.Infrastructure{
		Payments: i.payments,
		Events:   i.events,
		Receipts: i.receipts,
		Metrics:  i.metrics,
		Health:   i.health,
		Build:    build,
		Logger:   logger,
		Clock:    time.Now,
	}
}

func selectStore(ctx context.Context, logger *zap.Logger, cfg config.Config) (repositories.Store, error) {
	memoryOpts := []memory.Option{memory.WithCartTTL(cfg.Commerce.CartTTL)}
	if path := strings.TrimSpace(cfg.Store.CatalogFile); path != "" {
		products, err := memory.LoadCatalog(path)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", path, err)
		}
		memoryOpts = append(memoryOpts, memory.WithProducts(products))
	}

	return repositories.SelectStore(ctx, repositories.StoreSelection{
		Mode:         cfg.Store.Mode,
		ProbeTimeout: cfg.Store.ProbeTimeout,
		Persistent: func(context.Context) (repositories.Store, error) {
			return firestorerepo.NewStore(pfirestore.NewProvider(cfg.Firestore), firestorerepo.WithCartTTL(cfg.Commerce.CartTTL))
		},
		Fallback: func() repositories.Store { return memory.NewStore(memoryOpts...) },
		Logger:   di.ServiceLogger(logger, "selector"),
	})
}

// newPaymentManager registers every gateway that has credentials. The default provider must be
// one of them.
func newPaymentManager(logger *zap.Logger, cfg config.Config) (*payments.Manager, error) {
	registered := map[string]payments.Provider{}

	if cfg.PSP.RazorpayKeySecret != "" {
		p, err := payments.NewRazorpayProvider(payments.RazorpayProviderConfig{
			KeyID:         cfg.PSP.RazorpayKeyID,
			KeySecret:     cfg.PSP.RazorpayKeySecret,
			WebhookSecret: cfg.PSP.RazorpayWebhookSecret,
			Timeout:       cfg.PSP.GatewayTimeout,
			Logger:        di.ServiceLogger(logger, payments.ProviderRazorpay),
		})
		if err != nil {
			return nil, err
		}
		registered[payments.ProviderRazorpay] = p
	}
	if cfg.PSP.StripeAPIKey != "" {
		p, err := payments.NewStripeProvider(payments.StripeProviderConfig{
			APIKey:        cfg.PSP.StripeAPIKey,
			WebhookSecret: cfg.PSP.StripeWebhookSecret,
			Logger:        di.ServiceLogger(logger, payments.ProviderStripe),
		})
		if err != nil {
			return nil, err
		}
		registered[payments.ProviderStripe] = p
	}
	if registered[cfg.PSP.DefaultProvider] == nil {
		return nil, fmt.Errorf("default provider %q has no credentials", cfg.PSP.DefaultProvider)
	}
	return payments.NewManager(registered,
		payments.WithDefaultProvider(cfg.PSP.DefaultProvider),
		payments.WithCurrencyRoutes(cfg.PSP.CurrencyRoutes),
	)
}

func newEventPublisher(ctx context.Context, logger *zap.Logger, cfg config.Config, td *teardown) (events.Publisher, error) {
	switch cfg.Events.Driver {
	case "pubsub":
		var opts []option.ClientOption
		if file := cfg.Firebase.CredentialsFile; file != "" {
			opts = append(opts, option.WithCredentialsFile(file))
		}
		client, err := pubsub.NewClient(ctx, cfg.Firebase.ProjectID, opts...)
		if err != nil {
			return nil, err
		}
		td.addCloser("pubsub", client.Close)
		return events.NewPubSubPublisher(client.Topic(cfg.Events.PubSubTopic))
	case "kafka":
		return events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Events.KafkaBrokers))
	case "amqp":
		return events.DialAMQP(cfg.Events.AMQPURL, cfg.Events.AMQPExchange)
	default:
		return events.NewLogPublisher(logger), nil
	}
}

// newReceiptArchiver returns nil when no bucket is configured.
func newReceiptArchiver(ctx context.Context, cfg config.Config, td *teardown) (services.ReceiptArchiver, error) {
	bucket := strings.TrimSpace(cfg.Receipts.Bucket)
	if bucket == "" {
		return nil, nil
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	td.addCloser("storage", client.Close)
	return storage.NewReceiptArchiver(client, bucket, cfg.Commerce.Locale)
}

// secretProbeRef is looked up on every readiness probe. NotFound still proves Secret Manager
// answered.
const secretProbeRef = "secret://system/healthz?version=latest"

func dependencyChecks(infra infrastructure, fetcher *secrets.Fetcher) []repositories.DependencyCheck {
	checks := []repositories.DependencyCheck{
		{Name: "store", Timeout: 1500 * time.Millisecond, Critical: true, Check: infra.store.Ping},
	}
	if pinger, ok := infra.events.(interface{ Ping(context.Context) error }); ok {
		checks = append(checks, repositories.DependencyCheck{Name: "events", Timeout: time.Second, Check: pinger.Ping})
	}
	if client := infra.redis; client != nil {
		checks = append(checks, repositories.DependencyCheck{
			Name:    "redis",
			Timeout: 500 * time.Millisecond,
			Check:   func(ctx context.Context) error { return client.Ping(ctx).Err() },
		})
	}
	if fetcher != nil {
		checks = append(checks, repositories.DependencyCheck{
			Name:    "secretManager",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				_, err := fetcher.Resolve(ctx, secretProbeRef)
				if status.Code(err) == codes.NotFound {
					return nil
				}
				return err
			},
		})
	}
	return checks
}

package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/payments"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/config"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/repositories"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Cart     services.CartService
	Checkout services.CheckoutService
	Payments services.PaymentService
	Orders   services.OrderService
	System   services.SystemService
}

// Infrastructure carries the adapters built by the entrypoint. Events, Receipts, Metrics and Health
// are optional; a nil value disables the corresponding side effect.
type Infrastructure struct {
	Payments *payments.Manager
	Events   services.OrderEventPublisher
	Receipts services.ReceiptArchiver
	Metrics  services.Metrics
	Health   repositories.HealthRepository
	Build    services.BuildInfo
	Logger   *zap.Logger
	Clock    func() time.Time
}

// Container wires the selected store, services, and their adapters for runtime use.
type Container struct {
	Config   config.Config
	Store    repositories.Store
	Services Services

	events services.OrderEventPublisher
}

// NewContainer constructs the runtime dependencies on top of an already selected store.
func NewContainer(ctx context.Context, cfg config.Config, store repositories.Store, infra Infrastructure) (*Container, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if infra.Payments == nil {
		return nil, errors.New("payment manager is required")
	}

	svc, err := buildServices(ctx, cfg, store, infra)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:   cfg,
		Store:    store,
		Services: svc,
		events:   infra.Events,
	}, nil
}

// StoreMode reports the backend chosen at startup.
func (c *Container) StoreMode() string {
	if c == nil || c.Store == nil {
		return ""
	}
	return string(c.Store.Mode())
}

// Close releases the event publisher connection and the store client.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	if closer, ok := c.events.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close events: %w", err))
		}
	}
	if c.Store != nil {
		if err := c.Store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

func buildServices(_ context.Context, cfg config.Config, store repositories.Store, infra Infrastructure) (Services, error) {
	clock := infra.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := infra.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var svc Services
	pricing := services.PricingEngine{}

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Carts:    store.Carts(),
		Products: store.Products(),
		Pricing:  pricing,
		TTL:      cfg.Commerce.CartTTL,
		Clock:    clock,
		Logger:   ServiceLogger(logger, "cart"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cartSvc

	factory, err := services.NewOrderFactory(services.OrderFactoryDeps{
		Orders:   store.Orders(),
		Pricing:  pricing,
		Numbers:  services.OrderNumberGenerator{Prefix: cfg.Commerce.OrderPrefix},
		Currency: cfg.Commerce.Currency,
		Clock:    clock,
		Logger:   ServiceLogger(logger, "orders"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order factory: %w", err)
	}

	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Carts:    store.Carts(),
		Orders:   store.Orders(),
		Factory:  factory,
		Payments: infra.Payments,
		Events:   infra.Events,
		Metrics:  infra.Metrics,
		Clock:    clock,
		Logger:   ServiceLogger(logger, "checkout"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}
	svc.Checkout = checkoutSvc

	paymentSvc, err := services.NewPaymentService(services.PaymentServiceDeps{
		Carts:    store.Carts(),
		Orders:   store.Orders(),
		Payments: infra.Payments,
		Events:   infra.Events,
		Receipts: infra.Receipts,
		Metrics:  infra.Metrics,
		Locale:   cfg.Commerce.Locale,
		Clock:    clock,
		Logger:   ServiceLogger(logger, "payments"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build payment service: %w", err)
	}
	svc.Payments = paymentSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:           store.Orders(),
		Events:           infra.Events,
		Metrics:          infra.Metrics,
		DeliveryEstimate: cfg.Commerce.DeliveryEstimate,
		Clock:            clock,
		Logger:           ServiceLogger(logger, "orders"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	if infra.Health != nil {
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: infra.Health,
			Clock:            clock,
			Build:            infra.Build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}

// ServiceLogger adapts a named zap logger to the services.Logger callback.
func ServiceLogger(logger *zap.Logger, name string) services.Logger {
	if logger == nil {
		return nil
	}
	named := logger.Named(name)
	return func(ctx context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields)+1)
		zFields = append(zFields, zap.String("event", event))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		named.Debug(name+" log", zFields...)
	}
}

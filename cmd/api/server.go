package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/di"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/handlers"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/auth"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/config"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/idempotency"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/observability"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/services"
)

const sweepBatch = 500

type app struct {
	logger      *zap.Logger
	cfg         config.Config
	server      *http.Server
	idempotency idempotency.Store
}

func newApp(ctx context.Context, logger *zap.Logger, cfg config.Config, build services.BuildInfo, infra infrastructure, td *teardown) (*app, error) {
	container, err := di.NewContainer(ctx, cfg, infra.store, infra.containerDeps(logger, build))
	if err != nil {
		return nil, err
	}
	td.add("container", container.Close)

	verifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		return nil, err
	}
	router := newRouter(logger, cfg, build, container, infra, auth.NewAuthenticator(verifier))

	return &app{
		logger: logger,
		cfg:    cfg,
		server: &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		idempotency: infra.idempotency,
	}, nil
}

func newRouter(logger *zap.Logger, cfg config.Config, build services.BuildInfo, container *di.Container, infra infrastructure, authn *auth.Authenticator) http.Handler {
	svc := container.Services
	storeMode := container.StoreMode()
	httpLogger := logger.Named("http")

	checkoutKeys := idempotency.Middleware(infra.idempotency,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
	)

	opts := []handlers.Option{
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(httpLogger),
			observability.TraceMiddleware(traceProject(cfg)),
			observability.RecoveryMiddleware(httpLogger),
			observability.RequestLoggerMiddleware(storeMode, infra.metrics),
		),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(
			handlers.WithHealthBuildInfo(build),
			handlers.WithHealthSystemService(svc.System),
		)),
		handlers.WithStoreMode(storeMode),
		handlers.WithExposeErrors(build.Environment == "local"),
		handlers.WithCartRoutes(handlers.NewCartHandlers(authn, svc.Cart).Routes),
		handlers.WithPaymentRoutes(handlers.NewPaymentHandlers(authn, svc.Checkout, svc.Payments, svc.Orders,
			handlers.WithCheckoutIdempotency(checkoutKeys),
		).Routes),
		handlers.WithAdminRoutes(handlers.NewAdminOrderHandlers(authn, svc.Orders, svc.Payments).Routes),
		handlers.WithWebhookRoutes(handlers.NewPaymentWebhookHandlers(svc.Payments).Routes),
	}

	if partner := oidcMiddleware(logger.Named("auth"), cfg.Security.OIDC); partner != nil {
		opts = append(opts,
			handlers.WithInternalMiddlewares(partner),
			handlers.WithInternalRoutes(handlers.NewFulfillmentHandlers(svc.Orders).Routes),
		)
	} else {
		logger.Warn("oidc audience not set, internal fulfillment routes disabled")
	}
	return handlers.NewRouter(opts...)
}

// oidcMiddleware returns nil unless both the JWKS URL and the audience are set.
func oidcMiddleware(logger *zap.Logger, cfg config.OIDCConfig) func(http.Handler) http.Handler {
	if cfg.JWKSURL == "" || cfg.Audience == "" {
		return nil
	}
	keys := auth.NewJWKSCache(cfg.JWKSURL, auth.WithJWKSLogger(logger))
	return auth.NewOIDCValidator(keys, logger).RequireOIDC(cfg.Audience, cfg.Issuers)
}

func traceProject(cfg config.Config) string {
	if cfg.Firebase.ProjectID != "" {
		return cfg.Firebase.ProjectID
	}
	return cfg.Firestore.ProjectID
}

// serve runs the HTTP server and the idempotency sweeper until ctx is cancelled, then drains
// in-flight requests within the shutdown timeout.
func (a *app) serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("draining requests")
		drainCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(drainCtx)
	})

	g.Go(func() error {
		a.sweep(gctx)
		return nil
	})

	return g.Wait()
}

func (a *app) sweep(ctx context.Context) {
	log := a.logger.Named("idempotency")
	ticker := time.NewTicker(a.cfg.Idempotency.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, time.Minute)
			removed, err := a.idempotency.Sweep(runCtx, now.UTC(), sweepBatch)
			cancel()
			switch {
			case err != nil:
				log.Error("sweep failed", zap.Error(err))
			case removed > 0:
				log.Info("expired keys removed", zap.Int("count", removed))
			}
		}
	}
}

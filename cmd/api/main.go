// Command api serves the storefront cart, checkout and order HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/config"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/observability"
)

func main() {
	base, err := observability.NewLogger("ukiyo-api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	logger := base.Named("api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(observability.WithLogger(ctx, logger), logger)
	stop()
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Error("required secrets did not resolve", zap.Strings("secrets", missing.RedactedNames()))
		} else {
			logger.Error("api stopped", zap.Error(err))
		}
		_ = base.Sync()
		os.Exit(1)
	}
	_ = base.Sync()
}

func run(ctx context.Context, logger *zap.Logger) error {
	startedAt := time.Now().UTC()
	var td teardown
	defer td.run(logger)

	boot, err := bootstrap(ctx, logger, &td)
	if err != nil {
		return err
	}
	build := boot.buildInfo(startedAt)

	infra, err := newInfrastructure(ctx, logger, boot.cfg, boot.fetcher, &td)
	if err != nil {
		return err
	}

	app, err := newApp(ctx, logger, boot.cfg, build, infra, &td)
	if err != nil {
		return err
	}
	return app.serve(ctx)
}

// teardown closes resources in reverse order of registration.
type teardown struct {
	steps []teardownStep
}

type teardownStep struct {
	name  string
	close func(context.Context) error
}

func (t *teardown) add(name string, fn func(context.Context) error) {
	t.steps = append(t.steps, teardownStep{name: name, close: fn})
}

func (t *teardown) addCloser(name string, fn func() error) {
	t.add(name, func(context.Context) error { return fn() })
}

func (t *teardown) run(logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(t.steps) - 1; i >= 0; i-- {
		step := t.steps[i]
		if err := step.close(ctx); err != nil {
			logger.Warn("close failed", zap.String("resource", step.name), zap.Error(err))
		}
	}
}

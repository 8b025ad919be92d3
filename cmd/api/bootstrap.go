package main

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/payments"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/config"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/secrets"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/services"
)

type bootResult struct {
	env     map[string]string
	cfg     config.Config
	fetcher *secrets.Fetcher
}

// bootstrap reads the raw environment first so the secret fetcher exists before Load resolves
// secret:// references.
func bootstrap(ctx context.Context, logger *zap.Logger, td *teardown) (bootResult, error) {
	env, err := config.EnvironmentValues()
	if err != nil {
		return bootResult{}, err
	}

	fetcher, err := secrets.NewFetcher(ctx, fetcherOptions(logger, env)...)
	if err != nil {
		return bootResult{}, err
	}
	td.addCloser("secrets", fetcher.Close)

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(fetcher),
		config.WithRequiredSecrets(requiredSecretNames(env)...),
	)
	if err != nil {
		return bootResult{}, err
	}
	return bootResult{env: env, cfg: cfg, fetcher: fetcher}, nil
}

func fetcherOptions(logger *zap.Logger, env map[string]string) []secrets.Option {
	get := func(key string) string { return strings.TrimSpace(env[key]) }

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(cmp.Or(get("API_SECRET_FALLBACK_FILE"), ".secrets.local")),
	}
	if project := cmp.Or(get("API_SECRET_DEFAULT_PROJECT_ID"), get("API_FIREBASE_PROJECT_ID")); project != "" {
		opts = append(opts, secrets.WithDefaultProject(project))
	}
	if creds := get("API_FIREBASE_CREDENTIALS_FILE"); creds != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(creds)))
	}
	return opts
}

// requiredSecretNames lists the gateway secrets that must resolve for each enabled provider.
// The default provider is always enabled; the other one is enabled by setting its key.
func requiredSecretNames(env map[string]string) []string {
	primary := cmp.Or(strings.ToLower(strings.TrimSpace(env["API_PSP_DEFAULT_PROVIDER"])), payments.ProviderRazorpay)

	var names []string
	if primary == payments.ProviderRazorpay || strings.TrimSpace(env["API_PSP_RAZORPAY_KEY_ID"]) != "" {
		names = append(names, "PSP.RazorpayKeySecret", "PSP.RazorpayWebhookSecret")
	}
	if primary == payments.ProviderStripe || strings.TrimSpace(env["API_PSP_STRIPE_API_KEY"]) != "" {
		names = append(names, "PSP.StripeAPIKey", "PSP.StripeWebhookSecret")
	}
	slices.Sort(names)
	return slices.Compact(names)
}

func (b bootResult) buildInfo(started time.Time) services.BuildInfo {
	return services.BuildInfo{
		Version:     cmp.Or(strings.TrimSpace(b.env["API_BUILD_VERSION"]), "dev"),
		CommitSHA:   cmp.Or(strings.TrimSpace(b.env["API_BUILD_COMMIT_SHA"]), "unknown"),
		Environment: cmp.Or(b.cfg.Security.Environment, "local"),
		StartedAt:   started,
	}
}

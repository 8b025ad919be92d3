package main

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/config"
)

func TestRequiredSecretNames(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want []string
	}{
		{"razorpay by default", map[string]string{}, []string{"PSP.RazorpayKeySecret", "PSP.RazorpayWebhookSecret"}},
		{"stripe default", map[string]string{"API_PSP_DEFAULT_PROVIDER": "Stripe"}, []string{"PSP.StripeAPIKey", "PSP.StripeWebhookSecret"}},
		{"both enabled", map[string]string{"API_PSP_STRIPE_API_KEY": "secret://stripe/api"}, []string{
			"PSP.RazorpayKeySecret", "PSP.RazorpayWebhookSecret", "PSP.StripeAPIKey", "PSP.StripeWebhookSecret",
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := requiredSecretNames(tc.env); !slices.Equal(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTeardownRunsInReverse(t *testing.T) {
	var order []string
	var td teardown
	td.addCloser("first", func() error { order = append(order, "first"); return nil })
	td.add("second", func(context.Context) error { order = append(order, "second"); return errors.New("boom") })

	td.run(zap.NewNop())

	if !slices.Equal(order, []string{"second", "first"}) {
		t.Fatalf("unexpected close order %v", order)
	}
}

func TestBuildInfoDefaults(t *testing.T) {
	started := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	info := bootResult{env: map[string]string{"API_BUILD_VERSION": " 1.4.0 "}}.buildInfo(started)
	if info.Version != "1.4.0" || info.CommitSHA != "unknown" || info.Environment != "local" || !info.StartedAt.Equal(started) {
		t.Fatalf("unexpected build info %+v", info)
	}
}

func TestOIDCMiddlewareNeedsAudience(t *testing.T) {
	if oidcMiddleware(zap.NewNop(), config.OIDCConfig{JWKSURL: "https://example.com/certs"}) != nil {
		t.Fatalf("expected nil middleware without audience")
	}
	if oidcMiddleware(zap.NewNop(), config.OIDCConfig{JWKSURL: "https://example.com/certs", Audience: "api"}) == nil {
		t.Fatalf("expected middleware when audience is set")
	}
}

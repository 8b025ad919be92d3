package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// PaymentContext carries the hints used to pick a gateway for one call.
type PaymentContext struct {
	PreferredProvider string
	Currency          string
}

// Manager routes calls to a registered Provider. Selection order is the preferred provider,
// then the currency route, then the default, then the only registered provider.
type Manager struct {
	providers map[string]Provider
	fallback  string
	byCurr    map[string]string
}

// ManagerOption adjusts routing on a Manager.
type ManagerOption func(*Manager)

// WithDefaultProvider names the gateway used when no preference or currency route applies.
func WithDefaultProvider(provider string) ManagerOption {
	return func(m *Manager) { m.fallback = providerKey(provider) }
}

// WithCurrencyRoutes maps ISO currency codes to provider keys, e.g. {"usd": "stripe"}.
func WithCurrencyRoutes(routes map[string]string) ManagerOption {
	return func(m *Manager) {
		for currency, provider := range routes {
			if m.byCurr == nil {
				m.byCurr = make(map[string]string, len(routes))
			}
			m.byCurr[strings.ToUpper(strings.TrimSpace(currency))] = providerKey(provider)
		}
	}
}

func NewManager(providers map[string]Provider, opts ...ManagerOption) (*Manager, error) {
	if len(providers) == 0 {
		return nil, errors.New("payments: no providers registered")
	}
	m := &Manager{providers: make(map[string]Provider, len(providers))}
	for name, provider := range providers {
		key := providerKey(name)
		if key == "" || provider == nil {
			return nil, fmt.Errorf("payments: bad provider registration %q", name)
		}
		m.providers[key] = provider
	}
	if _, ok := m.providers[ProviderRazorpay]; ok {
		m.fallback = ProviderRazorpay
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func providerKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (m *Manager) pick(hints PaymentContext) (string, Provider, error) {
	if m == nil || len(m.providers) == 0 {
		return "", nil, ErrUnsupportedProvider
	}
	candidates := []string{
		providerKey(hints.PreferredProvider),
		m.byCurr[strings.ToUpper(strings.TrimSpace(hints.Currency))],
		m.fallback,
	}
	for _, key := range candidates {
		if p, ok := m.providers[key]; ok && key != "" {
			return key, p, nil
		}
	}
	if len(m.providers) == 1 {
		for key, p := range m.providers {
			return key, p, nil
		}
	}
	return "", nil, ErrUnsupportedProvider
}

// Resolve reports the provider key a call with these hints would use.
func (m *Manager) Resolve(hints PaymentContext) (string, error) {
	key, _, err := m.pick(hints)
	return key, err
}

func (m *Manager) CreateIntent(ctx context.Context, hints PaymentContext, req IntentRequest) (Intent, error) {
	key, provider, err := m.pick(hints)
	if err != nil {
		return Intent{}, err
	}
	intent, err := provider.CreateIntent(ctx, req)
	if err != nil {
		return Intent{}, err
	}
	intent.Provider = key
	return intent, nil
}

func (m *Manager) VerifyPayment(ctx context.Context, hints PaymentContext, req VerifyRequest) error {
	_, provider, err := m.pick(hints)
	if err != nil {
		return err
	}
	return provider.VerifyPayment(ctx, req)
}

func (m *Manager) Refund(ctx context.Context, hints PaymentContext, req RefundRequest) (RefundResult, error) {
	key, provider, err := m.pick(hints)
	if err != nil {
		return RefundResult{}, err
	}
	result, err := provider.Refund(ctx, req)
	if err != nil {
		return RefundResult{}, err
	}
	result.Provider = key
	return result, nil
}

// ParseWebhook verifies a notification with the named provider only. There is no routing
// fallback: a webhook signed for one gateway is never checked against another.
func (m *Manager) ParseWebhook(provider string, payload []byte, signature string) (WebhookEvent, error) {
	key := providerKey(provider)
	if m == nil || m.providers[key] == nil {
		return WebhookEvent{}, ErrUnsupportedProvider
	}
	event, err := m.providers[key].ParseWebhook(payload, signature)
	if err != nil {
		return WebhookEvent{}, err
	}
	event.Provider = key
	return event, nil
}

package observability

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/observability"

// Metrics holds the HTTP and commerce instruments. A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	requests       metric.Int64Counter
	latency        metric.Float64Histogram
	ordersCreated  metric.Int64Counter
	paymentsResult metric.Int64Counter
	transitions    metric.Int64Counter
}

// NewMetrics registers instruments on the supplied meter, or the global provider when nil.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(meterName)
	}
	requests, err := meter.Int64Counter("http.server.requests",
		metric.WithDescription("Count of HTTP requests by route and status"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("http.server.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("HTTP request latency in milliseconds"))
	if err != nil {
		return nil, err
	}
	ordersCreated, err := meter.Int64Counter("commerce.orders.created",
		metric.WithDescription("Orders created from carts"))
	if err != nil {
		return nil, err
	}
	paymentsResult, err := meter.Int64Counter("commerce.payments.verified",
		metric.WithDescription("Payment verification attempts by outcome"))
	if err != nil {
		return nil, err
	}
	transitions, err := meter.Int64Counter("commerce.orders.transitions",
		metric.WithDescription("Order status transitions by target status"))
	if err != nil {
		return nil, err
	}
	return &Metrics{
		requests:       requests,
		latency:        latency,
		ordersCreated:  ordersCreated,
		paymentsResult: paymentsResult,
		transitions:    transitions,
	}, nil
}

// RecordRequest records a completed HTTP request.
func (m *Metrics) RecordRequest(ctx context.Context, route, method string, status int, latency time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("route", route),
		attribute.String("method", method),
		attribute.String("status", strconv.Itoa(status)),
	)
	m.requests.Add(ctx, 1, attrs)
	m.latency.Record(ctx, float64(latency)/float64(time.Millisecond), attrs)
}

// OrderCreated counts a newly created order.
func (m *Metrics) OrderCreated(ctx context.Context, provider string) {
	if m == nil {
		return
	}
	m.ordersCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
}

// PaymentVerified counts a verification outcome such as "paid", "signature_invalid" or "already_paid".
func (m *Metrics) PaymentVerified(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.paymentsResult.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// StatusTransition counts an order moving into the given status.
func (m *Metrics) StatusTransition(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

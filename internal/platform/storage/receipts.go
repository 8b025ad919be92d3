package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"

	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
)

var orderNumberPattern = regexp.MustCompile(`^[A-Z0-9-]{4,40}$`)

// ObjectWriterFactory opens a writer for bucket/object. The default implementation wraps *gcs.Client.
type ObjectWriterFactory func(ctx context.Context, bucket, object string) io.WriteCloser

// ReceiptArchiver stores a JSON receipt for each confirmed order in Cloud Storage.
type ReceiptArchiver struct {
	bucket    string
	locale    string
	newWriter ObjectWriterFactory
}

// NewReceiptArchiver builds an archiver writing to bucket through the Cloud Storage client.
func NewReceiptArchiver(client *gcs.Client, bucket, locale string) (*ReceiptArchiver, error) {
	if client == nil {
		return nil, errors.New("receipt archiver: client is required")
	}
	return NewReceiptArchiverWithWriter(bucket, locale, func(ctx context.Context, bucket, object string) io.WriteCloser {
		w := client.Bucket(bucket).Object(object).NewWriter(ctx)
		w.ContentType = "application/json"
		w.CacheControl = "private, max-age=0"
		return w
	})
}

// NewReceiptArchiverWithWriter builds an archiver over a custom writer factory.
func NewReceiptArchiverWithWriter(bucket, locale string, factory ObjectWriterFactory) (*ReceiptArchiver, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("receipt archiver: bucket is required")
	}
	if factory == nil {
		return nil, errors.New("receipt archiver: writer factory is required")
	}
	return &ReceiptArchiver{bucket: bucket, locale: locale, newWriter: factory}, nil
}

// ReceiptPath returns receipts/<YYYY>/<MM>/<orderNumber>.json for the order's creation month.
func ReceiptPath(orderNumber string, createdAt time.Time) (string, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if !orderNumberPattern.MatchString(orderNumber) {
		return "", fmt.Errorf("storage: invalid order number %q", orderNumber)
	}
	createdAt = createdAt.UTC()
	return fmt.Sprintf("receipts/%04d/%02d/%s.json", createdAt.Year(), int(createdAt.Month()), orderNumber), nil
}

type receiptLine struct {
	ProductID string `json:"productId"`
	Variant   string `json:"variant,omitempty"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	Total     string `json:"total"`
}

type receipt struct {
	OrderNumber      string        `json:"orderNumber"`
	OrderID          string        `json:"orderId"`
	UserID           string        `json:"userId"`
	Currency         string        `json:"currency"`
	Items            []receiptLine `json:"items"`
	Subtotal         string        `json:"subtotal"`
	Discount         string        `json:"discount"`
	Shipping         string        `json:"shipping"`
	Tax              string        `json:"tax"`
	Total            string        `json:"total"`
	TotalDisplay     string        `json:"totalDisplay"`
	Provider         string        `json:"provider"`
	GatewayOrderID   string        `json:"gatewayOrderId"`
	GatewayPaymentID string        `json:"gatewayPaymentId"`
	PaidAt           *time.Time    `json:"paidAt,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
}

// ArchiveReceipt writes the order receipt and returns the object path.
func (a *ReceiptArchiver) ArchiveReceipt(ctx context.Context, order domain.Order) (string, error) {
	object, err := ReceiptPath(order.OrderNumber, order.CreatedAt)
	if err != nil {
		return "", err
	}

	doc := receipt{
		OrderNumber:      order.OrderNumber,
		OrderID:          order.ID,
		UserID:           order.UserID,
		Currency:         order.Currency,
		Items:            make([]receiptLine, 0, len(order.Items)),
		Subtotal:         order.Pricing.Subtotal.StringFixed(2),
		Discount:         order.Pricing.Discount.StringFixed(2),
		Shipping:         order.Pricing.ShippingCost.StringFixed(2),
		Tax:              order.Pricing.Tax.StringFixed(2),
		Total:            order.Pricing.Total.StringFixed(2),
		TotalDisplay:     domain.FormatAmount(a.locale, order.Currency, order.Pricing.Total),
		Provider:         order.Payment.Provider,
		GatewayOrderID:   order.Payment.GatewayOrderID,
		GatewayPaymentID: order.Payment.GatewayPaymentID,
		PaidAt:           order.Payment.PaidAt,
		CreatedAt:        order.CreatedAt.UTC(),
	}
	for _, item := range order.Items {
		doc.Items = append(doc.Items, receiptLine{
			ProductID: item.ProductID,
			Variant:   item.Variant,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Total:     item.TotalPrice.StringFixed(2),
		})
	}

	writer := a.newWriter(ctx, a.bucket, object)
	if err := json.NewEncoder(writer).Encode(doc); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("storage: encode receipt: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("storage: write receipt gs://%s/%s: %w", a.bucket, object, err)
	}
	return object, nil
}

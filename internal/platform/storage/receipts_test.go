package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
)

type bufferWriter struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (w *bufferWriter) Close() error {
	w.closed = true
	return w.closeErr
}

func TestReceiptPath(t *testing.T) {
	path, err := ReceiptPath("UK171234567890001", time.Date(2025, time.March, 9, 23, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "receipts/2025/03/UK171234567890001.json" {
		t.Fatalf("unexpected path %s", path)
	}
	if _, err := ReceiptPath("../etc/passwd", time.Now()); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
}

func TestArchiveReceiptWritesJSON(t *testing.T) {
	writer := &bufferWriter{}
	var gotBucket, gotObject string
	archiver, err := NewReceiptArchiverWithWriter("receipts-bucket", "en-IN", func(_ context.Context, bucket, object string) io.WriteCloser {
		gotBucket, gotObject = bucket, object
		return writer
	})
	if err != nil {
		t.Fatalf("new archiver: %v", err)
	}

	paidAt := time.Date(2025, time.March, 9, 10, 0, 0, 0, time.UTC)
	order := domain.Order{
		ID:          "ord_1",
		OrderNumber: "UK171234567890001",
		UserID:      "user-1",
		Currency:    "INR",
		Items: []domain.OrderItem{{
			ProductID:  "p1",
			Name:       "Kurta",
			Quantity:   1,
			UnitPrice:  decimal.NewFromInt(45000),
			TotalPrice: decimal.NewFromInt(45000),
		}},
		Pricing:   domain.Pricing{Subtotal: decimal.NewFromInt(45000), Total: decimal.NewFromInt(45000)},
		Payment:   domain.PaymentDetails{Provider: "razorpay", GatewayOrderID: "order_X", GatewayPaymentID: "pay_Y", PaidAt: &paidAt},
		CreatedAt: time.Date(2025, time.March, 9, 9, 0, 0, 0, time.UTC),
	}

	object, err := archiver.ArchiveReceipt(context.Background(), order)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if gotBucket != "receipts-bucket" || gotObject != object || object != "receipts/2025/03/UK171234567890001.json" {
		t.Fatalf("unexpected destination %s/%s", gotBucket, gotObject)
	}
	if !writer.closed {
		t.Fatalf("expected writer closed")
	}

	var doc map[string]any
	if err := json.Unmarshal(writer.Bytes(), &doc); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if doc["total"] != "45000.00" || doc["gatewayPaymentId"] != "pay_Y" {
		t.Fatalf("unexpected receipt %v", doc)
	}
	if doc["totalDisplay"] == "" {
		t.Fatalf("expected display total")
	}
}

func TestArchiveReceiptSurfacesCloseError(t *testing.T) {
	writer := &bufferWriter{closeErr: errors.New("quota")}
	archiver, _ := NewReceiptArchiverWithWriter("b", "en-IN", func(context.Context, string, string) io.WriteCloser { return writer })
	order := domain.Order{OrderNumber: "UK171234567890001", CreatedAt: time.Now()}
	if _, err := archiver.ArchiveReceipt(context.Background(), order); err == nil {
		t.Fatalf("expected close error")
	}
}

func TestNewReceiptArchiverValidation(t *testing.T) {
	if _, err := NewReceiptArchiverWithWriter("", "en-IN", func(context.Context, string, string) io.WriteCloser { return nil }); err == nil {
		t.Fatalf("expected bucket error")
	}
	if _, err := NewReceiptArchiver(nil, "b", "en-IN"); err == nil {
		t.Fatalf("expected client error")
	}
}

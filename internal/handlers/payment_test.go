package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/payments"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/idempotency"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/services"
)

const validCheckoutBody = `{
	"shippingAddress": {
		"firstName": "Asha", "lastName": "Rao", "street": "1 MG Road", "city": "Bengaluru",
		"state": "KA", "postalCode": "560001", "country": "IN", "phone": "9999999999",
		"email": "asha@example.com"
	},
	"paymentMethod": "razorpay",
	"notes": "leave at door"
}`

func newPaymentRouter(h *PaymentHandlers) chi.Router {
	router := chi.NewRouter()
	router.Use(storeModeMiddleware(string(domain.StoreModePersistent)))
	router.Route("/payment", h.Routes)
	return router
}

func TestPaymentHandlersCreateOrder(t *testing.T) {
	var got services.CreateOrderCommand
	checkout := &stubCheckoutService{
		createFunc: func(_ context.Context, cmd services.CreateOrderCommand) (services.CheckoutResult, error) {
			got = cmd
			return services.CheckoutResult{
				Order: sampleOrder(domain.OrderStatusPending, domain.PaymentStatusPending),
				Intent: payments.Intent{
					Provider:       payments.ProviderRazorpay,
					GatewayOrderID: "order_rzp_1",
					KeyID:          "rzp_test_key",
					Amount:         4500000,
					Currency:       "INR",
					Receipt:        "UK2501150042",
				},
			}, nil
		},
	}
	router := newPaymentRouter(NewPaymentHandlers(nil, checkout, nil, nil))

	req := withUser(httptest.NewRequest(http.MethodPost, "/payment/create-order", strings.NewReader(validCheckoutBody)), "user-1")
	req.Header.Set("Idempotency-Key", "key-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.UserID != "user-1" || got.Email != "user-1@example.com" || got.IdempotencyKey != "key-1" {
		t.Fatalf("unexpected command %+v", got)
	}
	if got.ShippingAddress.City != "Bengaluru" || got.BillingAddress != nil || got.Notes != "leave at door" {
		t.Fatalf("unexpected address mapping %+v", got)
	}

	var resp struct {
		Success       bool   `json:"success"`
		StoreMode     string `json:"storeMode"`
		Order         struct {
			ID            string `json:"id"`
			OrderNumber   string `json:"orderNumber"`
			OrderStatus   string `json:"orderStatus"`
			PaymentStatus string `json:"paymentStatus"`
			Pricing       struct {
				Total string `json:"total"`
			} `json:"pricing"`
		} `json:"order"`
		GatewayIntent struct {
			GatewayOrderID string `json:"gatewayOrderId"`
			Amount         int64  `json:"amount"`
			KeyID          string `json:"keyId"`
		} `json:"gatewayIntent"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.StoreMode != "persistent" {
		t.Fatalf("unexpected envelope %+v", resp)
	}
	if resp.Order.OrderStatus != "pending" || resp.Order.PaymentStatus != "pending" || resp.Order.Pricing.Total != "45000" {
		t.Fatalf("unexpected order %+v", resp.Order)
	}
	if resp.GatewayIntent.Amount != 4500000 || resp.GatewayIntent.GatewayOrderID != "order_rzp_1" || resp.GatewayIntent.KeyID != "rzp_test_key" {
		t.Fatalf("unexpected intent %+v", resp.GatewayIntent)
	}
}

func TestPaymentHandlersCreateOrderValidation(t *testing.T) {
	checkout := &stubCheckoutService{}
	router := newPaymentRouter(NewPaymentHandlers(nil, checkout, nil, nil))

	cases := []struct {
		name string
		body string
	}{
		{name: "no address", body: `{"paymentMethod":"razorpay"}`},
		{name: "missing postal code", body: strings.Replace(validCheckoutBody, `"postalCode": "560001", `, "", 1)},
		{name: "bad email", body: strings.Replace(validCheckoutBody, "asha@example.com", "not-an-email", 1)},
		{name: "unknown provider", body: strings.Replace(validCheckoutBody, `"paymentMethod": "razorpay"`, `"provider": "paypal"`, 1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := withUser(httptest.NewRequest(http.MethodPost, "/payment/create-order", strings.NewReader(tc.body)), "user-1")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
			if body := decodeError(t, rr); body["code"] != "VALIDATION_ERROR" {
				t.Fatalf("unexpected code %v", body["code"])
			}
		})
	}
	if checkout.calls != 0 {
		t.Fatalf("service must not be called, got %d calls", checkout.calls)
	}
}

func TestPaymentHandlersCreateOrderGatewayErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "unavailable", err: &services.GatewayError{Provider: "razorpay", Op: "create intent", Err: fmt.Errorf("dial tcp: timeout")}, status: http.StatusBadGateway},
		{name: "rejected", err: &services.GatewayError{Provider: "razorpay", Op: "create intent", Rejected: true, Err: fmt.Errorf("amount too small")}, status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			checkout := &stubCheckoutService{
				createFunc: func(context.Context, services.CreateOrderCommand) (services.CheckoutResult, error) {
					return services.CheckoutResult{}, tc.err
				},
			}
			router := newPaymentRouter(NewPaymentHandlers(nil, checkout, nil, nil))
			req := withUser(httptest.NewRequest(http.MethodPost, "/payment/create-order", strings.NewReader(validCheckoutBody)), "user-1")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			body := decodeError(t, rr)
			if body["code"] != "GATEWAY_ERROR" {
				t.Fatalf("unexpected code %v", body["code"])
			}
			if strings.Contains(rr.Body.String(), "dial tcp") || strings.Contains(rr.Body.String(), "amount too small") {
				t.Fatalf("gateway cause leaked: %s", rr.Body.String())
			}
		})
	}
}

func TestPaymentHandlersCreateOrderIdempotentReplay(t *testing.T) {
	checkout := &stubCheckoutService{
		createFunc: func(context.Context, services.CreateOrderCommand) (services.CheckoutResult, error) {
			return services.CheckoutResult{
				Order:  sampleOrder(domain.OrderStatusPending, domain.PaymentStatusPending),
				Intent: payments.Intent{Provider: payments.ProviderRazorpay, GatewayOrderID: "order_rzp_1", Amount: 4500000, Currency: "INR"},
			}, nil
		},
	}
	store := idempotency.NewMemoryStore()
	handlers := NewPaymentHandlers(nil, checkout, nil, nil, WithCheckoutIdempotency(idempotency.Middleware(store)))
	router := newPaymentRouter(handlers)

	send := func(body string) *httptest.ResponseRecorder {
		req := withUser(httptest.NewRequest(http.MethodPost, "/payment/create-order", strings.NewReader(body)), "user-1")
		req.Header.Set("Idempotency-Key", "retry-1")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	first := send(validCheckoutBody)
	second := send(validCheckoutBody)
	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Fatalf("expected 201 twice, got %d and %d", first.Code, second.Code)
	}
	if checkout.calls != 1 {
		t.Fatalf("expected a single checkout, got %d", checkout.calls)
	}
	if second.Header().Get("X-Idempotent-Replay") != "true" {
		t.Fatalf("expected replay header on second response")
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("replayed body differs")
	}

	mismatch := send(strings.Replace(validCheckoutBody, "leave at door", "ring bell", 1))
	if mismatch.Code != http.StatusConflict {
		t.Fatalf("expected 409 for reused key with different body, got %d", mismatch.Code)
	}
}

func TestPaymentHandlersVerify(t *testing.T) {
	var got services.VerifyPaymentCommand
	paymentsSvc := &stubPaymentService{
		verifyFunc: func(_ context.Context, cmd services.VerifyPaymentCommand) (domain.Order, error) {
			got = cmd
			order := sampleOrder(domain.OrderStatusConfirmed, domain.PaymentStatusPaid)
			paidAt := testNow
			order.Payment.GatewayPaymentID = cmd.GatewayPaymentID
			order.Payment.PaidAt = &paidAt
			return order, nil
		},
	}
	router := newPaymentRouter(NewPaymentHandlers(nil, nil, paymentsSvc, nil))

	body := `{"orderId":"order-1","gatewayOrderId":"order_rzp_1","gatewayPaymentId":"pay_1","signature":"abc"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/payment/verify", strings.NewReader(body)), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.UserID != "user-1" || got.OrderID != "order-1" || got.GatewayPaymentID != "pay_1" || got.Signature != "abc" {
		t.Fatalf("unexpected command %+v", got)
	}
	var resp struct {
		Order struct {
			OrderStatus    string `json:"orderStatus"`
			PaymentStatus  string `json:"paymentStatus"`
			PaymentDetails struct {
				GatewayPaymentID string `json:"gatewayPaymentId"`
				PaidAt           string `json:"paidAt"`
			} `json:"paymentDetails"`
		} `json:"order"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Order.OrderStatus != "confirmed" || resp.Order.PaymentStatus != "paid" || resp.Order.PaymentDetails.PaidAt == "" {
		t.Fatalf("unexpected order %+v", resp.Order)
	}
	if strings.Contains(rr.Body.String(), "gatewaySignature") {
		t.Fatalf("signature must not be echoed")
	}
}

func TestPaymentHandlersVerifyErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "tampered", err: services.ErrSignatureInvalid, status: http.StatusBadRequest, code: "SIGNATURE_INVALID"},
		{name: "already paid", err: fmt.Errorf("%w: order-1", services.ErrAlreadyPaid), status: http.StatusBadRequest, code: "ALREADY_PAID"},
		{name: "other user", err: fmt.Errorf("%w: order-1", services.ErrNotFound), status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "race lost", err: fmt.Errorf("%w: concurrent update", services.ErrConflict), status: http.StatusConflict, code: "CONFLICT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			paymentsSvc := &stubPaymentService{
				verifyFunc: func(context.Context, services.VerifyPaymentCommand) (domain.Order, error) {
					return domain.Order{}, tc.err
				},
			}
			router := newPaymentRouter(NewPaymentHandlers(nil, nil, paymentsSvc, nil))
			body := `{"orderId":"order-1","gatewayOrderId":"order_rzp_1","gatewayPaymentId":"pay_1","signature":"abc"}`
			req := withUser(httptest.NewRequest(http.MethodPost, "/payment/verify", strings.NewReader(body)), "user-1")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			if body := decodeError(t, rr); body["code"] != tc.code {
				t.Fatalf("expected %s, got %v", tc.code, body["code"])
			}
		})
	}
}

func TestPaymentHandlersVerifyRequiresAllFields(t *testing.T) {
	router := newPaymentRouter(NewPaymentHandlers(nil, nil, &stubPaymentService{}, nil))
	req := withUser(httptest.NewRequest(http.MethodPost, "/payment/verify", strings.NewReader(`{"orderId":"order-1","gatewayOrderId":"order_rzp_1"}`)), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	body := decodeError(t, rr)
	if msg, _ := body["message"].(string); !strings.Contains(msg, "gatewayPaymentId is required") || !strings.Contains(msg, "signature is required") {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestPaymentHandlersVerifyRateLimited(t *testing.T) {
	calls := 0
	paymentsSvc := &stubPaymentService{
		verifyFunc: func(context.Context, services.VerifyPaymentCommand) (domain.Order, error) {
			calls++
			return domain.Order{}, services.ErrSignatureInvalid
		},
	}
	clock := func() time.Time { return testNow }
	router := newPaymentRouter(NewPaymentHandlers(nil, nil, paymentsSvc, nil, WithVerifyRateLimit(2, time.Minute, clock)))
	body := `{"orderId":"order-1","gatewayOrderId":"order_rzp_1","gatewayPaymentId":"pay_1","signature":"abc"}`

	statuses := make([]int, 0, 3)
	for range 3 {
		req := withUser(httptest.NewRequest(http.MethodPost, "/payment/verify", strings.NewReader(body)), "user-1")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		statuses = append(statuses, rr.Code)
	}
	if statuses[2] != http.StatusTooManyRequests || calls != 2 {
		t.Fatalf("expected third attempt throttled, got statuses %v calls %d", statuses, calls)
	}

	req := withUser(httptest.NewRequest(http.MethodPost, "/payment/verify", strings.NewReader(body)), "user-2")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code == http.StatusTooManyRequests {
		t.Fatalf("limit must be per user")
	}
}

func TestPaymentHandlersListOrders(t *testing.T) {
	var got services.OrderListFilter
	orders := &stubOrderService{
		listForUserFunc: func(_ context.Context, userID string, filter services.OrderListFilter) (domain.Page[domain.Order], error) {
			if userID != "user-1" {
				t.Fatalf("unexpected user %q", userID)
			}
			got = filter
			return domain.Page[domain.Order]{
				Items: []domain.Order{sampleOrder(domain.OrderStatusConfirmed, domain.PaymentStatusPaid)},
				Page:  2,
				Limit: 1,
				Total: 3,
			}, nil
		},
	}
	router := newPaymentRouter(NewPaymentHandlers(nil, nil, nil, orders))

	req := withUser(httptest.NewRequest(http.MethodGet, "/payment/orders?page=2&limit=1&status=confirmed", nil), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.Page != 2 || got.Limit != 1 || got.Status != "confirmed" {
		t.Fatalf("unexpected filter %+v", got)
	}
	var resp orderListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Orders) != 1 || resp.Pagination.Pages != 3 || !resp.Pagination.HasNext || resp.Pagination.Total != 3 {
		t.Fatalf("unexpected list %+v", resp.Pagination)
	}
}

func TestPaymentHandlersListOrdersRejectsBadPaging(t *testing.T) {
	router := newPaymentRouter(NewPaymentHandlers(nil, nil, nil, &stubOrderService{}))
	for _, query := range []string{"page=0", "limit=-1", "page=abc"} {
		req := withUser(httptest.NewRequest(http.MethodGet, "/payment/orders?"+query, nil), "user-1")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", query, rr.Code)
		}
	}
}

func TestPaymentHandlersGetOrderScopedToCaller(t *testing.T) {
	orders := &stubOrderService{
		getForUserFunc: func(_ context.Context, userID, orderID string) (domain.Order, error) {
			if userID != "user-1" {
				return domain.Order{}, fmt.Errorf("%w: order %s", services.ErrNotFound, orderID)
			}
			return sampleOrder(domain.OrderStatusPending, domain.PaymentStatusPending), nil
		},
	}
	router := newPaymentRouter(NewPaymentHandlers(nil, nil, nil, orders))

	req := withUser(httptest.NewRequest(http.MethodGet, "/payment/orders/order-1", nil), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("owner: expected 200, got %d", rr.Code)
	}

	req = withUser(httptest.NewRequest(http.MethodGet, "/payment/orders/order-1", nil), "user-2")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("stranger: expected 404, got %d", rr.Code)
	}
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/auth"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/services"
)

var testNow = time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)

func withUser(req *http.Request, uid string, roles ...string) *http.Request {
	if len(roles) == 0 {
		roles = []string{auth.RoleUser}
	}
	ctx := auth.WithIdentity(req.Context(), &auth.Identity{UID: uid, Email: uid + "@example.com", Roles: roles})
	return req.WithContext(ctx)
}

type stubCartService struct {
	getFunc    func(ctx context.Context, userID string) (domain.Cart, error)
	addFunc    func(ctx context.Context, cmd services.AddCartItemCommand) (domain.Cart, error)
	updateFunc func(ctx context.Context, cmd services.UpdateCartItemCommand) (domain.Cart, error)
	removeFunc func(ctx context.Context, cmd services.RemoveCartItemCommand) (domain.Cart, error)
	clearFunc  func(ctx context.Context, userID string) (domain.Cart, error)
}

func (s *stubCartService) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, userID)
	}
	return domain.Cart{}, nil
}

func (s *stubCartService) AddItem(ctx context.Context, cmd services.AddCartItemCommand) (domain.Cart, error) {
	if s.addFunc != nil {
		return s.addFunc(ctx, cmd)
	}
	return domain.Cart{}, nil
}

func (s *stubCartService) UpdateQuantity(ctx context.Context, cmd services.UpdateCartItemCommand) (domain.Cart, error) {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, cmd)
	}
	return domain.Cart{}, nil
}

func (s *stubCartService) RemoveItem(ctx context.Context, cmd services.RemoveCartItemCommand) (domain.Cart, error) {
	if s.removeFunc != nil {
		return s.removeFunc(ctx, cmd)
	}
	return domain.Cart{}, nil
}

func (s *stubCartService) Clear(ctx context.Context, userID string) (domain.Cart, error) {
	if s.clearFunc != nil {
		return s.clearFunc(ctx, userID)
	}
	return domain.Cart{}, nil
}

type stubCheckoutService struct {
	createFunc func(ctx context.Context, cmd services.CreateOrderCommand) (services.CheckoutResult, error)
	calls      int
}

func (s *stubCheckoutService) CreateOrder(ctx context.Context, cmd services.CreateOrderCommand) (services.CheckoutResult, error) {
	s.calls++
	if s.createFunc != nil {
		return s.createFunc(ctx, cmd)
	}
	return services.CheckoutResult{}, nil
}

type stubPaymentService struct {
	verifyFunc  func(ctx context.Context, cmd services.VerifyPaymentCommand) (domain.Order, error)
	webhookFunc func(ctx context.Context, cmd services.WebhookCommand) (services.WebhookResult, error)
	refundFunc  func(ctx context.Context, cmd services.RefundCommand) (domain.Order, error)
}

func (s *stubPaymentService) Verify(ctx context.Context, cmd services.VerifyPaymentCommand) (domain.Order, error) {
	if s.verifyFunc != nil {
		return s.verifyFunc(ctx, cmd)
	}
	return domain.Order{}, nil
}

func (s *stubPaymentService) HandleWebhook(ctx context.Context, cmd services.WebhookCommand) (services.WebhookResult, error) {
	if s.webhookFunc != nil {
		return s.webhookFunc(ctx, cmd)
	}
	return services.WebhookResult{}, nil
}

func (s *stubPaymentService) Refund(ctx context.Context, cmd services.RefundCommand) (domain.Order, error) {
	if s.refundFunc != nil {
		return s.refundFunc(ctx, cmd)
	}
	return domain.Order{}, nil
}

type stubOrderService struct {
	listForUserFunc func(ctx context.Context, userID string, filter services.OrderListFilter) (domain.Page[domain.Order], error)
	getForUserFunc  func(ctx context.Context, userID, orderID string) (domain.Order, error)
	listFunc        func(ctx context.Context, filter services.OrderListFilter) (domain.Page[domain.Order], error)
	getFunc         func(ctx context.Context, orderID string) (domain.Order, error)
	statusFunc      func(ctx context.Context, cmd services.OrderStatusCommand) (domain.Order, error)
	shipFunc        func(ctx context.Context, cmd services.MarkShippedCommand) (domain.Order, error)
	deliverFunc     func(ctx context.Context, cmd services.MarkDeliveredCommand) (domain.Order, error)
}

func (s *stubOrderService) ListForUser(ctx context.Context, userID string, filter services.OrderListFilter) (domain.Page[domain.Order], error) {
	if s.listForUserFunc != nil {
		return s.listForUserFunc(ctx, userID, filter)
	}
	return domain.Page[domain.Order]{}, nil
}

func (s *stubOrderService) GetForUser(ctx context.Context, userID, orderID string) (domain.Order, error) {
	if s.getForUserFunc != nil {
		return s.getForUserFunc(ctx, userID, orderID)
	}
	return domain.Order{}, nil
}

func (s *stubOrderService) List(ctx context.Context, filter services.OrderListFilter) (domain.Page[domain.Order], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, filter)
	}
	return domain.Page[domain.Order]{}, nil
}

func (s *stubOrderService) Get(ctx context.Context, orderID string) (domain.Order, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, orderID)
	}
	return domain.Order{}, nil
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, cmd services.OrderStatusCommand) (domain.Order, error) {
	if s.statusFunc != nil {
		return s.statusFunc(ctx, cmd)
	}
	return domain.Order{}, nil
}

func (s *stubOrderService) MarkShipped(ctx context.Context, cmd services.MarkShippedCommand) (domain.Order, error) {
	if s.shipFunc != nil {
		return s.shipFunc(ctx, cmd)
	}
	return domain.Order{}, nil
}

func (s *stubOrderService) MarkDelivered(ctx context.Context, cmd services.MarkDeliveredCommand) (domain.Order, error) {
	if s.deliverFunc != nil {
		return s.deliverFunc(ctx, cmd)
	}
	return domain.Order{}, nil
}

type stubSystemService struct {
	report domain.SystemHealthReport
	err    error
}

func (s *stubSystemService) HealthReport(context.Context) (domain.SystemHealthReport, error) {
	return s.report, s.err
}

func sampleCart() domain.Cart {
	list := decimal.NewFromInt(9900)
	cart := domain.Cart{
		ID:     "cart-1",
		UserID: "user-1",
		Active: true,
		Items: []domain.CartItem{
			{ProductID: "saree-1", Name: "Kanjivaram Saree", Quantity: 1, UnitPrice: decimal.NewFromInt(35000), AddedAt: testNow},
			{ProductID: "scarf-1", Variant: "blue", Name: "Silk Scarf", Quantity: 2, UnitPrice: decimal.NewFromInt(8500), ListPrice: &list, AddedAt: testNow},
		},
		ItemCount: 3,
		ExpiresAt: testNow.Add(7 * 24 * time.Hour),
		UpdatedAt: testNow,
	}
	cart.Totals = domain.Pricing{
		Subtotal:     decimal.NewFromInt(52000),
		Discount:     decimal.Zero,
		ShippingCost: decimal.Zero,
		Tax:          decimal.Zero,
		Total:        decimal.NewFromInt(52000),
	}
	return cart
}

func sampleOrder(status domain.OrderStatus, payment domain.PaymentStatus) domain.Order {
	total := decimal.NewFromInt(45000)
	return domain.Order{
		ID:            "order-1",
		OrderNumber:   "UK2501150042",
		UserID:        "user-1",
		Email:         "user-1@example.com",
		Currency:      "INR",
		OrderStatus:   status,
		PaymentStatus: payment,
		PaymentMethod: "razorpay",
		Items: []domain.OrderItem{
			{ProductID: "saree-1", Name: "Kanjivaram Saree", Quantity: 1, UnitPrice: total, TotalPrice: total},
		},
		ShippingAddress: domain.Address{FirstName: "Asha", LastName: "Rao", Street: "1 MG Road", City: "Bengaluru", State: "KA", PostalCode: "560001", Country: "IN", Phone: "9999999999", Email: "asha@example.com"},
		Pricing:         domain.Pricing{Subtotal: total, Total: total},
		Payment:         domain.PaymentDetails{Provider: "razorpay", GatewayOrderID: "order_rzp_1"},
		Timeline: []domain.TimelineEntry{
			{Status: string(domain.OrderStatusPending), Message: "Order created", Actor: domain.ActorUser, ActorID: "user-1", Timestamp: testNow},
		},
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
}

var (
	_ services.CartService     = (*stubCartService)(nil)
	_ services.CheckoutService = (*stubCheckoutService)(nil)
	_ services.PaymentService  = (*stubPaymentService)(nil)
	_ services.OrderService    = (*stubOrderService)(nil)
	_ services.SystemService   = (*stubSystemService)(nil)
)

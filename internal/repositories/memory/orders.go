package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/repositories"
)

// OrderRepository stores orders keyed by id with secondary indexes on order number and gateway
// order id. Mutations of one order are serialised by a per-order lock.
type OrderRepository struct {
	closed *atomic.Bool
	locks  *keyedLocker

	mu        sync.RWMutex
	orders    map[string]domain.Order
	byNumber  map[string]string
	byGateway map[string]string
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

func newOrderRepository(closed *atomic.Bool) *OrderRepository {
	return &OrderRepository{
		closed:    closed,
		locks:     newKeyedLocker(),
		orders:    make(map[string]domain.Order),
		byNumber:  make(map[string]string),
		byGateway: make(map[string]string),
	}
}

func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if err := r.ready(ctx, "orders.insert"); err != nil {
		return err
	}
	id := strings.TrimSpace(order.ID)
	number := strings.TrimSpace(order.OrderNumber)
	if id == "" || number == "" {
		return conflict("orders.insert", "order id and number are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byNumber[number]; exists {
		return conflict("orders.insert", "order number %s already exists", number)
	}
	if _, exists := r.orders[id]; exists {
		return conflict("orders.insert", "order %s already exists", id)
	}
	r.orders[id] = domain.CloneOrder(order)
	r.byNumber[number] = id
	if gw := strings.TrimSpace(order.Payment.GatewayOrderID); gw != "" {
		r.byGateway[gw] = id
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if err := r.ready(ctx, "orders.get"); err != nil {
		return domain.Order{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[strings.TrimSpace(orderID)]
	if !ok {
		return domain.Order{}, notFound("orders.get", "order %s not found", orderID)
	}
	return domain.CloneOrder(order), nil
}

func (r *OrderRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (domain.Order, error) {
	if err := r.ready(ctx, "orders.findByGateway"); err != nil {
		return domain.Order{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byGateway[strings.TrimSpace(gatewayOrderID)]
	if !ok {
		return domain.Order{}, notFound("orders.findByGateway", "no order for gateway order %s", gatewayOrderID)
	}
	return domain.CloneOrder(r.orders[id]), nil
}

func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
	if err := r.ready(ctx, "orders.list"); err != nil {
		return domain.Page[domain.Order]{}, err
	}

	r.mu.RLock()
	matched := make([]domain.Order, 0)
	for _, order := range r.orders {
		if filter.UserID != "" && order.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && string(order.OrderStatus) != filter.Status {
			continue
		}
		matched = append(matched, order)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page := domain.Page[domain.Order]{Page: filter.Page, Limit: filter.Limit, Total: len(matched), Items: []domain.Order{}}
	start := filter.Offset()
	if start >= len(matched) {
		return page, nil
	}
	end := len(matched)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	for _, order := range matched[start:end] {
		page.Items = append(page.Items, domain.CloneOrder(order))
	}
	return page, nil
}

func (r *OrderRepository) Mutate(ctx context.Context, orderID string, fn repositories.OrderMutation) (domain.Order, error) {
	if err := r.ready(ctx, "orders.mutate"); err != nil {
		return domain.Order{}, err
	}
	id := strings.TrimSpace(orderID)
	unlock := r.locks.Lock(id)
	defer unlock()

	r.mu.RLock()
	stored, ok := r.orders[id]
	r.mu.RUnlock()
	if !ok {
		return domain.Order{}, notFound("orders.mutate", "order %s not found", orderID)
	}

	order := domain.CloneOrder(stored)
	if err := fn(&order); err != nil {
		return domain.Order{}, err
	}
	order.ID = stored.ID
	order.OrderNumber = stored.OrderNumber

	r.mu.Lock()
	r.orders[id] = domain.CloneOrder(order)
	if gw := strings.TrimSpace(order.Payment.GatewayOrderID); gw != "" {
		r.byGateway[gw] = id
	}
	r.mu.Unlock()
	return order, nil
}

func (r *OrderRepository) ready(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.closed.Load() {
		return unavailable(op)
	}
	return nil
}

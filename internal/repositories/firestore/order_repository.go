package firestore

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	pfirestore "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/firestore"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/repositories"
)

// OrderRepository stores orders at orders/{orderId}. Order numbers are reserved at
// orderNumbers/{number} in the same transaction so duplicates fail with a conflict.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.Collection[orderDocument]
	numbers  *pfirestore.Collection[orderNumberDocument]
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	number := strings.TrimSpace(order.OrderNumber)
	if strings.TrimSpace(order.ID) == "" || number == "" {
		return pfirestore.ConflictError("orders.insert", "order id and number are required")
	}

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		numberRef, err := r.numbers.Ref(ctx, number)
		if err != nil {
			return err
		}
		if _, err := tx.Get(numberRef); err == nil {
			return pfirestore.ConflictError("orderNumbers.create", fmt.Sprintf("order number %s already exists", number))
		} else if status.Code(err) != codes.NotFound {
			return err
		}
		orderRef, err := r.orders.Ref(ctx, order.ID)
		if err != nil {
			return err
		}
		if err := tx.Create(numberRef, orderNumberDocument{OrderID: order.ID, CreatedAt: order.CreatedAt.UTC()}); err != nil {
			return err
		}
		return tx.Create(orderRef, newOrderDocument(order))
	})
	return pfirestore.WrapError("orders.insert", err)
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	doc, err := r.orders.Get(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return domain.Order{}, err
	}
	return doc.Data.toDomain(doc.ID)
}

func (r *OrderRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (domain.Order, error) {
	id := strings.TrimSpace(gatewayOrderID)
	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("payment.gatewayOrderId", "==", id).Limit(1)
	})
	if err != nil {
		return domain.Order{}, err
	}
	if len(docs) == 0 {
		return domain.Order{}, pfirestore.NotFoundError("orders.findByGateway", fmt.Sprintf("no order for gateway order %s", id))
	}
	return docs[0].Data.toDomain(docs[0].ID)
}

func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
	coll, err := r.orders.Coll(ctx)
	if err != nil {
		return domain.Page[domain.Order]{}, err
	}
	filtered := applyOrderFilter(coll.Query, filter)

	total, err := countQuery(ctx, filtered)
	if err != nil {
		return domain.Page[domain.Order]{}, err
	}

	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		q = applyOrderFilter(q, filter).OrderBy("createdAt", firestore.Desc).Offset(filter.Offset())
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		return q
	})
	if err != nil {
		return domain.Page[domain.Order]{}, err
	}

	page := domain.Page[domain.Order]{Page: filter.Page, Limit: filter.Limit, Total: total, Items: make([]domain.Order, 0, len(docs))}
	for _, doc := range docs {
		order, err := doc.Data.toDomain(doc.ID)
		if err != nil {
			return domain.Page[domain.Order]{}, err
		}
		page.Items = append(page.Items, order)
	}
	return page, nil
}

// Mutate runs fn inside a transaction. fn may run more than once; its own errors are returned as is.
func (r *OrderRepository) Mutate(ctx context.Context, orderID string, fn repositories.OrderMutation) (domain.Order, error) {
	id := strings.TrimSpace(orderID)
	var (
		result domain.Order
		fnErr  error
	)
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		fnErr = nil
		ref, err := r.orders.Ref(ctx, id)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		doc, err := r.orders.Decode(snap)
		if err != nil {
			return err
		}
		order, err := doc.Data.toDomain(doc.ID)
		if err != nil {
			return err
		}
		number := order.OrderNumber
		if err := fn(&order); err != nil {
			fnErr = err
			return err
		}
		order.ID = id
		order.OrderNumber = number
		if err := tx.Set(ref, newOrderDocument(order)); err != nil {
			return err
		}
		result = order
		return nil
	})
	if fnErr != nil {
		return domain.Order{}, fnErr
	}
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.mutate", err)
	}
	return result, nil
}

func applyOrderFilter(q firestore.Query, filter repositories.OrderListFilter) firestore.Query {
	if filter.UserID != "" {
		q = q.Where("userId", "==", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("orderStatus", "==", filter.Status)
	}
	return q
}

func countQuery(ctx context.Context, q firestore.Query) (int, error) {
	results, err := q.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return 0, pfirestore.WrapError("orders.count", err)
	}
	switch v := results["total"].(type) {
	case *firestorepb.Value:
		return int(v.GetIntegerValue()), nil
	case int64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("orders.count: unexpected aggregation value %T", v)
	}
}

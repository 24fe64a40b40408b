package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/jacksonmacedok2-maker/Venda-flow/internal/cache"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/domain"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/queue"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/remote"
)

// orderPayload is the queued form of an offline-created order.
type orderPayload struct {
	Order domain.Order       `json:"order"`
	Items []domain.OrderItem `json:"items"`
}

// ListOrders returns the tenant's orders with their items, remote-first with
// cache fallback.
func (d *Data) ListOrders(ctx context.Context) ([]domain.Order, error) {
	tenantID, err := d.tenantID()
	if err != nil {
		return nil, err
	}

	if d.monitor.Online() {
		orders, err := d.queryOrders(ctx, tenantID)
		if err == nil {
			if err := d.cache.Write(ctx, tenantID, cache.Orders, orders); err != nil {
				return nil, err
			}
			return orders, nil
		}
		d.log.Warn("order query failed, serving cache", zap.Error(err))
	}

	return readSnapshot[domain.Order](ctx, d.cache, tenantID, cache.Orders)
}

func (d *Data) queryOrders(ctx context.Context, tenantID string) ([]domain.Order, error) {
	rows, err := d.store.Query(ctx, remote.CollectionOrders, remote.Filter{"company_id": tenantID})
	if err != nil {
		return nil, err
	}
	orders, err := decodeRows[domain.Order](rows)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		itemRows, err := d.store.Query(ctx, remote.CollectionOrderItems, remote.Filter{"order_id": orders[i].ID})
		if err != nil {
			return nil, err
		}
		items, err := decodeRows[domain.OrderItem](itemRows)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

// NextOrderCode returns the code the next order will take. It advances the
// tenant counter; a preview that is never submitted leaves a gap.
func (d *Data) NextOrderCode(ctx context.Context) (string, error) {
	tenantID, err := d.tenantID()
	if err != nil {
		return "", err
	}
	if !d.monitor.Online() {
		return "", ErrOffline
	}
	return d.seq.NextCode(ctx, tenantID)
}

// CreateOrder stores an order with its items. Online it allocates the order
// code, persists order and items, and decrements stock for completed orders.
// Offline the whole bundle is queued and echoed into the cache under a temp_
// id with no code; the code is allocated at replay.
func (d *Data) CreateOrder(ctx context.Context, order domain.Order, items []domain.OrderItem) (domain.Order, error) {
	tenantID, err := d.tenantID()
	if err != nil {
		return domain.Order{}, err
	}
	order.CompanyID = tenantID

	if d.monitor.Online() {
		created, err := d.placeOrder(ctx, tenantID, order, items)
		if err == nil {
			return created, appendSnapshot(ctx, d.cache, tenantID, cache.Orders, created)
		}
		if !remote.IsRetryable(err) {
			return domain.Order{}, err
		}
		d.log.Warn("order placement failed, queueing", zap.Error(err))
	}

	payload, err := json.Marshal(orderPayload{Order: order, Items: items})
	if err != nil {
		return domain.Order{}, err
	}
	if _, err := d.queue.Enqueue(ctx, queue.KindOrder, tenantID, payload); err != nil {
		return domain.Order{}, fmt.Errorf("queue order: %w", err)
	}

	order.ID = tempID()
	order.Items = items
	return order, appendSnapshot(ctx, d.cache, tenantID, cache.Orders, order)
}

// placeOrder runs the online path: code allocation, order insert, item
// inserts, stock decrement for completed orders.
func (d *Data) placeOrder(ctx context.Context, tenantID string, order domain.Order, items []domain.OrderItem) (domain.Order, error) {
	code, err := d.seq.NextCode(ctx, tenantID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Code = code

	created, err := insertRow(ctx, d.store, remote.CollectionOrders, order)
	if err != nil {
		return domain.Order{}, err
	}

	created.Items = make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		item.OrderID = created.ID
		createdItem, err := insertRow(ctx, d.store, remote.CollectionOrderItems, item)
		if err != nil {
			return domain.Order{}, err
		}
		created.Items = append(created.Items, createdItem)
	}

	if created.Status == domain.OrderStatusCompleted {
		if err := d.decrementStock(ctx, items); err != nil {
			return domain.Order{}, err
		}
	}

	d.log.Info("order placed",
		zap.String("order_id", created.ID),
		zap.String("code", created.Code),
		zap.String("status", string(created.Status)))
	return created, nil
}

// decrementStock applies the quantities of a completed order to the catalog.
func (d *Data) decrementStock(ctx context.Context, items []domain.OrderItem) error {
	for _, item := range items {
		rows, err := d.store.Query(ctx, remote.CollectionProducts, remote.Filter{"id": item.ProductID})
		if err != nil {
			return fmt.Errorf("load product %s: %w", item.ProductID, err)
		}
		if len(rows) == 0 {
			continue
		}
		var product domain.Product
		if err := json.Unmarshal(rows[0], &product); err != nil {
			return err
		}

		patch, err := json.Marshal(map[string]any{"stock": product.Stock - item.Quantity})
		if err != nil {
			return err
		}
		if _, err := d.store.Update(ctx, remote.CollectionProducts, remote.Filter{"id": item.ProductID}, patch); err != nil {
			return fmt.Errorf("decrement stock for %s: %w", item.ProductID, err)
		}
	}
	return nil
}

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

// ListClients returns the tenant's clients, preferring the remote store and
// falling back to the cached snapshot when offline or when the query fails.
func (d *Data) ListClients(ctx context.Context) ([]domain.Client, error) {
	tenantID, err := d.tenantID()
	if err != nil {
		return nil, err
	}

	if d.monitor.Online() {
		rows, err := d.store.Query(ctx, remote.CollectionClients, remote.Filter{"company_id": tenantID})
		if err == nil {
			clients, err := decodeRows[domain.Client](rows)
			if err != nil {
				return nil, err
			}
			if err := d.cache.Write(ctx, tenantID, cache.Clients, clients); err != nil {
				return nil, err
			}
			return clients, nil
		}
		d.log.Warn("client query failed, serving cache", zap.Error(err))
	}

	return readSnapshot[domain.Client](ctx, d.cache, tenantID, cache.Clients)
}

// CreateClient stores a client. Offline the row gets a temp_ id, lands in the
// cache immediately, and is queued for replay.
func (d *Data) CreateClient(ctx context.Context, client domain.Client) (domain.Client, error) {
	tenantID, err := d.tenantID()
	if err != nil {
		return domain.Client{}, err
	}
	client.CompanyID = tenantID

	if d.monitor.Online() {
		created, err := insertRow(ctx, d.store, remote.CollectionClients, client)
		if err == nil {
			return created, appendSnapshot(ctx, d.cache, tenantID, cache.Clients, created)
		}
		if !remote.IsRetryable(err) {
			return domain.Client{}, err
		}
		d.log.Warn("client insert failed, queueing", zap.Error(err))
	}

	payload, err := json.Marshal(client)
	if err != nil {
		return domain.Client{}, err
	}
	if _, err := d.queue.Enqueue(ctx, queue.KindClient, tenantID, payload); err != nil {
		return domain.Client{}, fmt.Errorf("queue client: %w", err)
	}

	client.ID = tempID()
	return client, appendSnapshot(ctx, d.cache, tenantID, cache.Clients, client)
}

// ListProducts mirrors ListClients for the product catalog.
func (d *Data) ListProducts(ctx context.Context) ([]domain.Product, error) {
	tenantID, err := d.tenantID()
	if err != nil {
		return nil, err
	}

	if d.monitor.Online() {
		rows, err := d.store.Query(ctx, remote.CollectionProducts, remote.Filter{"company_id": tenantID})
		if err == nil {
			products, err := decodeRows[domain.Product](rows)
			if err != nil {
				return nil, err
			}
			if err := d.cache.Write(ctx, tenantID, cache.Products, products); err != nil {
				return nil, err
			}
			return products, nil
		}
		d.log.Warn("product query failed, serving cache", zap.Error(err))
	}

	return readSnapshot[domain.Product](ctx, d.cache, tenantID, cache.Products)
}

// CreateProduct stores a product, queueing it when offline.
func (d *Data) CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	tenantID, err := d.tenantID()
	if err != nil {
		return domain.Product{}, err
	}
	product.CompanyID = tenantID

	if d.monitor.Online() {
		created, err := insertRow(ctx, d.store, remote.CollectionProducts, product)
		if err == nil {
			return created, appendSnapshot(ctx, d.cache, tenantID, cache.Products, created)
		}
		if !remote.IsRetryable(err) {
			return domain.Product{}, err
		}
		d.log.Warn("product insert failed, queueing", zap.Error(err))
	}

	payload, err := json.Marshal(product)
	if err != nil {
		return domain.Product{}, err
	}
	if _, err := d.queue.Enqueue(ctx, queue.KindProduct, tenantID, payload); err != nil {
		return domain.Product{}, fmt.Errorf("queue product: %w", err)
	}

	product.ID = tempID()
	return product, appendSnapshot(ctx, d.cache, tenantID, cache.Products, product)
}

func decodeRows[T any](rows []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		var v T
		if err := json.Unmarshal(row, &v); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

func insertRow[T any](ctx context.Context, store remote.DataStore, collection string, row T) (T, error) {
	var zero T
	raw, err := json.Marshal(row)
	if err != nil {
		return zero, err
	}
	created, err := store.Insert(ctx, collection, raw)
	if err != nil {
		return zero, fmt.Errorf("insert into %s: %w", collection, err)
	}
	var out T
	if err := json.Unmarshal(created, &out); err != nil {
		return zero, fmt.Errorf("decode inserted row: %w", err)
	}
	return out, nil
}

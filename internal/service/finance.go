package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jacksonmacedok2-maker/Venda-flow/internal/cache"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/domain"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/remote"
)

// ListTransactions returns the tenant's financial entries, remote-first with
// cache fallback.
func (d *Data) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	tenantID, err := d.tenantID()
	if err != nil {
		return nil, err
	}

	if d.monitor.Online() {
		rows, err := d.store.Query(ctx, remote.CollectionTransactions, remote.Filter{"company_id": tenantID})
		if err == nil {
			transactions, err := decodeRows[domain.Transaction](rows)
			if err != nil {
				return nil, err
			}
			if err := d.cache.Write(ctx, tenantID, cache.Finance, transactions); err != nil {
				return nil, err
			}
			return transactions, nil
		}
		d.log.Warn("transaction query failed, serving cache", zap.Error(err))
	}

	return readSnapshot[domain.Transaction](ctx, d.cache, tenantID, cache.Finance)
}

// CreateTransaction stores a financial entry. Finance writes have no offline
// path; they fail fast when disconnected.
func (d *Data) CreateTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	tenantID, err := d.tenantID()
	if err != nil {
		return domain.Transaction{}, err
	}
	if !d.monitor.Online() {
		return domain.Transaction{}, ErrOffline
	}
	tx.CompanyID = tenantID
	if tx.Date.IsZero() {
		tx.Date = time.Now().UTC()
	}

	created, err := insertRow(ctx, d.store, remote.CollectionTransactions, tx)
	if err != nil {
		return domain.Transaction{}, err
	}
	return created, appendSnapshot(ctx, d.cache, tenantID, cache.Finance, created)
}

// DashboardStats aggregates the numbers the dashboard header shows. Offline
// it returns zeros; the screens that need freshness are online-only.
func (d *Data) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	tenantID, err := d.tenantID()
	if err != nil {
		return domain.DashboardStats{}, err
	}
	if !d.monitor.Online() {
		return domain.DashboardStats{}, nil
	}

	orders, err := d.queryOrders(ctx, tenantID)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	productRows, err := d.store.Query(ctx, remote.CollectionProducts, remote.Filter{"company_id": tenantID})
	if err != nil {
		return domain.DashboardStats{}, err
	}
	products, err := decodeRows[domain.Product](productRows)
	if err != nil {
		return domain.DashboardStats{}, err
	}

	var stats domain.DashboardStats
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	for _, order := range orders {
		switch order.Status {
		case domain.OrderStatusCompleted:
			if !order.CreatedAt.Before(today) {
				stats.DailySales += order.TotalAmount
			}
			if !order.CreatedAt.Before(monthStart) {
				stats.MonthlyRevenue += order.TotalAmount
			}
		case domain.OrderStatusPending:
			stats.PendingOrders++
		}
	}
	for _, product := range products {
		if product.Stock <= 0 {
			stats.OutOfStockItems++
		}
	}
	return stats, nil
}

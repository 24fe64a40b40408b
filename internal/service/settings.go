package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jacksonmacedok2-maker/Venda-flow/internal/cache"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/domain"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/remote"
)

func defaultCommercialSettings(tenantID string) domain.CommercialSettings {
	return domain.CommercialSettings{
		CompanyID:             tenantID,
		LowStockThreshold:     5,
		MaxDiscountPercent:    10,
		DefaultPaymentMethod:  "PIX",
		AllowedPaymentMethods: []string{"PIX", "Dinheiro", "Cartão", "Boleto"},
		OrderCodePrefix:       "PED",
		OrderCodePadding:      6,
	}
}

// GetCommercialSettings returns the tenant's sales rules, creating the row
// with defaults on first read.
func (d *Data) GetCommercialSettings(ctx context.Context) (domain.CommercialSettings, error) {
	return getOrCreateSettings(ctx, d, remote.CollectionCommercialSettings, cache.Commercial, defaultCommercialSettings)
}

// UpdateCommercialSettings persists changed sales rules. Offline the change
// lands only in the cached snapshot and the remote row is left for the next
// online update.
func (d *Data) UpdateCommercialSettings(ctx context.Context, settings domain.CommercialSettings) (domain.CommercialSettings, error) {
	return updateSettings(ctx, d, remote.CollectionCommercialSettings, cache.Commercial, settings, defaultCommercialSettings)
}

func defaultCompanySettings(tenantID string) domain.CompanySettings {
	return domain.CompanySettings{
		CompanyID: tenantID,
		Country:   "Brasil",
		Currency:  "BRL",
		Timezone:  "America/Sao_Paulo",
	}
}

// GetCompanySettings returns the tenant's profile, creating it with defaults
// on first read.
func (d *Data) GetCompanySettings(ctx context.Context) (domain.CompanySettings, error) {
	return getOrCreateSettings(ctx, d, remote.CollectionCompanySettings, cache.Company, defaultCompanySettings)
}

// UpdateCompanySettings persists profile changes, cache-only when offline.
func (d *Data) UpdateCompanySettings(ctx context.Context, settings domain.CompanySettings) (domain.CompanySettings, error) {
	return updateSettings(ctx, d, remote.CollectionCompanySettings, cache.Company, settings, defaultCompanySettings)
}

type settingsDoc interface {
	domain.CommercialSettings | domain.CompanySettings
}

func getOrCreateSettings[T settingsDoc](
	ctx context.Context,
	d *Data,
	collection string,
	col cache.Collection,
	defaults func(tenantID string) T,
) (T, error) {
	var zero T
	tenantID, err := d.tenantID()
	if err != nil {
		return zero, err
	}

	if d.monitor.Online() {
		rows, err := d.store.Query(ctx, collection, remote.Filter{"company_id": tenantID})
		if err == nil {
			var settings T
			if len(rows) == 0 {
				settings, err = insertRow(ctx, d.store, collection, defaults(tenantID))
				if err != nil {
					return zero, err
				}
			} else if err := json.Unmarshal(rows[0], &settings); err != nil {
				return zero, fmt.Errorf("decode %s: %w", collection, err)
			}
			return settings, d.cache.Write(ctx, tenantID, col, settings)
		}
		d.log.Warn("settings read failed, serving cache",
			zap.String("collection", collection), zap.Error(err))
	}

	var cached T
	err = d.cache.ReadInto(ctx, tenantID, col, &cached)
	if err == nil {
		return cached, nil
	}
	if errors.Is(err, cache.ErrNoSnapshot) {
		return defaults(tenantID), nil
	}
	return zero, err
}

func updateSettings[T settingsDoc](
	ctx context.Context,
	d *Data,
	collection string,
	col cache.Collection,
	settings T,
	defaults func(tenantID string) T,
) (T, error) {
	var zero T
	tenantID, err := d.tenantID()
	if err != nil {
		return zero, err
	}

	if !d.monitor.Online() {
		// Offline: the full document replaces the snapshot so the UI keeps
		// the edit. The remote row catches up on the next online update.
		return settings, d.cache.Write(ctx, tenantID, col, settings)
	}

	// Ensure the row exists before patching it.
	if _, err := getOrCreateSettings(ctx, d, collection, col, defaults); err != nil {
		return zero, err
	}

	patch, err := json.Marshal(settings)
	if err != nil {
		return zero, err
	}
	updated, err := d.store.Update(ctx, collection, remote.Filter{"company_id": tenantID}, patch)
	if err != nil {
		return zero, fmt.Errorf("update %s: %w", collection, err)
	}

	var out T
	if err := json.Unmarshal(updated, &out); err != nil {
		return zero, fmt.Errorf("decode updated %s: %w", collection, err)
	}
	return out, d.cache.Write(ctx, tenantID, col, out)
}

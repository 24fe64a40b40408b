// Package sequence allocates human-readable order codes (PED-000001) from a
// per-tenant counter held in the remote store.
package sequence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jacksonmacedok2-maker/Venda-flow/internal/remote"
)

// Allocator hands out the next order code for a tenant.
//
// Allocation is a read-modify-write against the counter row with no
// compare-and-swap: two clients allocating for the same tenant at the same
// moment can both read N and both produce code N+1. Order ids stay unique
// (they are server-generated uuids), so a duplicate code is a display-level
// collision the business tolerates.
type Allocator struct {
	store    remote.DataStore
	prefix   string
	padWidth int
}

type counterRow struct {
	ID        string `json:"id,omitempty"`
	CompanyID string `json:"company_id"`
	Current   int64  `json:"current"`
}

// New creates an allocator. prefix and padWidth shape the emitted code,
// e.g. ("PED", 6) produces PED-000001.
func New(store remote.DataStore, prefix string, padWidth int) *Allocator {
	if prefix == "" {
		prefix = "PED"
	}
	if padWidth <= 0 {
		padWidth = 6
	}
	return &Allocator{store: store, prefix: prefix, padWidth: padWidth}
}

// NextCode advances the tenant's counter and returns the formatted code.
// The first allocation for a tenant creates the counter at 1.
func (a *Allocator) NextCode(ctx context.Context, tenantID string) (string, error) {
	rows, err := a.store.Query(ctx, remote.CollectionOrderSequences, remote.Filter{"company_id": tenantID})
	if err != nil {
		return "", fmt.Errorf("read order sequence: %w", err)
	}

	if len(rows) == 0 {
		row, err := json.Marshal(counterRow{CompanyID: tenantID, Current: 1})
		if err != nil {
			return "", err
		}
		if _, err := a.store.Insert(ctx, remote.CollectionOrderSequences, row); err != nil {
			return "", fmt.Errorf("create order sequence: %w", err)
		}
		return a.format(1), nil
	}

	var counter counterRow
	if err := json.Unmarshal(rows[0], &counter); err != nil {
		return "", fmt.Errorf("decode order sequence: %w", err)
	}

	next := counter.Current + 1
	patch, err := json.Marshal(map[string]any{"current": next})
	if err != nil {
		return "", err
	}
	if _, err := a.store.Update(ctx, remote.CollectionOrderSequences, remote.Filter{"company_id": tenantID}, patch); err != nil {
		return "", fmt.Errorf("advance order sequence: %w", err)
	}
	return a.format(next), nil
}

func (a *Allocator) format(n int64) string {
	return fmt.Sprintf("%s-%0*d", a.prefix, a.padWidth, n)
}

// Package cache mirrors remote entity collections into the durable local
// store so the UI has something to render while offline. Snapshots are
// replaced wholesale on every successful remote read; nothing is merged.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jacksonmacedok2-maker/Venda-flow/internal/localstore"
)

// Collection names a cached entity collection.
type Collection string

const (
	Clients     Collection = "clients"
	Products    Collection = "products"
	Orders      Collection = "orders"
	Finance     Collection = "finance"
	Commercial  Collection = "commercial"
	Company     Collection = "company"
	Invitations Collection = "invitations"
)

// ErrNoSnapshot is returned when a collection has never been populated.
var ErrNoSnapshot = errors.New("cache: no snapshot")

// Cache is a tenant-scoped snapshot store. Keys carry the tenant id so a
// session that switches tenants can never read the previous tenant's data.
type Cache struct {
	store localstore.Store
}

// New creates a cache over the given durable store.
func New(store localstore.Store) *Cache {
	return &Cache{store: store}
}

func key(tenantID string, collection Collection) string {
	return fmt.Sprintf("cache:%s:%s", tenantID, collection)
}

// Read returns the last snapshot for the collection, or ErrNoSnapshot.
func (c *Cache) Read(ctx context.Context, tenantID string, collection Collection) (json.RawMessage, error) {
	value, err := c.store.Get(ctx, key(tenantID, collection))
	if errors.Is(err, localstore.ErrKeyNotFound) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(value), nil
}

// ReadInto unmarshals the last snapshot into v, or returns ErrNoSnapshot.
func (c *Cache) ReadInto(ctx context.Context, tenantID string, collection Collection, v any) error {
	raw, err := c.Read(ctx, tenantID, collection)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// Write marshals v and replaces the collection snapshot wholesale.
func (c *Cache) Write(ctx context.Context, tenantID string, collection Collection, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return c.store.Set(ctx, key(tenantID, collection), raw)
}

// Delete drops one collection snapshot.
func (c *Cache) Delete(ctx context.Context, tenantID string, collection Collection) error {
	return c.store.Delete(ctx, key(tenantID, collection))
}

// Clear wipes the underlying store. Called on sign-out; pending queue items
// go with it, matching the everything-is-per-session lifecycle.
func (c *Cache) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// Package remote defines the hosted-backend interfaces this client consumes:
// a generic document store keyed by collection, plus the error taxonomy the
// sync and membership layers use to decide between retry and give-up.
package remote

import (
	"context"
	"encoding/json"
)

// Filter matches documents whose fields equal every entry. An empty filter
// matches everything in the collection.
type Filter map[string]any

// DataStore is the remote persistence surface. Rows travel as raw JSON so the
// client core stays agnostic of entity shapes beyond what it caches.
type DataStore interface {
	// Query returns the documents in collection matching filter.
	Query(ctx context.Context, collection string, filter Filter) ([]json.RawMessage, error)
	// Insert stores row and returns it with server-assigned fields filled in.
	Insert(ctx context.Context, collection string, row json.RawMessage) (json.RawMessage, error)
	// Update patches the first document matching filter and returns the result.
	Update(ctx context.Context, collection string, filter Filter, patch json.RawMessage) (json.RawMessage, error)
	// Delete removes the documents matching filter.
	Delete(ctx context.Context, collection string, filter Filter) error
	// CreateTenant provisions a company and returns its id. The caller is
	// expected to hold the OWNER membership the backend creates alongside.
	CreateTenant(ctx context.Context, name string, ownerUserID string) (string, error)
}

// Collection names used against the remote store.
const (
	CollectionClients            = "clients"
	CollectionProducts           = "products"
	CollectionOrders             = "orders"
	CollectionOrderItems         = "order_items"
	CollectionTransactions       = "transactions"
	CollectionMemberships        = "memberships"
	CollectionInvitations        = "invitations"
	CollectionCompanySettings    = "company_settings"
	CollectionCommercialSettings = "commercial_settings"
	CollectionOrderSequences     = "order_sequences"
)

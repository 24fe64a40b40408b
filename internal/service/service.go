// Package service orchestrates the read-through cache and optimistic writes:
// reads prefer the remote store and fall back to the last cached snapshot,
// writes made offline are echoed into the cache and queued for replay.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jacksonmacedok2-maker/Venda-flow/internal/cache"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/membership"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/netstatus"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/queue"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/remote"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/sequence"
	"github.com/jacksonmacedok2-maker/Venda-flow/pkg/logger"
)

var (
	// ErrNoActiveCompany is returned when no membership is resolved or
	// overridden for the signed-in user.
	ErrNoActiveCompany = errors.New("no active company")
	// ErrOffline is returned by operations that have no queued fallback.
	ErrOffline = errors.New("operation requires connectivity")
)

// Data exposes the collection operations backed by the local-first pipeline.
type Data struct {
	store    remote.DataStore
	cache    *cache.Cache
	queue    *queue.Queue
	monitor  *netstatus.Monitor
	seq      *sequence.Allocator
	resolver *membership.Resolver
	log      *logger.Logger
}

// NewData wires the data service over its collaborators.
func NewData(
	store remote.DataStore,
	c *cache.Cache,
	q *queue.Queue,
	monitor *netstatus.Monitor,
	seq *sequence.Allocator,
	resolver *membership.Resolver,
	log *logger.Logger,
) *Data {
	return &Data{
		store:    store,
		cache:    c,
		queue:    q,
		monitor:  monitor,
		seq:      seq,
		resolver: resolver,
		log:      log,
	}
}

// tenantID returns the company every operation is scoped to.
func (d *Data) tenantID() (string, error) {
	m, _ := d.resolver.Current()
	if m == nil {
		return "", ErrNoActiveCompany
	}
	return m.CompanyID, nil
}

// tempID marks an optimistic row that has not been acknowledged remotely.
// The real id replaces it on the next successful list refresh.
func tempID() string {
	return "temp_" + uuid.New().String()
}

// IsTempID reports whether an id was assigned optimistically while offline.
func IsTempID(id string) bool {
	return len(id) > 5 && id[:5] == "temp_"
}

// readSnapshot loads the cached slice for a collection, returning an empty
// slice when the cache is cold.
func readSnapshot[T any](ctx context.Context, c *cache.Cache, tenantID string, col cache.Collection) ([]T, error) {
	var rows []T
	err := c.ReadInto(ctx, tenantID, col, &rows)
	if errors.Is(err, cache.ErrNoSnapshot) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s snapshot: %w", col, err)
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, nil
}

// appendSnapshot echoes a new row onto the cached slice.
func appendSnapshot[T any](ctx context.Context, c *cache.Cache, tenantID string, col cache.Collection, row T) error {
	rows, err := readSnapshot[T](ctx, c, tenantID, col)
	if err != nil {
		return err
	}
	return c.Write(ctx, tenantID, col, append(rows, row))
}

// Package queue is the durable log of writes made while offline. Items are
// appended in order and only removed once their remote operation has been
// acknowledged; a drain pass compacts the log by id so appends that land
// while the pass runs survive it.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jacksonmacedok2-maker/Venda-flow/internal/localstore"
)

// Kind tags a queued mutation with the remote operation that replays it.
type Kind string

const (
	KindClient  Kind = "CLIENT"
	KindProduct Kind = "PRODUCT"
	KindOrder   Kind = "ORDER"
)

// IsValid returns true for a known kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindClient, KindProduct, KindOrder:
		return true
	}
	return false
}

// ErrUnknownKind is returned when enqueueing an unrecognized kind.
var ErrUnknownKind = errors.New("queue: unknown mutation kind")

// Item is one not-yet-confirmed write. Items are never mutated in place;
// attempt counts are applied when a drain pass compacts the queue.
type Item struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	TenantID   string          `json:"tenant_id"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	Attempts   int             `json:"attempts"`
}

// DeadLetter is an item retired from the queue after rejection or too many
// failed replays.
type DeadLetter struct {
	Item     Item      `json:"item"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

const (
	queueKey      = "sync:queue"
	deadLetterKey = "sync:deadletter"
)

// Queue is the durable mutation log. The mutex serializes every
// read-modify-write over the persisted log so an Enqueue landing while a
// drain pass compacts it is never overwritten.
type Queue struct {
	mu    sync.Mutex
	store localstore.Store
}

// New creates a queue over the given durable store.
func New(store localstore.Store) *Queue {
	return &Queue{store: store}
}

// Enqueue appends a mutation with a fresh id and the current timestamp.
func (q *Queue) Enqueue(ctx context.Context, kind Kind, tenantID string, payload json.RawMessage) (Item, error) {
	if !kind.IsValid() {
		return Item{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	item := Item{
		ID:         uuid.New().String(),
		Kind:       kind,
		TenantID:   tenantID,
		Payload:    payload,
		EnqueuedAt: time.Now().UTC(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load(ctx, queueKey)
	if err != nil {
		return Item{}, err
	}
	return item, q.save(ctx, queueKey, append(items, item))
}

// Items returns the queued mutations in insertion order.
func (q *Queue) Items(ctx context.Context) ([]Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load(ctx, queueKey)
}

// Replace rewrites the queue wholesale. Drain passes go through Compact
// instead so appends landing mid-pass survive.
func (q *Queue) Replace(ctx context.Context, items []Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.save(ctx, queueKey, items)
}

// Compact removes the processed ids from the persisted log and swaps in the
// survivors (same items with bumped attempt counts). Items appended since
// the caller snapshotted the queue match neither set and are kept as-is.
// It returns the number of items left in the log. An item removed here has
// either been acknowledged by the remote store or moved to the dead-letter
// list; a crash before this rewrite means a replayed item replays again next
// drain, and the remote inserts use server-generated ids so the duplicate is
// accepted rather than prevented.
func (q *Queue) Compact(ctx context.Context, processed []string, survivors []Item) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load(ctx, queueKey)
	if err != nil {
		return 0, err
	}

	drop := make(map[string]bool, len(processed))
	for _, id := range processed {
		drop[id] = true
	}
	swap := make(map[string]Item, len(survivors))
	for _, item := range survivors {
		swap[item.ID] = item
	}

	remaining := items[:0]
	for _, item := range items {
		if drop[item.ID] {
			continue
		}
		if updated, ok := swap[item.ID]; ok {
			item = updated
		}
		remaining = append(remaining, item)
	}

	if err := q.save(ctx, queueKey, remaining); err != nil {
		return 0, err
	}
	return len(remaining), nil
}

// Len returns the number of queued items.
func (q *Queue) Len(ctx context.Context) (int, error) {
	items, err := q.Items(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// DeadLetters returns the retired items.
func (q *Queue) DeadLetters(ctx context.Context) ([]DeadLetter, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loadDeadLetters(ctx)
}

// AddDeadLetter retires an item with the given reason.
func (q *Queue) AddDeadLetter(ctx context.Context, item Item, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	letters, err := q.loadDeadLetters(ctx)
	if err != nil {
		return err
	}
	letters = append(letters, DeadLetter{
		Item:     item,
		Reason:   reason,
		FailedAt: time.Now().UTC(),
	})
	return q.saveDeadLetters(ctx, letters)
}

// RequeueDeadLetter moves a retired item back onto the queue with its
// attempt count reset.
func (q *Queue) RequeueDeadLetter(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	letters, err := q.loadDeadLetters(ctx)
	if err != nil {
		return err
	}

	for i, letter := range letters {
		if letter.Item.ID != id {
			continue
		}

		item := letter.Item
		item.Attempts = 0

		items, err := q.load(ctx, queueKey)
		if err != nil {
			return err
		}
		if err := q.save(ctx, queueKey, append(items, item)); err != nil {
			return err
		}
		return q.saveDeadLetters(ctx, append(letters[:i:i], letters[i+1:]...))
	}
	return fmt.Errorf("dead letter %s not found", id)
}

// DropDeadLetter discards a retired item permanently.
func (q *Queue) DropDeadLetter(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	letters, err := q.loadDeadLetters(ctx)
	if err != nil {
		return err
	}

	remaining := letters[:0]
	for _, letter := range letters {
		if letter.Item.ID != id {
			remaining = append(remaining, letter)
		}
	}
	if len(remaining) == len(letters) {
		return fmt.Errorf("dead letter %s not found", id)
	}
	return q.saveDeadLetters(ctx, remaining)
}

func (q *Queue) loadDeadLetters(ctx context.Context) ([]DeadLetter, error) {
	raw, err := q.store.Get(ctx, deadLetterKey)
	if errors.Is(err, localstore.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var letters []DeadLetter
	if err := json.Unmarshal(raw, &letters); err != nil {
		return nil, fmt.Errorf("decode dead letters: %w", err)
	}
	return letters, nil
}

func (q *Queue) saveDeadLetters(ctx context.Context, letters []DeadLetter) error {
	raw, err := json.Marshal(letters)
	if err != nil {
		return fmt.Errorf("encode dead letters: %w", err)
	}
	return q.store.Set(ctx, deadLetterKey, raw)
}

func (q *Queue) load(ctx context.Context, key string) ([]Item, error) {
	raw, err := q.store.Get(ctx, key)
	if errors.Is(err, localstore.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode queue: %w", err)
	}
	return items, nil
}

func (q *Queue) save(ctx context.Context, key string, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	return q.store.Set(ctx, key, raw)
}

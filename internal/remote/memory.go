package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory DataStore for tests and local development. It
// can simulate connectivity loss and per-collection failures.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string][]map[string]any
	offline     bool
	failWith    map[string]error // collection -> scripted error
	insertCalls map[string]int
}

// NewMemoryStore creates an empty in-memory remote store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]map[string]any),
		failWith:    make(map[string]error),
		insertCalls: make(map[string]int),
	}
}

// SetOffline makes every call fail with a transient error while true.
func (s *MemoryStore) SetOffline(offline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline = offline
}

// FailWith scripts an error for all operations on collection. Pass nil to
// clear the script.
func (s *MemoryStore) FailWith(collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failWith, collection)
		return
	}
	s.failWith[collection] = err
}

// InsertCalls returns how many inserts hit collection (for tests).
func (s *MemoryStore) InsertCalls(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertCalls[collection]
}

// Seed stores a document directly, bypassing failure scripting.
func (s *MemoryStore) Seed(collection string, doc map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = append(s.collections[collection], copyDoc(doc))
}

func (s *MemoryStore) gate(collection string) error {
	if s.offline {
		return TransientError(fmt.Errorf("network unreachable"))
	}
	if err, ok := s.failWith[collection]; ok {
		return err
	}
	return nil
}

func matches(doc map[string]any, filter Filter) bool {
	for key, want := range filter {
		got, ok := doc[key]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// Query returns the documents in collection matching filter.
func (s *MemoryStore) Query(ctx context.Context, collection string, filter Filter) ([]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate(collection); err != nil {
		return nil, err
	}

	var out []json.RawMessage
	for _, doc := range s.collections[collection] {
		if matches(doc, filter) {
			raw, err := json.Marshal(doc)
			if err != nil {
				return nil, err
			}
			out = append(out, raw)
		}
	}
	return out, nil
}

// Insert stores row, assigning a server id and created_at when absent.
func (s *MemoryStore) Insert(ctx context.Context, collection string, row json.RawMessage) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate(collection); err != nil {
		return nil, err
	}
	s.insertCalls[collection]++

	var doc map[string]any
	if err := json.Unmarshal(row, &doc); err != nil {
		return nil, ValidationError("malformed document")
	}
	id, _ := doc["id"].(string)
	if id == "" {
		doc["id"] = uuid.New().String()
	}
	if _, ok := doc["created_at"]; !ok {
		doc["created_at"] = time.Now().UTC().Format(time.RFC3339)
	}

	s.collections[collection] = append(s.collections[collection], doc)
	return json.Marshal(doc)
}

// Update merges patch into the first document matching filter.
func (s *MemoryStore) Update(ctx context.Context, collection string, filter Filter, patch json.RawMessage) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate(collection); err != nil {
		return nil, err
	}

	var fields map[string]any
	if err := json.Unmarshal(patch, &fields); err != nil {
		return nil, ValidationError("malformed patch")
	}

	for _, doc := range s.collections[collection] {
		if matches(doc, filter) {
			for k, v := range fields {
				doc[k] = v
			}
			return json.Marshal(doc)
		}
	}
	return nil, ErrNotFound
}

// Delete removes the documents matching filter.
func (s *MemoryStore) Delete(ctx context.Context, collection string, filter Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate(collection); err != nil {
		return err
	}

	kept := s.collections[collection][:0]
	for _, doc := range s.collections[collection] {
		if !matches(doc, filter) {
			kept = append(kept, doc)
		}
	}
	s.collections[collection] = kept
	return nil
}

// CreateTenant provisions a company and its OWNER membership.
func (s *MemoryStore) CreateTenant(ctx context.Context, name string, ownerUserID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate("companies"); err != nil {
		return "", err
	}

	tenantID := uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339)

	s.collections["companies"] = append(s.collections["companies"], map[string]any{
		"id":         tenantID,
		"name":       name,
		"created_at": now,
	})
	s.collections[CollectionMemberships] = append(s.collections[CollectionMemberships], map[string]any{
		"id":           uuid.New().String(),
		"company_id":   tenantID,
		"user_id":      ownerUserID,
		"role":         "OWNER",
		"status":       "ACTIVE",
		"company_name": name,
		"created_at":   now,
	})

	return tenantID, nil
}

func copyDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

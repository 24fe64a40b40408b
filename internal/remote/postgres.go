package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements DataStore over PostgreSQL. Documents live in a
// single table as JSONB so the schema matches the collection-oriented
// contract rather than one table per entity.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store over an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Schema is the DDL the store expects. Applied by migrations, kept here so
// the shape is visible next to the queries.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
	id         UUID PRIMARY KEY,
	collection TEXT NOT NULL,
	doc        JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS documents_collection_idx ON documents (collection);
CREATE INDEX IF NOT EXISTS documents_doc_idx ON documents USING GIN (doc);

CREATE TABLE IF NOT EXISTS companies (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// classify maps pgx failures onto the client error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 23 covers integrity constraint violations.
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "23" {
			return fmt.Errorf("%w: %s", ErrValidation, pgErr.Message)
		}
		return err
	}
	// Anything that never reached the server counts as transient.
	return TransientError(err)
}

// Query returns the documents in collection matching filter.
func (s *PostgresStore) Query(ctx context.Context, collection string, filter Filter) ([]json.RawMessage, error) {
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("marshal filter: %w", err)
	}

	query := `
		SELECT doc FROM documents
		WHERE collection = $1 AND doc @> $2::jsonb
		ORDER BY created_at
	`
	rows, err := s.pool.Query(ctx, query, collection, filterJSON)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, classify(err)
		}
		out = append(out, json.RawMessage(doc))
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// Insert stores row, assigning a server id and created_at when absent.
func (s *PostgresStore) Insert(ctx context.Context, collection string, row json.RawMessage) (json.RawMessage, error) {
	var doc map[string]any
	if err := json.Unmarshal(row, &doc); err != nil {
		return nil, ValidationError("malformed document")
	}

	id, _ := doc["id"].(string)
	if id == "" {
		id = uuid.New().String()
		doc["id"] = id
	}
	if _, ok := doc["created_at"]; !ok {
		doc["created_at"] = time.Now().UTC().Format(time.RFC3339)
	}

	stored, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	query := `INSERT INTO documents (id, collection, doc) VALUES ($1, $2, $3)`
	if _, err := s.pool.Exec(ctx, query, id, collection, stored); err != nil {
		return nil, classify(err)
	}
	return stored, nil
}

// Update merges patch into the first document matching filter.
func (s *PostgresStore) Update(ctx context.Context, collection string, filter Filter, patch json.RawMessage) (json.RawMessage, error) {
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("marshal filter: %w", err)
	}

	query := `
		UPDATE documents
		SET doc = doc || $3::jsonb
		WHERE id = (
			SELECT id FROM documents
			WHERE collection = $1 AND doc @> $2::jsonb
			ORDER BY created_at
			LIMIT 1
		)
		RETURNING doc
	`
	var doc []byte
	err = s.pool.QueryRow(ctx, query, collection, filterJSON, patch).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, classify(err)
	}
	return json.RawMessage(doc), nil
}

// Delete removes the documents matching filter.
func (s *PostgresStore) Delete(ctx context.Context, collection string, filter Filter) error {
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return fmt.Errorf("marshal filter: %w", err)
	}

	query := `DELETE FROM documents WHERE collection = $1 AND doc @> $2::jsonb`
	if _, err := s.pool.Exec(ctx, query, collection, filterJSON); err != nil {
		return classify(err)
	}
	return nil
}

// CreateTenant provisions a company and its OWNER membership atomically.
func (s *PostgresStore) CreateTenant(ctx context.Context, name string, ownerUserID string) (string, error) {
	tenantID := uuid.New().String()
	membershipID := uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339)

	membership, err := json.Marshal(map[string]any{
		"id":           membershipID,
		"company_id":   tenantID,
		"user_id":      ownerUserID,
		"role":         "OWNER",
		"status":       "ACTIVE",
		"company_name": name,
		"created_at":   now,
	})
	if err != nil {
		return "", fmt.Errorf("marshal membership: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", classify(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`INSERT INTO companies (id, name) VALUES ($1, $2)`, tenantID, name); err != nil {
		return "", classify(err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO documents (id, collection, doc) VALUES ($1, $2, $3)`,
		membershipID, CollectionMemberships, membership); err != nil {
		return "", classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", classify(err)
	}
	return tenantID, nil
}

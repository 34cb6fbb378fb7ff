// blog/pgstore.go
package blog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// One table for every collection. Filters compile to jsonb containment so a
// fused existence+ownership filter reaches the server as a single statement.
// The partial unique index is what enforces email uniqueness for users.
const schema = `
CREATE TABLE IF NOT EXISTS documents (
    id BIGSERIAL PRIMARY KEY,
    collection TEXT NOT NULL,
    doc JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
CREATE INDEX IF NOT EXISTS idx_documents_doc ON documents USING GIN (doc jsonb_path_ops);
CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_doc_id ON documents(collection, (doc->>'id'));
CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_users_email ON documents((doc->>'email')) WHERE collection = 'users';
`

const uniqueViolation = "23505"

// PGStore is the Postgres-backed Store.
type PGStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPGStore(ctx context.Context, connectionString string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PGStore{pool: pool, now: time.Now}, nil
}

func (s *PGStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *PGStore) Close() {
	s.pool.Close()
}

func filterJSON(filter Filter) ([]byte, error) {
	if filter == nil {
		filter = Filter{}
	}
	return json.Marshal(filter)
}

func (s *PGStore) FindOne(ctx context.Context, collection string, filter Filter) (Doc, error) {
	fj, err := filterJSON(filter)
	if err != nil {
		return nil, err
	}
	var doc Doc
	query := `SELECT doc FROM documents WHERE collection = $1 AND doc @> $2::jsonb LIMIT 1`
	err = s.pool.QueryRow(ctx, query, collection, fj).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *PGStore) FindMany(ctx context.Context, collection string, filter Filter) ([]Doc, error) {
	fj, err := filterJSON(filter)
	if err != nil {
		return nil, err
	}
	query := `SELECT doc FROM documents WHERE collection = $1 AND doc @> $2::jsonb ORDER BY id ASC`
	rows, err := s.pool.Query(ctx, query, collection, fj)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := []Doc{}
	for rows.Next() {
		var doc Doc
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *PGStore) Insert(ctx context.Context, collection string, doc Doc) (Doc, error) {
	stored := maps.Clone(doc)
	if _, ok := stored["id"]; !ok {
		stored["id"] = newDocID()
	}
	stampInsert(stored, s.now())
	dj, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}
	query := `INSERT INTO documents (collection, doc) VALUES ($1, $2::jsonb)`
	if _, err := s.pool.Exec(ctx, query, collection, dj); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return stored, nil
}

// UpdateOne merges patch into the first document matching filter. The match
// and the write happen in one statement, so a stale read can never slip in
// between an ownership check and the update.
func (s *PGStore) UpdateOne(ctx context.Context, collection string, filter Filter, patch Doc) (Doc, error) {
	fj, err := filterJSON(filter)
	if err != nil {
		return nil, err
	}
	stamped := maps.Clone(patch)
	stampUpdate(stamped, s.now())
	pj, err := json.Marshal(stamped)
	if err != nil {
		return nil, err
	}
	var doc Doc
	query := `
		UPDATE documents SET doc = doc || $3::jsonb
		WHERE id = (
			SELECT id FROM documents
			WHERE collection = $1 AND doc @> $2::jsonb
			LIMIT 1
			FOR UPDATE
		)
		RETURNING doc`
	err = s.pool.QueryRow(ctx, query, collection, fj, pj).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *PGStore) DeleteOne(ctx context.Context, collection string, filter Filter) (Doc, error) {
	fj, err := filterJSON(filter)
	if err != nil {
		return nil, err
	}
	var doc Doc
	query := `
		DELETE FROM documents
		WHERE id = (
			SELECT id FROM documents
			WHERE collection = $1 AND doc @> $2::jsonb
			LIMIT 1
			FOR UPDATE
		)
		RETURNING doc`
	err = s.pool.QueryRow(ctx, query, collection, fj).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

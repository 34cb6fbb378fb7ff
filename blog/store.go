// blog/store.go
package blog

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Doc is a raw store document. Filter matches documents by field equality;
// a filter carrying both an id and an owning identity fuses the "does it
// exist" and "do I own it" checks into one store operation.
type Doc map[string]any

type Filter map[string]any

// ErrDuplicate is returned by Insert when a unique field (the users
// collection's email) already holds the given value.
var ErrDuplicate = errors.New("duplicate value for unique field")

// Store is an opaque CRUD-by-filter document store over named collections.
// FindOne, UpdateOne, and DeleteOne return nil, nil when no document matches;
// UpdateOne and DeleteOne apply the filter and the write as one indivisible
// operation so concurrent mutations of the same record cannot both succeed.
type Store interface {
	FindOne(ctx context.Context, collection string, filter Filter) (Doc, error)
	FindMany(ctx context.Context, collection string, filter Filter) ([]Doc, error)
	Insert(ctx context.Context, collection string, doc Doc) (Doc, error)
	UpdateOne(ctx context.Context, collection string, filter Filter, patch Doc) (Doc, error)
	DeleteOne(ctx context.Context, collection string, filter Filter) (Doc, error)
}

// Timestamps ride in the document as RFC 3339 strings so the in-memory and
// Postgres stores agree on shape.
func stampInsert(doc Doc, now time.Time) {
	ts := now.UTC().Format(time.RFC3339Nano)
	doc["createdAt"] = ts
	doc["updatedAt"] = ts
}

func stampUpdate(patch Doc, now time.Time) {
	patch["updatedAt"] = now.UTC().Format(time.RFC3339Nano)
}

func newDocID() string {
	return uuid.New().String()
}

func matches(doc Doc, filter Filter) bool {
	for k, want := range filter {
		if doc[k] != want {
			return false
		}
	}
	return true
}

// MemStore is an in-process Store. It backs local development when no
// database is configured and doubles for PGStore in tests.
type MemStore struct {
	mu          sync.Mutex
	collections map[string][]Doc
	now         func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		collections: make(map[string][]Doc),
		now:         time.Now,
	}
}

func (s *MemStore) FindOne(ctx context.Context, collection string, filter Filter) (Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.collections[collection] {
		if matches(doc, filter) {
			return maps.Clone(doc), nil
		}
	}
	return nil, nil
}

func (s *MemStore) FindMany(ctx context.Context, collection string, filter Filter) ([]Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Doc{}
	for _, doc := range s.collections[collection] {
		if matches(doc, filter) {
			out = append(out, maps.Clone(doc))
		}
	}
	return out, nil
}

func (s *MemStore) Insert(ctx context.Context, collection string, doc Doc) (Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := maps.Clone(doc)
	if _, ok := stored["id"]; !ok {
		stored["id"] = newDocID()
	}
	stampInsert(stored, s.now())
	if collection == colUsers {
		for _, existing := range s.collections[collection] {
			if existing["email"] == stored["email"] {
				return nil, ErrDuplicate
			}
		}
	}
	s.collections[collection] = append(s.collections[collection], stored)
	return maps.Clone(stored), nil
}

func (s *MemStore) UpdateOne(ctx context.Context, collection string, filter Filter, patch Doc) (Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, doc := range s.collections[collection] {
		if !matches(doc, filter) {
			continue
		}
		updated := maps.Clone(doc)
		for k, v := range patch {
			updated[k] = v
		}
		stampUpdate(updated, s.now())
		s.collections[collection][i] = updated
		return maps.Clone(updated), nil
	}
	return nil, nil
}

func (s *MemStore) DeleteOne(ctx context.Context, collection string, filter Filter) (Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.collections[collection]
	for i, doc := range docs {
		if !matches(doc, filter) {
			continue
		}
		s.collections[collection] = append(docs[:i:i], docs[i+1:]...)
		return doc, nil
	}
	return nil, nil
}

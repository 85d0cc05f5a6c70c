// Package docstore is the document store collaborator: the schema-flexible
// source of truth for live writes. Two backends are provided, Firestore and
// a local sqlite file for development and tests. Both hold Firestore values
// (see values.go) so documents round-trip identically, typed zero values
// included.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/balkashynov/opsportal/internal/config"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is one stored record.
//
// Field values are normalised to: nil, bool, int64, float64, string,
// time.Time, []byte, map[string]any and []any.
type Document struct {
	ID         string
	Fields     map[string]any
	CreateTime time.Time
	UpdateTime time.Time
}

// Store is the contract every backend satisfies.
type Store interface {
	// Get fetches one document, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)

	// List returns every document in collection that matches filter,
	// ordered by document id.
	List(ctx context.Context, collection string, filter Filter) ([]Document, error)

	// Upsert creates the document or merges fields into it. Top-level
	// fields not named in fields are left untouched, so an empty fields map
	// only creates a missing document.
	Upsert(ctx context.Context, collection, id string, fields map[string]any) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Filter is a set of top-level field equality constraints. A nil or empty
// filter matches everything.
type Filter map[string]any

// Matches reports whether doc satisfies every constraint.
func (f Filter) Matches(doc Document) bool {
	for field, want := range f {
		got, ok := doc.Fields[field]
		if !ok {
			if want == nil {
				continue
			}
			return false
		}
		if !equalValues(got, want) {
			return false
		}
	}
	return true
}

// Open builds the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DocstoreConfig) (Store, error) {
	switch cfg.Driver {
	case "local":
		return OpenLocal(cfg.Path)
	case "firestore":
		return NewFirestore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown docstore driver %q", cfg.Driver)
	}
}

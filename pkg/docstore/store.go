// Package docstore defines the generic document store the catalog persists
// into. Records are schemaless JSON documents addressed by collection and id.
package docstore

import (
	"context"
	"encoding/json"
	"time"
)

// Document is one stored record.
type Document struct {
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store is the persistence surface the sync pipeline and the API share.
// Field arguments address top-level keys of the document JSON.
type Store interface {
	// Get unmarshals the document into dest. Missing documents return a
	// not-found error.
	Get(ctx context.Context, collection, id string, dest any) error
	// Set writes the record under the id. With merge, top-level fields of an
	// existing document are retained unless the record overwrites them;
	// without, the document is replaced.
	Set(ctx context.Context, collection, id string, record any, merge bool) error
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string) ([]Document, error)
	ListIDs(ctx context.Context, collection string) ([]string, error)
	// Query returns documents whose top-level fields equal all given values.
	Query(ctx context.Context, collection string, fields map[string]string) ([]Document, error)
	DeleteBatch(ctx context.Context, collection string, ids []string) error
	// DeleteMatching removes documents whose top-level fields equal all given
	// values and reports how many were removed.
	DeleteMatching(ctx context.Context, collection string, fields map[string]string) (int64, error)
}

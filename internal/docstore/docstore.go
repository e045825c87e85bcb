package docstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a mutation targets a document that does not exist.
var ErrNotFound = errors.New("document not found")

// Document is a schemaless record in a named collection. ID and OwnerID are
// fixed at insert time; everything else lives in Data. Timestamps are managed
// by the store: CreatedAt is set once, UpdatedAt refreshed on every mutation.
type Document struct {
	ID        string
	OwnerID   string
	Data      map[string]interface{}
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Filter is an exact-match predicate on a Data field.
type Filter struct {
	Field string
	Value string
}

// Order names the field a Find result is sorted by. The reserved field names
// "createdAt" and "updatedAt" refer to the store-managed timestamps; any other
// name refers to a Data field compared as a raw string.
type Order struct {
	Field      string
	Descending bool
}

// Query describes a filtered, ordered read. OwnerID, when set, is applied as
// the first predicate; callers that manage per-owner data must always set it.
type Query struct {
	Collection string
	OwnerID    string
	Filters    []Filter
	OrderBy    Order
}

// Store is the document-store contract the rest of the service is written
// against. Mutations suspend the caller until the store responds; no retries
// or timeouts are imposed at this layer.
type Store interface {
	Insert(ctx context.Context, collection, ownerID string, data map[string]interface{}) (Document, error)
	Update(ctx context.Context, collection, id string, patch map[string]interface{}) (Document, error)
	Delete(ctx context.Context, collection, id string) error
	Get(ctx context.Context, collection, id string) (Document, error)
	Find(ctx context.Context, q Query) ([]Document, error)

	// Watch returns a change feed for one owner's slice of a collection. The
	// channel carries an initial signal immediately, then one signal after
	// every mutation touching that slice. Signals coalesce under a slow
	// consumer. The channel is closed when ctx is cancelled.
	Watch(ctx context.Context, collection, ownerID string) (<-chan struct{}, error)
}

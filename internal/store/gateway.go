// Package store isolates the document database behind a small gateway
// interface so services and tests never touch the driver directly.
package store

import "context"

// Record is a raw document: its id plus the decoded field map.
type Record struct {
	ID   string
	Data map[string]interface{}
}

type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Filter is a single field comparison. Op uses the store's native operator
// strings ("==", "<", ">=", ...).
type Filter struct {
	Field string
	Op    string
	Value interface{}
}

// Query addresses a collection by slash-separated path, e.g. "characters" or
// "characters/<id>/narrative_turns".
type Query struct {
	Path      string
	Filters   []Filter
	OrderBy   string
	Direction Direction
	Limit     int
	Offset    int
}

// Update is one field mutation. Field may be a dotted path into nested maps.
// Value may be the ServerTimestamp or DeleteField sentinel.
type Update struct {
	Field string
	Value interface{}
}

type serverTimestampSentinel struct{}
type deleteFieldSentinel struct{}

// ServerTimestamp marks a field to be resolved to the store's commit time.
var ServerTimestamp interface{} = serverTimestampSentinel{}

// DeleteField marks a field for removal in an Update.
var DeleteField interface{} = deleteFieldSentinel{}

// Tx is the operation set available inside RunAtomic. The underlying store
// requires every read to happen before the first write of the transaction.
type Tx interface {
	// Get returns (nil, nil) when the document does not exist.
	Get(path, id string) (*Record, error)
	Query(q Query) ([]Record, error)
	// Create fails if the document already exists.
	Create(path, id string, data map[string]interface{}) error
	Set(path, id string, data map[string]interface{}) error
	Update(path, id string, updates []Update) error
	Delete(path, id string) error
}

// Gateway is the only seam between the application and the document store.
type Gateway interface {
	// GetDocument returns (nil, nil) when the document does not exist.
	GetDocument(ctx context.Context, path, id string) (*Record, error)
	QueryOrdered(ctx context.Context, q Query) ([]Record, error)
	// Count runs a server-side aggregation. It cannot be used inside
	// RunAtomic.
	Count(ctx context.Context, q Query) (int64, error)
	// RunAtomic executes fn under the store's optimistic-retry transaction.
	// fn may run more than once and must be safe to re-execute.
	RunAtomic(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

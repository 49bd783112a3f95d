// Package storage defines the key-value store the authentication service
// persists its records in, plus the DynamoDB, Postgres and in-memory
// implementations.
//
// Records are addressed by a partition key and a sort key and carry an
// opaque JSON document. Every record has a version that implementations
// bump on Update and use as an optimistic-concurrency guard: an Update that
// races with another writer fails with common.ErrVersionConflict instead of
// silently overwriting.
package storage

import (
	"context"
	"encoding/json"
)

// Item is a stored record: a JSON document under a composite key.
type Item struct {
	ID      string
	SortKey string
	Doc     json.RawMessage
	Version int64
}

// UpdateFunc mutates an item's document in place during Update. It must not
// touch ID, SortKey or Version.
type UpdateFunc func(item *Item) error

// Store is the persistence contract.
//
// Errors: Get and Update return common.ErrNotFound for absent records;
// Create returns common.ErrAlreadyExists if the key is taken; Update
// returns common.ErrVersionConflict when the record changed between the
// read and the write. Delete is idempotent.
type Store interface {
	Get(ctx context.Context, id, sortKey string) (*Item, error)
	List(ctx context.Context, id, sortKeyPrefix string) ([]*Item, error)
	Create(ctx context.Context, item *Item) error
	Update(ctx context.Context, id, sortKey string, update UpdateFunc) error
	Delete(ctx context.Context, id, sortKey string) error
}

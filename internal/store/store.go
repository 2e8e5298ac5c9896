// Package store defines the conditional-write key-value table the services persist through.
// Backends live in the dynamo, sqlstore and mongostore subpackages.
package store

import (
	"context"
	"errors"

	"cookbook/internal/patch"
)

var (
	// ErrNotFound is returned when no record exists for a key.
	ErrNotFound = errors.New("store: record not found")
	// ErrConditionFailed is returned when a conditional write did not apply.
	ErrConditionFailed = errors.New("store: condition failed")
	// ErrEmptyPatch is returned by Update when the patch sets nothing.
	ErrEmptyPatch = errors.New("store: empty patch")
)

// Condition is an attribute equality test.
type Condition struct {
	Attr  string
	Value any
}

// Eq builds a Condition.
func Eq(attr string, value any) Condition {
	return Condition{Attr: attr, Value: value}
}

// Table is a single-key table of T records.
type Table[T any] interface {
	// Get returns the record stored under key or ErrNotFound.
	Get(ctx context.Context, key string) (*T, error)
	// Create inserts item only if its key is not taken, else ErrConditionFailed.
	Create(ctx context.Context, item *T) error
	// Update sets the patch fields on an existing record when every condition holds.
	Update(ctx context.Context, key string, p *patch.Patch, conds ...Condition) error
	// Delete removes an existing record when every condition holds.
	Delete(ctx context.Context, key string, conds ...Condition) error
	// Scan returns every record matching all filters.
	Scan(ctx context.Context, filters ...Condition) ([]T, error)
}

// Pinger is implemented by backends that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

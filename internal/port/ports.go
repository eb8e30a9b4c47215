// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from concrete storage and caching implementations.
package port

import (
	"context"

	"github.com/gaqno/financial-app-sub001/internal/domain"
)

// TransactionStore holds the flat list of transaction records.
//
// Put and Delete take whole batches and must apply them as one state
// transition: either every record is written (or removed) or none is.
type TransactionStore interface {
	// Get returns *domain.ErrNotFound when id is unknown.
	Get(ctx context.Context, id string) (*domain.TransactionRecord, error)
	// List returns matching records ordered by date, then id.
	List(ctx context.Context, filter domain.TransactionFilter) ([]domain.TransactionRecord, error)
	// Put inserts or replaces records by id.
	Put(ctx context.Context, records ...domain.TransactionRecord) error
	// Delete removes records by id. Unknown ids are ignored.
	Delete(ctx context.Context, ids ...string) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

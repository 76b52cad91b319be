// Package storage contains storage-agnostic contracts for writing the final
// dataset. Concrete backends (CSV file, SQLite, Postgres) live in
// subpackages and register themselves with the factory in this package, so
// the pipeline runner depends only on the Repository interface.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"marketing-etl/internal/table"
)

// Repository is a destination for one processed table.
type Repository interface {
	// WriteTable persists the table and returns the number of rows written.
	WriteTable(ctx context.Context, t *table.Table) (int64, error)
	// Close releases the underlying resources.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Kind string // registered backend kind, e.g. "csv", "sqlite", "postgres"

	// File-backed sinks.
	Path string // output file path

	// Database-backed sinks.
	DSN             string // connection string
	Table           string // target table name
	AutoCreateTable bool   // create the target table from the dataset schema
}

// Factory constructs a Repository for one backend kind.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) a Factory for the given kind. It is
// typically called from backend packages' init() functions.
func Register(kind string, fn Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = fn
}

// New opens a Repository for cfg.Kind. Backends become available by importing
// their package (usually via the storage/all wiring package).
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	fn, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported kind %q (registered: %v)", cfg.Kind, ListKinds())
	}
	return fn(ctx, cfg)
}

// ListKinds returns the registered backend kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

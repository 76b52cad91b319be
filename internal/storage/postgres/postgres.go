// Package postgres wires a Postgres sink into the storage factory using pgx
// v5. Rows are loaded with the COPY protocol, which is the fastest bulk path
// pgx offers.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketing-etl/internal/storage"
	"marketing-etl/internal/table"
)

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return NewRepository(ctx, cfg)
	})
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  storage.Config
}

// NewRepository opens a connection pool for the configured DSN. The target
// table may be schema-qualified, e.g. "public.marketing_dataset".
func NewRepository(ctx context.Context, cfg storage.Config) (*Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, fmt.Errorf("postgres: table name must not be empty")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool: %w", err)
	}
	return &Repository{pool: pool, cfg: cfg}, nil
}

// WriteTable copies every row of t into the configured table, creating it
// first when AutoCreateTable is set. Column names are slugged so dataset
// headers like "Total Ad Spend" become valid identifiers.
func (r *Repository) WriteTable(ctx context.Context, t *table.Table) (int64, error) {
	if len(t.Columns) == 0 {
		return 0, fmt.Errorf("postgres: table has no columns")
	}

	idents := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		idents[i] = table.Slug(c)
	}

	if r.cfg.AutoCreateTable {
		if err := r.ensureTable(ctx, t, idents); err != nil {
			return 0, err
		}
	}

	rows := make([][]any, 0, t.Len())
	for _, rec := range t.Rows {
		row := make([]any, len(t.Columns))
		for i, c := range t.Columns {
			row[i] = rec[c]
		}
		rows = append(rows, row)
	}

	copied, err := r.pool.CopyFrom(ctx, tableIdent(r.cfg.Table), idents, pgx.CopyFromRows(rows))
	if err != nil {
		return copied, fmt.Errorf("postgres: copy: %w", err)
	}
	return copied, nil
}

// Close implements storage.Repository.
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) ensureTable(ctx context.Context, t *table.Table, idents []string) error {
	defs := make([]string, len(idents))
	for i, id := range idents {
		defs[i] = quoteIdent(id) + " " + sqlType(t, t.Columns[i])
	}
	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s)",
		fqn(r.cfg.Table),
		strings.Join(defs, ", "),
	)
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("postgres: create table: %w", err)
	}
	return nil
}

// sqlType infers a column type from the first non-nil value.
func sqlType(t *table.Table, col string) string {
	for _, rec := range t.Rows {
		switch rec[col].(type) {
		case nil:
			continue
		case float64:
			return "double precision"
		case int64:
			return "bigint"
		case bool:
			return "boolean"
		case time.Time:
			return "date"
		default:
			return "text"
		}
	}
	return "text"
}

// tableIdent splits an optionally schema-qualified name for pgx.CopyFrom.
func tableIdent(name string) pgx.Identifier {
	parts := strings.Split(name, ".")
	return pgx.Identifier(parts)
}

// fqn renders an optionally schema-qualified name with each part quoted.
func fqn(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quoteIdent(p)
	}
	return strings.Join(parts, ".")
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Package sqlite wires a SQLite sink into the storage factory using
// database/sql. Rows are inserted inside a single transaction with a prepared
// statement; SQLite has no dedicated bulk-load API, but one transaction keeps
// performance acceptable for the dataset sizes this pipeline produces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure-Go driver, no cgo

	"marketing-etl/internal/storage"
	"marketing-etl/internal/table"
)

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return NewRepository(ctx, cfg)
	})
}

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg storage.Config
}

// NewRepository opens a SQLite connection using the configured DSN.
//
// The DSN is passed directly to database/sql, for example:
//
//	"file:marketing.db?cache=shared"
//	"marketing.db"
func NewRepository(ctx context.Context, cfg storage.Config) (*Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, fmt.Errorf("sqlite: table name must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// Ping with a short timeout to fail fast on invalid DSNs.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	return &Repository{db: db, cfg: cfg}, nil
}

// WriteTable inserts every row of t into the configured table, creating it
// first when AutoCreateTable is set. Column names are slugged so dataset
// headers like "Total Ad Spend" become valid identifiers.
func (r *Repository) WriteTable(ctx context.Context, t *table.Table) (int64, error) {
	if len(t.Columns) == 0 {
		return 0, fmt.Errorf("sqlite: table has no columns")
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

	placeholders := make([]string, len(idents))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	stmtSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(r.cfg.Table),
		strings.Join(quoteAll(idents), ", "),
		strings.Join(placeholders, ", "),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	args := make([]any, len(t.Columns))
	for _, rec := range t.Rows {
		for i, c := range t.Columns {
			args[i] = driverValue(rec[c])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: insert: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return inserted, nil
}

// Close implements storage.Repository.
func (r *Repository) Close() error { return r.db.Close() }

func (r *Repository) ensureTable(ctx context.Context, t *table.Table, idents []string) error {
	defs := make([]string, len(idents))
	for i, id := range idents {
		defs[i] = quoteIdent(id) + " " + sqlType(t, t.Columns[i])
	}
	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s)",
		quoteIdent(r.cfg.Table),
		strings.Join(defs, ", "),
	)
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlite: create table: %w", err)
	}
	return nil
}

// sqlType infers a column affinity from the first non-nil value.
func sqlType(t *table.Table, col string) string {
	for _, rec := range t.Rows {
		switch rec[col].(type) {
		case nil:
			continue
		case float64:
			return "REAL"
		case int64:
			return "INTEGER"
		case bool:
			return "INTEGER"
		default:
			return "TEXT"
		}
	}
	return "TEXT"
}

// driverValue maps cell values onto types database/sql accepts. Day-grain
// dates are stored as ISO strings so the output stays queryable and portable.
func driverValue(v any) any {
	if t, ok := v.(time.Time); ok {
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format(time.RFC3339)
	}
	return v
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteAll(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = quoteIdent(id)
	}
	return out
}

// Package csvfile wires a CSV file sink into the storage factory. The whole
// table is written in one call; an output that failed partway is removed so a
// broken run never leaves a truncated dataset behind.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"marketing-etl/internal/storage"
	"marketing-etl/internal/table"
)

func init() {
	storage.Register("csv", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		if cfg.Path == "" {
			return nil, fmt.Errorf("csv: output path is required")
		}
		return &Repository{path: cfg.Path}, nil
	})
}

// Repository writes one table to a CSV file.
type Repository struct {
	path string
}

// WriteTable creates (or truncates) the output file, writes the header row
// and every data row, and flushes. Intermediate directories are created
// automatically. On error the partial file is removed.
func (r *Repository) WriteTable(ctx context.Context, t *table.Table) (int64, error) {
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("csv: create output dir: %w", err)
		}
	}

	f, err := os.Create(r.path)
	if err != nil {
		return 0, fmt.Errorf("csv: create file %q: %w", r.path, err)
	}

	written, err := r.write(ctx, f, t)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(r.path)
		return 0, err
	}
	return written, nil
}

func (r *Repository) write(ctx context.Context, f *os.File, t *table.Table) (int64, error) {
	w := csv.NewWriter(f)

	if err := w.Write(t.Columns); err != nil {
		return 0, fmt.Errorf("csv: write header: %w", err)
	}

	var written int64
	row := make([]string, len(t.Columns))
	for _, rec := range t.Rows {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		for i, c := range t.Columns {
			row[i] = formatCell(rec[c])
		}
		if err := w.Write(row); err != nil {
			return written, fmt.Errorf("csv: write row: %w", err)
		}
		written++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return written, fmt.Errorf("csv: flush: %w", err)
	}
	return written, nil
}

// Close implements storage.Repository; the file handle only lives for the
// duration of WriteTable.
func (r *Repository) Close() error { return nil }

func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		// Day-grain dates render without a time component.
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

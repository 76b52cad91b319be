// Package table provides the in-memory tabular record set exchanged between
// pipeline stages. A Table pairs an ordered column list with rows of
// records.Record; stages treat tables as immutable inputs and return new
// tables, so no aliasing concerns arise between stages.
package table

import (
	"strings"
	"unicode"

	"marketing-etl/pkg/records"
)

// Table is an ordered sequence of rows over a fixed column set. Columns
// preserves the source column order; Rows index values by column name.
type Table struct {
	Columns []string
	Rows    []records.Record
}

// New returns an empty table with the given column order.
func New(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// HasColumn reports whether name is part of the table schema.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Append adds a row. Missing columns stay absent; callers that need
// nil-vs-absent distinction should set nil explicitly.
func (t *Table) Append(r records.Record) { t.Rows = append(t.Rows, r) }

// Clone returns a deep-enough copy: fresh column slice and fresh row maps.
// Cell values are shared (they are treated as immutable by all stages).
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]records.Record, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// CleanName strips leading/trailing whitespace from a column label and removes
// non-breaking spaces anywhere in it. Real-world marketing exports carry both.
// Idempotent: CleanName(CleanName(s)) == CleanName(s).
func CleanName(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", "")
	return strings.TrimFunc(s, unicode.IsSpace)
}

// NormalizeColumns returns a new table with every column label passed through
// CleanName. Row order, row count, and cell values are untouched. When two raw
// labels clean to the same name the first occurrence wins.
func NormalizeColumns(t *Table) *Table {
	out := &Table{
		Columns: make([]string, 0, len(t.Columns)),
		Rows:    make([]records.Record, 0, len(t.Rows)),
	}
	rename := make(map[string]string, len(t.Columns))
	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		clean := CleanName(c)
		if _, dup := seen[clean]; dup {
			continue
		}
		seen[clean] = struct{}{}
		rename[c] = clean
		out.Columns = append(out.Columns, clean)
	}
	for _, r := range t.Rows {
		nr := make(records.Record, len(r))
		for k, v := range r {
			if clean, ok := rename[k]; ok {
				nr[clean] = v
			} else {
				nr[CleanName(k)] = v
			}
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}

// RenameColumns returns a new table with columns renamed per the mapping
// (old label -> new label). Labels absent from the mapping are kept as-is.
func RenameColumns(t *Table, mapping map[string]string) *Table {
	if len(mapping) == 0 {
		return t.Clone()
	}
	out := &Table{
		Columns: make([]string, len(t.Columns)),
		Rows:    make([]records.Record, 0, len(t.Rows)),
	}
	for i, c := range t.Columns {
		if to, ok := mapping[c]; ok && to != "" {
			out.Columns[i] = to
		} else {
			out.Columns[i] = c
		}
	}
	for _, r := range t.Rows {
		nr := make(records.Record, len(r))
		for k, v := range r {
			if to, ok := mapping[k]; ok && to != "" {
				nr[to] = v
			} else {
				nr[k] = v
			}
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}

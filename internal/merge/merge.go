// Package merge aligns the ads and analytics tables on the shared dimension
// key. The join is left-preserving: every ads row appears exactly once in the
// output (duplicates fan out), and analytics measures for unmatched keys are
// filled with the configured value, never left missing.
//
// The analytics side is indexed by a 64-bit xxh3 digest of the composite key;
// buckets keep the composite string so hash collisions degrade to an equality
// probe instead of a wrong match.
package merge

import (
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"marketing-etl/internal/table"
	"marketing-etl/internal/transformer/builtin"
	"marketing-etl/pkg/records"
)

// Duplicate-key policies for the analytics side.
const (
	PolicySum    = "sum"    // pre-aggregate: sum numeric columns per key
	PolicyReject = "reject" // fail with AmbiguousJoinKeyError
)

// Options configures one merge call.
type Options struct {
	// Keys are the join key column names, e.g. [Date, Country] or
	// [Date, Country, City]. Required.
	Keys []string

	// FillValue substitutes analytics measures for unmatched ads rows.
	FillValue float64

	// DuplicatePolicy is PolicySum (default when empty) or PolicyReject.
	DuplicatePolicy string

	// DateColumn names the key column holding the date dimension, enabling
	// string-to-timestamp coercion on key cells. Empty disables coercion.
	DateColumn string
}

// AmbiguousJoinKeyError reports duplicate analytics rows for one key under
// PolicyReject.
type AmbiguousJoinKeyError struct{ Key string }

func (e *AmbiguousJoinKeyError) Error() string {
	return fmt.Sprintf("ambiguous join key: duplicate analytics rows for %s", e.Key)
}

// entry is one analytics bucket slot: the composite key disambiguates hash
// collisions.
type entry struct {
	key string
	rec records.Record
}

// Merge left-joins analytics onto ads. The returned table carries the ads
// columns in order, followed by the analytics-only columns. Neither input is
// modified.
func Merge(ads, analytics *table.Table, opts Options) (*table.Table, error) {
	if len(opts.Keys) == 0 {
		return nil, fmt.Errorf("merge: at least one join key required")
	}
	for _, k := range opts.Keys {
		if !ads.HasColumn(k) {
			return nil, fmt.Errorf("merge: join key %q not in ads table", k)
		}
		if !analytics.HasColumn(k) {
			return nil, fmt.Errorf("merge: join key %q not in analytics table", k)
		}
	}
	policy := opts.DuplicatePolicy
	if policy == "" {
		policy = PolicySum
	}

	// Analytics-only columns, in analytics order.
	extra := make([]string, 0, len(analytics.Columns))
	for _, c := range analytics.Columns {
		if !ads.HasColumn(c) {
			extra = append(extra, c)
		}
	}

	index, err := buildIndex(analytics, extra, opts, policy)
	if err != nil {
		return nil, err
	}

	out := table.New(append(append([]string{}, ads.Columns...), extra...)...)
	for _, r := range ads.Rows {
		nr := r.Clone()
		matched := lookup(index, r, opts)
		for _, c := range extra {
			if matched != nil {
				if v, ok := matched[c]; ok && v != nil {
					nr[c] = v
					continue
				}
			}
			nr[c] = opts.FillValue
		}
		out.Append(nr)
	}
	return out, nil
}

// buildIndex hashes every keyed analytics row into buckets, applying the
// duplicate policy as collisions on the same composite key are found.
func buildIndex(analytics *table.Table, extra []string, opts Options, policy string) (map[uint64][]*entry, error) {
	index := make(map[uint64][]*entry, len(analytics.Rows))
	for _, r := range analytics.Rows {
		key, ok := compositeKey(r, opts)
		if !ok {
			// Unkeyable row (e.g. unparsable date): can never match an ads row.
			continue
		}
		h := xxh3.HashString(key)
		if e := probe(index[h], key); e != nil {
			switch policy {
			case PolicyReject:
				return nil, &AmbiguousJoinKeyError{Key: describeKey(r, opts.Keys)}
			default: // PolicySum
				e.rec = sumRecords(e.rec, r, extra)
			}
			continue
		}
		index[h] = append(index[h], &entry{key: key, rec: r})
	}
	return index, nil
}

func lookup(index map[uint64][]*entry, r records.Record, opts Options) records.Record {
	key, ok := compositeKey(r, opts)
	if !ok {
		return nil
	}
	if e := probe(index[xxh3.HashString(key)], key); e != nil {
		return e.rec
	}
	return nil
}

func probe(bucket []*entry, key string) *entry {
	for _, e := range bucket {
		if e.key == key {
			return e
		}
	}
	return nil
}

// compositeKey renders the row's join key cells into a comparable string.
// Date key cells are coerced to day grain (strings parsed when needed); a key
// cell that is nil, or a date that cannot be parsed, makes the row unkeyable
// so it falls back to fill values instead of failing.
func compositeKey(r records.Record, opts Options) (string, bool) {
	var b strings.Builder
	for i, k := range opts.Keys {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		v, ok := r[k]
		if !ok || v == nil {
			return "", false
		}
		if k == opts.DateColumn && opts.DateColumn != "" {
			d, ok := coerceDay(v)
			if !ok {
				return "", false
			}
			b.WriteString(d.Format("2006-01-02"))
			continue
		}
		switch t := v.(type) {
		case string:
			b.WriteString(t)
		case time.Time:
			b.WriteString(builtin.DayUTC(t).Format("2006-01-02"))
		default:
			b.WriteString(fmt.Sprint(t))
		}
	}
	return b.String(), true
}

func coerceDay(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return builtin.DayUTC(t), true
	case string:
		for _, layout := range builtin.DateLayouts {
			if d, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return builtin.DayUTC(d), true
			}
		}
	}
	return time.Time{}, false
}

// sumRecords folds b's measure columns into a copy of a. Only the analytics-
// only (non-key) columns participate; non-numeric values keep the first
// occurrence.
func sumRecords(a, b records.Record, extra []string) records.Record {
	out := a.Clone()
	for _, c := range extra {
		bv, bok := b.Float(c)
		if !bok {
			continue
		}
		if av, aok := out.Float(c); aok {
			out[c] = av + bv
		} else {
			out[c] = bv
		}
	}
	return out
}

// describeKey renders a human-readable key for error messages.
func describeKey(r records.Record, keys []string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := r[k]
		if t, ok := v.(time.Time); ok {
			v = t.Format("2006-01-02")
		}
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, ", ")
}

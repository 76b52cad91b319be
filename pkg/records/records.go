// Package records defines the row value type shared by every pipeline stage.
// It is intentionally dependency-free so that parsers, transforms, and storage
// backends can all import it without cycles.
package records

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Record is a single row: column name -> value. Values are one of
// string, int64, float64, time.Time, bool, or nil (missing).
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Float reads the value for key as a float64. Missing keys, nil values,
// unparseable strings, and non-finite values (NaN, infinities) report
// ok=false. Numeric strings are parsed so callers can consume tables that
// skipped the coerce stage.
func (r Record) Float(key string) (float64, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return finite(t)
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return finite(f)
	}
	return 0, false
}

// finite treats NaN and the infinities as missing. strconv.ParseFloat accepts
// the literals "NaN" and "Inf", and spreadsheet exports do contain them; they
// must not leak into arithmetic downstream.
func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Time reads the value for key as a time.Time; ok=false when absent or not a
// time value.
func (r Record) Time(key string) (time.Time, bool) {
	if v, ok := r[key]; ok {
		if t, ok := v.(time.Time); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// String reads the value for key as its string form; nil and missing values
// report ok=false.
func (r Record) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return "", false
}

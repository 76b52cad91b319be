package builtin

import (
	"math"
	"strconv"
	"strings"
	"time"

	"marketing-etl/internal/table"
	"marketing-etl/pkg/records"
)

// DateLayouts are tried in order when coercing a date column. The marketing
// exports mix ISO dates, datetimes, and US-style dates.
var DateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"02.01.2006",
}

// Coerce converts string cells of the configured columns into typed values.
//
// Types maps column name -> "date" or "float". Date values are truncated to
// day grain (UTC) so join keys compare equal across sources; cells that fail
// to parse as a date become nil (the row is kept). Float cells that fail to
// parse are left untouched so the missing-value policy downstream applies;
// cells that parse as NaN or an infinity become nil (missing).
type Coerce struct {
	Types map[string]string
}

func (c Coerce) Apply(in *table.Table) *table.Table {
	if len(c.Types) == 0 {
		return in
	}
	out := &table.Table{
		Columns: append([]string(nil), in.Columns...),
		Rows:    make([]records.Record, 0, len(in.Rows)),
	}
	for _, r := range in.Rows {
		nr := r.Clone()
		for field, typ := range c.Types {
			v, ok := nr[field]
			if !ok || v == nil {
				continue
			}
			switch typ {
			case "date":
				nr[field] = coerceDate(v)
			case "float":
				if s, isStr := v.(string); isStr {
					if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
						if math.IsNaN(f) || math.IsInf(f, 0) {
							nr[field] = nil
						} else {
							nr[field] = f
						}
					}
				}
			}
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}

// coerceDate parses v into a day-grain UTC time. Already-typed times are
// truncated; strings are tried against DateLayouts, then as a GA4
// microseconds-since-epoch integer. Unparsable values become nil.
func coerceDate(v any) any {
	switch t := v.(type) {
	case time.Time:
		return DayUTC(t)
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range DateLayouts {
			if d, err := time.Parse(layout, s); err == nil {
				return DayUTC(d)
			}
		}
		// GA4 event_timestamp: microseconds since the unix epoch.
		if us, err := strconv.ParseInt(s, 10, 64); err == nil && us > 1e14 {
			return DayUTC(time.UnixMicro(us))
		}
	}
	return nil
}

// DayUTC truncates t to midnight UTC, the single granularity used for all
// date join keys.
func DayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

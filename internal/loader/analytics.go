package loader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marketing-etl/internal/config"
	"marketing-etl/internal/table"
	"marketing-etl/pkg/records"
)

// Analytics loads the GA4-style web-analytics export and emits it in the
// shared vocabulary at (Date, Country[, City]) grain.
type Analytics struct {
	cols config.Columns
	src  config.SourceFile
}

// NewAnalytics returns an analytics loader bound to the column vocabulary and
// source location from the pipeline config.
func NewAnalytics(cols config.Columns, src config.SourceFile) *Analytics {
	return &Analytics{cols: cols, src: src}
}

// Load reads the source, cleans columns, renames the source-specific labels
// into the shared vocabulary, and coerces the date to day grain. The second
// return value is the number of malformed rows the parser skipped.
//
// If the renamed table already carries a Sessions column it is treated as
// pre-aggregated and passed through. Otherwise rows are event-level and are
// aggregated per dimension key: Sessions counts distinct user ids,
// Transactions counts purchase events, Revenue sums the event value.
func (l *Analytics) Load(ctx context.Context) (*table.Table, int, error) {
	tbl, skipped, err := openAndParse(ctx, l.src)
	if err != nil {
		return nil, 0, err
	}

	tbl = table.NormalizeColumns(tbl)
	tbl = table.RenameColumns(tbl, l.renames())

	types := map[string]string{}
	if tbl.HasColumn(l.cols.Date) {
		types[l.cols.Date] = "date"
	}
	for _, c := range []string{ColRevenue, ColSessions, ColTransactions} {
		if tbl.HasColumn(c) {
			types[c] = "float"
		}
	}
	tbl = clean(types).Apply(tbl)

	if tbl.HasColumn(ColSessions) {
		// Already per-dimension metrics; nothing to aggregate.
		return tbl, skipped, nil
	}
	return l.aggregate(tbl), skipped, nil
}

// renames maps the configured ga4 source labels onto the shared vocabulary.
func (l *Analytics) renames() map[string]string {
	shared := map[string]string{
		"timestamp":  l.cols.Date,
		"country":    l.cols.Country,
		"city":       l.cols.City,
		"revenue":    ColRevenue,
		"event_name": ColEventName,
		"user_id":    ColUserID,
	}
	out := make(map[string]string, len(l.cols.GA4))
	for semantic, label := range l.cols.GA4 {
		if to, ok := shared[semantic]; ok {
			out[table.CleanName(label)] = to
		}
	}
	return out
}

// aggregate reduces event-level rows to (Date, Country[, City]) grain.
// Group order follows first appearance so output is deterministic.
func (l *Analytics) aggregate(in *table.Table) *table.Table {
	dims := []string{l.cols.Date, l.cols.Country}
	if in.HasColumn(l.cols.City) {
		dims = append(dims, l.cols.City)
	}

	type group struct {
		dims         records.Record
		users        map[string]struct{}
		transactions float64
		revenue      float64
	}

	var order []string
	groups := map[string]*group{}

	for _, r := range in.Rows {
		var sb strings.Builder
		gdims := make(records.Record, len(dims))
		for _, d := range dims {
			v := r[d]
			gdims[d] = v
			switch t := v.(type) {
			case time.Time:
				sb.WriteString(t.Format("2006-01-02"))
			case string:
				sb.WriteString(t)
			case nil:
				sb.WriteByte(0x00)
			default:
				sb.WriteString(fmt.Sprint(v))
			}
			sb.WriteByte(0x1f)
		}
		key := sb.String()

		g, ok := groups[key]
		if !ok {
			g = &group{dims: gdims, users: map[string]struct{}{}}
			groups[key] = g
			order = append(order, key)
		}
		if uid, ok := r.String(ColUserID); ok && uid != "" {
			g.users[uid] = struct{}{}
		}
		if ev, ok := r.String(ColEventName); ok && strings.EqualFold(strings.TrimSpace(ev), "purchase") {
			g.transactions++
		}
		if rev, ok := r.Float(ColRevenue); ok {
			g.revenue += rev
		}
	}

	out := table.New(append(append([]string{}, dims...), ColSessions, ColTransactions, ColRevenue)...)
	for _, key := range order {
		g := groups[key]
		rec := g.dims.Clone()
		rec[ColSessions] = float64(len(g.users))
		rec[ColTransactions] = g.transactions
		rec[ColRevenue] = g.revenue
		out.Append(rec)
	}
	return out
}

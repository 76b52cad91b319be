// Package builtin contains the reusable transformers applied by the loaders.
package builtin

import (
	"strings"

	"marketing-etl/internal/table"
	"marketing-etl/pkg/records"
)

// Normalize scrubs string cell values: non-breaking spaces become ordinary
// spaces and leading/trailing whitespace is trimmed. Column labels are not
// touched here; that is table.NormalizeColumns' job.
type Normalize struct{}

func (Normalize) Apply(in *table.Table) *table.Table {
	out := &table.Table{
		Columns: append([]string(nil), in.Columns...),
		Rows:    make([]records.Record, 0, len(in.Rows)),
	}
	for _, r := range in.Rows {
		nr := make(records.Record, len(r))
		for k, v := range r {
			if s, ok := v.(string); ok {
				nr[k] = strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
			} else {
				nr[k] = v
			}
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}

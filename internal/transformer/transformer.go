// Package transformer defines the per-stage table transformation contract.
// Each stage is a pure function over a Table; chains run them in order.
package transformer

import "marketing-etl/internal/table"

type Transformer interface {
	Apply(*table.Table) *table.Table
}

// Chain is an ordered list of transformers.
type Chain []Transformer

func (c Chain) Apply(in *table.Table) *table.Table {
	out := in
	for _, t := range c {
		out = t.Apply(out)
	}
	return out
}

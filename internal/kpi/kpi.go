// Package kpi derives the marketing performance columns from a merged table.
package kpi

import (
	"marketing-etl/internal/table"
	"marketing-etl/pkg/records"
)

// Derived column names.
const (
	ColROAS     = "ROAS"
	ColCPA      = "CPA"
	ColCTR      = "CTR"
	ColCPC      = "CPC"
	ColConvRate = "ConvRate"
	ColProfit   = "Profit"

	ColValidROAS     = "Valid_ROAS"
	ColValidCPA      = "Valid_CPA"
	ColValidCTR      = "Valid_CTR"
	ColValidCPC      = "Valid_CPC"
	ColValidConvRate = "Valid_ConvRate"
)

// Columns names the input measures. Zero-value fields fall back to the
// shared vocabulary defaults.
type Columns struct {
	Spend        string
	Sales        string
	Orders       string
	Clicks       string
	Impressions  string
	Transactions string
}

func (c *Columns) applyDefaults() {
	if c.Spend == "" {
		c.Spend = "Total Ad Spend"
	}
	if c.Sales == "" {
		c.Sales = "Total Sales"
	}
	if c.Orders == "" {
		c.Orders = "Order Count"
	}
	if c.Clicks == "" {
		c.Clicks = "Clicks"
	}
	if c.Impressions == "" {
		c.Impressions = "Impressions"
	}
	if c.Transactions == "" {
		c.Transactions = "Transactions"
	}
}

// Engine computes the derived columns. Safe for concurrent use.
type Engine struct {
	cols Columns
}

func NewEngine(cols Columns) *Engine {
	cols.applyDefaults()
	return &Engine{cols: cols}
}

// Calculate returns a new table with the six derived columns and the validity
// flags appended. Missing or non-numeric input values are treated as 0 before
// computing; a ratio with a zero or absent denominator yields 0 with its flag
// set false. The input table is not modified.
func (e *Engine) Calculate(t *table.Table) *table.Table {
	hasClicks := t.HasColumn(e.cols.Clicks)
	hasImpressions := t.HasColumn(e.cols.Impressions)
	hasTransactions := t.HasColumn(e.cols.Transactions)

	cols := append([]string{}, t.Columns...)
	cols = append(cols,
		ColROAS, ColCPA, ColCTR, ColCPC, ColConvRate, ColProfit,
		ColValidROAS, ColValidCPA, ColValidCTR, ColValidCPC, ColValidConvRate,
	)
	out := table.New(cols...)

	for _, r := range t.Rows {
		spend := fillZero(r, e.cols.Spend)
		sales := fillZero(r, e.cols.Sales)
		orders := fillZero(r, e.cols.Orders)
		clicks := fillZero(r, e.cols.Clicks)
		impressions := fillZero(r, e.cols.Impressions)
		transactions := fillZero(r, e.cols.Transactions)

		nr := r.Clone()
		nr[ColROAS], nr[ColValidROAS] = safeDiv(sales, spend)
		nr[ColCPA], nr[ColValidCPA] = safeDiv(spend, orders)

		if hasClicks && hasImpressions {
			nr[ColCTR], nr[ColValidCTR] = safeDiv(clicks, impressions)
		} else {
			nr[ColCTR], nr[ColValidCTR] = 0.0, false
		}
		if hasClicks {
			nr[ColCPC], nr[ColValidCPC] = safeDiv(spend, clicks)
		} else {
			nr[ColCPC], nr[ColValidCPC] = 0.0, false
		}
		if hasClicks && hasTransactions {
			nr[ColConvRate], nr[ColValidConvRate] = safeDiv(transactions, clicks)
		} else {
			nr[ColConvRate], nr[ColValidConvRate] = 0.0, false
		}

		nr[ColProfit] = sales - spend
		out.Append(nr)
	}
	return out
}

// fillZero reads a measure, substituting 0 for missing, nil or non-numeric
// cells.
func fillZero(r records.Record, col string) float64 {
	v, ok := r.Float(col)
	if !ok {
		return 0
	}
	return v
}

// safeDiv divides, reporting false and yielding 0 on a zero denominator.
func safeDiv(num, den float64) (float64, bool) {
	if den == 0 {
		return 0, false
	}
	return num / den, true
}

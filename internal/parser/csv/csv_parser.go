// Package csv implements a streaming CSV parser for the marketing sources. It
// reads rows straight off the reader without whole-file buffering, tolerates
// malformed rows (soft-fail with a skip count), and preserves the source
// column order so downstream stages can keep a stable schema.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strings"

	"marketing-etl/internal/table"
	"marketing-etl/pkg/records"
)

// Options configures the CSV parser behavior. All fields are optional; sensible
// defaults are applied when a field is zero.
type Options struct {
	// HasHeader indicates whether the first row contains column headers.
	HasHeader bool

	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing ASCII spaces from each field value.
	TrimSpace bool

	// ExpectedFields, when > 0, enforces a fixed field count per record. Rows
	// with a different width are skipped (soft-fail) and counted.
	ExpectedFields int

	// HeaderMap maps source header names to canonical keys. Only applies when
	// HasHeader is true. Headers absent from the map are kept verbatim; column
	// label cleaning is the loaders' concern, not the parser's.
	HeaderMap map[string]string
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs, but Parser itself is not concurrency-safe.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\ufeff"

// skipLogLimit caps how many skipped rows are logged individually.
const skipLogLimit = 400

// Parse consumes CSV records from r and returns the parsed table along with
// the number of rows that were skipped due to parse errors or field-count
// mismatches. Empty cells become nil so missing-value policies downstream can
// key off nil rather than "".
func (p *Parser) Parse(r io.Reader) (*table.Table, int, error) {
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.FieldsPerRecord = -1 // width enforced after read so bad rows soft-fail

	var headers []string
	var skipped int

	if p.opt.HasHeader {
		h, err := cr.Read()
		if err != nil {
			return nil, 0, fmt.Errorf("read csv header: %w", err)
		}
		headers = mapHeaders(h, p.opt)
	} else if p.opt.ExpectedFields > 0 {
		headers = make([]string, p.opt.ExpectedFields)
		for i := range headers {
			headers[i] = fmt.Sprintf("col_%d", i)
		}
	}

	out := table.New(headers...)

	// Read body rows.
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if skipped < skipLogLimit {
				// Soft-fail this row and continue.
				log.Printf("Skipping row %d: %v", line, err)
			}
			skipped++
			continue
		}

		// Enforce expected width when known.
		if len(headers) > 0 && len(row) != len(headers) {
			if skipped < skipLogLimit {
				log.Printf("Skipping row %d: incorrect number of fields (expected %d, got %d)", line, len(headers), len(row))
			}
			skipped++
			continue
		}
		if len(headers) == 0 {
			// Headerless input without ExpectedFields: first row fixes the width.
			headers = make([]string, len(row))
			for i := range headers {
				headers[i] = fmt.Sprintf("col_%d", i)
			}
			out.Columns = headers
		}

		rec := make(records.Record, len(row))
		for i, val := range row {
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			rec[keyFor(i, headers)] = emptyToNil(val)
		}
		out.Append(rec)
	}

	return out, skipped, nil
}

// keyFor returns the column key for index idx, using headers when available,
// otherwise synthesizing a "col_N" name.
func keyFor(idx int, headers []string) string {
	if idx < len(headers) && headers[idx] != "" {
		return headers[idx]
	}
	return fmt.Sprintf("col_%d", idx)
}

// emptyToNil converts an empty string to nil; all other values are returned as-is.
func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// mapHeaders applies HeaderMap (when provided) and strips a UTF-8 BOM from the
// first cell if present. Unlike schema-inference tooling, it does not rewrite
// header casing; the raw labels flow through to column normalization.
func mapHeaders(h []string, opt Options) []string {
	res := make([]string, len(h))
	for i, col := range h {
		if i == 0 {
			col = strings.TrimPrefix(col, utf8BOM)
		}
		if opt.HeaderMap != nil {
			if m, ok := opt.HeaderMap[strings.TrimSpace(col)]; ok && m != "" {
				res[i] = m
				continue
			}
		}
		res[i] = col
	}
	return res
}

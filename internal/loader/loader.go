// Package loader reads the two marketing sources into normalized tables.
// Loaders own the boundary concerns: locating the file, parsing CSV, cleaning
// column labels, renaming source vocabularies, and coercing the date dimension
// to the shared day grain. Everything downstream (merge, kpi) consumes the
// tables they emit and never touches the filesystem.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"marketing-etl/internal/config"
	"marketing-etl/internal/datasource"
	"marketing-etl/internal/datasource/file"
	"marketing-etl/internal/datasource/httpds"
	pcsv "marketing-etl/internal/parser/csv"
	"marketing-etl/internal/table"
	"marketing-etl/internal/transformer"
	"marketing-etl/internal/transformer/builtin"
)

// ErrDataSourceNotFound marks a missing input file. Callers test it with
// errors.Is; the wrapped message carries the resolved path.
var ErrDataSourceNotFound = errors.New("data source not found")

// Shared vocabulary for analytics measures after renaming/aggregation.
const (
	ColSessions     = "Sessions"
	ColTransactions = "Transactions"
	ColRevenue      = "Revenue"
	ColEventName    = "EventName"
	ColUserID       = "UserID"
)

// newSource picks the input backing: a URL downloads over HTTP with
// retry/backoff, otherwise the source is a local file.
func newSource(sf config.SourceFile) datasource.Source {
	if sf.URL != "" {
		return httpds.NewSource(httpds.NewClient(httpds.Config{}), sf.URL)
	}
	return file.NewLocal(sf.Dir, sf.Filename)
}

// openAndParse opens the source and parses it as CSV with the source's
// parser options, returning the table and the number of rows the parser
// skipped. Missing inputs (local or remote) are reported as
// ErrDataSourceNotFound.
func openAndParse(ctx context.Context, sf config.SourceFile) (*table.Table, int, error) {
	src := newSource(sf)
	rc, err := src.Open(ctx)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", ErrDataSourceNotFound, src.Path())
		}
		return nil, 0, err
	}
	defer rc.Close()

	return parse(rc, sf.Options)
}

func parse(r io.Reader, opts config.Options) (*table.Table, int, error) {
	p := pcsv.NewParser(pcsv.Options{
		HasHeader: true,
		Comma:     opts.Rune("comma", ','),
		TrimSpace: opts.Bool("trim_space", true),
		HeaderMap: opts.StringMap("header_map"),
	})
	return p.Parse(r)
}

// clean is the transform chain shared by both loaders: scrub cell whitespace
// and apply the given column coercions.
func clean(types map[string]string) transformer.Chain {
	return transformer.Chain{
		builtin.Normalize{},
		builtin.Coerce{Types: types},
	}
}

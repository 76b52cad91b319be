package loader

import (
	"context"
	"log"

	"marketing-etl/internal/config"
	"marketing-etl/internal/table"
)

// Ads loads the paid-ads spend/performance export.
type Ads struct {
	cols config.Columns
	src  config.SourceFile
}

// NewAds returns an ads loader bound to the column vocabulary and source
// location from the pipeline config.
func NewAds(cols config.Columns, src config.SourceFile) *Ads {
	return &Ads{cols: cols, src: src}
}

// Load reads the source into a table: columns cleaned, the configured date
// column coerced to day grain, and the ads measure columns coerced to float.
// The second return value is the number of malformed rows the parser skipped.
//
// A missing date column is tolerated (date-keyed joins degrade to non-matching
// for those rows); unparsable dates become nil without dropping the row. The
// source file is never modified.
func (l *Ads) Load(ctx context.Context) (*table.Table, int, error) {
	tbl, skipped, err := openAndParse(ctx, l.src)
	if err != nil {
		return nil, 0, err
	}

	tbl = table.NormalizeColumns(tbl)

	types := map[string]string{}
	if tbl.HasColumn(l.cols.Date) {
		types[l.cols.Date] = "date"
	} else {
		log.Printf("ads: date column %q absent; continuing without date coercion", l.cols.Date)
	}
	for _, label := range l.cols.Ads {
		if tbl.HasColumn(label) {
			types[label] = "float"
		}
	}

	return clean(types).Apply(tbl), skipped, nil
}

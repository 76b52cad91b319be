package csv_test

import (
	"strings"
	"testing"

	pcsv "marketing-etl/internal/parser/csv"
)

func TestParseHeaderAndOrder(t *testing.T) {
	in := "Date,Country,Total Ad Spend\n2024-01-01,US,100\n2024-01-02,UK,200\n"
	p := pcsv.NewParser(pcsv.Options{HasHeader: true, TrimSpace: true})

	tbl, skipped, err := p.Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if skipped != 0 {
		t.Fatalf("skipped=%d, want 0", skipped)
	}
	want := []string{"Date", "Country", "Total Ad Spend"}
	for i, c := range want {
		if tbl.Columns[i] != c {
			t.Fatalf("column[%d]=%q want %q", i, tbl.Columns[i], c)
		}
	}
	if tbl.Len() != 2 {
		t.Fatalf("rows=%d want 2", tbl.Len())
	}
	if v := tbl.Rows[1]["Total Ad Spend"]; v != "200" {
		t.Fatalf("spend=%v want 200", v)
	}
}

func TestParseHeaderMapAndBOM(t *testing.T) {
	in := "\ufeffevent_timestamp,geo.country,value\n1704067200000000,US,5.5\n"
	p := pcsv.NewParser(pcsv.Options{
		HasHeader: true,
		TrimSpace: true,
		HeaderMap: map[string]string{
			"event_timestamp": "Date",
			"geo.country":     "Country",
		},
	})

	tbl, _, err := p.Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tbl.Columns[0] != "Date" || tbl.Columns[1] != "Country" || tbl.Columns[2] != "value" {
		t.Fatalf("columns=%v", tbl.Columns)
	}
	if s, _ := tbl.Rows[0].String("Country"); s != "US" {
		t.Fatalf("country=%q", s)
	}
}

func TestParseSkipsBadWidthRows(t *testing.T) {
	in := "a,b\n1,2\nonly-one-field\n3,4\n"
	p := pcsv.NewParser(pcsv.Options{HasHeader: true})

	tbl, skipped, err := p.Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if skipped != 1 {
		t.Fatalf("skipped=%d want 1", skipped)
	}
	if tbl.Len() != 2 {
		t.Fatalf("rows=%d want 2", tbl.Len())
	}
}

func TestParseEmptyCellsBecomeNil(t *testing.T) {
	in := "a,b\n1,\n"
	p := pcsv.NewParser(pcsv.Options{HasHeader: true, TrimSpace: true})

	tbl, _, err := p.Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v := tbl.Rows[0]["b"]; v != nil {
		t.Fatalf("b=%v want nil", v)
	}
}

package merge_test

import (
	"errors"
	"testing"
	"time"

	"marketing-etl/internal/merge"
	"marketing-etl/internal/table"
	"marketing-etl/pkg/records"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d.UTC()
}

func adsTable(rows ...records.Record) *table.Table {
	t := table.New("Date", "Country", "Total Ad Spend", "Total Sales")
	for _, r := range rows {
		t.Append(r)
	}
	return t
}

func analyticsTable(rows ...records.Record) *table.Table {
	t := table.New("Date", "Country", "Sessions", "Transactions", "Revenue")
	for _, r := range rows {
		t.Append(r)
	}
	return t
}

func defaultOpts() merge.Options {
	return merge.Options{Keys: []string{"Date", "Country"}, DateColumn: "Date"}
}

func TestMergeMatchedAndUnmatched(t *testing.T) {
	ads := adsTable(
		records.Record{"Date": day("2024-01-01"), "Country": "US", "Total Ad Spend": 100.0, "Total Sales": 400.0},
		records.Record{"Date": day("2024-01-01"), "Country": "DE", "Total Ad Spend": 50.0, "Total Sales": 90.0},
	)
	an := analyticsTable(
		records.Record{"Date": day("2024-01-01"), "Country": "US", "Sessions": int64(120), "Transactions": int64(8), "Revenue": 410.5},
	)

	got, err := merge.Merge(ads, an, defaultOpts())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("rows = %d, want 2", got.Len())
	}
	wantCols := []string{"Date", "Country", "Total Ad Spend", "Total Sales", "Sessions", "Transactions", "Revenue"}
	if len(got.Columns) != len(wantCols) {
		t.Fatalf("columns = %v, want %v", got.Columns, wantCols)
	}
	for i, c := range wantCols {
		if got.Columns[i] != c {
			t.Fatalf("columns[%d] = %q, want %q", i, got.Columns[i], c)
		}
	}
	if got.Rows[0]["Sessions"] != int64(120) || got.Rows[0]["Revenue"] != 410.5 {
		t.Fatalf("matched row = %v", got.Rows[0])
	}
	// Unmatched: filled, never nil.
	for _, c := range []string{"Sessions", "Transactions", "Revenue"} {
		if got.Rows[1][c] != 0.0 {
			t.Fatalf("unmatched %s = %v, want 0", c, got.Rows[1][c])
		}
	}
}

func TestMergeCustomFillValue(t *testing.T) {
	ads := adsTable(records.Record{"Date": day("2024-01-01"), "Country": "FR", "Total Ad Spend": 5.0, "Total Sales": 1.0})
	got, err := merge.Merge(ads, analyticsTable(), merge.Options{
		Keys: []string{"Date", "Country"}, DateColumn: "Date", FillValue: -1,
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got.Rows[0]["Revenue"] != -1.0 {
		t.Fatalf("Revenue = %v, want -1", got.Rows[0]["Revenue"])
	}
}

func TestMergeAdsDuplicatesFanOut(t *testing.T) {
	ads := adsTable(
		records.Record{"Date": day("2024-01-01"), "Country": "US", "Total Ad Spend": 10.0, "Total Sales": 20.0},
		records.Record{"Date": day("2024-01-01"), "Country": "US", "Total Ad Spend": 30.0, "Total Sales": 40.0},
	)
	an := analyticsTable(
		records.Record{"Date": day("2024-01-01"), "Country": "US", "Sessions": int64(7), "Transactions": int64(1), "Revenue": 99.0},
	)
	got, err := merge.Merge(ads, an, defaultOpts())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("rows = %d, want 2", got.Len())
	}
	for i := range got.Rows {
		if got.Rows[i]["Revenue"] != 99.0 {
			t.Fatalf("row %d Revenue = %v, want 99", i, got.Rows[i]["Revenue"])
		}
	}
	if got.Rows[0]["Total Ad Spend"] != 10.0 || got.Rows[1]["Total Ad Spend"] != 30.0 {
		t.Fatalf("ads measures not preserved per row: %v", got.Rows)
	}
}

func TestMergeAnalyticsDuplicatesSum(t *testing.T) {
	ads := adsTable(records.Record{"Date": day("2024-01-01"), "Country": "US", "Total Ad Spend": 10.0, "Total Sales": 20.0})
	an := analyticsTable(
		records.Record{"Date": day("2024-01-01"), "Country": "US", "Sessions": int64(3), "Transactions": int64(1), "Revenue": 10.0},
		records.Record{"Date": day("2024-01-01"), "Country": "US", "Sessions": int64(4), "Transactions": int64(2), "Revenue": 2.5},
	)
	got, err := merge.Merge(ads, an, defaultOpts())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got.Len() != 1 {
		t.Fatalf("rows = %d, want 1", got.Len())
	}
	r := got.Rows[0]
	if r["Sessions"] != 7.0 || r["Transactions"] != 3.0 || r["Revenue"] != 12.5 {
		t.Fatalf("summed row = %v", r)
	}
}

func TestMergeAnalyticsDuplicatesReject(t *testing.T) {
	ads := adsTable(records.Record{"Date": day("2024-01-01"), "Country": "US", "Total Ad Spend": 1.0, "Total Sales": 1.0})
	an := analyticsTable(
		records.Record{"Date": day("2024-01-01"), "Country": "US", "Sessions": int64(1), "Transactions": int64(0), "Revenue": 1.0},
		records.Record{"Date": day("2024-01-01"), "Country": "US", "Sessions": int64(2), "Transactions": int64(0), "Revenue": 2.0},
	)
	opts := defaultOpts()
	opts.DuplicatePolicy = merge.PolicyReject
	_, err := merge.Merge(ads, an, opts)
	var ambiguous *merge.AmbiguousJoinKeyError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("err = %v, want AmbiguousJoinKeyError", err)
	}
	if ambiguous.Key == "" {
		t.Fatalf("error carries no key: %v", err)
	}
}

func TestMergeCoercesStringDates(t *testing.T) {
	// Ads carries parsed timestamps, analytics raw strings: they still match.
	ads := adsTable(records.Record{"Date": day("2024-03-05"), "Country": "US", "Total Ad Spend": 1.0, "Total Sales": 2.0})
	an := analyticsTable(records.Record{"Date": "2024-03-05", "Country": "US", "Sessions": int64(5), "Transactions": int64(1), "Revenue": 3.0})
	got, err := merge.Merge(ads, an, defaultOpts())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got.Rows[0]["Sessions"] != int64(5) {
		t.Fatalf("Sessions = %v, want 5", got.Rows[0]["Sessions"])
	}
}

func TestMergeUnparsableDateFallsBackToFill(t *testing.T) {
	ads := adsTable(records.Record{"Date": "not-a-date", "Country": "US", "Total Ad Spend": 1.0, "Total Sales": 2.0})
	an := analyticsTable(records.Record{"Date": day("2024-01-01"), "Country": "US", "Sessions": int64(5), "Transactions": int64(1), "Revenue": 3.0})
	got, err := merge.Merge(ads, an, defaultOpts())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got.Len() != 1 {
		t.Fatalf("rows = %d, want 1", got.Len())
	}
	if got.Rows[0]["Revenue"] != 0.0 {
		t.Fatalf("Revenue = %v, want fill 0", got.Rows[0]["Revenue"])
	}
}

func TestMergeCityGrain(t *testing.T) {
	mk := func(city string, spend float64) records.Record {
		return records.Record{"Date": day("2024-01-01"), "Country": "US", "City": city, "Total Ad Spend": spend, "Total Sales": 0.0}
	}
	ads := table.New("Date", "Country", "City", "Total Ad Spend", "Total Sales")
	ads.Append(mk("Austin", 10))
	ads.Append(mk("Boston", 20))
	an := table.New("Date", "Country", "City", "Revenue")
	an.Append(records.Record{"Date": day("2024-01-01"), "Country": "US", "City": "Austin", "Revenue": 5.0})

	got, err := merge.Merge(ads, an, merge.Options{Keys: []string{"Date", "Country", "City"}, DateColumn: "Date"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got.Rows[0]["Revenue"] != 5.0 {
		t.Fatalf("Austin Revenue = %v, want 5", got.Rows[0]["Revenue"])
	}
	if got.Rows[1]["Revenue"] != 0.0 {
		t.Fatalf("Boston Revenue = %v, want 0", got.Rows[1]["Revenue"])
	}
}

func TestMergeMissingKeyColumn(t *testing.T) {
	ads := adsTable()
	an := table.New("Sessions")
	if _, err := merge.Merge(ads, an, defaultOpts()); err == nil {
		t.Fatal("expected error for key absent from analytics table")
	}
}

func TestMergeEmptyAds(t *testing.T) {
	got, err := merge.Merge(adsTable(), analyticsTable(), defaultOpts())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got.Len() != 0 {
		t.Fatalf("rows = %d, want 0", got.Len())
	}
	if len(got.Columns) != 7 {
		t.Fatalf("columns = %v", got.Columns)
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	ads := adsTable(records.Record{"Date": day("2024-01-01"), "Country": "US", "Total Ad Spend": 1.0, "Total Sales": 2.0})
	an := analyticsTable()
	if _, err := merge.Merge(ads, an, defaultOpts()); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if _, ok := ads.Rows[0]["Revenue"]; ok {
		t.Fatal("ads row gained a Revenue column")
	}
	if len(ads.Columns) != 4 {
		t.Fatalf("ads columns mutated: %v", ads.Columns)
	}
}

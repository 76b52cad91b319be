package loader_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketing-etl/internal/loader"
)

func TestAnalyticsLoad_FileNotFound(t *testing.T) {
	l := loader.NewAnalytics(adsCols(), src(t.TempDir(), "ga4.csv"))
	_, _, err := l.Load(context.Background())
	if !errors.Is(err, loader.ErrDataSourceNotFound) {
		t.Fatalf("err=%v, want ErrDataSourceNotFound", err)
	}
}

func TestAnalyticsLoad_RenamesAndPassesThroughAggregated(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "ga4.csv",
		"event_timestamp,geo.country,Sessions,Transactions,Revenue\n"+
			"2024-01-01,US,1000,50,5000\n")

	l := loader.NewAnalytics(adsCols(), src(dir, "ga4.csv"))
	tbl, _, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tbl.Len() != 1 {
		t.Fatalf("rows=%d", tbl.Len())
	}
	if !tbl.HasColumn("Date") || !tbl.HasColumn("Country") {
		t.Fatalf("columns=%v", tbl.Columns)
	}
	d, ok := tbl.Rows[0].Time("Date")
	if !ok || !d.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date=%v", d)
	}
	if v, _ := tbl.Rows[0].Float("Sessions"); v != 1000 {
		t.Fatalf("sessions=%v", v)
	}
}

func TestAnalyticsLoad_AggregatesEventLevelRows(t *testing.T) {
	dir := t.TempDir()
	// Two users on the same day/country, one purchase; second key for another day.
	writeCSV(t, dir, "ga4.csv",
		"event_timestamp,event_name,user_pseudo_id,geo.country,event_params.value.double_value\n"+
			"2024-01-01,page_view,u1,US,\n"+
			"2024-01-01,purchase,u1,US,49.99\n"+
			"2024-01-01,page_view,u2,US,\n"+
			"2024-01-02,purchase,u3,UK,10\n")

	l := loader.NewAnalytics(adsCols(), src(dir, "ga4.csv"))
	tbl, _, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("rows=%d, want 2", tbl.Len())
	}
	us := tbl.Rows[0]
	if c, _ := us.String("Country"); c != "US" {
		t.Fatalf("first group country=%q", c)
	}
	if v, _ := us.Float("Sessions"); v != 2 {
		t.Fatalf("sessions=%v, want 2 distinct users", v)
	}
	if v, _ := us.Float("Transactions"); v != 1 {
		t.Fatalf("transactions=%v, want 1", v)
	}
	if v, _ := us.Float("Revenue"); v != 49.99 {
		t.Fatalf("revenue=%v", v)
	}
	uk := tbl.Rows[1]
	if v, _ := uk.Float("Revenue"); v != 10 {
		t.Fatalf("uk revenue=%v", v)
	}
}

func TestAnalyticsLoad_MicrosecondTimestamps(t *testing.T) {
	dir := t.TempDir()
	// 2024-01-01T10:00:00Z and 2024-01-01T22:00:00Z collapse to the same day.
	writeCSV(t, dir, "ga4.csv",
		"event_timestamp,event_name,user_pseudo_id,geo.country,event_params.value.double_value\n"+
			"1704103200000000,purchase,u1,US,5\n"+
			"1704146400000000,purchase,u2,US,7\n")

	l := loader.NewAnalytics(adsCols(), src(dir, "ga4.csv"))
	tbl, _, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tbl.Len() != 1 {
		t.Fatalf("rows=%d, want 1 day-grain group", tbl.Len())
	}
	if v, _ := tbl.Rows[0].Float("Revenue"); v != 12 {
		t.Fatalf("revenue=%v, want 12", v)
	}
}

func TestAnalyticsLoad_CityGrain(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "ga4.csv",
		"event_timestamp,event_name,user_pseudo_id,geo.country,geo.city,event_params.value.double_value\n"+
			"2024-01-01,purchase,u1,US,New York,5\n"+
			"2024-01-01,purchase,u2,US,Boston,7\n")

	l := loader.NewAnalytics(adsCols(), src(dir, "ga4.csv"))
	tbl, _, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("rows=%d, want city-grain groups", tbl.Len())
	}
	if !tbl.HasColumn("City") {
		t.Fatalf("columns=%v", tbl.Columns)
	}
}

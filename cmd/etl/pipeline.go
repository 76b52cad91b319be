package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"marketing-etl/internal/config"
	"marketing-etl/internal/kpi"
	"marketing-etl/internal/loader"
	"marketing-etl/internal/merge"
	"marketing-etl/internal/metrics"
	"marketing-etl/internal/storage"
	"marketing-etl/internal/table"
)

// Summary holds per-run row counts for the final log line and tests.
type Summary struct {
	AdsRows       int
	AnalyticsRows int
	SkippedRows   int
	MergedRows    int
	WrittenRows   int64
}

// run executes the pipeline end to end. The two sources are independent, so
// they load concurrently; a fatal error on either side cancels the other and
// aborts the run before anything is written.
func run(ctx context.Context, p config.Pipeline) (*Summary, error) {
	var ads, analytics *table.Table
	var adsSkipped, analyticsSkipped int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		t, skipped, err := loader.NewAds(p.Columns, p.Ads).Load(gctx)
		metrics.RecordStage(p.Job, "load_ads", err, time.Since(start))
		if err != nil {
			return fmt.Errorf("load ads: %w", err)
		}
		log.Printf("ads: %d rows from %s (%d skipped)", t.Len(), sourceName(p.Ads), skipped)
		metrics.RecordRows(p.Job, "ads_loaded", int64(t.Len()))
		ads, adsSkipped = t, skipped
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		t, skipped, err := loader.NewAnalytics(p.Columns, p.Analytics).Load(gctx)
		metrics.RecordStage(p.Job, "load_analytics", err, time.Since(start))
		if err != nil {
			return fmt.Errorf("load analytics: %w", err)
		}
		log.Printf("analytics: %d rows from %s (%d skipped)", t.Len(), sourceName(p.Analytics), skipped)
		metrics.RecordRows(p.Job, "analytics_loaded", int64(t.Len()))
		analytics, analyticsSkipped = t, skipped
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	metrics.RecordRows(p.Job, "skipped", int64(adsSkipped+analyticsSkipped))

	var fill float64
	if p.Merge.FillValue != nil {
		fill = *p.Merge.FillValue
	}
	start := time.Now()
	merged, err := merge.Merge(ads, analytics, merge.Options{
		Keys:            p.Merge.Keys,
		FillValue:       fill,
		DuplicatePolicy: p.Merge.DuplicatePolicy,
		DateColumn:      p.Columns.Date,
	})
	metrics.RecordStage(p.Job, "merge", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	metrics.RecordRows(p.Job, "merged", int64(merged.Len()))

	start = time.Now()
	final := kpi.NewEngine(kpiColumns(p.Columns)).Calculate(merged)
	metrics.RecordStage(p.Job, "kpi", nil, time.Since(start))

	repo, err := storage.New(ctx, storageConfig(p))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	defer repo.Close()

	start = time.Now()
	written, err := repo.WriteTable(ctx, final)
	metrics.RecordStage(p.Job, "write", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	metrics.RecordRows(p.Job, "written", written)

	return &Summary{
		AdsRows:       ads.Len(),
		AnalyticsRows: analytics.Len(),
		SkippedRows:   adsSkipped + analyticsSkipped,
		MergedRows:    merged.Len(),
		WrittenRows:   written,
	}, nil
}

// kpiColumns maps the configured ads vocabulary onto the KPI engine inputs.
// Transactions always comes from the analytics side of the merge.
func kpiColumns(c config.Columns) kpi.Columns {
	return kpi.Columns{
		Spend:        c.Ads["spend"],
		Sales:        c.Ads["sales"],
		Orders:       c.Ads["orders"],
		Clicks:       c.Ads["clicks"],
		Impressions:  c.Ads["impressions"],
		Transactions: loader.ColTransactions,
	}
}

// sourceName names a source for log lines.
func sourceName(sf config.SourceFile) string {
	if sf.URL != "" {
		return sf.URL
	}
	return sf.Filename
}

func storageConfig(p config.Pipeline) storage.Config {
	return storage.Config{
		Kind:            p.Storage.Kind,
		Path:            p.Storage.CSV.Path,
		DSN:             p.Storage.DB.DSN,
		Table:           p.Storage.DB.Table,
		AutoCreateTable: p.Storage.DB.AutoCreateTable,
	}
}

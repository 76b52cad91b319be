// Command etl runs the marketing KPI pipeline: it loads the ads and
// analytics CSV exports, aligns them on the shared dimension key, derives the
// KPI columns, and writes the final dataset to the configured sink.
//
// The CLI layer stays thin: it loads the pipeline config, optionally wires a
// metrics backend, and hands off to the runner. Storage backends are pulled
// in through the storage/all wiring package, so this file never imports
// database drivers directly.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"marketing-etl/internal/config"
	"marketing-etl/internal/metrics"
	"marketing-etl/internal/metrics/datadog"
	"marketing-etl/internal/metrics/prompush"

	// register all backends with the storage factory.
	_ "marketing-etl/internal/storage/all"
)

func main() {
	var (
		cfgPath           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/pipeline.json", "pipeline config JSON path")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend to use (pushgateway, datadog, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	// Local overrides (DSNs, metrics endpoints) may live in a .env file.
	if err := godotenv.Load(); err == nil && *verbose {
		log.Printf("loaded environment from .env")
	}

	f, err := os.Open(cfgPath)
	if err != nil {
		fatalf("open config: %v", err)
	}

	var p config.Pipeline
	err = json.NewDecoder(f).Decode(&p)
	f.Close()
	if err != nil {
		fatalf("decode config: %v", err)
	}
	p = config.ApplyDefaults(p)

	issues := config.ValidatePipeline(p)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		fatalf("configuration is invalid: %v", cfgPath)
	}
	if validate {
		log.Printf("configuration is valid: %v", cfgPath)
		return
	}

	setupMetrics(p, metricsBackendFlg, pushGatewayURLFlg, *verbose)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	ctx := context.Background()
	start := time.Now()

	if *verbose {
		log.Printf("pipeline: job=%s ads=%s analytics=%s storage=%s",
			p.Job, p.Ads.Filename, p.Analytics.Filename, p.Storage.Kind)
	}

	sum, err := run(ctx, p)
	if err != nil {
		log.Fatalf("%v", err)
	}

	log.Printf("done: ads=%d analytics=%d skipped=%d merged=%d written=%d in %s",
		sum.AdsRows, sum.AnalyticsRows, sum.SkippedRows, sum.MergedRows, sum.WrittenRows,
		time.Since(start).Truncate(time.Millisecond))
}

// setupMetrics decides the metrics backend: flag, then env, then disabled.
func setupMetrics(p config.Pipeline, backendName, gatewayURL string, verbose bool) {
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	jobName := p.Job
	if jobName == "" {
		jobName = "marketing-etl"
	}

	switch backendName {
	case "pushgateway":
		gwURL := gatewayURL
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(jobName, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init pushgateway backend: %v; using nop", err)
			return
		}
		if verbose {
			log.Printf("metrics: backend=pushgateway url=%v job=%v", gwURL, jobName)
		}
		metrics.SetBackend(b)

	case "datadog":
		addr := os.Getenv("DOGSTATSD_ADDR")
		if addr == "" {
			addr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       addr,
			Namespace:  "marketing.",
			GlobalTags: []string{"job:" + jobName},
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		if verbose {
			log.Printf("metrics: backend=datadog addr=%v job=%v", addr, jobName)
		}
		metrics.SetBackend(b)

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled")
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

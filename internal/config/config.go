// Package config defines the canonical, JSON-serializable configuration model
// for the marketing ETL pipeline. It is intentionally small, explicit, and
// dependency-free so that pipelines can be loaded from disk (or other sources)
// and passed through the program without additional glue code.
//
// Design goals:
//
//  1. Stability: Changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: Field names in Go mirror the JSON structure used in pipeline
//     files under configs/*.json.
//  3. Minimalism: No third-party config libraries; decoding is performed by the
//     standard library, with a light Options helper for typed access.
//
// Example (trimmed):
//
//	{
//	  "job": "marketing_kpis",
//	  "ads":       { "dir": "data/raw", "filename": "Brand_Sales_AdSpend_Data.csv" },
//	  "analytics": { "dir": "data/raw", "filename": "ga4_obfuscated_sample_ecommerce.csv" },
//	  "merge":     { "keys": ["Date", "Country"], "duplicate_policy": "sum" },
//	  "storage":   { "kind": "csv", "csv": { "path": "data/processed/processed_full_marketing_dataset.csv" } }
//	}
package config

import "encoding/json"

// Default input/output names, matching the upstream marketing exports.
const (
	DefaultAdsFilename       = "Brand_Sales_AdSpend_Data.csv"
	DefaultAnalyticsFilename = "ga4_obfuscated_sample_ecommerce.csv"
	DefaultOutputFilename    = "processed_full_marketing_dataset.csv"
)

// Pipeline describes the full run in JSON. It is the top-level object decoded
// from a pipeline file.
type Pipeline struct {
	// Job names the run; it is used for metrics labeling.
	Job string `json:"job"`

	// Ads is the paid-ads spend/performance source.
	Ads SourceFile `json:"ads"`

	// Analytics is the web-analytics (GA4-style) event source.
	Analytics SourceFile `json:"analytics"`

	// Columns defines the shared column vocabulary and the per-source label maps.
	Columns Columns `json:"columns"`

	// Merge configures the alignment of the two sources.
	Merge Merge `json:"merge"`

	// Storage describes where the final KPI table is written.
	Storage Storage `json:"storage"`
}

// SourceFile locates one CSV input, either on disk or over HTTP.
type SourceFile struct {
	// Dir is the directory holding the input file.
	Dir string `json:"dir"`

	// Filename within Dir; each source has a conventional default.
	Filename string `json:"filename"`

	// URL downloads the input over HTTP(S) instead of reading Dir/Filename.
	// When set, Dir and Filename are ignored.
	URL string `json:"url"`

	// Options is a free-form map interpreted by the CSV parser. Typical keys:
	// comma (string), trim_space (bool), header_map (object).
	Options Options `json:"options"`
}

// Columns carries the shared dimension vocabulary plus the semantic-name to
// source-label maps for each source.
type Columns struct {
	// Date/Country/City are the shared dimension labels (defaults "Date",
	// "Country", "City").
	Date    string `json:"date"`
	Country string `json:"country"`
	City    string `json:"city"`

	// Ads maps semantic measure names to ads-source labels. Recognized keys:
	// spend, sales, orders, clicks, impressions.
	Ads map[string]string `json:"ads"`

	// GA4 maps semantic names to analytics-source labels. Recognized keys:
	// timestamp, event_name, user_id, country, city, revenue.
	GA4 map[string]string `json:"ga4"`
}

// Merge configures the left-preserving alignment step.
type Merge struct {
	// Keys are the ordered join key column names (default [Date, Country]).
	Keys []string `json:"keys"`

	// FillValue substitutes missing analytics metrics for unmatched ads rows.
	// Nil means 0.
	FillValue *float64 `json:"fill_value"`

	// DuplicatePolicy selects how duplicate keys on the analytics side are
	// handled: "sum" (default; pre-aggregate) or "reject" (fail the run).
	DuplicatePolicy string `json:"duplicate_policy"`
}

// Storage selects the sink used to persist the final KPI table.
type Storage struct {
	// Kind selects the storage implementation: "csv", "sqlite", or "postgres".
	Kind string `json:"kind"`

	// DB carries options for the database sinks.
	DB DBConfig `json:"db"`

	// CSV carries options for the "csv" sink.
	CSV CSVConfig `json:"csv"`
}

// DBConfig configures a database sink.
type DBConfig struct {
	// DSN is the connection string (pgxpool URL for postgres, file path or
	// file: URI for sqlite).
	DSN string `json:"dsn"`

	// Table is the destination table name (optionally schema-qualified for
	// postgres).
	Table string `json:"table"`

	// AutoCreateTable creates the destination table from the output schema
	// before writing.
	AutoCreateTable bool `json:"auto_create_table"`
}

// CSVConfig configures the flat-file sink.
type CSVConfig struct {
	// Path is the output file path; parent directories are created.
	Path string `json:"path"`
}

// ApplyDefaults fills the conventional defaults for anything the pipeline file
// leaves unset. It returns the pipeline for call chaining.
func ApplyDefaults(p Pipeline) Pipeline {
	if p.Ads.Filename == "" {
		p.Ads.Filename = DefaultAdsFilename
	}
	if p.Analytics.Filename == "" {
		p.Analytics.Filename = DefaultAnalyticsFilename
	}
	if p.Columns.Date == "" {
		p.Columns.Date = "Date"
	}
	if p.Columns.Country == "" {
		p.Columns.Country = "Country"
	}
	if p.Columns.City == "" {
		p.Columns.City = "City"
	}
	if p.Columns.Ads == nil {
		p.Columns.Ads = map[string]string{
			"spend":       "Total Ad Spend",
			"sales":       "Total Sales",
			"orders":      "Order Count",
			"clicks":      "Clicks",
			"impressions": "Impressions",
		}
	}
	if p.Columns.GA4 == nil {
		p.Columns.GA4 = map[string]string{
			"timestamp":  "event_timestamp",
			"event_name": "event_name",
			"user_id":    "user_pseudo_id",
			"country":    "geo.country",
			"city":       "geo.city",
			"revenue":    "event_params.value.double_value",
		}
	}
	if len(p.Merge.Keys) == 0 {
		p.Merge.Keys = []string{p.Columns.Date, p.Columns.Country}
	}
	if p.Merge.DuplicatePolicy == "" {
		p.Merge.DuplicatePolicy = "sum"
	}
	if p.Storage.Kind == "" {
		p.Storage.Kind = "csv"
	}
	if p.Storage.Kind == "csv" && p.Storage.CSV.Path == "" {
		p.Storage.CSV.Path = DefaultOutputFilename
	}
	return p
}

// Options is a small helper to fetch typed values from arbitrary JSON maps
// without introducing third-party configuration libraries. It purposefully
// performs only minimal type coercion and returns provided defaults when a key
// is absent or of an unexpected type.
type Options map[string]any

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty. This is useful for single-character parser settings such as
// a CSV delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored. Returns an empty map
// when the key is missing or the value is not an object.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// UnmarshalJSON implements json.Unmarshaler so that a missing or null "options"
// object in JSON decodes to a non-nil, empty Options map. This simplifies call
// sites by removing the need to nil-check Options values.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}

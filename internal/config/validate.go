// Package config provides configuration models and helpers for the pipeline.
//
// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind", "merge.keys").
// Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline. Instead it returns a slice of Issue values.
// Callers may decide whether to treat warnings as fatal or not. Run
// ApplyDefaults before validating; the linter checks the resolved config.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}

	issues = append(issues, validateSource("ads", p.Ads)...)
	issues = append(issues, validateSource("analytics", p.Analytics)...)
	issues = append(issues, validateMerge(p)...)
	issues = append(issues, validateStorage(p.Storage)...)

	return issues
}

// validateSource validates one input source block.
func validateSource(path string, s SourceFile) []Issue {
	var issues []Issue
	if url := strings.TrimSpace(s.URL); url != "" {
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".url",
				Message:  fmt.Sprintf("source URL %q must use http or https", url),
			})
		}
		return issues
	}
	if strings.TrimSpace(s.Dir) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".dir",
			Message:  "source requires a non-empty directory (or a url)",
		})
	}
	if strings.TrimSpace(s.Filename) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".filename",
			Message:  "source requires a filename (ApplyDefaults fills the conventional one)",
		})
	}
	return issues
}

// validateMerge validates the alignment configuration.
func validateMerge(p Pipeline) []Issue {
	var issues []Issue

	if len(p.Merge.Keys) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "merge.keys",
			Message:  "at least one join key is required",
		})
	}
	for i, k := range p.Merge.Keys {
		if strings.TrimSpace(k) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("merge.keys[%d]", i),
				Message:  "join key must not be empty",
			})
		}
	}

	switch p.Merge.DuplicatePolicy {
	case "", "sum", "reject":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "merge.duplicate_policy",
			Message:  fmt.Sprintf("unknown duplicate policy %q; expected \"sum\" or \"reject\"", p.Merge.DuplicatePolicy),
		})
	}

	return issues
}

// validateStorage validates the sink configuration.
func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
		return issues
	}

	// Known sink kinds. Unknown kinds are warnings (for forward compatibility);
	// storage.New will still fail if nothing registered the kind.
	known := map[string]struct{}{
		"csv": {}, "sqlite": {}, "postgres": {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching implementation exists", s.Kind),
		})
	}

	switch s.Kind {
	case "csv":
		if strings.TrimSpace(s.CSV.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "storage.csv.path",
				Message:  "csv sink requires a non-empty path",
			})
		}
	case "sqlite", "postgres":
		if strings.TrimSpace(s.DB.DSN) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "storage.db.dsn",
				Message:  s.Kind + " sink requires a DSN",
			})
		}
		if strings.TrimSpace(s.DB.Table) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "storage.db.table",
				Message:  s.Kind + " sink requires a table name",
			})
		}
	}

	return issues
}

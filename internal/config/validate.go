// This file adds a lightweight linter for registry content. It performs
// static checks over a loaded registry and returns a list of issues (errors
// and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"

	"bankdwh/internal/registry"
)

// IssueSeverity represents the severity of a registry issue.
type IssueSeverity string

const (
	// SeverityError indicates a problem that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a problem worth surfacing that may not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the registry (e.g. "raw_sources[2].csv_path").
// Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a
// single error where needed.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// ValidateRegistry performs static validation of a loaded registry. It does
// not mutate the registry; callers decide whether warnings are fatal.
func ValidateRegistry(f *registry.File) []Issue {
	var issues []Issue
	seen := make(map[string]int, len(f.RawSources))

	for i, s := range f.RawSources {
		at := func(field string) string { return fmt.Sprintf("raw_sources[%d].%s", i, field) }

		if strings.TrimSpace(s.Name) == "" {
			issues = append(issues, Issue{SeverityError, at("name"), "name must not be empty; it is the registry key"})
		} else if prev, dup := seen[s.Name]; dup {
			issues = append(issues, Issue{SeverityError, at("name"),
				fmt.Sprintf("duplicate of raw_sources[%d]; re-integration must update in place", prev)})
		} else {
			seen[s.Name] = i
		}

		if strings.TrimSpace(s.TableID) == "" {
			issues = append(issues, Issue{SeverityError, at("table_id"), "table_id must not be empty"})
		}
		if strings.TrimSpace(s.ProjectID) == "" {
			issues = append(issues, Issue{SeverityWarning, at("project_id"), "project_id is empty; loads will need one"})
		}
		if strings.TrimSpace(s.DatasetID) == "" {
			issues = append(issues, Issue{SeverityWarning, at("dataset_id"), "dataset_id is empty; loads will need one"})
		}
		if strings.TrimSpace(s.CSVPath) == "" {
			issues = append(issues, Issue{SeverityWarning, at("csv_path"), "csv_path is empty; the raw loader cannot read this source"})
		}
	}
	return issues
}

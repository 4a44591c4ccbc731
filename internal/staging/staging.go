// Package staging renders a mapping list into a declarative dbt staging
// model: a single view-materialized projection over the raw source table,
// one expression per canonical field, no cross-field dependencies.
//
// Generation is deterministic. Fields are emitted in canonical dictionary
// order regardless of the order mappings arrive in, so two specs resolving
// the same field set produce byte-identical SQL: re-integrating a file must
// never dirty the staging model it generated last time.
package staging

import (
	"fmt"
	"sort"
	"strings"

	"bankdwh/internal/dictionary"
	"bankdwh/internal/mapper"
)

// ModelSpec is the input to Generate: the model and source names plus the
// resolved column mappings.
type ModelSpec struct {
	// Model is the staging model name, e.g. "stg_vehicle_loans".
	Model string
	// Source is the raw source table name referenced through the dbt source
	// macro, e.g. "vehicle_loans_raw".
	Source string
	// Mappings is the resolved mapping list. Order does not matter; output
	// order is always canonical.
	Mappings []mapper.Mapping
}

// GenerationError reports a duplicate target field in the spec. The mapper's
// invariant makes this unreachable in the normal pipeline; the generator
// still refuses to emit a model with two definitions of one column.
type GenerationError struct {
	Model string
	Field string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s: target field %q mapped more than once", e.Model, e.Field)
}

// Generate renders the staging model SQL for the spec.
func Generate(spec ModelSpec) (string, error) {
	if strings.TrimSpace(spec.Source) == "" {
		return "", fmt.Errorf("generate %s: source name must not be empty", spec.Model)
	}

	ms := make([]mapper.Mapping, len(spec.Mappings))
	copy(ms, spec.Mappings)
	sort.SliceStable(ms, func(i, j int) bool {
		return canonicalRank(ms[i].Target) < canonicalRank(ms[j].Target)
	})

	seen := make(map[string]struct{}, len(ms))
	exprs := make([]string, 0, len(ms))
	for _, m := range ms {
		if _, dup := seen[m.Target]; dup {
			return "", &GenerationError{Model: spec.Model, Field: m.Target}
		}
		seen[m.Target] = struct{}{}
		exprs = append(exprs, "    "+sourceExpression(m))
	}

	var b strings.Builder
	b.WriteString("{{ config(materialized='view') }}\n")
	b.WriteString("\n")
	b.WriteString("with src as (\n")
	fmt.Fprintf(&b, "  select * from {{ source('raw', '%s') }}\n", spec.Source)
	b.WriteString("),\n")
	b.WriteString("\n")
	b.WriteString("transformed as (\n")
	b.WriteString("  select\n")
	b.WriteString(strings.Join(exprs, ",\n"))
	b.WriteString("\n")
	b.WriteString("  from src\n")
	b.WriteString(")\n")
	b.WriteString("\n")
	b.WriteString("select * from transformed\n")
	return b.String(), nil
}

// sourceExpression renders one projection expression. Every expression reads
// only its own source column, so downstream engines can reorder or prune
// them freely.
func sourceExpression(m mapper.Mapping) string {
	switch m.Transform {
	case dictionary.TransformDateParse:
		format := dictionary.BigQueryFormat(m.Layout)
		return fmt.Sprintf("safe.parse_date('%s', cast(%s as string)) as %s", format, m.Source, m.Target)
	case dictionary.TransformOffsetDate:
		return fmt.Sprintf("date_add(current_date(), interval cast(%s as int64) day) as %s", m.Source, m.Target)
	case dictionary.TransformRename:
		return fmt.Sprintf("%s as %s", m.Source, m.Target)
	case dictionary.TransformConstant:
		return fmt.Sprintf("'%s' as %s", strings.ReplaceAll(m.Constant, "'", "\\'"), m.Target)
	default: // TransformCast
		return fmt.Sprintf("cast(%s as %s) as %s", m.Source, m.CastType, m.Target)
	}
}

func canonicalRank(target string) int {
	if i := dictionary.FieldIndex(target); i >= 0 {
		return i
	}
	return int(^uint(0) >> 1)
}

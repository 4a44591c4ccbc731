// Package mapper turns a classified header into an ordered list of
// target-field → source-expression mappings against the canonical warehouse
// schema.
//
// For known dataset families the mapping is a fixed dictionary lookup. For
// generic datasets it is heuristic: each canonical field's synonym patterns
// are tried against the normalized header, in canonical priority order
// (identifiers, amounts, dates, labels, then everything else). A raw column
// claimed by one target field is never claimed again, and anything without a
// confident match is omitted rather than guessed.
//
// Map is a pure function of its inputs: it performs no I/O and mutates
// nothing it is given. Omissions are returned to the caller for logging and
// reporting instead of being logged here.
package mapper

import (
	"fmt"
	"sort"
	"strings"

	"bankdwh/internal/dictionary"
	"bankdwh/internal/profile"
)

// Mapping is one resolved column mapping. Within one mapping list a Target
// appears at most once; a single source column may feed multiple targets.
type Mapping struct {
	// Target is the canonical field name.
	Target string
	// Source is the raw column name feeding the target.
	Source string
	// Transform selects the staging-side source expression.
	Transform dictionary.TransformKind
	// CastType is the warehouse type for TransformCast.
	CastType string
	// Layout is the Go date layout validated against the sample, for
	// TransformDateParse.
	Layout string
	// Constant is the literal for TransformConstant.
	Constant string
}

// MatchKind tags how a generic-mode column matched a canonical field.
type MatchKind int

const (
	// Unmatched means no pattern matched.
	Unmatched MatchKind = iota
	// Exact means the normalized name equaled an exact-name pattern.
	Exact
	// Synonym means a substring or regex pattern matched.
	Synonym
)

func (k MatchKind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Synonym:
		return "synonym"
	default:
		return "unmatched"
	}
}

// Omission records a target field that was deliberately left unmapped, with
// the reason. Omissions are expected output, not errors.
type Omission struct {
	Target string
	Source string // raw column involved, when one was considered
	Reason string
}

// Map produces the ordered mapping list for the profile under the decided
// dataset type. The result is in canonical dictionary order.
func Map(datasetType string, p *profile.Profile) ([]Mapping, []Omission) {
	if tm := dictionary.TypeMappings(datasetType); tm != nil {
		return mapKnown(tm, p)
	}
	return mapGeneric(p)
}

// mapKnown applies a fixed per-family table: for each rule, the first
// candidate column present in the header (case-sensitive) feeds the target.
func mapKnown(rules []dictionary.TypeMapping, p *profile.Profile) ([]Mapping, []Omission) {
	var (
		out  []Mapping
		omit []Omission
	)
	for _, r := range rules {
		src := ""
		for _, cand := range r.Candidates {
			if p.ColumnIndex(cand) >= 0 {
				src = cand
				break
			}
		}
		if src == "" {
			continue // candidate columns absent from this extract; not an omission worth reporting
		}
		m, ok, reason := buildMapping(r.Target, src, r.Transform, r.Layout, p)
		if !ok {
			omit = append(omit, Omission{Target: r.Target, Source: src, Reason: reason})
			continue
		}
		out = append(out, m)
	}
	sortCanonical(out)
	return out, omit
}

// mapGeneric claims header columns for canonical fields by synonym patterns,
// in canonical priority order. Each raw column can be claimed once.
func mapGeneric(p *profile.Profile) ([]Mapping, []Omission) {
	normalized := p.NormalizedColumns()
	claimed := make([]bool, len(p.Columns))

	var (
		out  []Mapping
		omit []Omission
	)
	for _, f := range dictionary.Fields() {
		idx, kind := matchField(f, normalized, claimed)
		if kind == Unmatched {
			continue // nothing resembling this field; silence, not a finding
		}
		raw := p.Columns[idx]

		transform := dictionary.TransformCast
		layout := ""
		if f.Class == dictionary.ClassDate {
			if dictionary.IsOffsetColumn(raw) {
				transform = dictionary.TransformOffsetDate
			} else {
				layout = profile.FirstCleanLayout(p.Column(idx))
				if layout == "" {
					omit = append(omit, Omission{
						Target: f.Name,
						Source: raw,
						Reason: "no candidate date format parses every sampled value",
					})
					continue
				}
				transform = dictionary.TransformDateParse
			}
		}

		claimed[idx] = true
		out = append(out, Mapping{
			Target:    f.Name,
			Source:    raw,
			Transform: transform,
			CastType:  f.SQLType,
			Layout:    layout,
		})
	}
	sortCanonical(out)
	return out, omit
}

// matchField scans the header for the first unclaimed column matching one of
// the field's patterns. Exact patterns are tried across the whole header
// before weaker ones, so an exact synonym elsewhere in the header beats an
// earlier substring hit.
func matchField(f dictionary.Field, normalized []string, claimed []bool) (int, MatchKind) {
	for i, name := range normalized {
		if claimed[i] {
			continue
		}
		if matchesExact(f, name) {
			return i, Exact
		}
	}
	for i, name := range normalized {
		if claimed[i] {
			continue
		}
		if matchesLoose(f, name) {
			return i, Synonym
		}
	}
	return -1, Unmatched
}

func matchesExact(f dictionary.Field, name string) bool {
	for _, p := range f.Patterns {
		if p.Kind == dictionary.PatternExact && p.Value == name {
			return true
		}
	}
	return false
}

func matchesLoose(f dictionary.Field, name string) bool {
	for _, p := range f.Patterns {
		switch p.Kind {
		case dictionary.PatternSubstring:
			if p.Value != "" && strings.Contains(name, p.Value) {
				return true
			}
		case dictionary.PatternRegex:
			if re := p.Regexp(); re != nil && re.MatchString(name) {
				return true
			}
		}
	}
	return false
}

// buildMapping resolves transform details for a known-family rule, running
// date columns through the sampled-value format check. Date columns whose
// values defeat every candidate format are omitted rather than mapped into a
// transform that would null out rows.
func buildMapping(target, src string, transform dictionary.TransformKind, layout string, p *profile.Profile) (Mapping, bool, string) {
	f, ok := dictionary.Lookup(target)
	if !ok {
		return Mapping{}, false, fmt.Sprintf("target %q is not in the canonical dictionary", target)
	}
	m := Mapping{
		Target:    target,
		Source:    src,
		Transform: transform,
		CastType:  f.SQLType,
		Layout:    layout,
	}
	if transform == dictionary.TransformDateParse {
		values := p.Column(p.ColumnIndex(src))
		if len(values) > 0 {
			got := profile.FirstCleanLayout(values)
			if got == "" {
				return Mapping{}, false, "no candidate date format parses every sampled value"
			}
			m.Layout = got
		}
		if m.Layout == "" {
			return Mapping{}, false, "date column has no sampled values and no declared format"
		}
	}
	return m, true, ""
}

// sortCanonical orders mappings by canonical dictionary position. Targets
// outside the dictionary (none are produced today) would sort last, stably.
func sortCanonical(ms []Mapping) {
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := dictionary.FieldIndex(ms[i].Target), dictionary.FieldIndex(ms[j].Target)
		if a < 0 {
			a = int(^uint(0) >> 1)
		}
		if b < 0 {
			b = int(^uint(0) >> 1)
		}
		return a < b
	})
}

// Package dictionary holds the canonical field dictionary for the bank DWH:
// the fixed list of warehouse target fields, the synonym patterns used to
// recognize them in arbitrary headers, the signatures that identify known
// dataset families, and the fixed per-family column mappings.
//
// Everything in this package is data. The tables are built once at package
// init and never mutated afterwards; callers receive them read-only. Adding
// support for a new dataset family or a new synonym is an edit here, not a
// code change elsewhere.
package dictionary

import "regexp"

// TransformKind selects how a source expression is rendered in the staging
// model for a mapped column.
type TransformKind int

const (
	// TransformCast renders cast(<col> as <type>).
	TransformCast TransformKind = iota
	// TransformDateParse renders safe.parse_date('<fmt>', cast(<col> as string)).
	TransformDateParse
	// TransformOffsetDate renders current_date() shifted by a signed day count
	// held in the source column.
	TransformOffsetDate
	// TransformRename renders the column as-is under the target name.
	TransformRename
	// TransformConstant renders a literal under the target name.
	TransformConstant
)

// String returns the config-file spelling of the transform kind.
func (t TransformKind) String() string {
	switch t {
	case TransformCast:
		return "cast"
	case TransformDateParse:
		return "date_parse"
	case TransformOffsetDate:
		return "offset_date"
	case TransformRename:
		return "rename"
	case TransformConstant:
		return "constant"
	default:
		return "unknown"
	}
}

// Class groups canonical fields for mapping priority. The mapper claims
// columns class by class in this order: identifiers first, then amounts,
// dates, labels, and finally everything else.
type Class int

const (
	ClassIdentifier Class = iota
	ClassAmount
	ClassDate
	ClassLabel
	ClassOther
)

// PatternKind tags a synonym pattern.
type PatternKind int

const (
	// PatternExact matches the whole normalized column name.
	PatternExact PatternKind = iota
	// PatternSubstring matches anywhere in the normalized column name.
	PatternSubstring
	// PatternRegex matches the normalized column name against a regexp.
	PatternRegex
)

// Pattern is one synonym rule for a canonical field. Matching is always
// performed against the lowercased, normalized column name.
type Pattern struct {
	Kind  PatternKind
	Value string

	re *regexp.Regexp // compiled form for PatternRegex
}

// Regexp returns the compiled regexp for a PatternRegex pattern, or nil.
func (p Pattern) Regexp() *regexp.Regexp { return p.re }

// Field is one canonical warehouse field. The order of Fields() is the
// canonical dictionary order: it doubles as the mapping priority order and as
// the column order of every generated staging model.
type Field struct {
	Name     string
	Class    Class
	SQLType  string // BigQuery-side type used by cast transforms
	Patterns []Pattern
}

func exact(v string) Pattern     { return Pattern{Kind: PatternExact, Value: v} }
func substring(v string) Pattern { return Pattern{Kind: PatternSubstring, Value: v} }
func regex(v string) Pattern {
	return Pattern{Kind: PatternRegex, Value: v, re: regexp.MustCompile(v)}
}

// fields is the canonical dictionary, in canonical order.
var fields = []Field{
	// Identifiers
	{Name: "loan_id", Class: ClassIdentifier, SQLType: "string", Patterns: []Pattern{
		exact("uniqueid"), exact("sk_id_curr"), exact("loan_id"),
		exact("application_id"), exact("contract_id"),
	}},
	{Name: "customer_id", Class: ClassIdentifier, SQLType: "string", Patterns: []Pattern{
		exact("customer_id"), exact("client_id"),
	}},

	// Amounts
	{Name: "loan_amount", Class: ClassAmount, SQLType: "numeric", Patterns: []Pattern{
		exact("disbursed_amount"), exact("amt_credit"), exact("loan_amount"),
		exact("credit_amount"),
	}},
	{Name: "asset_cost", Class: ClassAmount, SQLType: "numeric", Patterns: []Pattern{
		exact("asset_cost"), exact("amt_goods_price"), exact("goods_price"),
	}},
	{Name: "ltv_ratio", Class: ClassAmount, SQLType: "numeric", Patterns: []Pattern{
		exact("ltv"), exact("ltv_ratio"), exact("loan_to_value"),
	}},

	// Dates
	{Name: "application_date", Class: ClassDate, SQLType: "date", Patterns: []Pattern{
		exact("disbursaldate"), exact("days_decision"), exact("application_date"),
		exact("disbursal_date"),
	}},
	{Name: "date_of_birth", Class: ClassDate, SQLType: "date", Patterns: []Pattern{
		exact("date_of_birth"), exact("days_birth"), substring("birth"),
	}},

	// Labels
	{Name: "loan_default", Class: ClassLabel, SQLType: "int64", Patterns: []Pattern{
		exact("loan_default"), exact("target"), exact("default_flag"),
	}},
	{Name: "employment_type", Class: ClassLabel, SQLType: "string", Patterns: []Pattern{
		exact("employment_type"), exact("name_income_type"), exact("occupation_type"),
	}},
	{Name: "gender", Class: ClassLabel, SQLType: "string", Patterns: []Pattern{
		exact("code_gender"), exact("gender"),
	}},

	// Everything else
	{Name: "state_id", Class: ClassOther, SQLType: "string", Patterns: []Pattern{
		exact("state_id"), exact("region_rating_client"),
	}},
	{Name: "dealer_id", Class: ClassOther, SQLType: "string", Patterns: []Pattern{
		exact("branch_id"), exact("dealer_id"), exact("supplier_id"),
	}},
	{Name: "pincode_id", Class: ClassOther, SQLType: "string", Patterns: []Pattern{
		exact("current_pincode_id"), exact("pincode_id"), substring("pincode"),
	}},
	{Name: "product_id", Class: ClassOther, SQLType: "string", Patterns: []Pattern{
		exact("manufacturer_id"), exact("product_id"), exact("name_contract_type"),
	}},
	{Name: "credit_score", Class: ClassOther, SQLType: "int64", Patterns: []Pattern{
		exact("perform_cns_score"), exact("credit_score"), regex(`^ext_source_[0-9]+$`),
	}},
}

var fieldIndex = func() map[string]int {
	m := make(map[string]int, len(fields))
	for i, f := range fields {
		m[f.Name] = i
	}
	return m
}()

// Fields returns the canonical dictionary in canonical order. The returned
// slice is shared; callers must not modify it.
func Fields() []Field { return fields }

// FieldIndex returns the canonical position of a target field, or -1 when the
// name is not part of the dictionary.
func FieldIndex(name string) int {
	if i, ok := fieldIndex[name]; ok {
		return i
	}
	return -1
}

// Lookup returns the dictionary entry for name.
func Lookup(name string) (Field, bool) {
	i := FieldIndex(name)
	if i < 0 {
		return Field{}, false
	}
	return fields[i], true
}

// offsetColumn recognizes the "signed offset in days from a reference date"
// naming convention used by retail-credit style extracts (DAYS_BIRTH,
// DAYS_DECISION, ...). Matching is case-insensitive on the raw name.
var offsetColumn = regexp.MustCompile(`(?i)^days(_|$)`)

// IsOffsetColumn reports whether a raw column name follows the day-offset
// naming convention and should map through an offset_date transform rather
// than a textual date parse.
func IsOffsetColumn(raw string) bool { return offsetColumn.MatchString(raw) }

// DateLayout pairs a Go time layout (used to validate sampled values) with
// the equivalent BigQuery format string (emitted into staging SQL).
type DateLayout struct {
	Go       string
	BigQuery string
}

// dateLayouts are the candidate parse formats for date-like columns, in the
// order they are tried. The first layout that parses every sampled value
// cleanly wins; if none does, the column is left unmapped.
var dateLayouts = []DateLayout{
	{Go: "2006-01-02", BigQuery: "%Y-%m-%d"},
	{Go: "02-01-06", BigQuery: "%d-%m-%y"},
	{Go: "02-01-2006", BigQuery: "%d-%m-%Y"},
	{Go: "02/01/2006", BigQuery: "%d/%m/%Y"},
	{Go: "01/02/2006", BigQuery: "%m/%d/%Y"},
	{Go: "2006/01/02", BigQuery: "%Y/%m/%d"},
	{Go: "20060102", BigQuery: "%Y%m%d"},
}

// DateLayouts returns the ordered candidate date layouts. Shared slice; do
// not modify.
func DateLayouts() []DateLayout { return dateLayouts }

// BigQueryFormat translates a Go layout from DateLayouts back to its BigQuery
// format string. Unknown layouts return the empty string.
func BigQueryFormat(goLayout string) string {
	for _, l := range dateLayouts {
		if l.Go == goLayout {
			return l.BigQuery
		}
	}
	return ""
}

// Signature is the minimal required raw column set that identifies a known
// dataset family during classification. Matching is case-sensitive on the
// raw header names.
type Signature struct {
	Type     string
	Required []string
}

// signatures lists the known dataset families. Larger required sets are more
// specific and win over smaller ones when both match.
var signatures = []Signature{
	{Type: "vehicle_loan", Required: []string{"UniqueID", "disbursed_amount"}},
	{Type: "retail_credit", Required: []string{"SK_ID_CURR", "AMT_CREDIT"}},
}

// Signatures returns the known dataset-family signatures. Shared slice; do
// not modify.
func Signatures() []Signature { return signatures }

// TypeMapping is one fixed mapping rule for a known dataset family: the
// target field, the ordered raw column candidates (first one present in the
// header wins), the transform to apply, and the Go date layout for
// TransformDateParse rules.
type TypeMapping struct {
	Target     string
	Candidates []string
	Transform  TransformKind
	Layout     string
}

// typeMappings holds the fixed per-family mapping tables, in canonical
// dictionary order.
var typeMappings = map[string][]TypeMapping{
	"vehicle_loan": {
		{Target: "loan_id", Candidates: []string{"UniqueID"}, Transform: TransformCast},
		{Target: "customer_id", Candidates: []string{"UniqueID"}, Transform: TransformCast},
		{Target: "loan_amount", Candidates: []string{"disbursed_amount"}, Transform: TransformCast},
		{Target: "asset_cost", Candidates: []string{"asset_cost"}, Transform: TransformCast},
		{Target: "ltv_ratio", Candidates: []string{"ltv"}, Transform: TransformCast},
		{Target: "application_date", Candidates: []string{"DisbursalDate"}, Transform: TransformDateParse, Layout: "02-01-06"},
		{Target: "date_of_birth", Candidates: []string{"Date_of_Birth"}, Transform: TransformDateParse, Layout: "02-01-06"},
		{Target: "loan_default", Candidates: []string{"loan_default"}, Transform: TransformCast},
		{Target: "employment_type", Candidates: []string{"Employment_Type"}, Transform: TransformCast},
		{Target: "state_id", Candidates: []string{"State_ID"}, Transform: TransformCast},
		{Target: "dealer_id", Candidates: []string{"branch_id", "supplier_id"}, Transform: TransformCast},
		{Target: "pincode_id", Candidates: []string{"Current_pincode_ID"}, Transform: TransformCast},
		{Target: "product_id", Candidates: []string{"manufacturer_id"}, Transform: TransformCast},
		{Target: "credit_score", Candidates: []string{"PERFORM_CNS_SCORE"}, Transform: TransformCast},
	},
	"retail_credit": {
		{Target: "loan_id", Candidates: []string{"SK_ID_CURR"}, Transform: TransformCast},
		{Target: "customer_id", Candidates: []string{"SK_ID_CURR"}, Transform: TransformCast},
		{Target: "loan_amount", Candidates: []string{"AMT_CREDIT"}, Transform: TransformCast},
		{Target: "asset_cost", Candidates: []string{"AMT_GOODS_PRICE"}, Transform: TransformCast},
		{Target: "application_date", Candidates: []string{"DAYS_DECISION"}, Transform: TransformOffsetDate},
		{Target: "date_of_birth", Candidates: []string{"DAYS_BIRTH"}, Transform: TransformOffsetDate},
		{Target: "loan_default", Candidates: []string{"TARGET"}, Transform: TransformCast},
		{Target: "employment_type", Candidates: []string{"NAME_INCOME_TYPE"}, Transform: TransformCast},
		{Target: "gender", Candidates: []string{"CODE_GENDER"}, Transform: TransformCast},
		{Target: "state_id", Candidates: []string{"REGION_RATING_CLIENT"}, Transform: TransformCast},
		{Target: "product_id", Candidates: []string{"NAME_CONTRACT_TYPE"}, Transform: TransformCast},
		{Target: "credit_score", Candidates: []string{"EXT_SOURCE_1", "EXT_SOURCE_2", "EXT_SOURCE_3"}, Transform: TransformCast},
	},
}

// TypeMappings returns the fixed mapping table for a known dataset family,
// or nil for generic/unknown types. Shared slice; do not modify.
func TypeMappings(datasetType string) []TypeMapping { return typeMappings[datasetType] }

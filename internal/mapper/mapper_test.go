package mapper

import (
	"testing"

	"bankdwh/internal/dictionary"
	"bankdwh/internal/profile"
)

// prof builds an in-memory profile with one sample row per value set.
func prof(columns []string, rows ...[]string) *profile.Profile {
	return &profile.Profile{
		Path:    "test.csv",
		Columns: columns,
		Sample:  rows,
		Rows:    int64(len(rows)),
	}
}

func byTarget(ms []Mapping) map[string]Mapping {
	out := make(map[string]Mapping, len(ms))
	for _, m := range ms {
		out[m.Target] = m
	}
	return out
}

func TestMapVehicleLoan(t *testing.T) {
	t.Parallel()

	p := prof(
		[]string{"UniqueID", "disbursed_amount", "asset_cost", "ltv", "branch_id", "DisbursalDate", "Date_of_Birth"},
		[]string{"420825", "50578", "58400", "89.55", "67", "03-08-18", "01-01-84"},
		[]string{"537409", "47145", "65550", "73.23", "67", "26-09-18", "31-07-85"},
	)
	ms, omitted := Map("vehicle_loan", p)
	if len(omitted) != 0 {
		t.Fatalf("omitted = %+v, want none", omitted)
	}
	got := byTarget(ms)

	// The single raw identifier feeds both canonical identifiers.
	for _, target := range []string{"loan_id", "customer_id"} {
		m, ok := got[target]
		if !ok {
			t.Fatalf("missing mapping for %s", target)
		}
		if m.Source != "UniqueID" || m.Transform != dictionary.TransformCast {
			t.Errorf("%s = %+v, want cast from UniqueID", target, m)
		}
	}
	if m := got["dealer_id"]; m.Source != "branch_id" {
		t.Errorf("dealer_id source = %q, want branch_id", m.Source)
	}
	for _, target := range []string{"application_date", "date_of_birth"} {
		m := got[target]
		if m.Transform != dictionary.TransformDateParse {
			t.Errorf("%s transform = %v, want date_parse", target, m.Transform)
		}
		if m.Layout != "02-01-06" {
			t.Errorf("%s layout = %q, want 02-01-06", target, m.Layout)
		}
	}

	// Output must follow canonical dictionary order.
	prev := -1
	for _, m := range ms {
		idx := dictionary.FieldIndex(m.Target)
		if idx < prev {
			t.Errorf("mapping %s out of canonical order", m.Target)
		}
		prev = idx
	}
}

func TestMapRetailCredit(t *testing.T) {
	t.Parallel()

	p := prof(
		[]string{"SK_ID_CURR", "TARGET", "AMT_CREDIT", "DAYS_BIRTH", "DAYS_DECISION", "EXT_SOURCE_2"},
		[]string{"100002", "1", "406597.5", "-9461", "-606", "0.2629"},
	)
	ms, omitted := Map("retail_credit", p)
	if len(omitted) != 0 {
		t.Fatalf("omitted = %+v, want none", omitted)
	}
	got := byTarget(ms)

	for _, target := range []string{"loan_id", "customer_id"} {
		if m := got[target]; m.Source != "SK_ID_CURR" {
			t.Errorf("%s source = %q, want SK_ID_CURR", target, m.Source)
		}
	}
	// Day-offset columns never go through a textual parse.
	for target, src := range map[string]string{
		"application_date": "DAYS_DECISION",
		"date_of_birth":    "DAYS_BIRTH",
	} {
		m := got[target]
		if m.Source != src || m.Transform != dictionary.TransformOffsetDate {
			t.Errorf("%s = %+v, want offset_date from %s", target, m, src)
		}
	}
	// First present candidate wins when earlier ones are absent.
	if m := got["credit_score"]; m.Source != "EXT_SOURCE_2" {
		t.Errorf("credit_score source = %q, want EXT_SOURCE_2", m.Source)
	}
	// asset_cost's only candidate is absent: silently skipped, not omitted.
	if _, ok := got["asset_cost"]; ok {
		t.Error("asset_cost mapped despite absent candidates")
	}
}

func TestMapKnownDateDefeatsFormats(t *testing.T) {
	t.Parallel()

	p := prof(
		[]string{"UniqueID", "disbursed_amount", "DisbursalDate"},
		[]string{"1", "100", "sometime in march"},
	)
	ms, omitted := Map("vehicle_loan", p)
	got := byTarget(ms)
	if _, ok := got["application_date"]; ok {
		t.Error("application_date mapped despite unparseable samples")
	}
	if len(omitted) != 1 || omitted[0].Target != "application_date" {
		t.Fatalf("omitted = %+v, want exactly application_date", omitted)
	}
	if omitted[0].Reason == "" {
		t.Error("omission has no reason")
	}
}

func TestMapGeneric(t *testing.T) {
	t.Parallel()

	p := prof(
		[]string{"Loan ID", "client_id", "credit_amount", "birth_date", "LTV", "extra_noise"},
		[]string{"9001", "77", "1500.5", "1984-08-01", "81.2", "x"},
		[]string{"9002", "78", "2500.0", "1985-07-31", "75.0", "y"},
	)
	ms, omitted := Map("generic", p)
	if len(omitted) != 0 {
		t.Fatalf("omitted = %+v, want none", omitted)
	}
	got := byTarget(ms)

	if m := got["loan_id"]; m.Source != "Loan ID" {
		t.Errorf("loan_id source = %q, want raw header name", m.Source)
	}
	if m := got["customer_id"]; m.Source != "client_id" {
		t.Errorf("customer_id source = %q, want client_id", m.Source)
	}
	if m := got["loan_amount"]; m.Source != "credit_amount" {
		t.Errorf("loan_amount source = %q, want credit_amount", m.Source)
	}
	if m := got["ltv_ratio"]; m.Source != "LTV" {
		t.Errorf("ltv_ratio source = %q, want LTV", m.Source)
	}
	m := got["date_of_birth"]
	if m.Transform != dictionary.TransformDateParse || m.Layout != "2006-01-02" {
		t.Errorf("date_of_birth = %+v, want date_parse with 2006-01-02", m)
	}
	if _, ok := got["extra_noise"]; ok {
		t.Error("unrecognized column must stay unmapped")
	}
}

func TestMapGenericClaimOnce(t *testing.T) {
	t.Parallel()

	// A single identifier column: loan_id claims it first (canonical priority),
	// leaving customer_id unmatched and unreported.
	p := prof([]string{"loan_id"}, []string{"1"})
	ms, omitted := Map("generic", p)
	if len(ms) != 1 || ms[0].Target != "loan_id" {
		t.Fatalf("mappings = %+v, want loan_id only", ms)
	}
	if len(omitted) != 0 {
		t.Errorf("omitted = %+v, want none", omitted)
	}
}

func TestMapGenericOffsetColumn(t *testing.T) {
	t.Parallel()

	p := prof([]string{"DAYS_BIRTH"}, []string{"-9461"})
	ms, _ := Map("generic", p)
	got := byTarget(ms)
	m, ok := got["date_of_birth"]
	if !ok {
		t.Fatal("date_of_birth not mapped from DAYS_BIRTH")
	}
	if m.Transform != dictionary.TransformOffsetDate {
		t.Errorf("transform = %v, want offset_date", m.Transform)
	}
}

func TestMapGenericUnparseableDate(t *testing.T) {
	t.Parallel()

	p := prof(
		[]string{"birth_date"},
		[]string{"n/a"},
		[]string{"unknown"},
	)
	ms, omitted := Map("generic", p)
	if len(ms) != 0 {
		t.Fatalf("mappings = %+v, want none", ms)
	}
	if len(omitted) != 1 || omitted[0].Target != "date_of_birth" {
		t.Fatalf("omitted = %+v, want date_of_birth", omitted)
	}
}

func TestMapDoesNotMutateProfile(t *testing.T) {
	t.Parallel()

	p := prof([]string{"loan_id", "client_id"}, []string{"1", "2"})
	before := make([]string, len(p.Columns))
	copy(before, p.Columns)

	Map("generic", p)

	for i := range before {
		if p.Columns[i] != before[i] {
			t.Fatalf("profile mutated: %v", p.Columns)
		}
	}
}

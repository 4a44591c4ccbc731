package dictionary

import "testing"

func TestFieldOrderAndIndex(t *testing.T) {
	t.Parallel()

	fields := Fields()
	if len(fields) == 0 {
		t.Fatal("dictionary is empty")
	}
	for i, f := range fields {
		if got := FieldIndex(f.Name); got != i {
			t.Errorf("FieldIndex(%q) = %d, want %d", f.Name, got, i)
		}
	}
	if got := FieldIndex("no_such_field"); got != -1 {
		t.Errorf("FieldIndex(no_such_field) = %d, want -1", got)
	}

	// Identifiers must come before amounts, amounts before dates, and so on:
	// the class sequence across the dictionary must be non-decreasing.
	prev := fields[0].Class
	for _, f := range fields[1:] {
		if f.Class < prev {
			t.Errorf("field %q (class %d) appears after class %d; priority order broken", f.Name, f.Class, prev)
		}
		prev = f.Class
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	f, ok := Lookup("loan_amount")
	if !ok {
		t.Fatal("Lookup(loan_amount) not found")
	}
	if f.SQLType != "numeric" {
		t.Errorf("loan_amount SQLType = %q, want numeric", f.SQLType)
	}
	if _, ok := Lookup("bogus"); ok {
		t.Error("Lookup(bogus) unexpectedly found")
	}
}

func TestIsOffsetColumn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want bool
	}{
		{"DAYS_BIRTH", true},
		{"days_decision", true},
		{"Days", true},
		{"DAYS", true},
		{"birthdays", false},
		{"daysold", false},
		{"date_of_birth", false},
	}
	for _, tt := range tests {
		if got := IsOffsetColumn(tt.raw); got != tt.want {
			t.Errorf("IsOffsetColumn(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestBigQueryFormat(t *testing.T) {
	t.Parallel()

	for _, l := range DateLayouts() {
		if got := BigQueryFormat(l.Go); got != l.BigQuery {
			t.Errorf("BigQueryFormat(%q) = %q, want %q", l.Go, got, l.BigQuery)
		}
	}
	if got := BigQueryFormat("Jan 2, 2006"); got != "" {
		t.Errorf("BigQueryFormat(unknown) = %q, want empty", got)
	}
}

// Every target named by a family mapping table must exist in the dictionary,
// and every rule must list at least one candidate. A broken table would only
// surface at integration time otherwise.
func TestTypeMappingsAreWellFormed(t *testing.T) {
	t.Parallel()

	for _, family := range []string{"vehicle_loan", "retail_credit"} {
		rules := TypeMappings(family)
		if len(rules) == 0 {
			t.Fatalf("TypeMappings(%q) is empty", family)
		}
		prev := -1
		for _, r := range rules {
			idx := FieldIndex(r.Target)
			if idx < 0 {
				t.Errorf("%s: target %q missing from dictionary", family, r.Target)
				continue
			}
			if idx < prev {
				t.Errorf("%s: target %q out of canonical order", family, r.Target)
			}
			prev = idx
			if len(r.Candidates) == 0 {
				t.Errorf("%s: target %q has no candidates", family, r.Target)
			}
			if r.Transform == TransformDateParse && BigQueryFormat(r.Layout) == "" {
				t.Errorf("%s: target %q declares unknown date layout %q", family, r.Target, r.Layout)
			}
		}
	}
}

func TestSignatures(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for _, sig := range Signatures() {
		if sig.Type == "" || len(sig.Required) == 0 {
			t.Errorf("malformed signature %+v", sig)
		}
		if seen[sig.Type] {
			t.Errorf("duplicate signature type %q", sig.Type)
		}
		seen[sig.Type] = true
	}
	if !seen["vehicle_loan"] || !seen["retail_credit"] {
		t.Error("expected vehicle_loan and retail_credit signatures")
	}
}

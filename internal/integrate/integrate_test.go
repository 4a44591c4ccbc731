package integrate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bankdwh/internal/classify"
	"bankdwh/internal/config"
	"bankdwh/internal/dictionary"
	"bankdwh/internal/mapper"
)

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	root := t.TempDir()
	return &Engine{Paths: config.DefaultPaths(root)}, root
}

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const vehicleCSV = "UniqueID,disbursed_amount,asset_cost,ltv,branch_id,DisbursalDate,Date_of_Birth\n" +
	"420825,50578,58400,89.55,67,03-08-18,01-01-84\n" +
	"537409,47145,65550,73.23,67,26-09-18,31-07-85\n"

const retailCSV = "SK_ID_CURR,TARGET,AMT_CREDIT,DAYS_BIRTH,DAYS_DECISION\n" +
	"100002,1,406597.5,-9461,-606\n" +
	"100003,0,1293502.5,-16765,-815\n"

const genericCSV = "loan_id,client_id,credit_amount,birth_date,notes\n" +
	"9001,77,1500.5,1984-08-01,ok\n" +
	"9002,78,2500.0,1985-07-31,late\n"

func defaultParams(csvPath string) Params {
	return Params{
		CSVPath:   csvPath,
		ProjectID: "demo-project",
		DatasetID: "raw_demo",
		Backup:    true,
	}
}

func TestAddVehicleLoanFile(t *testing.T) {
	t.Parallel()

	eng, root := newTestEngine(t)
	csvPath := writeCSV(t, root, "vehicle loans.csv", vehicleCSV)

	report, reg, err := eng.Add(context.Background(), defaultParams(csvPath))
	if err != nil {
		t.Fatal(err)
	}
	if report.Type != "vehicle_loan" {
		t.Errorf("type = %q, want vehicle_loan", report.Type)
	}
	if report.Rows != 2 || report.ColumnsIn != 7 {
		t.Errorf("rows = %d columns = %d", report.Rows, report.ColumnsIn)
	}
	if report.SourceName != "vehicle_loans_raw" || report.ModelName != "stg_vehicle_loans" {
		t.Errorf("naming = %q / %q", report.SourceName, report.ModelName)
	}
	if !report.Created {
		t.Error("first integration must report a created entry")
	}

	// Registry entry on disk.
	src := reg.Find("vehicle_loans_raw")
	if src == nil {
		t.Fatal("registry missing vehicle_loans_raw")
	}
	if src.ProjectID != "demo-project" || src.TableID != "vehicle_loans_raw" || src.CSVPath != csvPath {
		t.Errorf("registry entry = %+v", src)
	}

	// Staging artifact on disk, referencing the raw source.
	sql, err := os.ReadFile(report.Artifact)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"{{ config(materialized='view') }}",
		"{{ source('raw', 'vehicle_loans_raw') }}",
		"cast(UniqueID as string) as loan_id",
		"cast(UniqueID as string) as customer_id",
		"safe.parse_date('%d-%m-%y', cast(DisbursalDate as string)) as application_date",
	} {
		if !strings.Contains(string(sql), want) {
			t.Errorf("staging model missing %q:\n%s", want, sql)
		}
	}

	// dbt sources.yml lists the table.
	sources, err := os.ReadFile(eng.Paths.SourcesFile())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(sources), "vehicle_loans_raw") {
		t.Errorf("sources.yml missing table:\n%s", sources)
	}
}

func TestAddRetailCreditFile(t *testing.T) {
	t.Parallel()

	eng, root := newTestEngine(t)
	csvPath := writeCSV(t, root, "application_train.csv", retailCSV)

	report, _, err := eng.Add(context.Background(), defaultParams(csvPath))
	if err != nil {
		t.Fatal(err)
	}
	if report.Type != "retail_credit" {
		t.Errorf("type = %q, want retail_credit", report.Type)
	}

	sql, err := os.ReadFile(report.Artifact)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"cast(SK_ID_CURR as string) as loan_id",
		"cast(SK_ID_CURR as string) as customer_id",
		"date_add(current_date(), interval cast(DAYS_DECISION as int64) day) as application_date",
		"date_add(current_date(), interval cast(DAYS_BIRTH as int64) day) as date_of_birth",
	} {
		if !strings.Contains(string(sql), want) {
			t.Errorf("staging model missing %q:\n%s", want, sql)
		}
	}
}

func TestAddGenericFile(t *testing.T) {
	t.Parallel()

	eng, root := newTestEngine(t)
	csvPath := writeCSV(t, root, "mystery_loans.csv", genericCSV)

	report, _, err := eng.Add(context.Background(), defaultParams(csvPath))
	if err != nil {
		t.Fatal(err)
	}
	if report.Type != classify.TypeGeneric {
		t.Errorf("type = %q, want generic", report.Type)
	}
	if report.SourceName != "mystery_loans_raw" {
		t.Errorf("source = %q", report.SourceName)
	}
	// notes matched nothing and stayed out of the model.
	sql, err := os.ReadFile(report.Artifact)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(sql), "notes") {
		t.Errorf("unmapped column leaked into model:\n%s", sql)
	}
	if !strings.Contains(string(sql), "as date_of_birth") {
		t.Errorf("date_of_birth not mapped from birth_date:\n%s", sql)
	}
}

func TestAddIsIdempotent(t *testing.T) {
	t.Parallel()

	eng, root := newTestEngine(t)
	csvPath := writeCSV(t, root, "vehicle_loans.csv", vehicleCSV)
	params := defaultParams(csvPath)
	params.Backup = false

	first, _, err := eng.Add(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	firstSQL, err := os.ReadFile(first.Artifact)
	if err != nil {
		t.Fatal(err)
	}
	firstReg, err := os.ReadFile(eng.Paths.RegistryFile())
	if err != nil {
		t.Fatal(err)
	}

	second, reg, err := eng.Add(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	if second.Created {
		t.Error("re-integration must report an update, not a creation")
	}
	if len(reg.RawSources) != 1 {
		t.Fatalf("registry grew on re-integration: %+v", reg.RawSources)
	}
	secondSQL, err := os.ReadFile(second.Artifact)
	if err != nil {
		t.Fatal(err)
	}
	if string(firstSQL) != string(secondSQL) {
		t.Error("staging model changed between identical runs")
	}
	secondReg, err := os.ReadFile(eng.Paths.RegistryFile())
	if err != nil {
		t.Fatal(err)
	}
	if string(firstReg) != string(secondReg) {
		t.Error("registry bytes changed between identical runs")
	}
}

func TestAddRelocatedFileUpdatesInPlace(t *testing.T) {
	t.Parallel()

	eng, root := newTestEngine(t)
	params := defaultParams(writeCSV(t, root, "vehicle_loans.csv", vehicleCSV))
	if _, _, err := eng.Add(context.Background(), params); err != nil {
		t.Fatal(err)
	}

	// Same file under a new directory: same stem, same source name, new path.
	moved := filepath.Join(root, "archive")
	if err := os.MkdirAll(moved, 0o755); err != nil {
		t.Fatal(err)
	}
	params.CSVPath = writeCSV(t, moved, "vehicle_loans.csv", vehicleCSV)

	report, reg, err := eng.Add(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	if report.Created {
		t.Error("relocated file must update the existing entry")
	}
	if len(reg.RawSources) != 1 {
		t.Fatalf("registry = %+v, want one entry", reg.RawSources)
	}
	if got := reg.RawSources[0].CSVPath; got != params.CSVPath {
		t.Errorf("csv_path = %q, want %q", got, params.CSVPath)
	}
}

func TestAddAmbiguousFile(t *testing.T) {
	t.Parallel()

	eng, root := newTestEngine(t)
	csvPath := writeCSV(t, root, "merged.csv",
		"UniqueID,disbursed_amount,SK_ID_CURR,AMT_CREDIT\n1,2,3,4\n")

	_, _, err := eng.Add(context.Background(), defaultParams(csvPath))
	if !errors.Is(err, classify.ErrAmbiguousType) {
		t.Fatalf("err = %v, want ErrAmbiguousType", err)
	}
	// Nothing may be written on a failed classification.
	if _, err := os.Stat(eng.Paths.RegistryFile()); !os.IsNotExist(err) {
		t.Error("registry written despite classification failure")
	}
}

func TestAddEmptyFile(t *testing.T) {
	t.Parallel()

	eng, root := newTestEngine(t)
	csvPath := writeCSV(t, root, "empty.csv", "")

	_, _, err := eng.Add(context.Background(), defaultParams(csvPath))
	var cerr *classify.ClassificationError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v (%T), want *classify.ClassificationError", err, err)
	}
	if _, err := os.Stat(eng.Paths.RegistryFile()); !os.IsNotExist(err) {
		t.Error("registry written despite unclassifiable input")
	}
}

func TestAddMissingFile(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	if _, _, err := eng.Add(context.Background(), defaultParams("/no/such/file.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestList(t *testing.T) {
	t.Parallel()

	eng, root := newTestEngine(t)

	sources, err := eng.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 0 {
		t.Fatalf("fresh project lists %d sources", len(sources))
	}

	for _, f := range []struct{ name, content string }{
		{"vehicle_loans.csv", vehicleCSV},
		{"application_train.csv", retailCSV},
	} {
		csvPath := writeCSV(t, root, f.name, f.content)
		if _, _, err := eng.Add(context.Background(), defaultParams(csvPath)); err != nil {
			t.Fatal(err)
		}
	}

	sources, err = eng.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 2 {
		t.Fatalf("listed %d sources, want 2", len(sources))
	}
	// Registry order is insertion order.
	if sources[0].Name != "vehicle_loans_raw" || sources[1].Name != "application_train_raw" {
		t.Errorf("order = %s, %s", sources[0].Name, sources[1].Name)
	}
}

func TestRenderMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		m    mapper.Mapping
		want string
	}{
		{
			m:    mapper.Mapping{Target: "loan_id", Source: "UniqueID", Transform: dictionary.TransformCast},
			want: "UniqueID",
		},
		{
			m:    mapper.Mapping{Target: "date_of_birth", Source: "DAYS_BIRTH", Transform: dictionary.TransformOffsetDate},
			want: "offset_date(reference_date, DAYS_BIRTH)",
		},
		{
			m:    mapper.Mapping{Target: "application_date", Source: "DisbursalDate", Transform: dictionary.TransformDateParse, Layout: "02-01-06"},
			want: "DisbursalDate (date, layout 02-01-06)",
		},
	}
	for _, tt := range tests {
		got := RenderMapping(tt.m)
		if !strings.Contains(got, tt.m.Target) || !strings.Contains(got, tt.want) {
			t.Errorf("RenderMapping(%+v) = %q, want it to contain %q", tt.m, got, tt.want)
		}
	}
}

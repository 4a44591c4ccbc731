// Package integrate orchestrates the full dataset integration flow: scan the
// file, classify it, map its columns onto the canonical schema, generate the
// staging model, and persist both the model and the registry entry.
//
// The run is synchronous and sequential. Classification and mapping failures
// abort before anything is written; persistence follows the updater's
// staging-artifact-before-registry ordering so a crash cannot leave the
// registry pointing at a missing model.
package integrate

import (
	"context"
	"fmt"
	"log"
	"time"

	"bankdwh/internal/classify"
	"bankdwh/internal/config"
	"bankdwh/internal/mapper"
	"bankdwh/internal/metrics"
	"bankdwh/internal/profile"
	"bankdwh/internal/registry"
	"bankdwh/internal/staging"
)

// Params carries one integration request.
type Params struct {
	// CSVPath is the source file to integrate.
	CSVPath string
	// ProjectID and DatasetID identify the warehouse destination recorded in
	// the registry.
	ProjectID string
	DatasetID string
	// Backup controls the backup-before-write behavior of the updater.
	Backup bool
}

// Report is the structured analysis result of one integration, for the
// caller to render.
type Report struct {
	File       string
	Type       string
	Rows       int64
	ColumnsIn  int
	Mappings   []mapper.Mapping
	Omitted    []mapper.Omission
	TableName  string
	SourceName string
	ModelName  string
	Artifact   string
	Created    bool
}

// Engine wires the pipeline components against a project layout.
type Engine struct {
	Paths config.Paths
	// Now is forwarded to the registry updater for backup stamps.
	Now func() time.Time
}

// metricsJob labels all engine metrics.
const metricsJob = "integrate"

// Add integrates one file and returns the analysis report together with the
// new registry snapshot.
func (e *Engine) Add(ctx context.Context, p Params) (*Report, *registry.File, error) {
	step := stepTimer()

	prof, err := profile.Scan(ctx, p.CSVPath, profile.DefaultSampleRows)
	step("profile", err)
	if err != nil {
		return nil, nil, err
	}

	res, err := classify.Classify(prof.Path, prof.Columns)
	step("classify", err)
	if err != nil {
		return nil, nil, err
	}

	mappings, omitted := mapper.Map(res.Type, prof)
	step("map", nil)
	metrics.RecordFields(metricsJob, "mapped", len(mappings))
	metrics.RecordFields(metricsJob, "omitted", len(omitted))
	for _, o := range omitted {
		log.Printf("mapper: leaving %s unmapped (column %q): %s", o.Target, o.Source, o.Reason)
	}

	table := profile.TableName(p.CSVPath)
	sourceName := table + "_raw"
	modelName := "stg_" + table

	sql, err := staging.Generate(staging.ModelSpec{
		Model:    modelName,
		Source:   sourceName,
		Mappings: mappings,
	})
	step("generate", err)
	if err != nil {
		return nil, nil, err
	}

	u := &registry.Updater{
		RegistryPath: e.Paths.RegistryFile(),
		StagingDir:   e.Paths.StagingDir,
		Backup:       p.Backup,
		Now:          e.Now,
	}
	src := &registry.Source{
		Name:      sourceName,
		ProjectID: p.ProjectID,
		DatasetID: p.DatasetID,
		TableID:   sourceName,
		CSVPath:   p.CSVPath,
	}
	created := false
	if reg, lerr := registry.Load(u.RegistryPath); lerr == nil {
		created = reg.Find(sourceName) == nil
	}
	reg, err := u.Apply(src, modelName, sql)
	if err == nil {
		err = u.UpdateDbtSources(e.Paths.SourcesFile(), p.ProjectID, p.DatasetID, sourceName)
	}
	step("persist", err)
	if err != nil {
		return nil, nil, err
	}
	metrics.RecordRows(metricsJob, "scanned", prof.Rows)

	return &Report{
		File:       p.CSVPath,
		Type:       res.Type,
		Rows:       prof.Rows,
		ColumnsIn:  len(prof.Columns),
		Mappings:   mappings,
		Omitted:    omitted,
		TableName:  table,
		SourceName: sourceName,
		ModelName:  modelName,
		Artifact:   u.StagingArtifactPath(modelName),
		Created:    created,
	}, reg, nil
}

// List loads the registry and returns its entries in registry order.
func (e *Engine) List() ([]*registry.Source, error) {
	reg, err := registry.Load(e.Paths.RegistryFile())
	if err != nil {
		return nil, err
	}
	return reg.RawSources, nil
}

// stepTimer returns a closure that records per-step metrics, measuring the
// time since the previous step finished.
func stepTimer() func(step string, err error) {
	last := time.Now()
	return func(step string, err error) {
		now := time.Now()
		metrics.RecordStep(metricsJob, step, err, now.Sub(last))
		last = now
	}
}

// RenderMapping formats one mapping line for the analysis report, matching
// the "target <- expression" layout of the registry tooling.
func RenderMapping(m mapper.Mapping) string {
	return fmt.Sprintf("  %-20s <- %s", m.Target, mappingExpr(m))
}

func mappingExpr(m mapper.Mapping) string {
	switch m.Transform.String() {
	case "offset_date":
		return fmt.Sprintf("offset_date(reference_date, %s)", m.Source)
	case "date_parse":
		return fmt.Sprintf("%s (date, layout %s)", m.Source, m.Layout)
	case "constant":
		return fmt.Sprintf("'%s'", m.Constant)
	default:
		return m.Source
	}
}

// Command loadraw streams a registered source CSV into a raw landing table.
//
// It resolves the source by name from the raw-sources registry, infers a
// landing table definition from the file, and bulk-loads the rows through the
// selected storage backend.
//
//	loadraw -name vehicle_loans_raw -backend postgres -dsn postgres://... [-create]
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"bankdwh/internal/config"
	"bankdwh/internal/ddl"
	"bankdwh/internal/metrics"
	"bankdwh/internal/profile"
	"bankdwh/internal/registry"
	"bankdwh/internal/storage"
	"bankdwh/internal/storage/mssql"
	"bankdwh/internal/storage/postgres"
	"bankdwh/internal/storage/sqlite"
)

func main() {
	log.SetFlags(0)

	var (
		name    = flag.String("name", "", "registered source name (required)")
		root    = flag.String("root", "", "warehouse project root (default $"+config.EnvHome+" or .)")
		backend = flag.String("backend", "sqlite", "storage backend: postgres, sqlite, mssql")
		dsn     = flag.String("dsn", "", "backend connection string (required)")
		table   = flag.String("table", "", "landing table override (default: the source's table_id)")
		create  = flag.Bool("create", false, "create the landing table from the inferred definition")
		batch   = flag.Int("batch", 1000, "rows per bulk insert")
		verbose = flag.Bool("v", false, "enable verbose logs")
	)
	flag.Parse()

	if !*verbose {
		log.SetOutput(os.Stderr)
	}
	if *name == "" || *dsn == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(context.Background(), *root, *name, *backend, *dsn, *table, *create, *batch); err != nil {
		log.Printf("error: %v", err)
		os.Exit(1)
	}
}

const metricsJob = "loadraw"

func run(ctx context.Context, root, name, backend, dsn, tableOverride string, create bool, batchSize int) error {
	paths := config.DefaultPaths(root)
	reg, err := registry.Load(paths.RegistryFile())
	if err != nil {
		return err
	}
	src := reg.Find(name)
	if src == nil {
		return fmt.Errorf("source %q is not registered in %s", name, paths.RegistryFile())
	}
	if src.CSVPath == "" {
		return fmt.Errorf("source %q has no csv_path", name)
	}
	table := tableOverride
	if table == "" {
		table = src.TableID
	}

	start := time.Now()
	prof, err := profile.Scan(ctx, src.CSVPath, profile.DefaultSampleRows)
	metrics.RecordStep(metricsJob, "profile", err, time.Since(start))
	if err != nil {
		return err
	}
	columns := prof.NormalizedColumns()
	types := prof.InferTypes()

	repo, closeRepo, err := openRepository(ctx, backend, dsn, table)
	if err != nil {
		return err
	}
	defer closeRepo()

	if create {
		dialect := ddl.Dialect(backend)
		def, err := ddl.InferTableDef(table, prof, dialect)
		if err != nil {
			return err
		}
		stmt, err := ddl.BuildCreateTableSQL(def, dialect)
		if err != nil {
			return err
		}
		if err := repo.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create landing table %s: %w", table, err)
		}
		log.Printf("landing table ready: %s (%d columns)", table, len(def.Columns))
	}

	loadStart := time.Now()
	total, err := load(ctx, repo, src.CSVPath, columns, types, batchSize)
	metrics.RecordStep(metricsJob, "load", err, time.Since(loadStart))
	metrics.RecordRows(metricsJob, "loaded", total)
	if err != nil {
		return err
	}
	log.Printf("loaded %d rows from %s into %s in %s",
		total, src.CSVPath, table, time.Since(start).Truncate(time.Millisecond))
	return nil
}

func openRepository(ctx context.Context, backend, dsn, table string) (storage.Repository, func(), error) {
	switch backend {
	case "postgres":
		return postgres.NewRepository(ctx, postgres.Config{DSN: dsn, Table: table})
	case "sqlite":
		return sqlite.NewRepository(ctx, sqlite.Config{DSN: dsn, Table: table})
	case "mssql":
		return mssql.NewRepository(ctx, mssql.Config{DSN: dsn, Table: table})
	default:
		return nil, nil, fmt.Errorf("unknown backend %q (want postgres, sqlite, mssql)", backend)
	}
}

// load re-reads the whole CSV (the profile only holds a sample) and streams
// typed rows through the batched loader. Rows whose width differs from the
// header are skipped, matching the scan's tolerance.
func load(
	ctx context.Context,
	repo storage.Repository,
	path string,
	columns []string,
	types []string,
	batchSize int,
) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	if _, err := r.Read(); err != nil {
		return 0, fmt.Errorf("read header of %s: %w", path, err)
	}

	// Cancel the producer if the loader bails out early, otherwise it would
	// block forever on a full rows channel.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rows := make(chan []any, batchSize)
	readErr := make(chan error, 1)
	go func() {
		defer close(rows)
		for {
			rec, err := r.Read()
			if err == io.EOF {
				readErr <- nil
				return
			}
			if err != nil || len(rec) != len(columns) {
				continue
			}
			row := make([]any, len(rec))
			for i, v := range rec {
				row[i] = typedValue(v, types[i])
			}
			select {
			case rows <- row:
			case <-ctx.Done():
				readErr <- ctx.Err()
				return
			}
		}
	}()

	total, err := storage.LoadBatches(ctx, columns, rows, batchSize, repo.CopyFrom)
	if err != nil {
		return total, err
	}
	return total, <-readErr
}

// typedValue converts a CSV cell for the inferred column type. Empty cells
// become NULL; values that fail to parse fall back to the raw string so a
// stray cell degrades rather than aborts the load.
func typedValue(s, typ string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	switch typ {
	case "integer":
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case "real":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case "boolean":
		switch strings.ToLower(s) {
		case "true", "t", "yes", "y":
			return true
		case "false", "f", "no", "n":
			return false
		}
	}
	return s
}

// Command integrate analyzes a tabular source file, generates its staging
// model, and records it in the raw-sources registry.
//
// Subcommands:
//
//	integrate add <file.csv>   analyze + generate + register
//	integrate list             show registered sources
//	integrate lint             validate the registry and exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"bankdwh/internal/classify"
	"bankdwh/internal/config"
	"bankdwh/internal/integrate"
	"bankdwh/internal/metrics"
	"bankdwh/internal/metrics/datadog"
	"bankdwh/internal/registry"
)

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "add":
		err = runAdd(os.Args[2:])
	case "list":
		err = runList(os.Args[2:])
	case "lint":
		err = runLint(os.Args[2:])
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if ferr := metrics.Flush(); ferr != nil {
		log.Printf("metrics: flush: %v", ferr)
	}
	if err != nil {
		log.Printf("error: %v", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: integrate <command> [flags]

commands:
  add <file.csv>   analyze the file, generate its staging model, register it
  list             show registered raw sources
  lint             validate the registry and exit

run "integrate <command> -h" for command flags
`)
}

func runAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	var (
		root          = fs.String("root", "", "warehouse project root (default $"+config.EnvHome+" or .)")
		projectID     = fs.String("project-id", "", "destination project id (default $"+config.EnvProjectID+")")
		datasetID     = fs.String("dataset-id", "", "destination dataset id (default $"+config.EnvDatasetID+")")
		noBackup      = fs.Bool("no-backup", false, "skip the timestamped registry backup")
		metricsFlg    = fs.String("metrics-backend", "", "metrics backend to use (datadog, none)")
		dogstatsdAddr = fs.String("dogstatsd-addr", "127.0.0.1:8125", "DogStatsD address for the datadog backend")
		verbose       = fs.Bool("v", false, "enable verbose logs")
	)
	fs.Parse(args)

	if fs.NArg() != 1 {
		return errors.New("add: exactly one CSV path is required")
	}
	csvPath := fs.Arg(0)

	if !*verbose {
		log.SetOutput(os.Stderr)
	}
	setupMetrics(*metricsFlg, *dogstatsdAddr)

	eng := &integrate.Engine{Paths: config.DefaultPaths(*root)}
	report, _, err := eng.Add(context.Background(), integrate.Params{
		CSVPath:   csvPath,
		ProjectID: resolve(*projectID, config.EnvProjectID, config.DefaultProjectID),
		DatasetID: resolve(*datasetID, config.EnvDatasetID, config.DefaultDatasetID),
		Backup:    !*noBackup,
	})
	if err != nil {
		var cerr *classify.ClassificationError
		if errors.As(err, &cerr) {
			return fmt.Errorf("cannot integrate %s: %w", csvPath, err)
		}
		return err
	}

	renderReport(os.Stdout, report)
	return nil
}

// resolve applies the flag, environment, default precedence order.
func resolve(flagVal, envKey, def string) string {
	if flagVal != "" {
		return flagVal
	}
	return config.FromEnv(envKey, def)
}

func renderReport(w *os.File, r *integrate.Report) {
	verb := "updated"
	if r.Created {
		verb = "registered"
	}
	fmt.Fprintf(w, "=== %s ===\n", r.File)
	fmt.Fprintf(w, "type:    %s\n", r.Type)
	fmt.Fprintf(w, "rows:    %d\n", r.Rows)
	fmt.Fprintf(w, "columns: %d in, %d mapped, %d omitted\n", r.ColumnsIn, len(r.Mappings), len(r.Omitted))
	fmt.Fprintf(w, "source:  %s (%s)\n", r.SourceName, verb)
	fmt.Fprintf(w, "model:   %s\n", r.Artifact)
	fmt.Fprintln(w)
	for _, m := range r.Mappings {
		fmt.Fprintln(w, integrate.RenderMapping(m))
	}
	for _, o := range r.Omitted {
		fmt.Fprintf(w, "  %-20s -- omitted (%s)\n", o.Target, o.Reason)
	}
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	root := fs.String("root", "", "warehouse project root (default $"+config.EnvHome+" or .)")
	fs.Parse(args)

	eng := &integrate.Engine{Paths: config.DefaultPaths(*root)}
	sources, err := eng.List()
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Println("no raw sources registered")
		return nil
	}
	for i, s := range sources {
		fmt.Printf("%d. %s\n", i+1, s.Name)
		fmt.Printf("   Project: %s\n", s.ProjectID)
		fmt.Printf("   Dataset: %s\n", s.DatasetID)
		fmt.Printf("   Table:   %s\n", s.TableID)
		fmt.Printf("   CSV:     %s\n", s.CSVPath)
	}
	return nil
}

func runLint(args []string) error {
	fs := flag.NewFlagSet("lint", flag.ExitOnError)
	root := fs.String("root", "", "warehouse project root (default $"+config.EnvHome+" or .)")
	fs.Parse(args)

	paths := config.DefaultPaths(*root)
	reg, err := registry.Load(paths.RegistryFile())
	if err != nil {
		return err
	}
	issues := config.ValidateRegistry(reg)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		return fmt.Errorf("registry is invalid: %s", paths.RegistryFile())
	}
	log.Printf("registry is valid: %s", paths.RegistryFile())
	return nil
}

// setupMetrics installs the requested backend; anything unrecognized keeps
// the default no-op. Backend name resolves flag → env → default(none).
func setupMetrics(name, dogstatsdAddr string) {
	if name == "" {
		name = os.Getenv("METRICS_BACKEND")
	}
	switch name {
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:      dogstatsdAddr,
			Namespace: "dwh.",
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		metrics.SetBackend(b)
	case "", "none":
	default:
		log.Printf("metrics: unknown backend %q; using nop", name)
	}
}

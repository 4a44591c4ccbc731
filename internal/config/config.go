// Package config defines the filesystem layout and defaults the integration
// engine works against, plus a lightweight linter for registry content.
//
// The layout mirrors the warehouse project the engine maintains: a config
// directory holding the raw-sources registry and a dbt directory whose
// staging folder receives generated models. Everything is overridable by
// flags; defaults resolve flag → environment → built-in, in that order.
package config

import (
	"os"
	"path/filepath"
)

// Environment variables consulted when flags are not set.
const (
	EnvHome      = "DWH_HOME"
	EnvProjectID = "DWH_PROJECT_ID"
	EnvDatasetID = "DWH_DATASET_ID"
)

// Built-in defaults, used when neither flag nor environment provides a
// value.
const (
	DefaultProjectID = "vivid-layout-453307-p4"
	DefaultDatasetID = "ryoji_raw_demo"
)

// Paths locates the persisted artifacts of the warehouse project.
type Paths struct {
	// Home is the project root.
	Home string
	// ConfigDir holds the raw-sources registry.
	ConfigDir string
	// StagingDir receives generated staging models.
	StagingDir string
}

// DefaultPaths builds the standard layout under home. An empty home falls
// back to EnvHome, then to the current directory.
func DefaultPaths(home string) Paths {
	if home == "" {
		home = os.Getenv(EnvHome)
	}
	if home == "" {
		home = "."
	}
	return Paths{
		Home:       home,
		ConfigDir:  filepath.Join(home, "config"),
		StagingDir: filepath.Join(home, "dbt", "models", "staging"),
	}
}

// RegistryFile is the raw-sources registry path.
func (p Paths) RegistryFile() string { return filepath.Join(p.ConfigDir, "raw_sources.yml") }

// SourcesFile is the dbt sources.yml path inside the staging folder.
func (p Paths) SourcesFile() string { return filepath.Join(p.StagingDir, "sources.yml") }

// FromEnv returns the value of key or def when unset/empty.
func FromEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

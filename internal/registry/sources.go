package registry

import (
	"os"

	"gopkg.in/yaml.v3"
)

// dbt sources.yml maintenance. The staging models generated by this engine
// reference their raw tables through {{ source('raw', …) }}, so every
// integrated table must also be listed under the "raw" source block of the
// dbt project's sources file.

// SourcesFile mirrors the dbt sources.yml schema, limited to the fields this
// project uses.
type SourcesFile struct {
	Version int         `yaml:"version"`
	Sources []DbtSource `yaml:"sources"`
}

// DbtSource is one dbt source block.
type DbtSource struct {
	Name     string           `yaml:"name"`
	Database string           `yaml:"database,omitempty"`
	Schema   string           `yaml:"schema,omitempty"`
	Tables   []DbtSourceTable `yaml:"tables"`
}

// DbtSourceTable is one table within a source block.
type DbtSourceTable struct {
	Name string `yaml:"name"`
}

// dbtRawSourceName is the source block staging models select from.
const dbtRawSourceName = "raw"

// UpdateDbtSources registers tableName under the "raw" source block of the
// sources file at path, creating the file (seeded with the given
// database/schema) when it does not exist yet. Adding a table that is
// already listed is a no-op, so repeated integration stays idempotent. The
// write uses the same backup-then-replace sequence as the registry itself.
func (u *Updater) UpdateDbtSources(path, database, schema, tableName string) error {
	var sf SourcesFile
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &sf); err != nil {
			return &IOError{Op: "parse dbt sources", Path: path, Err: err}
		}
	case os.IsNotExist(err):
		sf = SourcesFile{
			Version: 2,
			Sources: []DbtSource{{Name: dbtRawSourceName, Database: database, Schema: schema}},
		}
	default:
		return &IOError{Op: "read dbt sources", Path: path, Err: err}
	}

	raw := -1
	for i := range sf.Sources {
		if sf.Sources[i].Name == dbtRawSourceName {
			raw = i
			break
		}
	}
	if raw < 0 {
		sf.Sources = append(sf.Sources, DbtSource{Name: dbtRawSourceName, Database: database, Schema: schema})
		raw = len(sf.Sources) - 1
	}
	for _, t := range sf.Sources[raw].Tables {
		if t.Name == tableName {
			return nil // already registered
		}
	}
	sf.Sources[raw].Tables = append(sf.Sources[raw].Tables, DbtSourceTable{Name: tableName})

	out, err := yaml.Marshal(sf)
	if err != nil {
		return &IOError{Op: "encode dbt sources", Path: path, Err: err}
	}
	return u.replaceFile(path, out)
}

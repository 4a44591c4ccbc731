package ddl

import (
	"fmt"
	"strings"

	"bankdwh/internal/profile"
)

// Dialect selects the SQL type vocabulary used when inferring a TableDef.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
	DialectMSSQL    Dialect = "mssql"
)

// InferTableDef derives a TableDef for a raw landing table from a scanned
// file profile. Column names are the normalized header names; types come from
// the profile's sampled type inference, mapped into the dialect's vocabulary
// via mapType. All columns are nullable: raw loads must not reject rows the
// warehouse can still stage.
func InferTableDef(table string, p *profile.Profile, d Dialect) (TableDef, error) {
	if strings.TrimSpace(table) == "" {
		return TableDef{}, fmt.Errorf("ddl: missing table")
	}
	cols := p.NormalizedColumns()
	if len(cols) == 0 {
		return TableDef{}, fmt.Errorf("ddl: profile has no columns")
	}
	types := p.InferTypes()

	defs := make([]ColumnDef, 0, len(cols))
	for i, name := range cols {
		defs = append(defs, ColumnDef{
			Name:     name,
			SQLType:  mapType(types[i], d),
			Nullable: true,
		})
	}
	return TableDef{FQN: table, Columns: defs}, nil
}

// mapType normalizes an inferred logical type into a target SQL type for the
// given dialect. The mapping is case-insensitive and intentionally
// conservative: anything unrecognized lands as the dialect's text type, so a
// bad guess degrades to a lossless load rather than a failed one.
func mapType(kind string, d Dialect) string {
	switch strings.ToLower(kind) {
	case "int", "integer", "bigint":
		switch d {
		case DialectSQLite:
			return "INTEGER"
		default:
			return "BIGINT"
		}
	case "bool", "boolean":
		switch d {
		case DialectSQLite:
			// SQLite has no native boolean; integers 0/1 are idiomatic.
			return "INTEGER"
		case DialectMSSQL:
			return "BIT"
		default:
			return "BOOLEAN"
		}
	case "real", "float", "double":
		switch d {
		case DialectSQLite:
			return "REAL"
		case DialectMSSQL:
			return "FLOAT"
		default:
			return "DOUBLE PRECISION"
		}
	case "date":
		switch d {
		case DialectSQLite:
			// Stored as ISO-8601 text per SQLite convention.
			return "TEXT"
		default:
			return "DATE"
		}
	default:
		switch d {
		case DialectMSSQL:
			return "NVARCHAR(MAX)"
		default:
			return "TEXT"
		}
	}
}

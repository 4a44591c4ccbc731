// Package ddl models landing-table definitions and renders CREATE TABLE
// statements for the storage backends. Rendering is dialect-aware: identifiers
// are quoted in the dialect's style and the IF NOT EXISTS guard is emitted
// only where the dialect supports it. Column defaults are emitted as raw SQL
// expressions; the caller owns their correctness.
package ddl

import (
	"fmt"
	"strings"
)

// BuildCreateTableSQL renders a CREATE TABLE statement for the dialect.
//
// Postgres and SQLite get an IF NOT EXISTS guard so re-running a load with
// -create is idempotent. SQL Server has no such clause, so there the
// statement is a plain CREATE TABLE and fails if the table already exists.
//
// A column renders as:
//
//	<name> <SQLType> [NOT NULL] [DEFAULT <expr>]
//
// Columns marked PrimaryKey are gathered into a trailing PRIMARY KEY clause.
func BuildCreateTableSQL(t TableDef, d Dialect) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(d.quoteIdent(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.quoteIdent(name))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	return fmt.Sprintf(
		"%s %s (\n  %s\n);",
		d.createClause(),
		d.quoteFQN(fqn),
		strings.Join(cols, ",\n  "),
	), nil
}

func (d Dialect) createClause() string {
	if d == DialectMSSQL {
		return "CREATE TABLE"
	}
	return "CREATE TABLE IF NOT EXISTS"
}

// quoteIdent quotes a single identifier: [brackets] for SQL Server, standard
// double quotes everywhere else, escaping the closing character.
func (d Dialect) quoteIdent(id string) string {
	if d == DialectMSSQL {
		return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
	}
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// quoteFQN quotes each dotted segment of a possibly schema-qualified name,
// e.g. raw.loans becomes "raw"."loans".
func (d Dialect) quoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	for i, p := range parts {
		parts[i] = d.quoteIdent(p)
	}
	return strings.Join(parts, ".")
}

// Package profile scans a tabular source file and produces the transient
// DatasetProfile the integration engine works from: the ordered raw header,
// a bounded row sample, and the data row count.
//
// The scan is best-effort in the same way the CSV sampler used for config
// generation is: malformed or misaligned rows are skipped rather than
// failing the whole read, so one bad line cannot block integration of an
// otherwise healthy file.
package profile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"bankdwh/internal/classify"
)

// DefaultSampleRows bounds how many data rows are kept in the sample used
// for date-format validation and type inference.
const DefaultSampleRows = 200

// Profile describes one scanned source file. It is created per invocation
// and discarded after use; nothing here is persisted.
type Profile struct {
	// Path is the scanned file path, kept for error reporting.
	Path string
	// Columns is the ordered raw header, exactly as it appears in the file
	// (BOM stripped from the first cell).
	Columns []string
	// Sample holds up to DefaultSampleRows well-formed data rows.
	Sample [][]string
	// Rows is the count of well-formed data rows in the whole file.
	Rows int64
}

// Column returns the sampled values of column i, trimmed, with empties
// dropped. Returns nil when i is out of range.
func (p *Profile) Column(i int) []string {
	if i < 0 || i >= len(p.Columns) {
		return nil
	}
	out := make([]string, 0, len(p.Sample))
	for _, row := range p.Sample {
		if i >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[i])
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ColumnIndex returns the position of the raw column name, or -1.
func (p *Profile) ColumnIndex(name string) int {
	for i, c := range p.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Scan reads the file at path and builds its Profile. The header row is
// required; rows whose field count differs from the header are skipped but
// still excluded from the row count. The context is checked before the file
// is opened so callers can abort cheaply.
func Scan(ctx context.Context, path string, sampleRows int) (*Profile, error) {
	if sampleRows <= 0 {
		sampleRows = DefaultSampleRows
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1 // width is enforced below, against the header

	// Header: skip malformed/empty lines until a usable one or EOF. A file
	// with no header at all is unclassifiable, so the error carries the
	// classification taxonomy rather than a plain scan failure.
	var header []string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil, &classify.ClassificationError{Path: path, Reason: "empty file, no header row"}
		}
		if err != nil || len(rec) == 0 {
			continue
		}
		header = stripUTF8BOM(rec)
		break
	}

	p := &Profile{Path: path, Columns: header}
	want := len(header)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(rec) == 0 {
			continue // skip malformed/empty line
		}
		if len(rec) != want {
			continue // skip misaligned row to keep inference accurate
		}
		p.Rows++
		if len(p.Sample) < sampleRows {
			p.Sample = append(p.Sample, rec)
		}
	}
	return p, nil
}

// stripUTF8BOM removes a UTF-8 BOM from the first header field if present.
func stripUTF8BOM(header []string) []string {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
	return header
}

// NormalizeFieldName converts arbitrary header text into a lowercase ASCII
// identifier suitable for SQL schemas:
//  1. lowercase
//  2. strip accents (NFD, drop nonspacing marks, NFC)
//  3. keep [a-z0-9_]; convert space/dash/dot to underscore; drop the rest
//  4. fall back to "col" if nothing survives
func NormalizeFieldName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		default:
			// drop anything else
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "col"
	}
	return name
}

// TableName derives the warehouse table base name from a file path: the file
// stem, normalized the same way column names are.
func TableName(path string) string {
	stem := filepath.Base(path)
	stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	return NormalizeFieldName(stem)
}

// NormalizedColumns returns the header with every name normalized, aligned
// with p.Columns.
func (p *Profile) NormalizedColumns() []string {
	out := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		out[i] = NormalizeFieldName(c)
	}
	return out
}

// InferTypes returns one inferred SQL-ish type per column, based on the row
// sample: one of integer, real, boolean, date, text. The raw loader uses
// these to build CREATE TABLE statements for raw landing tables.
func (p *Profile) InferTypes() []string {
	types := make([]string, len(p.Columns))
	for i := range p.Columns {
		types[i] = inferTypeForColumn(p.Column(i))
	}
	return types
}

// inferTypeForColumn guesses a type by requiring all non-empty values to
// satisfy the narrower candidate before widening.
func inferTypeForColumn(values []string) string {
	if len(values) == 0 {
		return "text"
	}
	if allMatch(values, isInt) {
		return "integer"
	}
	if allMatch(values, isBool) {
		return "boolean"
	}
	if allMatch(values, isFloat) {
		return "real"
	}
	if allMatch(values, isDate) {
		return "date"
	}
	return "text"
}

func allMatch(vals []string, fn func(string) bool) bool {
	for _, v := range vals {
		if !fn(v) {
			return false
		}
	}
	return true
}

// isBool accepts common textual booleans. 1/0 are deliberately not booleans
// here: loan-default style flag columns must stay integers.
func isBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false", "t", "f", "yes", "no", "y", "n":
		return true
	default:
		return false
	}
}

func isInt(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// isFloat accepts decimal or scientific notation; values that parse as int
// are not floats, keeping integer columns narrow.
func isFloat(s string) bool {
	if isInt(s) {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isDate(s string) bool {
	return FirstCleanLayout([]string{s}) != ""
}

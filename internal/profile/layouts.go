package profile

import (
	"time"

	"bankdwh/internal/dictionary"
)

// FirstCleanLayout returns the Go layout of the first candidate date format
// that parses every value in the slice, or "" when no candidate parses them
// all. An empty slice yields "" as well: with nothing sampled there is no
// evidence the column is a date, and an unverifiable mapping is worse than
// none.
func FirstCleanLayout(values []string) string {
	if len(values) == 0 {
		return ""
	}
	for _, layout := range dictionary.DateLayouts() {
		ok := true
		for _, v := range values {
			t, err := time.Parse(layout.Go, v)
			// Round-trip check: time.Parse is lenient about field widths
			// (it reads "15-03-19" under "2006-01-02" as year 15), so only
			// a value that formats back to itself counts as clean.
			if err != nil || t.Format(layout.Go) != v {
				ok = false
				break
			}
		}
		if ok {
			return layout.Go
		}
	}
	return ""
}

// Package classify decides which known dataset family a scanned file belongs
// to, based on the signatures in the canonical dictionary.
//
// A signature matches when every one of its required raw column names is
// present in the header (case-sensitive, exact). When several signatures
// match, the one requiring more columns is more specific and wins. A header
// matching nothing is classified as generic; that is a normal outcome, not
// an error.
package classify

import (
	"errors"
	"fmt"
	"strings"

	"bankdwh/internal/dictionary"
)

// TypeGeneric is the fallback dataset type for headers matching no known
// signature.
const TypeGeneric = "generic"

// ErrAmbiguousType marks an equal-specificity collision: two distinct known
// signatures with the same required-column count both match the header. The
// tie-break is deliberately left unresolved; callers must surface it rather
// than pick a winner.
var ErrAmbiguousType = errors.New("ambiguous dataset type")

// ClassificationError is returned when a header cannot be classified at all:
// it is empty, unreadable, or ambiguous between known signatures. It always
// carries the offending file path.
type ClassificationError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classify %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("classify %s: %s", e.Path, e.Reason)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// Result is a classification outcome: the decided type and, for known
// families, the signature that matched.
type Result struct {
	Type      string
	Signature dictionary.Signature // zero value for generic
}

// Classify inspects the ordered raw header and decides the dataset type.
// path is used only for error reporting.
func Classify(path string, header []string) (Result, error) {
	if len(header) == 0 {
		return Result{}, &ClassificationError{Path: path, Reason: "empty header, nothing to classify"}
	}
	present := make(map[string]struct{}, len(header))
	for _, c := range header {
		if strings.TrimSpace(c) != "" {
			present[c] = struct{}{}
		}
	}
	if len(present) == 0 {
		return Result{}, &ClassificationError{Path: path, Reason: "header contains only blank column names"}
	}

	var (
		best      dictionary.Signature
		bestSize  int
		collision string
	)
	for _, sig := range dictionary.Signatures() {
		if !matches(sig, present) {
			continue
		}
		switch {
		case len(sig.Required) > bestSize:
			best, bestSize, collision = sig, len(sig.Required), ""
		case len(sig.Required) == bestSize && bestSize > 0:
			collision = sig.Type
		}
	}
	if collision != "" {
		return Result{}, &ClassificationError{
			Path:   path,
			Reason: fmt.Sprintf("header satisfies both %q and %q with equal specificity", best.Type, collision),
			Err:    ErrAmbiguousType,
		}
	}
	if bestSize == 0 {
		return Result{Type: TypeGeneric}, nil
	}
	return Result{Type: best.Type, Signature: best}, nil
}

func matches(sig dictionary.Signature, present map[string]struct{}) bool {
	for _, col := range sig.Required {
		if _, ok := present[col]; !ok {
			return false
		}
	}
	return true
}

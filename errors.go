package snapcdc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mickamy/snapcdc/internal/classify"
)

var (
	// ErrNotFound reports an unknown table or snapshot id.
	ErrNotFound = errors.New("snapcdc: not found")
	// ErrInvalidArgument reports an unsupported export format, unknown key
	// columns or a malformed change set.
	ErrInvalidArgument = errors.New("snapcdc: invalid argument")
	// ErrAmbiguousClassification reports key columns that do not identify
	// rows uniquely. It is only returned when Config.StrictKeys is set.
	ErrAmbiguousClassification = errors.New("snapcdc: ambiguous classification")
)

// AmbiguousKeyError lists the keys that matched more than one row on either
// side of a diff.
type AmbiguousKeyError struct {
	Table string
	Keys  []classify.Ambiguity
}

func (e *AmbiguousKeyError) Error() string {
	parts := make([]string, 0, len(e.Keys))
	for _, k := range e.Keys {
		parts = append(parts, fmt.Sprintf("%v (added=%d removed=%d)", k.Key, k.Added, k.Removed))
	}
	return fmt.Sprintf("snapcdc: %s: %d duplicate keys: %s", e.Table, len(e.Keys), strings.Join(parts, ", "))
}

func (e *AmbiguousKeyError) Unwrap() error {
	return ErrAmbiguousClassification
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

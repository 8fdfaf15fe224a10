package extract

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned before any strategy runs.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrExtractionFailed means no strategy produced usable text.
	ErrExtractionFailed = errors.New("extraction failed")
)

// Error describes a failed extraction. errors.Is matches both Kind and Err.
type Error struct {
	Strategy  Strategy
	Attempted []Provenance
	Kind      error // ErrUnsupportedFormat | ErrExtractionFailed
	Err       error // last underlying cause, may be nil
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v (strategy=%s", e.Kind, e.Strategy)
	if len(e.Attempted) > 0 {
		parts := make([]string, len(e.Attempted))
		for i, p := range e.Attempted {
			parts[i] = string(p)
		}
		fmt.Fprintf(&b, ", attempted=%s", strings.Join(parts, ","))
	}
	b.WriteString(")")
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

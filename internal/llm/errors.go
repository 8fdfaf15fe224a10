package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrAIRequestFailed covers network errors, non-2xx statuses and SDK failures.
	ErrAIRequestFailed = errors.New("ai request failed")
	// ErrInvalidAIResponse means the model answered but not with a usable report.
	ErrInvalidAIResponse = errors.New("invalid ai response")
)

// Error records the failing step of a summarization.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// RequestFailed wraps a provider or transport error as ErrAIRequestFailed.
func RequestFailed(op string, err error) error {
	return &Error{Op: op, Err: fmt.Errorf("%w: %w", ErrAIRequestFailed, err)}
}

// InvalidResponse builds an ErrInvalidAIResponse error.
func InvalidResponse(op string, format string, args ...any) error {
	return &Error{Op: op, Err: fmt.Errorf("%w: %s", ErrInvalidAIResponse, fmt.Sprintf(format, args...))}
}

// Package batcherr defines the failures that abort a load batch.
//
// A batch either loads completely or stops at the first error of these kinds. Unresolved
// fact-to-dimension references are deliberately absent: they surface as null foreign keys.
package batcherr

import (
	"errors"
	"fmt"
)

// Application error types reported to Temporal for the errors below.
const (
	TypeMalformedInput     = "MalformedInput"
	TypeIntegrityViolation = "IntegrityViolation"
)

// MalformedInputError reports staging input that does not have the expected shape or types.
type MalformedInputError struct {
	Line   int // 1-based data line, 0 when the problem is in the header
	Column string
	Value  string
	Reason string
}

func (e *MalformedInputError) Error() string {
	switch {
	case e.Line == 0 && e.Column == "":
		return fmt.Sprintf("malformed input: %s", e.Reason)
	case e.Line == 0:
		return fmt.Sprintf("malformed input: column %s: %s", e.Column, e.Reason)
	default:
		return fmt.Sprintf("malformed input: line %d, column %s, value %q: %s", e.Line, e.Column, e.Value, e.Reason)
	}
}

// IntegrityViolationError reports dimension state that breaks the SCD2 invariants, e.g. two
// current versions for one natural key. It is never resolved by picking one of the rows.
type IntegrityViolationError struct {
	Dimension   string
	NaturalKey  string
	CurrentRows int
	Reason      string
}

func (e *IntegrityViolationError) Error() string {
	return fmt.Sprintf("integrity violation in %s for natural key %q (current rows: %d): %s",
		e.Dimension, e.NaturalKey, e.CurrentRows, e.Reason)
}

// IsMalformedInput reports whether err wraps a MalformedInputError.
func IsMalformedInput(err error) bool {
	var target *MalformedInputError
	return errors.As(err, &target)
}

// IsIntegrityViolation reports whether err wraps an IntegrityViolationError.
func IsIntegrityViolation(err error) bool {
	var target *IntegrityViolationError
	return errors.As(err, &target)
}

// IsFatal reports whether retrying the failed step cannot help.
func IsFatal(err error) bool {
	return IsMalformedInput(err) || IsIntegrityViolation(err)
}

// Type returns the application error type for a fatal error and "" otherwise.
func Type(err error) string {
	switch {
	case IsMalformedInput(err):
		return TypeMalformedInput
	case IsIntegrityViolation(err):
		return TypeIntegrityViolation
	default:
		return ""
	}
}

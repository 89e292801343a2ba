package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrStorage     = errors.New("storage failure")
	ErrRecognition = errors.New("recognition failed")
	ErrAnalysis    = errors.New("analysis failed")
)

// ValidationError describes rejected input. Index is the offending line item,
// or -1 when the error is not about a line item.
type ValidationError struct {
	Field  string
	Index  int
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Index: -1, Reason: reason}
}

func NewItemValidationError(index int, field, reason string) *ValidationError {
	return &ValidationError{Field: field, Index: index, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("item %d: %s: %s", e.Index+1, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFound wraps ErrNotFound with the kind and id of the missing record.
func NotFound(kind, id string) error {
	return errors.Wrapf(ErrNotFound, "%s %q", kind, id)
}

// GatewayError is a failure of an external recognition or analysis call.
// Kind is ErrRecognition or ErrAnalysis; Err is the underlying cause, if any.
type GatewayError struct {
	Kind   error
	Reason string
	Err    error
}

func NewRecognitionError(reason string, err error) *GatewayError {
	return &GatewayError{Kind: ErrRecognition, Reason: reason, Err: err}
}

func NewAnalysisError(reason string, err error) *GatewayError {
	return &GatewayError{Kind: ErrAnalysis, Reason: reason, Err: err}
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *GatewayError) Is(target error) bool {
	return target == e.Kind
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

package repertoire

import (
	"errors"
	"fmt"
)

const (
	kindSong      = "Song"
	kindRehearsal = "Rehearsal"
)

var (
	// ErrNotFound matches every NotFoundError.
	ErrNotFound = errors.New("repertoire: not found")
	// ErrConstraintViolation matches every ConstraintError.
	ErrConstraintViolation = errors.New("repertoire: constraint violation")
	// ErrValidation matches every ValidationError.
	ErrValidation = errors.New("repertoire: validation failed")
)

// NotFoundError reports a missing entity by kind and identifier.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found with id: %d", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func songNotFound(id int64) error {
	return &NotFoundError{Kind: kindSong, ID: id}
}

func rehearsalNotFound(id int64) error {
	return &NotFoundError{Kind: kindRehearsal, ID: id}
}

// ConstraintError reports a rejected uniqueness or referential rule.
type ConstraintError struct {
	Constraint string
	Message    string
	err        error
}

func (e *ConstraintError) Error() string {
	return e.Message
}

func (e *ConstraintError) Is(target error) bool {
	return target == ErrConstraintViolation
}

func (e *ConstraintError) Unwrap() error {
	return e.err
}

// ValidationError reports a field that failed a service-side input check.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ServiceError wraps infrastructure failures with a dotted operation code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// isDomainError reports whether err already carries a client-facing classification.
func isDomainError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrConstraintViolation) || errors.Is(err, ErrValidation)
}

package core

import (
	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// ConflictError reports a uniqueness violation or a state that forbids the operation.
type ConflictError struct {
	Err   error
	Field string
}

func NewConflictError(err error, field ...string) error {
	var fld string
	if len(field) > 0 {
		fld = field[0]
	}
	return &ConflictError{Err: err, Field: fld}
}

func (err ConflictError) Error() string {
	return err.Err.Error()
}

// AuthError reports bad credentials.
type AuthError struct {
	Err error
}

func NewAuthError(err error) error {
	return &AuthError{err}
}

func (err AuthError) Error() string {
	return err.Err.Error()
}

// PersistenceError wraps a storage-layer failure.
// Its message is meant for logs only, callers get a generic notice.
type PersistenceError struct {
	Op  string
	Err error
}

func NewPersistenceError(err error, op string) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

func (err PersistenceError) Error() string {
	return err.Op + ": " + err.Err.Error()
}

func (err PersistenceError) Unwrap() error {
	return err.Err
}

func IsValidation(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*ConflictError)
	return ok
}

func IsAuth(err error) bool {
	_, ok := errors.Cause(err).(*AuthError)
	return ok
}

func IsPersistence(err error) bool {
	_, ok := errors.Cause(err).(*PersistenceError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

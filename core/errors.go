package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

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

// ErrorKind classifies business-rule violations so transports can map them to a status.
type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindConflict
	KindForbidden
)

// DomainError is a business-rule violation raised by a core service.
type DomainError struct {
	Kind    ErrorKind
	Message string
}

func (e *DomainError) Error() string { return e.Message }

func NewNotFoundError(msg string) error  { return &DomainError{Kind: KindNotFound, Message: msg} }
func NewConflictError(msg string) error  { return &DomainError{Kind: KindConflict, Message: msg} }
func NewForbiddenError(msg string) error { return &DomainError{Kind: KindForbidden, Message: msg} }

// IsNotFound reports whether the cause of err is a KindNotFound DomainError.
func IsNotFound(err error) bool {
	de, ok := errors.Cause(err).(*DomainError)
	return ok && de.Kind == KindNotFound
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

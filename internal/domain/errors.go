// Package domain defines core types, interfaces, and errors for the
// permissions manager.
package domain

import (
	"errors"
	"fmt"
)

// NotFoundError indicates a referenced entity id does not resolve.
type NotFoundError struct {
	Code    string
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// UnauthorizedError indicates the caller lacks any qualifying role at all
// (or is unauthenticated). It is observably distinct from ForbiddenError.
type UnauthorizedError struct {
	Code    string
	Message string
}

func (e *UnauthorizedError) Error() string { return e.Message }

// ForbiddenError indicates an authenticated caller holds some relevant role
// set but not the specific one required for the attempted action.
type ForbiddenError struct {
	Code    string
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// CompileError indicates the grant compiler encountered a malformed template
// or a missing required substitution field.
type CompileError struct {
	Field   string
	Message string
}

func (e *CompileError) Error() string { return e.Message }

// CascadeIntegrityError indicates a topic or application was observed with a
// visibility that violates the group-visibility invariant after a cascade.
// This state must never be reachable; raising it indicates a bug.
type CascadeIntegrityError struct {
	Message string
}

func (e *CascadeIntegrityError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a machine code and formatted message.
func ErrNotFound(code, format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrUnauthorized creates an UnauthorizedError with the generic code.
func ErrUnauthorized(format string, args ...interface{}) *UnauthorizedError {
	return &UnauthorizedError{Code: CodeUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// ErrForbidden creates a ForbiddenError with the generic code.
func ErrForbidden(format string, args ...interface{}) *ForbiddenError {
	return &ForbiddenError{Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a machine code and formatted message.
func ErrValidation(code, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a machine code and formatted message.
func ErrConflict(code, format string, args ...interface{}) *ConflictError {
	return &ConflictError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrCompile creates a CompileError naming the offending field.
func ErrCompile(field, format string, args ...interface{}) *CompileError {
	return &CompileError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ErrCascadeIntegrity creates a CascadeIntegrityError.
func ErrCascadeIntegrity(format string, args ...interface{}) *CascadeIntegrityError {
	return &CascadeIntegrityError{Message: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

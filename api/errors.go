// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error taxonomy shared by the synchronization core.

package api

import (
	"errors"
	"fmt"
)

// Sentinel errors. Components wrap them with context; callers match with errors.Is.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrBusy              = errors.New("resource busy")
	ErrPermission        = errors.New("operation not permitted")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrClosed            = errors.New("already closed")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeBusy
	ErrCodePermission
	ErrCodeResourceExhausted
	ErrCodeClosed
	ErrCodeInternal
)

var codeNames = map[ErrorCode]string{
	ErrCodeOK:                "ok",
	ErrCodeInvalidArgument:   "invalid_argument",
	ErrCodeBusy:              "busy",
	ErrCodePermission:        "permission",
	ErrCodeResourceExhausted: "resource_exhausted",
	ErrCodeClosed:            "closed",
	ErrCodeInternal:          "internal",
}

func (c ErrorCode) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap maps the code back onto its sentinel so errors.Is keeps working.
func (e *Error) Unwrap() error {
	switch e.Code {
	case ErrCodeInvalidArgument:
		return ErrInvalidArgument
	case ErrCodeBusy:
		return ErrBusy
	case ErrCodePermission:
		return ErrPermission
	case ErrCodeResourceExhausted:
		return ErrResourceExhausted
	case ErrCodeClosed:
		return ErrClosed
	}
	return nil
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf classifies err against the sentinel taxonomy.
func CodeOf(err error) ErrorCode {
	var apiErr *Error
	switch {
	case err == nil:
		return ErrCodeOK
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.Is(err, ErrInvalidArgument):
		return ErrCodeInvalidArgument
	case errors.Is(err, ErrBusy):
		return ErrCodeBusy
	case errors.Is(err, ErrPermission):
		return ErrCodePermission
	case errors.Is(err, ErrResourceExhausted):
		return ErrCodeResourceExhausted
	case errors.Is(err, ErrClosed):
		return ErrCodeClosed
	}
	return ErrCodeInternal
}

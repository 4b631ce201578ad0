// Package pserrors carries the fixed application error-code table through
// the call stack as a typed error, distinct from a transport-level
// failure.
package pserrors

import (
	"fmt"

	"github.com/cuemby/chubaodb-go/pkg/types"
)

// Error pairs one of the fixed codes with a message. It implements the
// standard error interface so it can flow through normal Go error handling,
// but callers that need to translate it into a wire response (GeneralResponse
// or an HTTP status) can type-assert for it.
type Error struct {
	Code    types.Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New builds an *Error for the given code.
func New(code types.Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the Code from err, defaulting to InternalErr for any error
// that isn't a *Error.
func CodeOf(err error) types.Code {
	if err == nil {
		return types.Success
	}
	if pe, ok := err.(*Error); ok {
		return pe.Code
	}
	return types.InternalErr
}

// MessageOf returns the human-readable message for err.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	if pe, ok := err.(*Error); ok {
		return pe.Message
	}
	return err.Error()
}

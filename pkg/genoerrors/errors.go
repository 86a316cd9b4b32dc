// Package genoerrors provides structured error handling for genoconv with
// error categorization, key-value context, and stack capture.
//
// Every failure the converter can produce maps to one ErrorType, so callers
// can branch on the category of a failure without string matching:
//
//	if genoerrors.IsType(err, genoerrors.ErrorTypeWrite) {
//	    // destination must be treated as invalid
//	}
//
// Errors wrap their cause and are compatible with errors.Is / errors.As.
package genoerrors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType categorizes a converter failure.
type ErrorType string

const (
	// ErrorTypeConfig represents invalid configuration or dimensions,
	// raised before any I/O is attempted.
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeResource represents resource detection failures.
	ErrorTypeResource ErrorType = "resource"
	// ErrorTypeChunk represents a degenerate chunk plan.
	ErrorTypeChunk ErrorType = "chunk"
	// ErrorTypeWrite represents an I/O failure during a chunk read or
	// write. The destination must be considered invalid afterwards.
	ErrorTypeWrite ErrorType = "write"
	// ErrorTypeVerification represents a failed structural check on a
	// completed store.
	ErrorTypeVerification ErrorType = "verification"
	// ErrorTypeFile represents file discovery or open failures.
	ErrorTypeFile ErrorType = "file"
	// ErrorTypeData represents malformed input data.
	ErrorTypeData ErrorType = "data"
	// ErrorTypeInternal represents unexpected internal failures.
	ErrorTypeInternal ErrorType = "internal"
)

// Error is a categorized error with key-value details and the call stack
// captured at the creation point.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame is a single frame of the captured call stack.
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a key-value detail and returns the error for chaining.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates an error of the given type, capturing the call stack.
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates an error with a formatted message.
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps err with a category and message, preserving err as the cause.
// If err is already a structured Error its stack is kept. Returns nil for
// a nil err.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	var existing *Error
	if errors.As(err, &existing) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existing.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType reports whether err is a structured Error of the given type.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}

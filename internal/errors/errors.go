// Package errors defines the coded error type shared by every adcrew
// component. Codes classify failures so the CLI boundary and the pipeline
// policy can decide what to do with them without string matching.
package errors

import (
	stdErrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Code identifies a class of failure.
type Code string

const (
	CodeUnexpected     Code = "UNEXPECTED"
	CodeConfiguration  Code = "CONFIGURATION"
	CodeDefinition     Code = "DEFINITION"
	CodeToolInvocation Code = "TOOL_INVOCATION"
	CodeGeneration     Code = "GENERATION"
	CodeHumanInput     Code = "HUMAN_INPUT"
	CodeCancelled      Code = "CANCELLED"
	CodePipeline       Code = "PIPELINE"
)

var defaultMessages = map[Code]string{
	CodeUnexpected:     "unexpected error",
	CodeConfiguration:  "invalid configuration",
	CodeDefinition:     "invalid pipeline definition",
	CodeToolInvocation: "tool invocation failed",
	CodeGeneration:     "generation backend failed",
	CodeHumanInput:     "human input rejected",
	CodeCancelled:      "operation cancelled",
	CodePipeline:       "pipeline aborted",
}

var retryableCodes = map[Code]bool{
	CodeToolInvocation: true,
	CodeGeneration:     true,
}

// Sentinels for errors.Is; matching is by code only.
var (
	ErrConfiguration  = New(CodeConfiguration, "")
	ErrDefinition     = New(CodeDefinition, "")
	ErrToolInvocation = New(CodeToolInvocation, "")
	ErrGeneration     = New(CodeGeneration, "")
	ErrHumanInput     = New(CodeHumanInput, "")
	ErrCancelled      = New(CodeCancelled, "")
	ErrPipeline       = New(CodePipeline, "")
)

// Error is the unified error type.
type Error struct {
	code      Code
	message   string
	cause     error
	metadata  map[string]string
	retryable *bool
}

// Option customises an Error at construction.
type Option func(*Error)

// WithMetadata attaches a key/value pair.
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// WithRetryable overrides the code's default retry classification.
func WithRetryable(retryable bool) Option {
	return func(e *Error) {
		e.retryable = &retryable
	}
}

// New creates an Error. An empty message falls back to the code default.
func New(code Code, message string, opts ...Option) *Error {
	if message == "" {
		message = defaultMessages[code]
	}
	if message == "" {
		message = defaultMessages[CodeUnexpected]
	}
	e := &Error{code: code, message: message}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates an Error around cause.
func Wrap(code Code, cause error, message string, opts ...Option) *Error {
	e := New(code, message, opts...)
	e.cause = cause
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.code, e.message)
	if len(e.metadata) > 0 {
		keys := make([]string, 0, len(e.metadata))
		for k := range e.metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%s", k, e.metadata[k])
		}
		b.WriteString(")")
	}
	if e.cause != nil {
		fmt.Fprintf(&b, ": %v", e.cause)
	}
	return b.String()
}

// Unwrap implements errors.Unwrap.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.code == t.code
}

// Code returns the error code.
func (e *Error) Code() Code {
	if e == nil {
		return CodeUnexpected
	}
	return e.code
}

// Message returns the message without code, metadata or cause.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Metadata returns a copy of the attached metadata.
func (e *Error) Metadata() map[string]string {
	if e == nil || len(e.metadata) == 0 {
		return nil
	}
	clone := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		clone[k] = v
	}
	return clone
}

// Retryable reports whether the operation may be retried.
func (e *Error) Retryable() bool {
	if e == nil {
		return false
	}
	if e.retryable != nil {
		return *e.retryable
	}
	return retryableCodes[e.code]
}

// From extracts the outermost *Error from err's chain.
func From(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var target *Error
	if stdErrors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost *Error in err's chain.
func CodeOf(err error) Code {
	if e, ok := From(err); ok {
		return e.Code()
	}
	return CodeUnexpected
}

// IsRetryable reports whether err is a retryable *Error.
func IsRetryable(err error) bool {
	if e, ok := From(err); ok {
		return e.Retryable()
	}
	return false
}

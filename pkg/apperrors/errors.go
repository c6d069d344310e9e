// Package apperrors defines the sentinel errors and error-kind
// classification shared across the investigation pipeline, so the HTTP
// surface and scheduler can map any error back to a status code or
// recovery action without each package inventing its own taxonomy.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error semantically, independent of where it occurred.
type Kind string

const (
	KindTransient          Kind = "Transient"           // LLM/MCP network hiccup, retryable
	KindToolNotFound       Kind = "ToolNotFound"        // agent emitted an unknown tool name
	KindToolExecutionError Kind = "ToolExecutionError"  // tool invocation failed
	KindAgentTimeout       Kind = "AgentTimeout"        // wall-clock deadline exceeded
	KindAgentEmpty         Kind = "AgentEmpty"          // final message had no content
	KindConfigError        Kind = "ConfigError"         // YAML or env validation failed
	KindNotFound           Kind = "NotFound"            // incident id unknown
	KindValidationError    Kind = "ValidationError"     // bad request body or id
	KindServiceUnavailable Kind = "ServiceUnavailable"  // registry or LLM not ready
	KindInternal           Kind = "Internal"            // anything uncategorized
)

var (
	ErrTransient           = errors.New("transient error")
	ErrToolNotFound        = errors.New("tool not found")
	ErrToolExecutionError  = errors.New("tool execution error")
	ErrAgentTimeout        = errors.New("investigation timeout")
	ErrAgentEmpty          = errors.New("no response from agent")
	ErrConfigError         = errors.New("configuration error")
	ErrNotFound            = errors.New("incident not found")
	ErrValidationError     = errors.New("validation error")
	ErrServiceUnavailable  = errors.New("service unavailable")

	// ErrIllegalTransition indicates a requested incident status change is
	// not permitted from its current status.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrMaxIterationsExceeded indicates the agent graph reached its
	// iteration cap without producing a final answer.
	ErrMaxIterationsExceeded = errors.New("max iterations exceeded")
)

// Error wraps a sentinel with a Kind and contextual message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a Kind and message.
func New(kind Kind, msg string, err error) *Error {
	if err == nil {
		err = errors.New(msg)
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func NotFound(msg string) *Error {
	return New(KindNotFound, msg, ErrNotFound)
}

func ValidationError(msg string, cause error) *Error {
	if cause == nil {
		cause = ErrValidationError
	}
	return New(KindValidationError, msg, cause)
}

func ServiceUnavailable(msg string, cause error) *Error {
	if cause == nil {
		cause = ErrServiceUnavailable
	}
	return New(KindServiceUnavailable, msg, cause)
}

func Conflict(msg string) *Error {
	return New(KindValidationError, msg, ErrIllegalTransition)
}

// ClassifyKind inspects err and returns its Kind, defaulting to KindInternal
// when err is not an *Error and does not match a known sentinel.
func ClassifyKind(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidationError), errors.Is(err, ErrIllegalTransition):
		return KindValidationError
	case errors.Is(err, ErrServiceUnavailable):
		return KindServiceUnavailable
	case errors.Is(err, ErrTransient):
		return KindTransient
	case errors.Is(err, ErrToolNotFound):
		return KindToolNotFound
	case errors.Is(err, ErrToolExecutionError):
		return KindToolExecutionError
	case errors.Is(err, ErrAgentTimeout):
		return KindAgentTimeout
	case errors.Is(err, ErrAgentEmpty):
		return KindAgentEmpty
	case errors.Is(err, ErrConfigError):
		return KindConfigError
	default:
		return KindInternal
	}
}

// IsRetryable reports whether err's Kind should be retried by the Retry
// Runner. Only Transient errors are retryable; everything else surfaces
// immediately.
func IsRetryable(err error) bool {
	return ClassifyKind(err) == KindTransient
}

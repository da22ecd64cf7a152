package jobs

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned by handlers that observe the cancel flag between
// tool invocations. The worker leaves the job in its cancelled state.
var ErrCancelled = errors.New("job cancelled")

// Kind classifies a handler failure for retry policy.
type Kind int

const (
	// KindValidation: bad job input. Terminal, not retried.
	KindValidation Kind = iota
	// KindNotFound: missing entity or bytes on disk. Terminal, not retried.
	KindNotFound
	// KindTransientIO: network or store contention. Retried.
	KindTransientIO
	// KindToolFailure: external tool exited non-zero. Retried, stderr recorded.
	KindToolFailure
	// KindTimeout: tool adapter deadline hit. Retried.
	KindTimeout
	// KindFatal: unknown job type or programmer error. Terminal, not retried.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindTransientIO:
		return "transient_io"
	case KindToolFailure:
		return "tool_failure"
	case KindTimeout:
		return "timeout"
	case KindFatal:
		return "fatal"
	}
	return "unknown"
}

// Error is a tagged handler failure. The worker maps the Kind to retry
// policy; Stderr (when present) is folded into the recorded error message.
type Error struct {
	Kind   Kind
	Msg    string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += "\n" + e.Stderr
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure should consume retry budget and
// re-enter the queue rather than terminate the job.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTransientIO, KindToolFailure, KindTimeout:
		return true
	}
	return false
}

// Validationf builds a terminal bad-input error.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a terminal missing-entity error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Transient wraps a retryable I/O failure.
func Transient(msg string, err error) *Error {
	return &Error{Kind: KindTransientIO, Msg: msg, Err: err}
}

// Tool wraps a non-zero tool exit, preserving captured stderr.
func Tool(msg, stderr string, err error) *Error {
	return &Error{Kind: KindToolFailure, Msg: msg, Stderr: stderr, Err: err}
}

// Timeout wraps an adapter deadline failure.
func Timeout(msg string, err error) *Error {
	return &Error{Kind: KindTimeout, Msg: msg, Err: err}
}

// Fatalf builds a terminal programmer-error failure.
func Fatalf(format string, args ...any) *Error {
	return &Error{Kind: KindFatal, Msg: fmt.Sprintf(format, args...)}
}

// retryable reports whether an arbitrary handler error should be retried.
// Untagged errors default to retryable: only failures explicitly marked
// terminal short-circuit the budget.
func retryable(err error) bool {
	var he *Error
	if errors.As(err, &he) {
		return he.Retryable()
	}
	return true
}

// Package errs defines the kernel error taxonomy.
//
// Every subsystem reports failures as *Error values carrying a Kind. Callers
// branch on the kind with errors.Is against the exported sentinels:
//
//	if errors.Is(err, errs.ErrPermissionDenied) {
//	    shell.Notify("Access denied", err.Error())
//	}
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthenticationRequired
	KindPermissionDenied
	KindNotFound
	KindValidation
	KindTransport
	KindTimeout
	KindBackendUnavailable
	KindInvariantViolation
	KindRemote
)

// String returns the taxonomy name of the kind
func (k Kind) String() string {
	switch k {
	case KindAuthenticationRequired:
		return "AuthenticationRequired"
	case KindPermissionDenied:
		return "PermissionDenied"
	case KindNotFound:
		return "NotFound"
	case KindValidation:
		return "ValidationError"
	case KindTransport:
		return "TransportError"
	case KindTimeout:
		return "TimeoutError"
	case KindBackendUnavailable:
		return "BackendUnavailable"
	case KindInvariantViolation:
		return "InvariantViolation"
	case KindRemote:
		return "RemoteError"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is matching. An *Error matches the sentinel of its kind.
var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrNotFound               = errors.New("not found")
	ErrValidation             = errors.New("validation error")
	ErrTransport              = errors.New("transport error")
	ErrTimeout                = errors.New("timeout")
	ErrBackendUnavailable     = errors.New("backend unavailable")
	ErrInvariantViolation     = errors.New("invariant violation")
	ErrRemote                 = errors.New("remote error")
)

var sentinels = map[Kind]error{
	KindAuthenticationRequired: ErrAuthenticationRequired,
	KindPermissionDenied:       ErrPermissionDenied,
	KindNotFound:               ErrNotFound,
	KindValidation:             ErrValidation,
	KindTransport:              ErrTransport,
	KindTimeout:                ErrTimeout,
	KindBackendUnavailable:     ErrBackendUnavailable,
	KindInvariantViolation:     ErrInvariantViolation,
	KindRemote:                 ErrRemote,
}

// Error is a classified kernel error
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "filesystem.writeFile"
	Message string // human readable, safe to show in a notification
	Err     error  // underlying cause, may be nil
}

// Error implements error
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// New creates a classified error
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Newf creates a classified error with a formatted message
func Newf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the kind of the first *Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the human readable message of err without the op prefix
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		if e.Err != nil {
			return e.Err.Error()
		}
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// Convenience constructors

func PermissionDenied(op, permission string) *Error {
	return Newf(KindPermissionDenied, op, "missing permission %q", permission)
}

func NotFound(op, what string) *Error {
	return Newf(KindNotFound, op, "%s not found", what)
}

func Validation(op, message string) *Error {
	return New(KindValidation, op, message)
}

func Invariant(op, message string) *Error {
	return New(KindInvariantViolation, op, message)
}

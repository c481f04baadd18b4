package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures.
type Kind string

const (
	KindDataNotFound      Kind = "data_not_found"
	KindMalformedReply    Kind = "malformed_reply"
	KindCompletionFailure Kind = "completion_failure"
	KindInvalidParameter  Kind = "invalid_parameter"
)

var (
	ErrDataNotFound      = errors.New("data not found")
	ErrMalformedReply    = errors.New("malformed reply")
	ErrCompletionFailure = errors.New("completion failure")
	ErrInvalidParameter  = errors.New("invalid parameter")
)

// Error carries a Kind plus the operation that raised it.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	return target == sentinel(e.Kind)
}

func sentinel(k Kind) error {
	switch k {
	case KindDataNotFound:
		return ErrDataNotFound
	case KindMalformedReply:
		return ErrMalformedReply
	case KindCompletionFailure:
		return ErrCompletionFailure
	case KindInvalidParameter:
		return ErrInvalidParameter
	default:
		return nil
	}
}

func DataNotFound(op, format string, a ...interface{}) *Error {
	return &Error{Kind: KindDataNotFound, Op: op, Msg: fmt.Sprintf(format, a...)}
}

func MalformedReply(op, format string, a ...interface{}) *Error {
	return &Error{Kind: KindMalformedReply, Op: op, Msg: fmt.Sprintf(format, a...)}
}

func CompletionFailure(op string, err error) *Error {
	return &Error{Kind: KindCompletionFailure, Op: op, Msg: "completion failed", Err: err}
}

func InvalidParameter(op, format string, a ...interface{}) *Error {
	return &Error{Kind: KindInvalidParameter, Op: op, Msg: fmt.Sprintf(format, a...)}
}

// KindOf returns the kind of err, or "" when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrDataNotFound):
		return KindDataNotFound
	case errors.Is(err, ErrMalformedReply):
		return KindMalformedReply
	case errors.Is(err, ErrCompletionFailure):
		return KindCompletionFailure
	case errors.Is(err, ErrInvalidParameter):
		return KindInvalidParameter
	}
	return ""
}

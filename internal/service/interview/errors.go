package interview

import "errors"

// Kind is the stable classification reported to API callers.
type Kind string

const (
	KindInvalidInput    Kind = "invalid_input"
	KindNotFound        Kind = "not_found"
	KindSessionClosed   Kind = "session_closed"
	KindUpstreamFailure Kind = "upstream_failure"
	KindInternal        Kind = "internal"
)

var (
	ErrInvalidInput    = &Error{Kind: KindInvalidInput}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrSessionClosed   = &Error{Kind: KindSessionClosed}
	ErrUpstreamFailure = &Error{Kind: KindUpstreamFailure}
	ErrInternal        = &Error{Kind: KindInternal}
)

// Error carries a Kind and a human readable detail.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

// NewError returns an Error without an underlying cause.
func NewError(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap attaches kind and detail to err.
func Wrap(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

func (e *Error) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the package sentinels by kind, so errors.Is(err, ErrNotFound)
// holds for every not-found error regardless of detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Detail == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf classifies err. Errors that did not come from this package are
// reported as internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// DetailOf returns the caller-facing message for err.
func DetailOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Detail != "" {
		return e.Detail
	}
	if KindOf(err) == KindInternal {
		return "internal error"
	}
	return err.Error()
}

// Package errs defines the failure kinds a pipeline run can end with.
//
// Every kind is terminal for the run that raised it; nothing in the core
// retries. Match with errors.Is against the Err* sentinels:
//
//	if errors.Is(err, errs.ErrCredentialExpired) { ... }
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindCredentialMissing Kind = "credential_missing"
	KindCredentialExpired Kind = "credential_expired"
	KindInvalidRange      Kind = "invalid_range"
	KindUnavailable       Kind = "upstream_unavailable"
	KindMalformed         Kind = "malformed_upstream_payload"
	KindBusy              Kind = "busy"
)

// Upstream sources named in Unavailable / Malformed errors.
const (
	SourceActivity   = "activity"
	SourceSummarizer = "summarizer"
	SourceCalendar   = "calendar"
	SourceTokens     = "tokens"
)

var (
	ErrCredentialMissing = &Error{Kind: KindCredentialMissing}
	ErrCredentialExpired = &Error{Kind: KindCredentialExpired}
	ErrInvalidRange      = &Error{Kind: KindInvalidRange}
	ErrUnavailable       = &Error{Kind: KindUnavailable}
	ErrMalformed         = &Error{Kind: KindMalformed}
	ErrBusy              = &Error{Kind: KindBusy}
)

// Error is a classified failure. Source names the upstream for
// Unavailable/Malformed; Status carries an HTTP status when one was seen.
type Error struct {
	Kind   Kind
	Source string
	Status int
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Source != "" {
		msg += "{" + e.Source + "}"
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so wrapped instances compare equal to the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Source == "" || t.Source == e.Source
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Unavailable reports a transport or status failure of source.
func Unavailable(source string, status int, err error) error {
	return &Error{Kind: KindUnavailable, Source: source, Status: status, Err: err}
}

// Malformed reports an undecodable upstream payload.
func Malformed(source string, err error) error {
	return &Error{Kind: KindMalformed, Source: source, Err: err}
}

// InvalidRange reports a window whose end is not after its start.
func InvalidRange(format string, args ...any) error {
	return &Error{Kind: KindInvalidRange, Err: fmt.Errorf(format, args...)}
}

// CredentialMissing wraps err as a missing-credential failure.
func CredentialMissing(err error) error {
	return &Error{Kind: KindCredentialMissing, Err: err}
}

// CredentialExpired reports a token past its expiry.
func CredentialExpired(format string, args ...any) error {
	return &Error{Kind: KindCredentialExpired, Err: fmt.Errorf(format, args...)}
}

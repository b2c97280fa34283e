package client

import "fmt"

// ErrorKind is the closed set of failure categories the SDK surfaces.
// Callers branch on the kind, never on error strings or raw HTTP codes.
type ErrorKind string

const (
	ErrInvalidInput         ErrorKind = "invalid_input"
	ErrInvalidCredentials   ErrorKind = "invalid_credentials"
	ErrNotRegistered        ErrorKind = "not_registered"
	ErrOnboardingIncomplete ErrorKind = "onboarding_incomplete"
	ErrInvalidCode          ErrorKind = "invalid_code"
	ErrRateLimited          ErrorKind = "rate_limited"
	ErrForbidden            ErrorKind = "forbidden"
	ErrNotFound             ErrorKind = "not_found"
	ErrConflict             ErrorKind = "conflict"
	ErrTransport            ErrorKind = "transport"
	ErrServer               ErrorKind = "server"
)

// Error is the SDK's error type. Transport is true only for failures where
// the request may never have reached the server, which is the sole category
// the retry helpers will re-attempt.
type Error struct {
	Kind    ErrorKind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or ErrServer when err is not an SDK error.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return ErrServer
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether err is worth retrying. Only transport failures
// qualify; a definitive server answer, success or rejection, is final.
func Retryable(err error) bool {
	return IsKind(err, ErrTransport)
}

func errf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// kindForCode maps the server's stable error codes onto SDK kinds.
func kindForCode(code string, status int) ErrorKind {
	switch code {
	case "INVALID_INPUT":
		return ErrInvalidInput
	case "INVALID_CODE":
		return ErrInvalidCode
	case "INVALID_CREDENTIALS", "INVALID_TOKEN":
		return ErrInvalidCredentials
	case "NOT_REGISTERED":
		return ErrNotRegistered
	case "ONBOARDING_INCOMPLETE":
		return ErrOnboardingIncomplete
	case "RATE_LIMIT_EXCEEDED":
		return ErrRateLimited
	case "FORBIDDEN":
		return ErrForbidden
	case "NOT_FOUND":
		return ErrNotFound
	case "CONFLICT":
		return ErrConflict
	}

	switch status {
	case 400:
		return ErrInvalidInput
	case 401:
		return ErrInvalidCredentials
	case 403:
		return ErrForbidden
	case 404:
		return ErrNotFound
	case 409:
		return ErrConflict
	case 429:
		return ErrRateLimited
	}
	return ErrServer
}

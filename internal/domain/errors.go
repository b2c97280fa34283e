package domain

import (
	"errors"
	"fmt"
)

// Kind is a closed taxonomy of failures surfaced by services. Handlers and
// the client SDK branch on kinds instead of probing error strings.
type Kind string

const (
	KindValidation           Kind = "validation"
	KindInvalidCredentials   Kind = "invalid_credentials"
	KindNotRegistered        Kind = "not_registered"
	KindOnboardingIncomplete Kind = "onboarding_incomplete"
	KindAlreadyExists        Kind = "already_exists"
	KindInvalidCode          Kind = "invalid_code"
	KindCooldownActive       Kind = "cooldown_active"
	KindNotFound             Kind = "not_found"
	KindForbidden            Kind = "forbidden"
	KindConflict             Kind = "conflict"
	KindTransport            Kind = "transport"
	KindUnknown              Kind = "unknown"
)

type Error struct {
	Kind    Kind
	Message string
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

func E(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

func Ef(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from an error chain; wrapped non-domain errors
// report KindUnknown.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

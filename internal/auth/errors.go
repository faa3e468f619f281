package auth

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures reported by the identity provider.
type ErrorKind int

const (
	KindUnexpected ErrorKind = iota
	KindAlreadyRegistered
	KindWeakPassword
	KindInvalidEmail
	KindInvalidCredentials
	KindEmailNotConfirmed
	KindRateLimited
	KindSessionMissing
	KindProvider
)

func (k ErrorKind) String() string {
	switch k {
	case KindAlreadyRegistered:
		return "already_registered"
	case KindWeakPassword:
		return "weak_password"
	case KindInvalidEmail:
		return "invalid_email"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindEmailNotConfirmed:
		return "email_not_confirmed"
	case KindRateLimited:
		return "rate_limited"
	case KindSessionMissing:
		return "session_missing"
	case KindProvider:
		return "provider"
	default:
		return "unexpected"
	}
}

// Operation names the identity action that failed. It selects the fallback
// message for unexpected failures.
type Operation string

const (
	OpSignUp             Operation = "sign_up"
	OpSignIn             Operation = "sign_in"
	OpSignOut            Operation = "sign_out"
	OpResetPassword      Operation = "reset_password"
	OpUpdatePassword     Operation = "update_password"
	OpResendConfirmation Operation = "resend_confirmation"
	OpAuthenticate       Operation = "authenticate"
	OpRefresh            Operation = "refresh_session"
)

// Error is returned by every Service operation.
type Error struct {
	Op   Operation
	Kind ErrorKind
	// Detail is the provider's own message, kept for logs and KindProvider.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return e.Message()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the user-facing text for the error.
func (e *Error) Message() string {
	switch e.Kind {
	case KindAlreadyRegistered:
		return "An account with this email already exists. Please sign in instead."
	case KindWeakPassword:
		return "Password does not meet requirements. Please use a stronger password."
	case KindInvalidEmail:
		return "Please enter a valid email address."
	case KindInvalidCredentials:
		return "Invalid email or password. Please check your credentials and try again."
	case KindEmailNotConfirmed:
		return "Please verify your email address before signing in. Check your inbox for the confirmation link."
	case KindRateLimited:
		return "Too many requests. Please wait a moment and try again."
	case KindSessionMissing:
		return "Your session has expired. Please sign in again."
	case KindProvider:
		if e.Detail != "" {
			return e.Detail
		}
		return fallbackMessage(e.Op)
	case KindUnexpected:
		return fallbackMessage(e.Op)
	}
	return fallbackMessage(e.Op)
}

func fallbackMessage(op Operation) string {
	switch op {
	case OpSignOut:
		return "Failed to sign out. Please try again."
	case OpResetPassword:
		return "Failed to send reset email. Please try again."
	case OpUpdatePassword:
		return "Failed to update password. Please try again."
	case OpResendConfirmation:
		return "Failed to resend confirmation email. Please try again."
	default:
		return "An unexpected error occurred. Please try again."
	}
}

// KindOf reports the ErrorKind carried by err, or KindUnexpected.
func KindOf(err error) ErrorKind {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return KindUnexpected
}

func newError(op Operation, kind ErrorKind, err error) *Error {
	e := &Error{Op: op, Kind: kind, Err: err}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

// wrapError attaches op to err, classifying it when it is not already an *Error.
func wrapError(op Operation, err error) error {
	if err == nil {
		return nil
	}
	var authErr *Error
	if errors.As(err, &authErr) {
		if authErr.Op != "" {
			return authErr
		}
		tagged := *authErr
		tagged.Op = op
		return &tagged
	}
	return &Error{Op: op, Kind: KindUnexpected, Err: fmt.Errorf("%s: %w", op, err)}
}

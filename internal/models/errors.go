// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"errors"
	"fmt"
)

// ErrVerificationFailed is the outward signal for any failed code check.
var ErrVerificationFailed = errors.New("verification failed")

var (
	ErrUsernameConflict  = errors.New("username is already taken")
	ErrEmailConflict     = errors.New("an account with this email already exists")
	ErrCodeMismatch      = fmt.Errorf("%w: code mismatch", ErrVerificationFailed)
	ErrCodeExpired       = fmt.Errorf("%w: code expired", ErrVerificationFailed)
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrNotAccepting      = errors.New("recipient is not accepting messages")
	ErrInvalidContent    = errors.New("message content must be between 10 and 500 characters")
	ErrAccountNotFound   = errors.New("account not found")
	ErrMessageNotFound   = errors.New("message not found")
	ErrInvalidUsername   = errors.New("invalid username")
	ErrInvalidEmail      = errors.New("invalid email address")
)

// Failure sentinels. Errors of these kinds are delivered as *Error.
var (
	ErrPersistenceFailure = errors.New("persistence failure")
	ErrDeliveryFailure    = errors.New("delivery failure")
)

var domainErrors = []error{
	ErrVerificationFailed,
	ErrUsernameConflict,
	ErrEmailConflict,
	ErrRecipientNotFound,
	ErrNotAccepting,
	ErrInvalidContent,
	ErrAccountNotFound,
	ErrMessageNotFound,
	ErrInvalidUsername,
	ErrInvalidEmail,
}

// Error wraps an infrastructure failure with its kind and the operation
// that produced it. errors.Is matches both the kind sentinel and the cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// IsDomainError reports whether err is a validation or state error
// rather than an infrastructure failure.
func IsDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsFailure reports whether err is a persistence or delivery failure.
func IsFailure(err error) bool {
	return errors.Is(err, ErrPersistenceFailure) || errors.Is(err, ErrDeliveryFailure)
}

// Persistence wraps err as a persistence failure. Domain errors and
// already classified failures are returned unchanged.
func Persistence(op string, err error) error {
	if err == nil || IsDomainError(err) || IsFailure(err) {
		return err
	}
	return &Error{Kind: ErrPersistenceFailure, Op: op, Err: err}
}

// Delivery wraps err as a delivery failure.
func Delivery(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: ErrDeliveryFailure, Op: op, Err: err}
}

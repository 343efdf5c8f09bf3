// Package common defines the sentinel error taxonomy and small helpers shared
// by the storage, service and CLI layers. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrUsernameTaken = errors.New("username already taken")

	// Service-level taxonomy.
	ErrInvalidState    = errors.New("invalid state")
	ErrPersistence     = errors.New("persistence failure")
	ErrVerification    = errors.New("verification failure")
	ErrPolicyViolation = errors.New("policy violation")
	ErrForbidden       = errors.New("forbidden")

	// Login outcomes.
	ErrUnknownUser        = errors.New("unknown user")
	ErrBadPassword        = errors.New("bad password")
	ErrAccountLocked      = errors.New("account locked")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrLockedOut          = errors.New("account locked after repeated failures")
	ErrSessionTerminated  = errors.New("session terminated")

	// Input errors.
	ErrTooManyInvalidInputs = errors.New("too many invalid inputs")
)

// IsSessionFatal reports whether a login error ends the interactive session.
// Locked, deactivated and freshly locked-out accounts bar any further attempt
// in the running process.
func IsSessionFatal(err error) bool {
	return errors.Is(err, ErrAccountLocked) ||
		errors.Is(err, ErrAccountDeactivated) ||
		errors.Is(err, ErrLockedOut) ||
		errors.Is(err, ErrSessionTerminated)
}

// IsCredentialRejection reports whether err is one of the two outcomes that
// must look identical to the person at the terminal.
func IsCredentialRejection(err error) bool {
	return errors.Is(err, ErrUnknownUser) || errors.Is(err, ErrBadPassword)
}

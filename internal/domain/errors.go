package domain

import "errors"

var (
	// ErrAuth marks a login or account-creation failure, including a
	// success response that carried no usable session. It always reaches
	// the caller.
	ErrAuth = errors.New("authentication failed")

	// ErrNoSession is returned by operations that need an active client
	// while the manager is in the signed-out public state.
	ErrNoSession = errors.New("no active session")

	// ErrAborted marks an operation cancelled by the transport mid-flight.
	// Callers absorb it; it is never a user-visible failure.
	ErrAborted = errors.New("operation aborted")

	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountActive is returned when removing the account the active
	// client is bound to. Sign out or switch first.
	ErrAccountActive = errors.New("account is currently active")
)

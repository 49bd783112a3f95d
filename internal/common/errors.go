// Package common defines shared constants and sentinel errors used across
// KeyGate components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Storage-level errors.
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrVersionConflict = errors.New("version conflict")

	// Protocol errors surfaced to the caller as structured failures.
	ErrBadRequest      = errors.New("bad request")
	ErrUserExists      = errors.New("user exists")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalid2FAToken = errors.New("invalid 2fa token")
	ErrUnauthorized    = errors.New("unauthorized")

	// Generic flow control.
	ErrInternal = errors.New("internal error")
)

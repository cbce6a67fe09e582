package errors

import (
	"errors"
	"fmt"
)

// Common error types for the portal client
var (
	// Credential errors
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Session errors
	ErrSessionExpired = errors.New("session expired")
	ErrCorruptSession = errors.New("corrupt session")
	ErrNoSession      = errors.New("no active session")
	ErrUnknownRole    = errors.New("unknown role")

	// Transport errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("service unavailable")

	// Storage errors
	ErrKeyNotFound = errors.New("key not found")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

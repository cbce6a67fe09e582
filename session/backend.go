package session

import (
	"context"
	"time"

	"github.com/meridianhms/portal-client/users"
)

// LoginResult is what the backend hands back on a successful login.
type LoginResult struct {
	Token     string     // Opaque bearer credential
	User      users.User // Profile of the authenticated staff member
	ExpiresAt time.Time  // Server-supplied expiry; zero when the server omits it
}

// Backend is the outbound channel the session service talks through. The API
// client implements it; tests substitute an in-memory fake.
type Backend interface {
	// Login exchanges credentials for a token and profile. A rejected login
	// returns an error matching apperrors.ErrInvalidCredentials carrying the
	// server-provided message.
	Login(ctx context.Context, email, password string, remember bool) (*LoginResult, error)

	// Logout asks the server to invalidate the current token.
	Logout(ctx context.Context) error

	// VerifyToken confirms the token is still valid server-side. A 401 comes
	// back as an error matching apperrors.ErrUnauthorized; any other failure
	// is a transient one.
	VerifyToken(ctx context.Context) error
}

// VerifyStatus is the tagged outcome of a server-side token check, so callers
// branch on hard versus soft failure explicitly instead of inspecting errors.
type VerifyStatus string

const (
	// VerifyOK — the server confirmed the token.
	VerifyOK VerifyStatus = "ok"
	// VerifyRejected — the server answered 401; the session is dead and must
	// be cleared.
	VerifyRejected VerifyStatus = "rejected"
	// VerifyUnavailable — network error or 5xx; the cached session stays
	// trusted rather than punishing the user for a transient outage.
	VerifyUnavailable VerifyStatus = "unavailable"
)

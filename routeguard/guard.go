// Package routeguard implements the per-route gates: an optimistic
// cached-then-reconciled check for protected routes, and the inverse gate
// that keeps signed-in users away from the anonymous pages.
package routeguard

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/meridianhms/portal-client/session"
	"github.com/meridianhms/portal-client/users"
)

// State is the guard's position in its three-state machine.
type State string

const (
	// StateChecking — cached state has been read and server reconciliation
	// may be in flight. Callers render a neutral loading indicator here,
	// never content and never a redirect, to avoid redirect flicker.
	StateChecking State = "checking"
	// StateAuthorized — the visitor may see protected content, subject to
	// the route's role requirement.
	StateAuthorized State = "authorized"
	// StateUnauthorized — no usable session; the visitor is sent to login.
	StateUnauthorized State = "unauthorized"
)

// SessionGate is the slice of the session service the gates depend on.
type SessionGate interface {
	IsAuthenticated() bool
	CurrentUser() *users.User
	VerifyToken(ctx context.Context) session.VerifyStatus
	Logout(ctx context.Context, silent bool) error
	DefaultRoute(role users.Role) string
	StashRedirect(path string)
}

// Route describes the destination being gated.
type Route struct {
	Path string
	// RequiredRole restricts the route to one role. Empty means any
	// authenticated visitor may enter.
	RequiredRole users.Role
}

// Resolution is the outcome of a gate pass. A non-empty RedirectTo means the
// caller must navigate there instead of rendering.
type Resolution struct {
	State      State
	User       *users.User
	RedirectTo string
}

// Render reports whether the gated content should be shown.
func (r Resolution) Render() bool {
	return r.State == StateAuthorized && r.RedirectTo == ""
}

// Guard gates protected routes. It trusts cached session state optimistically
// and reconciles against the server, favoring availability when the server
// cannot be reached.
type Guard struct {
	sessions SessionGate
	log      zerolog.Logger
	observe  func(State)
}

// GuardOption modifies a Guard instance.
type GuardOption func(*Guard)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) GuardOption {
	return func(g *Guard) {
		g.log = log
	}
}

// WithStateObserver registers a callback fired on every state transition, in
// order. The UI layer uses it to drive the loading indicator; tests use it to
// pin down the machine's path.
func WithStateObserver(observe func(State)) GuardOption {
	return func(g *Guard) {
		g.observe = observe
	}
}

// NewGuard initializes a Guard with required dependencies.
func NewGuard(sessions SessionGate, options ...GuardOption) (*Guard, error) {
	if sessions == nil {
		return nil, errors.New("[NewGuard] sessions is required")
	}

	guard := &Guard{
		sessions: sessions,
		log:      zerolog.Nop(),
		observe:  func(State) {},
	}

	for _, opt := range options {
		opt(guard)
	}

	return guard, nil
}

// Resolve runs the gate for one route request:
//
//	checking → unauthorized    when no cached session exists (no network call)
//	checking → unauthorized    when the server answers 401 (session destroyed)
//	checking → authorized      when the server confirms the token
//	checking → authorized      when the server is unreachable (cached state wins)
//
// A cancelled context means the caller went away mid-verify; the resolution
// stays at checking and is discarded.
func (g *Guard) Resolve(ctx context.Context, route Route) Resolution {
	g.transition(StateChecking)

	if !g.sessions.IsAuthenticated() {
		return g.unauthorized(route)
	}
	user := g.sessions.CurrentUser()
	if user == nil {
		return g.unauthorized(route)
	}

	switch g.sessions.VerifyToken(ctx) {
	case session.VerifyRejected:
		_ = g.sessions.Logout(ctx, true)
		g.log.Info().Str("path", route.Path).Msg("session invalidated by server")
		return g.unauthorized(route)
	case session.VerifyUnavailable:
		g.log.Warn().Str("path", route.Path).Msg("verification unreachable, trusting cached session")
	}

	if ctx.Err() != nil {
		return Resolution{State: StateChecking}
	}

	return g.authorized(route, user)
}

func (g *Guard) authorized(route Route, user *users.User) Resolution {
	g.transition(StateAuthorized)
	if route.RequiredRole != "" && route.RequiredRole != user.Role {
		// Hard role boundary: wrong role means the role's own home route,
		// never the gated content.
		redirect := g.sessions.DefaultRoute(user.Role)
		g.log.Info().Str("path", route.Path).Str("role", string(user.Role)).Str("redirect", redirect).Msg("role mismatch")
		return Resolution{State: StateAuthorized, User: user, RedirectTo: redirect}
	}
	return Resolution{State: StateAuthorized, User: user}
}

func (g *Guard) unauthorized(route Route) Resolution {
	g.transition(StateUnauthorized)
	g.sessions.StashRedirect(route.Path)
	return Resolution{State: StateUnauthorized, RedirectTo: users.LoginRoute}
}

func (g *Guard) transition(state State) {
	g.observe(state)
}

package routeguard

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// AnonymousGate bounces already-authenticated visitors away from the
// anonymous pages (login, forgot-password, reset-password). The check is
// purely synchronous: no server round trip, because the protected-route guard
// enforces strict validity the moment the visitor tries to reach real
// content.
type AnonymousGate struct {
	sessions SessionGate
}

// NewAnonymousGate initializes an AnonymousGate.
func NewAnonymousGate(sessions SessionGate) (*AnonymousGate, error) {
	if sessions == nil {
		return nil, errors.New("[NewAnonymousGate] sessions is required")
	}
	return &AnonymousGate{sessions: sessions}, nil
}

// Resolve renders the anonymous content unless a cached session with a usable
// profile exists, in which case the visitor is redirected to their role's
// home route.
func (a *AnonymousGate) Resolve() Resolution {
	if a.sessions.IsAuthenticated() {
		if user := a.sessions.CurrentUser(); user != nil {
			redirect := a.sessions.DefaultRoute(user.Role)
			log.Debug().Str("role", string(user.Role)).Str("redirect", redirect).Msg("already signed in")
			return Resolution{State: StateAuthorized, User: user, RedirectTo: redirect}
		}
	}
	return Resolution{State: StateUnauthorized}
}

package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/meridianhms/portal-client/credentials"
	apperrors "github.com/meridianhms/portal-client/internal/errors"
	"github.com/meridianhms/portal-client/users"
)

const (
	// Fallback session lifetimes, used when the server omits expires_at.
	rememberedLifetime = 30 * 24 * time.Hour
	standardLifetime   = 24 * time.Hour
)

// Navigator receives the route the application must hard-navigate to, e.g.
// after a non-silent logout. The default is a no-op.
type Navigator func(route string)

// Service owns the client-side session: creation at login, the expiry check,
// the storage-scope choice, and teardown on logout or invalidation.
type Service struct {
	keeper   *credentials.Keeper
	backend  Backend
	navigate Navigator
	nowTime  func() time.Time
	log      zerolog.Logger

	loggingOut atomic.Bool
}

// Option modifies a Service instance.
type Option func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithNavigator sets the navigation callback invoked on non-silent logout.
func WithNavigator(nav Navigator) Option {
	return func(s *Service) {
		s.navigate = nav
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// NewService initializes a Service with required dependencies. Optional
// configuration can be provided via options (e.g., WithNowTime for testing).
func NewService(keeper *credentials.Keeper, backend Backend, options ...Option) (*Service, error) {
	if keeper == nil {
		return nil, errors.New("[NewService] keeper is required")
	}
	if backend == nil {
		return nil, errors.New("[NewService] backend is required")
	}

	service := &Service{
		keeper:   keeper,
		backend:  backend,
		navigate: func(string) {},
		nowTime:  time.Now,
		log:      zerolog.Nop(),
	}

	for _, opt := range options {
		opt(service)
	}

	return service, nil
}

// Login authenticates against the backend and, on success, writes the
// token/user/expiry triple to the scope matching the remember flag. Any prior
// session data is overwritten in both scopes first.
func (s *Service) Login(ctx context.Context, email, password string, remember bool) (*users.User, error) {
	result, err := s.backend.Login(ctx, email, password, remember)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Login] backend.Login")
	}

	expiry := result.ExpiresAt
	if expiry.IsZero() {
		lifetime := standardLifetime
		if remember {
			lifetime = rememberedLifetime
		}
		expiry = s.nowTime().Add(lifetime)
	}

	profile, err := json.Marshal(result.User)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Login] marshal profile")
	}

	// A new login supersedes any session created under either remember
	// setting, so the triple is removed from both scopes before writing.
	s.removeSessionKeys()

	scope := credentials.ScopeEphemeral
	if remember {
		scope = credentials.ScopePersistent
	}
	if err := s.keeper.Set(scope, credentials.KeyToken, result.Token); err != nil {
		return nil, errors.Wrap(err, "[Service.Login] store token")
	}
	if err := s.keeper.Set(scope, credentials.KeyUser, string(profile)); err != nil {
		return nil, errors.Wrap(err, "[Service.Login] store profile")
	}
	if err := s.keeper.Set(scope, credentials.KeyTokenExpiry, expiry.Format(time.RFC3339)); err != nil {
		return nil, errors.Wrap(err, "[Service.Login] store expiry")
	}

	if remember {
		if err := s.keeper.Set(credentials.ScopePersistent, credentials.KeyRememberedEmail, email); err != nil {
			return nil, errors.Wrap(err, "[Service.Login] store remembered email")
		}
	} else {
		_ = s.keeper.Remove(credentials.ScopePersistent, credentials.KeyRememberedEmail)
	}

	s.log.Info().Str("email", result.User.Email).Str("role", string(result.User.Role)).Bool("remember", remember).Msg("signed in")
	user := result.User
	return &user, nil
}

// Logout invalidates the session server-side on a best-effort basis, then
// unconditionally clears both storage scopes. The remembered email survives
// the clear so the login form can still prefill it. When not silent, the
// navigator is invoked with the login route so any in-flight UI state is
// terminated by a full navigation.
func (s *Service) Logout(ctx context.Context, silent bool) error {
	// The backend call below can itself come back 401 and re-enter through
	// the unauthorized interceptor; the second entry only matters once.
	if !s.loggingOut.CompareAndSwap(false, true) {
		return nil
	}
	defer s.loggingOut.Store(false)

	if err := s.backend.Logout(ctx); err != nil {
		// Server-side invalidation is best effort; a dead network must not
		// block the local teardown.
		s.log.Debug().Err(err).Msg("server-side logout failed")
	}

	remembered, hadRemembered := s.keeper.GetAuth(credentials.KeyRememberedEmail)

	if err := s.keeper.ClearAuth(); err != nil {
		return errors.Wrap(err, "[Service.Logout] clear credentials")
	}

	if hadRemembered && remembered != "" {
		if err := s.keeper.Set(credentials.ScopePersistent, credentials.KeyRememberedEmail, remembered); err != nil {
			return errors.Wrap(err, "[Service.Logout] restore remembered email")
		}
	}

	if !silent {
		s.navigate(users.LoginRoute)
	}
	return nil
}

// IsAuthenticated reports whether a live session exists: token present,
// expiry present, and the expiry still in the future. A lapsed expiry tears
// the session down as a side effect before returning false.
func (s *Service) IsAuthenticated() bool {
	token, ok := s.keeper.GetAuth(credentials.KeyToken)
	if !ok || token == "" {
		return false
	}
	rawExpiry, ok := s.keeper.GetAuth(credentials.KeyTokenExpiry)
	if !ok || rawExpiry == "" {
		return false
	}

	expiry, err := time.Parse(time.RFC3339, rawExpiry)
	if err != nil {
		s.log.Warn().Str("expiry", rawExpiry).Msg("unparseable session expiry, clearing session")
		_ = s.Logout(context.Background(), true)
		return false
	}

	if !s.nowTime().Before(expiry) {
		s.log.Info().Time("expiry", expiry).Msg("session expired locally")
		_ = s.Logout(context.Background(), true)
		return false
	}
	return true
}

// CurrentUser parses the stored profile. A token without a profile, an
// unparseable profile, or a role outside the closed set all count as a
// corrupted session: it is cleared silently and nil is returned, never an
// error.
func (s *Service) CurrentUser() *users.User {
	raw, ok := s.keeper.GetAuth(credentials.KeyUser)
	if !ok || raw == "" {
		if token, hasToken := s.keeper.GetAuth(credentials.KeyToken); hasToken && token != "" {
			s.log.Warn().Msg("token present without a profile, clearing session")
			_ = s.Logout(context.Background(), true)
		}
		return nil
	}

	var user users.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.log.Warn().Err(err).Msg("corrupt profile record, clearing session")
		_ = s.Logout(context.Background(), true)
		return nil
	}
	if !user.Role.Valid() {
		// Fail closed: an unknown role never reaches a route decision.
		s.log.Warn().Str("role", string(user.Role)).Msg("unknown role in profile, clearing session")
		_ = s.Logout(context.Background(), true)
		return nil
	}
	return &user
}

// DefaultRoute maps a role to its landing route.
func (s *Service) DefaultRoute(role users.Role) string {
	return role.HomeRoute()
}

// VerifyToken asks the server whether the token is still valid, independent of
// the local expiry. Only a 401 is a hard rejection; anything else is reported
// as transient so callers keep trusting cached state.
func (s *Service) VerifyToken(ctx context.Context) VerifyStatus {
	err := s.backend.VerifyToken(ctx)
	switch {
	case err == nil:
		return VerifyOK
	case errors.Is(err, apperrors.ErrUnauthorized):
		s.log.Info().Msg("token rejected by server")
		return VerifyRejected
	default:
		s.log.Warn().Err(err).Msg("token verification unreachable")
		return VerifyUnavailable
	}
}

// RememberedEmail returns the email stored for login-form prefill, if any.
func (s *Service) RememberedEmail() string {
	email, _ := s.keeper.GetAuth(credentials.KeyRememberedEmail)
	return email
}

// StashRedirect records the path the visitor was trying to reach so the login
// flow can send them back there.
func (s *Service) StashRedirect(path string) {
	if path == "" {
		return
	}
	_ = s.keeper.Set(credentials.ScopeEphemeral, credentials.KeyRedirectURL, path)
}

// PostLoginRoute consumes the stashed redirect path and returns it when it is
// a valid destination for the user's role, falling back to the role's home
// route otherwise. The stash is consumed either way.
func (s *Service) PostLoginRoute(user *users.User) string {
	if user == nil {
		return users.LoginRoute
	}
	home := user.Role.HomeRoute()

	path, ok := s.keeper.Get(credentials.ScopeEphemeral, credentials.KeyRedirectURL)
	_ = s.keeper.Remove(credentials.ScopeEphemeral, credentials.KeyRedirectURL)
	if !ok || path == "" {
		return home
	}
	if !routeAllowed(path, user.Role) {
		return home
	}
	return path
}

// routeAllowed reports whether a path lies inside the role's area.
func routeAllowed(path string, role users.Role) bool {
	home := role.HomeRoute()
	return path == home || strings.HasPrefix(path, home+"/")
}

func (s *Service) removeSessionKeys() {
	for _, scope := range []credentials.Scope{credentials.ScopePersistent, credentials.ScopeEphemeral} {
		_ = s.keeper.Remove(scope, credentials.KeyToken)
		_ = s.keeper.Remove(scope, credentials.KeyUser)
		_ = s.keeper.Remove(scope, credentials.KeyTokenExpiry)
	}
}

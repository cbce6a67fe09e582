package session_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/meridianhms/portal-client/credentials"
	apperrors "github.com/meridianhms/portal-client/internal/errors"
	"github.com/meridianhms/portal-client/session"
	"github.com/meridianhms/portal-client/session/sessionfakes"
	"github.com/meridianhms/portal-client/users"
)

const (
	testEmail    = "clerk@meridian.test"
	testPassword = "password123"
	testToken    = "token-abc-123"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// testFixture holds all test dependencies
type testFixture struct {
	keeper     *credentials.Keeper
	persistent *credentials.MemoryStore
	ephemeral  *credentials.MemoryStore
	backend    *sessionfakes.FakeBackend
	service    *session.Service
	navigated  []string
}

func setupTestFixture(t *testing.T, options ...session.Option) *testFixture {
	t.Helper()

	f := &testFixture{
		persistent: credentials.NewMemoryStore(),
		ephemeral:  credentials.NewMemoryStore(),
		backend:    sessionfakes.NewFakeBackend(),
	}

	keeper, err := credentials.New(f.persistent, f.ephemeral)
	require.NoError(t, err)
	f.keeper = keeper

	f.backend.LoginResult = &session.LoginResult{
		Token: testToken,
		User:  users.User{Name: "Billing Clerk", Email: testEmail, Role: users.RoleBilling},
	}

	opts := append([]session.Option{
		session.WithNowTime(func() time.Time { return testNow }),
		session.WithNavigator(func(route string) { f.navigated = append(f.navigated, route) }),
	}, options...)

	service, err := session.NewService(keeper, f.backend, opts...)
	require.NoError(t, err)
	f.service = service
	return f
}

// seedSession writes a well-formed session triple directly into a scope.
func (f *testFixture) seedSession(t *testing.T, scope credentials.Scope, user users.User, expiry time.Time) {
	t.Helper()
	profile, err := json.Marshal(user)
	require.NoError(t, err)
	require.NoError(t, f.keeper.Set(scope, credentials.KeyToken, testToken))
	require.NoError(t, f.keeper.Set(scope, credentials.KeyUser, string(profile)))
	require.NoError(t, f.keeper.Set(scope, credentials.KeyTokenExpiry, expiry.Format(time.RFC3339)))
}

func (f *testFixture) storedExpiry(t *testing.T) time.Time {
	t.Helper()
	raw, ok := f.keeper.GetAuth(credentials.KeyTokenExpiry)
	require.True(t, ok)
	expiry, err := time.Parse(time.RFC3339, raw)
	require.NoError(t, err)
	return expiry
}

func TestLoginRememberUsesThirtyDayLifetime(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Login(context.Background(), testEmail, testPassword, true)
	require.NoError(t, err)

	require.WithinDuration(t, testNow.Add(30*24*time.Hour), f.storedExpiry(t), time.Minute)

	// remember=true writes to the persistent scope
	_, ok := f.persistent.Get(credentials.KeyToken)
	require.True(t, ok)
	_, ok = f.ephemeral.Get(credentials.KeyToken)
	require.False(t, ok)
}

func TestLoginWithoutRememberUsesOneDayLifetime(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Login(context.Background(), testEmail, testPassword, false)
	require.NoError(t, err)

	require.WithinDuration(t, testNow.Add(24*time.Hour), f.storedExpiry(t), time.Minute)

	_, ok := f.ephemeral.Get(credentials.KeyToken)
	require.True(t, ok)
	_, ok = f.persistent.Get(credentials.KeyToken)
	require.False(t, ok)
}

func TestLoginPrefersServerSuppliedExpiry(t *testing.T) {
	f := setupTestFixture(t)
	serverExpiry := testNow.Add(90 * time.Minute)
	f.backend.LoginResult.ExpiresAt = serverExpiry

	_, err := f.service.Login(context.Background(), testEmail, testPassword, true)
	require.NoError(t, err)

	require.True(t, f.storedExpiry(t).Equal(serverExpiry))
}

func TestLoginRememberStoresEmailForPrefill(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Login(context.Background(), testEmail, testPassword, true)
	require.NoError(t, err)
	require.Equal(t, testEmail, f.service.RememberedEmail())
}

func TestLoginWithoutRememberClearsRememberedEmail(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.keeper.Set(credentials.ScopePersistent, credentials.KeyRememberedEmail, "old@meridian.test"))

	_, err := f.service.Login(context.Background(), testEmail, testPassword, false)
	require.NoError(t, err)
	require.Empty(t, f.service.RememberedEmail())
}

func TestLoginOverwritesSessionInBothScopes(t *testing.T) {
	f := setupTestFixture(t)
	f.seedSession(t, credentials.ScopePersistent, users.User{Role: users.RoleAdmin}, testNow.Add(time.Hour))
	f.seedSession(t, credentials.ScopeEphemeral, users.User{Role: users.RoleAdmin}, testNow.Add(time.Hour))

	_, err := f.service.Login(context.Background(), testEmail, testPassword, false)
	require.NoError(t, err)

	// Only the freshly chosen scope holds a session now.
	_, ok := f.persistent.Get(credentials.KeyToken)
	require.False(t, ok)
	token, ok := f.ephemeral.Get(credentials.KeyToken)
	require.True(t, ok)
	require.Equal(t, testToken, token)

	user := f.service.CurrentUser()
	require.NotNil(t, user)
	require.Equal(t, users.RoleBilling, user.Role)
}

func TestLoginRejectionPropagatesServerMessage(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.LoginErr = errors.Wrap(apperrors.ErrInvalidCredentials, "account locked")

	_, err := f.service.Login(context.Background(), testEmail, testPassword, false)
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	require.Contains(t, err.Error(), "account locked")

	// A rejected login never touches stored session state.
	_, ok := f.keeper.GetAuth(credentials.KeyToken)
	require.False(t, ok)
}

func TestIsAuthenticatedWithLiveSession(t *testing.T) {
	f := setupTestFixture(t)
	f.seedSession(t, credentials.ScopeEphemeral, users.User{Role: users.RoleBilling}, testNow.Add(time.Hour))

	require.True(t, f.service.IsAuthenticated())
}

func TestExpiredSessionIsClearedAsSideEffect(t *testing.T) {
	f := setupTestFixture(t)
	f.seedSession(t, credentials.ScopePersistent, users.User{Role: users.RoleBilling}, testNow.Add(-time.Minute))

	require.False(t, f.service.IsAuthenticated())

	// The triple is gone from both scopes, not just flagged invalid.
	_, ok := f.keeper.GetAuth(credentials.KeyToken)
	require.False(t, ok)
	require.Equal(t, 1, f.backend.LogoutCalls)
	require.Empty(t, f.navigated, "expiry cleanup is silent")
}

func TestIsAuthenticatedRequiresExpiry(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.keeper.Set(credentials.ScopeEphemeral, credentials.KeyToken, testToken))

	require.False(t, f.service.IsAuthenticated())
}

func TestCurrentUserParsesStoredProfile(t *testing.T) {
	f := setupTestFixture(t)
	f.seedSession(t, credentials.ScopeEphemeral, users.User{Name: "Billing Clerk", Email: testEmail, Role: users.RoleBilling}, testNow.Add(time.Hour))

	user := f.service.CurrentUser()
	require.NotNil(t, user)
	require.Equal(t, users.RoleBilling, user.Role)
	require.Equal(t, testEmail, user.Email)
}

func TestCorruptProfileClearsSession(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.keeper.Set(credentials.ScopeEphemeral, credentials.KeyToken, testToken))
	require.NoError(t, f.keeper.Set(credentials.ScopeEphemeral, credentials.KeyTokenExpiry, testNow.Add(time.Hour).Format(time.RFC3339)))
	require.NoError(t, f.keeper.Set(credentials.ScopeEphemeral, credentials.KeyUser, "{not json"))

	require.Nil(t, f.service.CurrentUser())

	_, ok := f.keeper.GetAuth(credentials.KeyToken)
	require.False(t, ok)
}

func TestTokenWithoutProfileClearsSession(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.keeper.Set(credentials.ScopeEphemeral, credentials.KeyToken, testToken))
	require.NoError(t, f.keeper.Set(credentials.ScopeEphemeral, credentials.KeyTokenExpiry, testNow.Add(time.Hour).Format(time.RFC3339)))

	require.Nil(t, f.service.CurrentUser())

	_, ok := f.keeper.GetAuth(credentials.KeyToken)
	require.False(t, ok)
}

func TestUnknownRoleFailsClosed(t *testing.T) {
	f := setupTestFixture(t)
	f.seedSession(t, credentials.ScopeEphemeral, users.User{Name: "X", Email: testEmail, Role: "superuser"}, testNow.Add(time.Hour))

	require.Nil(t, f.service.CurrentUser())
	_, ok := f.keeper.GetAuth(credentials.KeyToken)
	require.False(t, ok)
}

func TestLogoutPreservesRememberedEmail(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Login(context.Background(), testEmail, testPassword, true)
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(context.Background(), false))

	_, ok := f.keeper.GetAuth(credentials.KeyToken)
	require.False(t, ok)
	require.Equal(t, testEmail, f.service.RememberedEmail())
}

func TestLogoutNavigatesUnlessSilent(t *testing.T) {
	f := setupTestFixture(t)
	f.seedSession(t, credentials.ScopeEphemeral, users.User{Role: users.RoleBilling}, testNow.Add(time.Hour))

	require.NoError(t, f.service.Logout(context.Background(), false))
	require.Equal(t, []string{users.LoginRoute}, f.navigated)

	f.navigated = nil
	require.NoError(t, f.service.Logout(context.Background(), true))
	require.Empty(t, f.navigated)
}

func TestLogoutSwallowsServerFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.LogoutErr = errors.New("connection refused")
	f.seedSession(t, credentials.ScopeEphemeral, users.User{Role: users.RoleBilling}, testNow.Add(time.Hour))

	require.NoError(t, f.service.Logout(context.Background(), true))
	_, ok := f.keeper.GetAuth(credentials.KeyToken)
	require.False(t, ok)
}

func TestVerifyTokenMapsOutcomes(t *testing.T) {
	f := setupTestFixture(t)

	require.Equal(t, session.VerifyOK, f.service.VerifyToken(context.Background()))

	f.backend.VerifyErr = errors.Wrap(apperrors.ErrUnauthorized, "401")
	require.Equal(t, session.VerifyRejected, f.service.VerifyToken(context.Background()))

	f.backend.VerifyErr = errors.New("dial tcp: connection refused")
	require.Equal(t, session.VerifyUnavailable, f.service.VerifyToken(context.Background()))
}

func TestDefaultRouteMapping(t *testing.T) {
	f := setupTestFixture(t)

	require.Equal(t, "/billing", f.service.DefaultRoute(users.RoleBilling))
	require.Equal(t, "/admitting", f.service.DefaultRoute(users.RoleAdmitting))
	require.Equal(t, "/admin", f.service.DefaultRoute(users.RoleAdmin))
	require.Equal(t, "/", f.service.DefaultRoute(users.Role("porter")))
}

func TestPostLoginRouteHonorsStashedPath(t *testing.T) {
	f := setupTestFixture(t)
	billing := &users.User{Role: users.RoleBilling}

	f.service.StashRedirect("/billing/statements/42")
	require.Equal(t, "/billing/statements/42", f.service.PostLoginRoute(billing))

	// Consumed once: the second call falls back to the home route.
	require.Equal(t, "/billing", f.service.PostLoginRoute(billing))
}

func TestPostLoginRouteRejectsForeignArea(t *testing.T) {
	f := setupTestFixture(t)
	billing := &users.User{Role: users.RoleBilling}

	f.service.StashRedirect("/admin/settings")
	require.Equal(t, "/billing", f.service.PostLoginRoute(billing))
}

func TestPostLoginRouteWithoutStashIsHome(t *testing.T) {
	f := setupTestFixture(t)
	require.Equal(t, "/admitting", f.service.PostLoginRoute(&users.User{Role: users.RoleAdmitting}))
}

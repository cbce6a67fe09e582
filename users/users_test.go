package users_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/meridianhms/portal-client/internal/errors"
	"github.com/meridianhms/portal-client/users"
)

func TestParseRole(t *testing.T) {
	for _, raw := range []string{"admin", "billing", "admitting"} {
		role, err := users.ParseRole(raw)
		require.NoError(t, err)
		require.Equal(t, users.Role(raw), role)
	}
}

func TestParseRoleFailsClosed(t *testing.T) {
	for _, raw := range []string{"", "superuser", "Admin", "billing "} {
		_, err := users.ParseRole(raw)
		require.ErrorIs(t, err, apperrors.ErrUnknownRole, "role %q", raw)
	}
}

func TestHomeRoute(t *testing.T) {
	require.Equal(t, "/billing", users.RoleBilling.HomeRoute())
	require.Equal(t, "/admitting", users.RoleAdmitting.HomeRoute())
	require.Equal(t, "/admin", users.RoleAdmin.HomeRoute())
	require.Equal(t, "/", users.Role("intern").HomeRoute())
}

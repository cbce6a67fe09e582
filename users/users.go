package users

import (
	apperrors "github.com/meridianhms/portal-client/internal/errors"
	"github.com/pkg/errors"
)

// Role represents a staff role within the hospital portal.
// The set is closed: anything outside it is rejected on parse rather than
// being allowed to reach a route decision.
type Role string

const (
	RoleAdmin     Role = "admin"     // Full administrative dashboard access
	RoleBilling   Role = "billing"   // Charge entry and statement generation
	RoleAdmitting Role = "admitting" // Patient admission workflows
)

// LoginRoute is where unauthenticated visitors land. It doubles as the home
// route for any role the client does not recognise.
const LoginRoute = "/"

// ParseRole validates a raw role string against the closed role set.
func ParseRole(raw string) (Role, error) {
	role := Role(raw)
	if !role.Valid() {
		return "", errors.Wrapf(apperrors.ErrUnknownRole, "[ParseRole] %q", raw)
	}
	return role, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleBilling, RoleAdmitting:
		return true
	}
	return false
}

// HomeRoute returns the default landing route for the role.
func (r Role) HomeRoute() string {
	switch r {
	case RoleBilling:
		return "/billing"
	case RoleAdmitting:
		return "/admitting"
	case RoleAdmin:
		return "/admin"
	}
	return LoginRoute
}

// User is the profile record the backend returns at login and from /user.
type User struct {
	ID    int    `json:"id,omitempty"`    // Backend identifier for the staff member
	Name  string `json:"name"`            // Display name
	Email string `json:"email"`           // Login email address
	Role  Role   `json:"role"`            // One of the closed role set
	Ward  string `json:"ward,omitempty"`  // Assigned ward, when the backend supplies it
	Title string `json:"title,omitempty"` // Job title, when the backend supplies it
}

package user

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a user id does not resolve.
var ErrNotFound = errors.New("user not found")

// Role is the closed set of staff roles known to the checkout backend.
type Role string

const (
	RoleCashier    Role = "cashier"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCashier, RoleManager, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsApprover reports whether the role may approve discounts that require a
// manager PIN (manager or above).
func (r Role) IsApprover() bool {
	switch r {
	case RoleManager, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// User is a staff member referenced by orders, discounts and payments.
type User struct {
	ID     string
	Name   string
	Role   Role
	Active bool
}

// Directory resolves users for role checks.
type Directory interface {
	GetUser(ctx context.Context, id string) (*User, error)
}

package service

import (
	"github.com/dineflow/api/internal/auth"
	"github.com/dineflow/api/internal/enum"
)

// Actor is the caller of a service operation. The zero value is an
// anonymous guest.
type Actor struct {
	UserID      string
	Role        string
	OutletID    string
	Permissions []string
}

// ActorFromClaims builds an Actor from verified token claims. Nil claims
// yield a guest.
func ActorFromClaims(c *auth.Claims) Actor {
	if c == nil {
		return Actor{}
	}
	return Actor{
		UserID:      c.UserID,
		Role:        c.Role,
		OutletID:    c.OutletID,
		Permissions: c.Permissions,
	}
}

func (a Actor) IsGuest() bool {
	return a.UserID == ""
}

func (a Actor) IsSuperAdmin() bool {
	return a.Role == enum.RoleSuperAdmin
}

func (a Actor) IsStaff() bool {
	return enum.IsStaffRole(a.Role)
}

// Can reports whether the actor holds a staff permission. Super admins
// hold all of them.
func (a Actor) Can(perm string) bool {
	if a.IsSuperAdmin() {
		return true
	}
	if !a.IsStaff() {
		return false
	}
	for _, p := range a.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// CanAccessOutlet reports whether a staff actor is scoped to the outlet.
func (a Actor) CanAccessOutlet(outletID string) bool {
	if a.IsSuperAdmin() || a.OutletID == enum.OutletScopeAll {
		return true
	}
	return a.IsStaff() && a.OutletID != "" && a.OutletID == outletID
}

// label is what gets recorded as updatedBy in order history.
func (a Actor) label() string {
	if a.UserID != "" {
		return a.UserID
	}
	if a.Role != "" {
		return a.Role
	}
	return enum.ActorSystem
}

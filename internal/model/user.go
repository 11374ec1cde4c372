package model

import (
	"time"

	"github.com/dineflow/api/internal/enum"
)

// Permissions gate the back-office screens of a staff account.
type Permissions struct {
	ManageMenu      bool `json:"manageMenu" bson:"manageMenu"`
	ManageInventory bool `json:"manageInventory" bson:"manageInventory"`
	ViewStats       bool `json:"viewStats" bson:"viewStats"`
	ManageOrders    bool `json:"manageOrders" bson:"manageOrders"`
	ManageOutlets   bool `json:"manageOutlets" bson:"manageOutlets"`
	ManageManagers  bool `json:"manageManagers" bson:"manageManagers"`
}

// Has reports whether the named permission is granted.
func (p Permissions) Has(name string) bool {
	switch name {
	case enum.PermManageMenu:
		return p.ManageMenu
	case enum.PermManageInventory:
		return p.ManageInventory
	case enum.PermViewStats:
		return p.ViewStats
	case enum.PermManageOrders:
		return p.ManageOrders
	case enum.PermManageOutlets:
		return p.ManageOutlets
	case enum.PermManageManagers:
		return p.ManageManagers
	}
	return false
}

// Names lists the granted permissions.
func (p Permissions) Names() []string {
	var names []string
	for _, n := range []string{
		enum.PermManageMenu, enum.PermManageInventory, enum.PermViewStats,
		enum.PermManageOrders, enum.PermManageOutlets, enum.PermManageManagers,
	} {
		if p.Has(n) {
			names = append(names, n)
		}
	}
	return names
}

// UserProfile is shared by staff and customer accounts; Role partitions them.
type UserProfile struct {
	ID           string       `json:"id" bson:"_id"`
	Name         string       `json:"name" bson:"name"`
	Email        string       `json:"email" bson:"email"`
	Phone        string       `json:"phone,omitempty" bson:"phone,omitempty"`
	Address      string       `json:"address,omitempty" bson:"address,omitempty"`
	Role         string       `json:"role" bson:"role"`
	OutletID     string       `json:"outletId,omitempty" bson:"outletId,omitempty"`
	Permissions  *Permissions `json:"permissions,omitempty" bson:"permissions,omitempty"`
	PasswordHash string       `json:"passwordHash,omitempty" bson:"passwordHash,omitempty"`
	IsActive     bool         `json:"isActive" bson:"isActive"`
	CreatedAt    time.Time    `json:"createdAt" bson:"createdAt"`
}

func (u UserProfile) IsStaff() bool {
	return enum.IsStaffRole(u.Role)
}

// Redacted returns a copy safe to send to clients.
func (u UserProfile) Redacted() UserProfile {
	u.PasswordHash = ""
	if u.Permissions != nil {
		p := *u.Permissions
		u.Permissions = &p
	}
	return u
}

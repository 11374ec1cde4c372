// Package store defines the persistence boundary. Every read and write of
// outlets, menus, inventory, orders, users, settings, invoices and
// reservations goes through Store.
package store

import (
	"context"
	"errors"

	"github.com/dineflow/api/internal/model"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrDuplicate = errors.New("duplicate")
)

// Collection names, shared by every implementation.
const (
	CollOutlets        = "outlets"
	CollMenu           = "menu"
	CollInventory      = "inventory"
	CollOrders         = "orders"
	CollUsers          = "users"
	CollSettings       = "settings"
	CollManualInvoices = "manual_invoices"
	CollReservations   = "reservations"
)

// OrderFilter narrows GetOrders. Empty fields match everything.
type OrderFilter struct {
	UserID   string
	OutletID string
	Statuses []string
}

// Matches reports whether o passes the filter.
func (f OrderFilter) Matches(o model.Order) bool {
	if f.UserID != "" && o.CustomerID != f.UserID {
		return false
	}
	if f.OutletID != "" && o.OutletID != f.OutletID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if o.Status == s {
			return true
		}
	}
	return false
}

type OutletStore interface {
	// GetOutlets returns active outlets only.
	GetOutlets(ctx context.Context) ([]model.Outlet, error)
	// GetOutlet returns an outlet even after it has been deactivated.
	GetOutlet(ctx context.Context, id string) (model.Outlet, error)
	SaveOutlet(ctx context.Context, o model.Outlet) error
	// DeleteOutlet marks the outlet inactive.
	DeleteOutlet(ctx context.Context, id string) error
}

type MenuStore interface {
	GetMenu(ctx context.Context, outletID string) ([]model.MenuItem, error)
	GetMenuItem(ctx context.Context, id string) (model.MenuItem, error)
	SaveMenuItem(ctx context.Context, item model.MenuItem) error
	DeleteMenuItem(ctx context.Context, id string) error
}

type InventoryStore interface {
	GetInventory(ctx context.Context, outletID string) ([]model.InventoryItem, error)
	GetInventoryItem(ctx context.Context, id string) (model.InventoryItem, error)
	SaveInventoryItem(ctx context.Context, item model.InventoryItem) error
	DeleteInventoryItem(ctx context.Context, id string) error
	// AdjustStock adds delta to the stock level, clamping at zero.
	AdjustStock(ctx context.Context, id string, delta float64) (model.InventoryItem, error)
}

type OrderStore interface {
	// GetOrders returns matching orders, newest first.
	GetOrders(ctx context.Context, f OrderFilter) ([]model.Order, error)
	GetOrder(ctx context.Context, id string) (model.Order, error)
	// CreateOrder writes the order and applies every stock deduction in a
	// single transaction. Nothing is written if any part fails.
	CreateOrder(ctx context.Context, o model.Order, deductions []model.StockDeduction) error
	// UpdateOrderStatus appends entry to the history and sets the status,
	// provided the stored status still equals expected. Otherwise it
	// returns ErrConflict.
	UpdateOrderStatus(ctx context.Context, id, expected string, entry model.StatusEntry) (model.Order, error)
}

type UserStore interface {
	GetStaffUsers(ctx context.Context) ([]model.UserProfile, error)
	GetCustomers(ctx context.Context) ([]model.UserProfile, error)
	GetUser(ctx context.Context, id string) (model.UserProfile, error)
	GetUserByEmail(ctx context.Context, email string) (model.UserProfile, error)
	// SaveUser upserts by id. ErrDuplicate when another user holds the email.
	SaveUser(ctx context.Context, u model.UserProfile) error
	DeleteUser(ctx context.Context, id string) error
}

type SettingsStore interface {
	// GetGlobalSettings falls back to model.DefaultGlobalSettings when no
	// record has been saved.
	GetGlobalSettings(ctx context.Context) (model.GlobalSettings, error)
	SaveGlobalSettings(ctx context.Context, s model.GlobalSettings) error
}

type InvoiceStore interface {
	GetManualInvoices(ctx context.Context, outletID string) ([]model.ManualInvoice, error)
	SaveManualInvoice(ctx context.Context, inv model.ManualInvoice) error
	DeleteManualInvoice(ctx context.Context, id string) error
}

type ReservationStore interface {
	SaveReservation(ctx context.Context, r model.Reservation) error
	GetReservations(ctx context.Context, outletID string) ([]model.Reservation, error)
}

// Store is the full persistence surface.
type Store interface {
	OutletStore
	MenuStore
	InventoryStore
	OrderStore
	UserStore
	SettingsStore
	InvoiceStore
	ReservationStore

	Ping(ctx context.Context) error
	Close() error
}

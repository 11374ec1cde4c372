// Package memory is a Store kept in process memory. Documents are held as
// JSON so callers never share slices or pointers with stored state.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/store"
)

type Store struct {
	mu   sync.RWMutex
	docs map[string]map[string][]byte
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{docs: make(map[string]map[string][]byte)}
}

// --- generic document helpers (callers hold the lock) ---

func (s *Store) put(coll, id string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if s.docs[coll] == nil {
		s.docs[coll] = make(map[string][]byte)
	}
	s.docs[coll][id] = b
	return nil
}

func get[T any](s *Store, coll, id string) (T, error) {
	var v T
	b, ok := s.docs[coll][id]
	if !ok {
		return v, store.ErrNotFound
	}
	err := json.Unmarshal(b, &v)
	return v, err
}

func list[T any](s *Store, coll string, keep func(T) bool) ([]T, error) {
	out := []T{}
	for _, b := range s.docs[coll] {
		var v T
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, err
		}
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Store) remove(coll, id string) error {
	if _, ok := s.docs[coll][id]; !ok {
		return store.ErrNotFound
	}
	delete(s.docs[coll], id)
	return nil
}

// --- outlets ---

func (s *Store) GetOutlets(_ context.Context) ([]model.Outlet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out, err := list(s, store.CollOutlets, func(o model.Outlet) bool { return o.IsActive })
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetOutlet(_ context.Context, id string) (model.Outlet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get[model.Outlet](s, store.CollOutlets, id)
}

func (s *Store) SaveOutlet(_ context.Context, o model.Outlet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(store.CollOutlets, o.ID, o)
}

func (s *Store) DeleteOutlet(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, err := get[model.Outlet](s, store.CollOutlets, id)
	if err != nil {
		return err
	}
	o.IsActive = false
	return s.put(store.CollOutlets, id, o)
}

// --- menu ---

func (s *Store) GetMenu(_ context.Context, outletID string) ([]model.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out, err := list(s, store.CollMenu, func(m model.MenuItem) bool {
		return outletID == "" || m.OutletID == outletID
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) GetMenuItem(_ context.Context, id string) (model.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get[model.MenuItem](s, store.CollMenu, id)
}

func (s *Store) SaveMenuItem(_ context.Context, item model.MenuItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(store.CollMenu, item.ID, item)
}

func (s *Store) DeleteMenuItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(store.CollMenu, id)
}

// --- inventory ---

func (s *Store) GetInventory(_ context.Context, outletID string) ([]model.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out, err := list(s, store.CollInventory, func(i model.InventoryItem) bool {
		return outletID == "" || i.OutletID == outletID
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetInventoryItem(_ context.Context, id string) (model.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get[model.InventoryItem](s, store.CollInventory, id)
}

func (s *Store) SaveInventoryItem(_ context.Context, item model.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(store.CollInventory, item.ID, item)
}

func (s *Store) DeleteInventoryItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(store.CollInventory, id)
}

func (s *Store) AdjustStock(_ context.Context, id string, delta float64) (model.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := get[model.InventoryItem](s, store.CollInventory, id)
	if err != nil {
		return model.InventoryItem{}, err
	}
	item.Adjust(delta)
	item.UpdatedAt = time.Now()
	if err := s.put(store.CollInventory, id, item); err != nil {
		return model.InventoryItem{}, err
	}
	return item, nil
}

// --- orders ---

func (s *Store) GetOrders(_ context.Context, f store.OrderFilter) ([]model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out, err := list(s, store.CollOrders, f.Matches)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetOrder(_ context.Context, id string) (model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get[model.Order](s, store.CollOrders, id)
}

func (s *Store) CreateOrder(_ context.Context, o model.Order, deductions []model.StockDeduction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[store.CollOrders][o.ID]; exists {
		return store.ErrDuplicate
	}

	// Stage every write first so a missing inventory item leaves nothing behind.
	staged := make(map[string]model.InventoryItem, len(deductions))
	now := time.Now()
	for _, d := range deductions {
		item, ok := staged[d.InventoryItemID]
		if !ok {
			var err error
			item, err = get[model.InventoryItem](s, store.CollInventory, d.InventoryItemID)
			if err != nil {
				return err
			}
		}
		item.Adjust(-d.Quantity)
		item.UpdatedAt = now
		staged[d.InventoryItemID] = item
	}

	if err := s.put(store.CollOrders, o.ID, o); err != nil {
		return err
	}
	for id, item := range staged {
		if err := s.put(store.CollInventory, id, item); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, id, expected string, entry model.StatusEntry) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, err := get[model.Order](s, store.CollOrders, id)
	if err != nil {
		return model.Order{}, err
	}
	if o.Status != expected {
		return model.Order{}, store.ErrConflict
	}
	o.Status = entry.Status
	o.History = append(o.History, entry)
	if err := s.put(store.CollOrders, id, o); err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// --- users ---

func (s *Store) GetStaffUsers(_ context.Context) ([]model.UserProfile, error) {
	return s.users(func(u model.UserProfile) bool { return u.IsStaff() })
}

func (s *Store) GetCustomers(_ context.Context) ([]model.UserProfile, error) {
	return s.users(func(u model.UserProfile) bool { return u.Role == enum.RoleCustomer })
}

func (s *Store) users(keep func(model.UserProfile) bool) ([]model.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out, err := list(s, store.CollUsers, keep)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetUser(_ context.Context, id string) (model.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get[model.UserProfile](s, store.CollUsers, id)
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (model.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userByEmail(email)
}

func (s *Store) userByEmail(email string) (model.UserProfile, error) {
	matches, err := list(s, store.CollUsers, func(u model.UserProfile) bool {
		return strings.EqualFold(u.Email, email)
	})
	if err != nil {
		return model.UserProfile{}, err
	}
	if len(matches) == 0 {
		return model.UserProfile{}, store.ErrNotFound
	}
	return matches[0], nil
}

func (s *Store) SaveUser(_ context.Context, u model.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Email != "" {
		if other, err := s.userByEmail(u.Email); err == nil && other.ID != u.ID {
			return store.ErrDuplicate
		}
	}
	return s.put(store.CollUsers, u.ID, u)
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(store.CollUsers, id)
}

// --- settings ---

func (s *Store) GetGlobalSettings(_ context.Context) (model.GlobalSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	gs, err := get[model.GlobalSettings](s, store.CollSettings, model.GlobalSettingsID)
	if err == store.ErrNotFound {
		return model.DefaultGlobalSettings(), nil
	}
	return gs, err
}

func (s *Store) SaveGlobalSettings(_ context.Context, gs model.GlobalSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs.ID = model.GlobalSettingsID
	return s.put(store.CollSettings, gs.ID, gs)
}

// --- manual invoices ---

func (s *Store) GetManualInvoices(_ context.Context, outletID string) ([]model.ManualInvoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out, err := list(s, store.CollManualInvoices, func(inv model.ManualInvoice) bool {
		return outletID == "" || inv.OutletID == outletID
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) SaveManualInvoice(_ context.Context, inv model.ManualInvoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(store.CollManualInvoices, inv.ID, inv)
}

func (s *Store) DeleteManualInvoice(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(store.CollManualInvoices, id)
}

// --- reservations ---

func (s *Store) SaveReservation(_ context.Context, r model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(store.CollReservations, r.ID, r)
}

func (s *Store) GetReservations(_ context.Context, outletID string) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out, err := list(s, store.CollReservations, func(r model.Reservation) bool {
		return outletID == "" || r.OutletID == outletID
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

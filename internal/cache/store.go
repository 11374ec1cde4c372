package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/dineflow/api/internal/events"
	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/store"
	"go.uber.org/zap"
)

// Store decorates a store.Store. Reads of outlets, menus, inventory,
// settings, orders and manual invoices are cached under a key built from
// the query. Users are always read through to the underlying store.
type Store struct {
	store.Store
	backend Backend
	pub     events.Publisher
	ttl     time.Duration
	log     *zap.Logger
}

var _ store.Store = (*Store)(nil)

func New(inner store.Store, backend Backend, pub events.Publisher, ttl time.Duration, log *zap.Logger) *Store {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Store{Store: inner, backend: backend, pub: pub, ttl: ttl, log: log}
}

func key(collection string, parts ...string) string {
	return collection + ":" + strings.Join(parts, ":")
}

func readThrough[T any](ctx context.Context, s *Store, k string, load func() (T, error)) (T, error) {
	if b, err := s.backend.Get(ctx, k); err == nil {
		var v T
		if err := json.Unmarshal(b, &v); err == nil {
			return v, nil
		}
		s.log.Warn("cache decode failed", zap.String("key", k))
	} else if !errors.Is(err, ErrMiss) {
		s.log.Warn("cache get failed", zap.String("key", k), zap.Error(err))
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if b, err := json.Marshal(v); err == nil {
		if err := s.backend.Set(ctx, k, b, s.ttl); err != nil {
			s.log.Warn("cache set failed", zap.String("key", k), zap.Error(err))
		}
	}
	return v, nil
}

// changed runs after a confirmed write: it drops every cached query of the
// collections and tells subscribers to re-fetch.
func (s *Store) changed(ctx context.Context, change events.CollectionChanged, also ...string) {
	for _, coll := range append([]string{change.Collection}, also...) {
		if err := s.backend.DeletePrefix(ctx, coll+":"); err != nil {
			s.log.Error("cache invalidation failed", zap.String("collection", coll), zap.Error(err))
		}
	}

	topics := []string{events.CollectionTopic(change.Collection)}
	for _, coll := range also {
		topics = append(topics, events.CollectionTopic(coll))
	}
	if change.OutletID != "" {
		topics = append(topics, events.OutletTopic(change.OutletID))
	}
	e, err := events.New(events.TypeCollectionChanged, change, topics...)
	if err != nil {
		return
	}
	if err := s.pub.Publish(ctx, e); err != nil {
		s.log.Warn("change notification failed", zap.String("collection", change.Collection), zap.Error(err))
	}
}

// --- outlets ---

func (s *Store) GetOutlets(ctx context.Context) ([]model.Outlet, error) {
	return readThrough(ctx, s, key(store.CollOutlets, "active"), func() ([]model.Outlet, error) {
		return s.Store.GetOutlets(ctx)
	})
}

func (s *Store) GetOutlet(ctx context.Context, id string) (model.Outlet, error) {
	return readThrough(ctx, s, key(store.CollOutlets, "id="+id), func() (model.Outlet, error) {
		return s.Store.GetOutlet(ctx, id)
	})
}

func (s *Store) SaveOutlet(ctx context.Context, o model.Outlet) error {
	if err := s.Store.SaveOutlet(ctx, o); err != nil {
		return err
	}
	s.changed(ctx, events.CollectionChanged{Collection: store.CollOutlets, ID: o.ID, OutletID: o.ID})
	return nil
}

func (s *Store) DeleteOutlet(ctx context.Context, id string) error {
	if err := s.Store.DeleteOutlet(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, events.CollectionChanged{Collection: store.CollOutlets, ID: id, OutletID: id})
	return nil
}

// --- menu ---

func (s *Store) GetMenu(ctx context.Context, outletID string) ([]model.MenuItem, error) {
	return readThrough(ctx, s, key(store.CollMenu, "outlet="+outletID), func() ([]model.MenuItem, error) {
		return s.Store.GetMenu(ctx, outletID)
	})
}

func (s *Store) GetMenuItem(ctx context.Context, id string) (model.MenuItem, error) {
	return readThrough(ctx, s, key(store.CollMenu, "id="+id), func() (model.MenuItem, error) {
		return s.Store.GetMenuItem(ctx, id)
	})
}

func (s *Store) SaveMenuItem(ctx context.Context, item model.MenuItem) error {
	if err := s.Store.SaveMenuItem(ctx, item); err != nil {
		return err
	}
	s.changed(ctx, events.CollectionChanged{Collection: store.CollMenu, ID: item.ID, OutletID: item.OutletID})
	return nil
}

func (s *Store) DeleteMenuItem(ctx context.Context, id string) error {
	if err := s.Store.DeleteMenuItem(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, events.CollectionChanged{Collection: store.CollMenu, ID: id})
	return nil
}

// --- inventory ---

func (s *Store) GetInventory(ctx context.Context, outletID string) ([]model.InventoryItem, error) {
	return readThrough(ctx, s, key(store.CollInventory, "outlet="+outletID), func() ([]model.InventoryItem, error) {
		return s.Store.GetInventory(ctx, outletID)
	})
}

func (s *Store) GetInventoryItem(ctx context.Context, id string) (model.InventoryItem, error) {
	return readThrough(ctx, s, key(store.CollInventory, "id="+id), func() (model.InventoryItem, error) {
		return s.Store.GetInventoryItem(ctx, id)
	})
}

func (s *Store) SaveInventoryItem(ctx context.Context, item model.InventoryItem) error {
	if err := s.Store.SaveInventoryItem(ctx, item); err != nil {
		return err
	}
	s.changed(ctx, events.CollectionChanged{Collection: store.CollInventory, ID: item.ID, OutletID: item.OutletID})
	return nil
}

func (s *Store) DeleteInventoryItem(ctx context.Context, id string) error {
	if err := s.Store.DeleteInventoryItem(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, events.CollectionChanged{Collection: store.CollInventory, ID: id})
	return nil
}

func (s *Store) AdjustStock(ctx context.Context, id string, delta float64) (model.InventoryItem, error) {
	item, err := s.Store.AdjustStock(ctx, id, delta)
	if err != nil {
		return item, err
	}
	s.changed(ctx, events.CollectionChanged{Collection: store.CollInventory, ID: id, OutletID: item.OutletID})
	return item, nil
}

// --- orders ---

func (s *Store) GetOrders(ctx context.Context, f store.OrderFilter) ([]model.Order, error) {
	k := key(store.CollOrders, "user="+f.UserID, "outlet="+f.OutletID, "status="+strings.Join(f.Statuses, ","))
	return readThrough(ctx, s, k, func() ([]model.Order, error) {
		return s.Store.GetOrders(ctx, f)
	})
}

func (s *Store) GetOrder(ctx context.Context, id string) (model.Order, error) {
	return readThrough(ctx, s, key(store.CollOrders, "id="+id), func() (model.Order, error) {
		return s.Store.GetOrder(ctx, id)
	})
}

func (s *Store) CreateOrder(ctx context.Context, o model.Order, deductions []model.StockDeduction) error {
	if err := s.Store.CreateOrder(ctx, o, deductions); err != nil {
		return err
	}
	var also []string
	if len(deductions) > 0 {
		also = append(also, store.CollInventory)
	}
	s.changed(ctx, events.CollectionChanged{Collection: store.CollOrders, ID: o.ID, OutletID: o.OutletID}, also...)
	return nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id, expected string, entry model.StatusEntry) (model.Order, error) {
	o, err := s.Store.UpdateOrderStatus(ctx, id, expected, entry)
	if err != nil {
		return o, err
	}
	s.changed(ctx, events.CollectionChanged{Collection: store.CollOrders, ID: id, OutletID: o.OutletID})
	return o, nil
}

// --- users: not cached, but changes are announced ---

func (s *Store) SaveUser(ctx context.Context, u model.UserProfile) error {
	if err := s.Store.SaveUser(ctx, u); err != nil {
		return err
	}
	s.changed(ctx, events.CollectionChanged{Collection: store.CollUsers, ID: u.ID})
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if err := s.Store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, events.CollectionChanged{Collection: store.CollUsers, ID: id})
	return nil
}

// --- settings ---

func (s *Store) GetGlobalSettings(ctx context.Context) (model.GlobalSettings, error) {
	return readThrough(ctx, s, key(store.CollSettings, model.GlobalSettingsID), func() (model.GlobalSettings, error) {
		return s.Store.GetGlobalSettings(ctx)
	})
}

func (s *Store) SaveGlobalSettings(ctx context.Context, gs model.GlobalSettings) error {
	if err := s.Store.SaveGlobalSettings(ctx, gs); err != nil {
		return err
	}
	s.changed(ctx, events.CollectionChanged{Collection: store.CollSettings, ID: model.GlobalSettingsID})
	return nil
}

// --- manual invoices ---

func (s *Store) GetManualInvoices(ctx context.Context, outletID string) ([]model.ManualInvoice, error) {
	return readThrough(ctx, s, key(store.CollManualInvoices, "outlet="+outletID), func() ([]model.ManualInvoice, error) {
		return s.Store.GetManualInvoices(ctx, outletID)
	})
}

func (s *Store) SaveManualInvoice(ctx context.Context, inv model.ManualInvoice) error {
	if err := s.Store.SaveManualInvoice(ctx, inv); err != nil {
		return err
	}
	s.changed(ctx, events.CollectionChanged{Collection: store.CollManualInvoices, ID: inv.ID, OutletID: inv.OutletID})
	return nil
}

func (s *Store) DeleteManualInvoice(ctx context.Context, id string) error {
	if err := s.Store.DeleteManualInvoice(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, events.CollectionChanged{Collection: store.CollManualInvoices, ID: id})
	return nil
}

// --- reservations ---

func (s *Store) SaveReservation(ctx context.Context, r model.Reservation) error {
	if err := s.Store.SaveReservation(ctx, r); err != nil {
		return err
	}
	s.changed(ctx, events.CollectionChanged{Collection: store.CollReservations, ID: r.ID, OutletID: r.OutletID})
	return nil
}

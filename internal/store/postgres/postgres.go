// Package postgres stores every entity as a JSONB document in a single
// table keyed by (collection, id). Columns beside the body hold the
// fields the store filters and sorts on.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
	q    *queries
}

var _ store.Store = (*Store)(nil)

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(pool), nil
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: &queries{db: pool}}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// inTx runs fn inside a transaction and commits when fn succeeds.
func (s *Store) inTx(ctx context.Context, fn func(q *queries) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(&queries{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// --- outlets ---

func (s *Store) GetOutlets(ctx context.Context) ([]model.Outlet, error) {
	return listAs[model.Outlet](ctx, s.q.db,
		`SELECT body FROM documents
		 WHERE collection = $1 AND (body->>'isActive')::boolean
		 ORDER BY body->>'name'`, store.CollOutlets)
}

func (s *Store) GetOutlet(ctx context.Context, id string) (model.Outlet, error) {
	return getAs[model.Outlet](ctx, s.q.db, store.CollOutlets, id, false)
}

func (s *Store) SaveOutlet(ctx context.Context, o model.Outlet) error {
	return s.q.upsert(ctx, document{collection: store.CollOutlets, id: o.ID, createdAt: o.CreatedAt, body: o})
}

func (s *Store) DeleteOutlet(ctx context.Context, id string) error {
	return s.inTx(ctx, func(q *queries) error {
		o, err := getAs[model.Outlet](ctx, q.db, store.CollOutlets, id, true)
		if err != nil {
			return err
		}
		o.IsActive = false
		return q.upsert(ctx, document{collection: store.CollOutlets, id: o.ID, createdAt: o.CreatedAt, body: o})
	})
}

// --- menu ---

func (s *Store) GetMenu(ctx context.Context, outletID string) ([]model.MenuItem, error) {
	return listAs[model.MenuItem](ctx, s.q.db,
		`SELECT body FROM documents
		 WHERE collection = $1 AND ($2 = '' OR outlet_id = $2)
		 ORDER BY body->>'category', body->>'name'`, store.CollMenu, outletID)
}

func (s *Store) GetMenuItem(ctx context.Context, id string) (model.MenuItem, error) {
	return getAs[model.MenuItem](ctx, s.q.db, store.CollMenu, id, false)
}

func (s *Store) SaveMenuItem(ctx context.Context, item model.MenuItem) error {
	return s.q.upsert(ctx, document{collection: store.CollMenu, id: item.ID, outletID: item.OutletID, createdAt: item.CreatedAt, body: item})
}

func (s *Store) DeleteMenuItem(ctx context.Context, id string) error {
	return s.q.delete(ctx, store.CollMenu, id)
}

// --- inventory ---

func (s *Store) GetInventory(ctx context.Context, outletID string) ([]model.InventoryItem, error) {
	return listAs[model.InventoryItem](ctx, s.q.db,
		`SELECT body FROM documents
		 WHERE collection = $1 AND ($2 = '' OR outlet_id = $2)
		 ORDER BY body->>'name'`, store.CollInventory, outletID)
}

func (s *Store) GetInventoryItem(ctx context.Context, id string) (model.InventoryItem, error) {
	return getAs[model.InventoryItem](ctx, s.q.db, store.CollInventory, id, false)
}

func (s *Store) SaveInventoryItem(ctx context.Context, item model.InventoryItem) error {
	return s.q.upsert(ctx, inventoryDoc(item))
}

func (s *Store) DeleteInventoryItem(ctx context.Context, id string) error {
	return s.q.delete(ctx, store.CollInventory, id)
}

func (s *Store) AdjustStock(ctx context.Context, id string, delta float64) (model.InventoryItem, error) {
	var out model.InventoryItem
	err := s.inTx(ctx, func(q *queries) error {
		item, err := getAs[model.InventoryItem](ctx, q.db, store.CollInventory, id, true)
		if err != nil {
			return err
		}
		item.Adjust(delta)
		item.UpdatedAt = time.Now()
		if err := q.upsert(ctx, inventoryDoc(item)); err != nil {
			return err
		}
		out = item
		return nil
	})
	return out, err
}

func inventoryDoc(item model.InventoryItem) document {
	return document{collection: store.CollInventory, id: item.ID, outletID: item.OutletID, createdAt: item.UpdatedAt, body: item}
}

// --- orders ---

func (s *Store) GetOrders(ctx context.Context, f store.OrderFilter) ([]model.Order, error) {
	sql := `SELECT body FROM documents WHERE collection = $1`
	args := []interface{}{store.CollOrders}
	if f.UserID != "" {
		args = append(args, f.UserID)
		sql += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if f.OutletID != "" {
		args = append(args, f.OutletID)
		sql += fmt.Sprintf(" AND outlet_id = $%d", len(args))
	}
	if len(f.Statuses) > 0 {
		args = append(args, f.Statuses)
		sql += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}
	sql += " ORDER BY created_at DESC"
	return listAs[model.Order](ctx, s.q.db, sql, args...)
}

func (s *Store) GetOrder(ctx context.Context, id string) (model.Order, error) {
	return getAs[model.Order](ctx, s.q.db, store.CollOrders, id, false)
}

func (s *Store) CreateOrder(ctx context.Context, o model.Order, deductions []model.StockDeduction) error {
	// Merge per item and lock in id order so concurrent checkouts cannot deadlock.
	totals := make(map[string]float64, len(deductions))
	for _, d := range deductions {
		totals[d.InventoryItemID] += d.Quantity
	}
	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return s.inTx(ctx, func(q *queries) error {
		if err := q.insert(ctx, orderDoc(o)); err != nil {
			return err
		}

		now := time.Now()
		for _, id := range ids {
			item, err := getAs[model.InventoryItem](ctx, q.db, store.CollInventory, id, true)
			if err != nil {
				return fmt.Errorf("inventory %s: %w", id, err)
			}
			item.Adjust(-totals[id])
			item.UpdatedAt = now
			if err := q.upsert(ctx, inventoryDoc(item)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id, expected string, entry model.StatusEntry) (model.Order, error) {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return model.Order{}, err
	}

	var body []byte
	err = s.q.db.QueryRow(ctx,
		`UPDATE documents
		 SET status = $4,
		     body = jsonb_set(
		         jsonb_set(body, '{status}', to_jsonb($4::text)),
		         '{history}',
		         COALESCE(body->'history', '[]'::jsonb) || jsonb_build_array($5::jsonb)),
		     updated_at = now()
		 WHERE collection = $1 AND id = $2 AND status = $3
		 RETURNING body`,
		store.CollOrders, id, expected, entry.Status, entryJSON,
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the order is gone or its status moved on.
		if _, getErr := s.GetOrder(ctx, id); getErr != nil {
			return model.Order{}, getErr
		}
		return model.Order{}, store.ErrConflict
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("update order status: %w", err)
	}

	var o model.Order
	if err := json.Unmarshal(body, &o); err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func orderDoc(o model.Order) document {
	return document{
		collection: store.CollOrders,
		id:         o.ID,
		outletID:   o.OutletID,
		userID:     o.CustomerID,
		status:     o.Status,
		createdAt:  o.CreatedAt,
		body:       o,
	}
}

// --- users ---

var staffRoles = []string{enum.RoleSuperAdmin, enum.RoleOutletOwner, enum.RoleManager, enum.RoleDelivery}

func (s *Store) GetStaffUsers(ctx context.Context) ([]model.UserProfile, error) {
	return listAs[model.UserProfile](ctx, s.q.db,
		`SELECT body FROM documents
		 WHERE collection = $1 AND body->>'role' = ANY($2)
		 ORDER BY body->>'name'`, store.CollUsers, staffRoles)
}

func (s *Store) GetCustomers(ctx context.Context) ([]model.UserProfile, error) {
	return listAs[model.UserProfile](ctx, s.q.db,
		`SELECT body FROM documents
		 WHERE collection = $1 AND body->>'role' = $2
		 ORDER BY body->>'name'`, store.CollUsers, enum.RoleCustomer)
}

func (s *Store) GetUser(ctx context.Context, id string) (model.UserProfile, error) {
	return getAs[model.UserProfile](ctx, s.q.db, store.CollUsers, id, false)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.UserProfile, error) {
	var body []byte
	err := s.q.db.QueryRow(ctx,
		`SELECT body FROM documents WHERE collection = $1 AND lower(email) = lower($2)`,
		store.CollUsers, email,
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.UserProfile{}, store.ErrNotFound
	}
	if err != nil {
		return model.UserProfile{}, err
	}
	var u model.UserProfile
	err = json.Unmarshal(body, &u)
	return u, err
}

func (s *Store) SaveUser(ctx context.Context, u model.UserProfile) error {
	return s.q.upsert(ctx, document{
		collection: store.CollUsers,
		id:         u.ID,
		outletID:   u.OutletID,
		email:      u.Email,
		createdAt:  u.CreatedAt,
		body:       u,
	})
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.q.delete(ctx, store.CollUsers, id)
}

// --- settings ---

func (s *Store) GetGlobalSettings(ctx context.Context) (model.GlobalSettings, error) {
	gs, err := getAs[model.GlobalSettings](ctx, s.q.db, store.CollSettings, model.GlobalSettingsID, false)
	if errors.Is(err, store.ErrNotFound) {
		return model.DefaultGlobalSettings(), nil
	}
	return gs, err
}

func (s *Store) SaveGlobalSettings(ctx context.Context, gs model.GlobalSettings) error {
	gs.ID = model.GlobalSettingsID
	return s.q.upsert(ctx, document{collection: store.CollSettings, id: gs.ID, createdAt: gs.UpdatedAt, body: gs})
}

// --- manual invoices ---

func (s *Store) GetManualInvoices(ctx context.Context, outletID string) ([]model.ManualInvoice, error) {
	return listAs[model.ManualInvoice](ctx, s.q.db,
		`SELECT body FROM documents
		 WHERE collection = $1 AND ($2 = '' OR outlet_id = $2)
		 ORDER BY created_at DESC`, store.CollManualInvoices, outletID)
}

func (s *Store) SaveManualInvoice(ctx context.Context, inv model.ManualInvoice) error {
	return s.q.upsert(ctx, document{
		collection: store.CollManualInvoices,
		id:         inv.ID,
		outletID:   inv.OutletID,
		userID:     inv.CustomerID,
		createdAt:  inv.CreatedAt,
		body:       inv,
	})
}

func (s *Store) DeleteManualInvoice(ctx context.Context, id string) error {
	return s.q.delete(ctx, store.CollManualInvoices, id)
}

// --- reservations ---

func (s *Store) SaveReservation(ctx context.Context, r model.Reservation) error {
	return s.q.upsert(ctx, document{collection: store.CollReservations, id: r.ID, outletID: r.OutletID, createdAt: r.CreatedAt, body: r})
}

func (s *Store) GetReservations(ctx context.Context, outletID string) ([]model.Reservation, error) {
	return listAs[model.Reservation](ctx, s.q.db,
		`SELECT body FROM documents
		 WHERE collection = $1 AND ($2 = '' OR outlet_id = $2)
		 ORDER BY (body->>'time')::timestamptz`, store.CollReservations, outletID)
}

// Truncate removes every document. Used to reset state between test runs.
func Truncate(ctx context.Context, s *Store) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE documents`)
	return err
}

// Package mongo keeps each entity in its own MongoDB collection. Order
// creation runs in a multi-document transaction, so the server must be a
// replica set member.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// caseInsensitive matches emails regardless of case, on the index and in queries.
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

var staffRoles = []string{enum.RoleSuperAdmin, enum.RoleOutletOwner, enum.RoleManager, enum.RoleDelivery}

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ store.Store = (*Store)(nil)

// Connect dials the server, pings it and ensures indexes exist.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &Store{client: client, db: client.Database(database)}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		store.CollUsers: {{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetCollation(caseInsensitive).
				SetPartialFilterExpression(bson.M{"email": bson.M{"$gt": ""}}),
		}},
		store.CollOrders: {
			{Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "outletId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		store.CollMenu:           {{Keys: bson.D{{Key: "outletId", Value: 1}}}},
		store.CollInventory:      {{Keys: bson.D{{Key: "outletId", Value: 1}}}},
		store.CollManualInvoices: {{Keys: bson.D{{Key: "outletId", Value: 1}, {Key: "createdAt", Value: -1}}}},
	}
	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Drop removes every collection. Used to reset state between test runs.
func (s *Store) Drop(ctx context.Context) error {
	for _, coll := range []string{
		store.CollOutlets, store.CollMenu, store.CollInventory, store.CollOrders,
		store.CollUsers, store.CollSettings, store.CollManualInvoices, store.CollReservations,
	} {
		if _, err := s.db.Collection(coll).DeleteMany(ctx, bson.M{}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) c(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, sortBy bson.D) ([]T, error) {
	opts := options.Find()
	if len(sortBy) > 0 {
		opts.SetSort(sortBy)
	}
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOneOptions) (T, error) {
	var v T
	err := coll.FindOne(ctx, filter, opts...).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return v, store.ErrNotFound
	}
	return v, err
}

func (s *Store) replace(ctx context.Context, coll, id string, doc interface{}) error {
	_, err := s.c(coll).ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	return err
}

func (s *Store) deleteByID(ctx context.Context, coll, id string) error {
	res, err := s.c(coll).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func byOutlet(outletID string) bson.M {
	if outletID == "" {
		return bson.M{}
	}
	return bson.M{"outletId": outletID}
}

// --- outlets ---

func (s *Store) GetOutlets(ctx context.Context) ([]model.Outlet, error) {
	return findAll[model.Outlet](ctx, s.c(store.CollOutlets), bson.M{"isActive": true}, bson.D{{Key: "name", Value: 1}})
}

func (s *Store) GetOutlet(ctx context.Context, id string) (model.Outlet, error) {
	return findOne[model.Outlet](ctx, s.c(store.CollOutlets), bson.M{"_id": id})
}

func (s *Store) SaveOutlet(ctx context.Context, o model.Outlet) error {
	return s.replace(ctx, store.CollOutlets, o.ID, o)
}

func (s *Store) DeleteOutlet(ctx context.Context, id string) error {
	res, err := s.c(store.CollOutlets).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"isActive": false}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- menu ---

func (s *Store) GetMenu(ctx context.Context, outletID string) ([]model.MenuItem, error) {
	return findAll[model.MenuItem](ctx, s.c(store.CollMenu), byOutlet(outletID),
		bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}})
}

func (s *Store) GetMenuItem(ctx context.Context, id string) (model.MenuItem, error) {
	return findOne[model.MenuItem](ctx, s.c(store.CollMenu), bson.M{"_id": id})
}

func (s *Store) SaveMenuItem(ctx context.Context, item model.MenuItem) error {
	return s.replace(ctx, store.CollMenu, item.ID, item)
}

func (s *Store) DeleteMenuItem(ctx context.Context, id string) error {
	return s.deleteByID(ctx, store.CollMenu, id)
}

// --- inventory ---

func (s *Store) GetInventory(ctx context.Context, outletID string) ([]model.InventoryItem, error) {
	return findAll[model.InventoryItem](ctx, s.c(store.CollInventory), byOutlet(outletID), bson.D{{Key: "name", Value: 1}})
}

func (s *Store) GetInventoryItem(ctx context.Context, id string) (model.InventoryItem, error) {
	return findOne[model.InventoryItem](ctx, s.c(store.CollInventory), bson.M{"_id": id})
}

func (s *Store) SaveInventoryItem(ctx context.Context, item model.InventoryItem) error {
	return s.replace(ctx, store.CollInventory, item.ID, item)
}

func (s *Store) DeleteInventoryItem(ctx context.Context, id string) error {
	return s.deleteByID(ctx, store.CollInventory, id)
}

// adjustPipeline adds delta to stock and clamps the result at zero in one
// server-side update.
func adjustPipeline(delta float64, now time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"stock":     bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{"$stock", delta}}}},
			"updatedAt": now,
		}}},
	}
}

func (s *Store) AdjustStock(ctx context.Context, id string, delta float64) (model.InventoryItem, error) {
	var item model.InventoryItem
	err := s.c(store.CollInventory).FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		adjustPipeline(delta, time.Now()),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.InventoryItem{}, store.ErrNotFound
	}
	return item, err
}

// --- orders ---

func (s *Store) GetOrders(ctx context.Context, f store.OrderFilter) ([]model.Order, error) {
	filter := bson.M{}
	if f.UserID != "" {
		filter["customerId"] = f.UserID
	}
	if f.OutletID != "" {
		filter["outletId"] = f.OutletID
	}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": f.Statuses}
	}
	return findAll[model.Order](ctx, s.c(store.CollOrders), filter, bson.D{{Key: "createdAt", Value: -1}})
}

func (s *Store) GetOrder(ctx context.Context, id string) (model.Order, error) {
	return findOne[model.Order](ctx, s.c(store.CollOrders), bson.M{"_id": id})
}

func (s *Store) CreateOrder(ctx context.Context, o model.Order, deductions []model.StockDeduction) error {
	totals := make(map[string]float64, len(deductions))
	for _, d := range deductions {
		totals[d.InventoryItemID] += d.Quantity
	}
	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := s.c(store.CollOrders).InsertOne(sc, o); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, store.ErrDuplicate
			}
			return nil, err
		}
		now := time.Now()
		for _, id := range ids {
			res, err := s.c(store.CollInventory).UpdateOne(sc, bson.M{"_id": id}, adjustPipeline(-totals[id], now))
			if err != nil {
				return nil, err
			}
			if res.MatchedCount == 0 {
				return nil, fmt.Errorf("inventory %s: %w", id, store.ErrNotFound)
			}
		}
		return nil, nil
	})
	return err
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id, expected string, entry model.StatusEntry) (model.Order, error) {
	var o model.Order
	err := s.c(store.CollOrders).FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": expected},
		bson.M{
			"$set":  bson.M{"status": entry.Status},
			"$push": bson.M{"history": entry},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := s.GetOrder(ctx, id); getErr != nil {
			return model.Order{}, getErr
		}
		return model.Order{}, store.ErrConflict
	}
	return o, err
}

// --- users ---

func (s *Store) GetStaffUsers(ctx context.Context) ([]model.UserProfile, error) {
	return findAll[model.UserProfile](ctx, s.c(store.CollUsers), bson.M{"role": bson.M{"$in": staffRoles}}, bson.D{{Key: "name", Value: 1}})
}

func (s *Store) GetCustomers(ctx context.Context) ([]model.UserProfile, error) {
	return findAll[model.UserProfile](ctx, s.c(store.CollUsers), bson.M{"role": enum.RoleCustomer}, bson.D{{Key: "name", Value: 1}})
}

func (s *Store) GetUser(ctx context.Context, id string) (model.UserProfile, error) {
	return findOne[model.UserProfile](ctx, s.c(store.CollUsers), bson.M{"_id": id})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.UserProfile, error) {
	return findOne[model.UserProfile](ctx, s.c(store.CollUsers), bson.M{"email": email},
		options.FindOne().SetCollation(caseInsensitive))
}

func (s *Store) SaveUser(ctx context.Context, u model.UserProfile) error {
	return s.replace(ctx, store.CollUsers, u.ID, u)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.deleteByID(ctx, store.CollUsers, id)
}

// --- settings ---

func (s *Store) GetGlobalSettings(ctx context.Context) (model.GlobalSettings, error) {
	gs, err := findOne[model.GlobalSettings](ctx, s.c(store.CollSettings), bson.M{"_id": model.GlobalSettingsID})
	if errors.Is(err, store.ErrNotFound) {
		return model.DefaultGlobalSettings(), nil
	}
	return gs, err
}

func (s *Store) SaveGlobalSettings(ctx context.Context, gs model.GlobalSettings) error {
	gs.ID = model.GlobalSettingsID
	return s.replace(ctx, store.CollSettings, gs.ID, gs)
}

// --- manual invoices ---

func (s *Store) GetManualInvoices(ctx context.Context, outletID string) ([]model.ManualInvoice, error) {
	return findAll[model.ManualInvoice](ctx, s.c(store.CollManualInvoices), byOutlet(outletID), bson.D{{Key: "createdAt", Value: -1}})
}

func (s *Store) SaveManualInvoice(ctx context.Context, inv model.ManualInvoice) error {
	return s.replace(ctx, store.CollManualInvoices, inv.ID, inv)
}

func (s *Store) DeleteManualInvoice(ctx context.Context, id string) error {
	return s.deleteByID(ctx, store.CollManualInvoices, id)
}

// --- reservations ---

func (s *Store) SaveReservation(ctx context.Context, r model.Reservation) error {
	return s.replace(ctx, store.CollReservations, r.ID, r)
}

func (s *Store) GetReservations(ctx context.Context, outletID string) ([]model.Reservation, error) {
	return findAll[model.Reservation](ctx, s.c(store.CollReservations), byOutlet(outletID), bson.D{{Key: "time", Value: 1}})
}

// Package storetest holds behaviour checks every store.Store
// implementation must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/store"
	"github.com/google/uuid"
)

// Run executes the suite. newStore must return an empty store each call.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"Outlets", testOutlets},
		{"Menu", testMenu},
		{"Inventory", testInventory},
		{"CreateOrderDeductsStock", testCreateOrder},
		{"CreateOrderAtomic", testCreateOrderAtomic},
		{"UpdateOrderStatus", testUpdateOrderStatus},
		{"OrderFilters", testOrderFilters},
		{"Users", testUsers},
		{"Settings", testSettings},
		{"ManualInvoices", testManualInvoices},
		{"Reservations", testReservations},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func ts(min int) time.Time {
	return time.Date(2026, 3, 1, 12, min, 0, 0, time.UTC)
}

func testOutlets(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := model.Outlet{ID: uuid.NewString(), Name: "Andheri", IsActive: true, CreatedAt: ts(0)}
	b := model.Outlet{ID: uuid.NewString(), Name: "Bandra", IsActive: true, CreatedAt: ts(1),
		Location: &model.Coordinates{Lat: 19.06, Lng: 72.83}}
	for _, o := range []model.Outlet{b, a} {
		if err := s.SaveOutlet(ctx, o); err != nil {
			t.Fatalf("save outlet: %v", err)
		}
	}

	got, err := s.GetOutlets(ctx)
	if err != nil {
		t.Fatalf("get outlets: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Andheri" {
		t.Fatalf("outlets: got %+v", got)
	}

	if err := s.DeleteOutlet(ctx, a.ID); err != nil {
		t.Fatalf("delete outlet: %v", err)
	}
	got, _ = s.GetOutlets(ctx)
	if len(got) != 1 || got[0].ID != b.ID {
		t.Errorf("after delete: got %+v", got)
	}

	// A deleted outlet stays readable by id for order history.
	gone, err := s.GetOutlet(ctx, a.ID)
	if err != nil || gone.IsActive {
		t.Errorf("deleted outlet: %+v, %v", gone, err)
	}

	kept, err := s.GetOutlet(ctx, b.ID)
	if err != nil || kept.Location == nil || kept.Location.Lat != 19.06 {
		t.Errorf("outlet location: %+v, %v", kept, err)
	}

	if _, err := s.GetOutlet(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing outlet: got %v", err)
	}
	if err := s.DeleteOutlet(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("delete missing outlet: got %v", err)
	}
}

func testMenu(t *testing.T, s store.Store) {
	ctx := context.Background()
	half := 120.0
	items := []model.MenuItem{
		{ID: uuid.NewString(), OutletID: "o1", Name: "Paneer Tikka", Category: "Starters", Price: model.Price{Full: 220, Half: &half}, Available: true, CreatedAt: ts(0)},
		{ID: uuid.NewString(), OutletID: "o1", Name: "Dal Makhani", Category: "Mains", Price: model.Price{Full: 180}, Available: true, CreatedAt: ts(1)},
		{ID: uuid.NewString(), OutletID: "o2", Name: "Lassi", Category: "Drinks", Price: model.Price{Full: 60}, Available: true, CreatedAt: ts(2)},
	}
	for _, it := range items {
		if err := s.SaveMenuItem(ctx, it); err != nil {
			t.Fatalf("save menu item: %v", err)
		}
	}

	o1, err := s.GetMenu(ctx, "o1")
	if err != nil {
		t.Fatalf("get menu: %v", err)
	}
	if len(o1) != 2 || o1[0].Category != "Mains" {
		t.Fatalf("outlet menu: got %+v", o1)
	}
	all, _ := s.GetMenu(ctx, "")
	if len(all) != 3 {
		t.Errorf("full menu: got %d items", len(all))
	}

	got, err := s.GetMenuItem(ctx, items[0].ID)
	if err != nil {
		t.Fatalf("get menu item: %v", err)
	}
	if p, ok := got.Price.For(enum.VariantHalf); !ok || p != 120 {
		t.Errorf("half price: got %v %v", p, ok)
	}
	if _, ok := got.Price.For(enum.VariantQtr); ok {
		t.Error("qtr price should be absent")
	}

	if err := s.DeleteMenuItem(ctx, items[0].ID); err != nil {
		t.Fatalf("delete menu item: %v", err)
	}
	if _, err := s.GetMenuItem(ctx, items[0].ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("deleted item: got %v", err)
	}
}

func testInventory(t *testing.T, s store.Store) {
	ctx := context.Background()
	item := model.InventoryItem{ID: uuid.NewString(), OutletID: "o1", Name: "Paneer", Stock: 5, MinStock: 2, Unit: "kg"}
	if err := s.SaveInventoryItem(ctx, item); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.AdjustStock(ctx, item.ID, -2.5)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if got.Stock != 2.5 {
		t.Errorf("stock: got %v, want 2.5", got.Stock)
	}

	got, _ = s.AdjustStock(ctx, item.ID, -10)
	if got.Stock != 0 {
		t.Errorf("stock should clamp at 0, got %v", got.Stock)
	}

	list, err := s.GetInventory(ctx, "o1")
	if err != nil || len(list) != 1 || list[0].Stock != 0 {
		t.Errorf("inventory: %+v, %v", list, err)
	}
	if other, _ := s.GetInventory(ctx, "o2"); len(other) != 0 {
		t.Errorf("other outlet inventory: %+v", other)
	}

	if _, err := s.AdjustStock(ctx, "missing", 1); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("adjust missing: got %v", err)
	}
	if err := s.DeleteInventoryItem(ctx, item.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetInventoryItem(ctx, item.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("deleted item: got %v", err)
	}
}

func newOrder(outletID, customerID string, at time.Time) model.Order {
	return model.Order{
		ID:         uuid.NewString(),
		OutletID:   outletID,
		CustomerID: customerID,
		Customer:   model.Contact{Name: "Asha", Phone: "9123456789", Address: "14 Park Street"},
		Items:      []model.OrderItem{{MenuItemID: "m1", Name: "Dal", Variant: enum.VariantFull, Price: 180, Quantity: 2}},
		Subtotal:   model.MoneyFromFloat(360),
		Tax:        model.MoneyFromFloat(18),
		Total:      model.MoneyFromFloat(378),
		Status:     enum.OrderStatusPending,
		CreatedAt:  at,
		History: []model.StatusEntry{
			{Status: enum.OrderStatusPending, Time: at, UpdatedBy: enum.ActorSystem},
		},
	}
}

func testCreateOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	inv := model.InventoryItem{ID: uuid.NewString(), OutletID: "o1", Name: "Dal", Stock: 10, Unit: "kg"}
	if err := s.SaveInventoryItem(ctx, inv); err != nil {
		t.Fatalf("save inventory: %v", err)
	}

	o := newOrder("o1", "c1", ts(5))
	deductions := []model.StockDeduction{
		{InventoryItemID: inv.ID, Quantity: 1.5},
		{InventoryItemID: inv.ID, Quantity: 0.5},
	}
	if err := s.CreateOrder(ctx, o, deductions); err != nil {
		t.Fatalf("create order: %v", err)
	}

	got, err := s.GetOrder(ctx, o.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Total.String() != "378.00" || len(got.History) != 1 || len(got.Items) != 1 {
		t.Errorf("order: got %+v", got)
	}

	stock, _ := s.GetInventoryItem(ctx, inv.ID)
	if stock.Stock != 8 {
		t.Errorf("stock: got %v, want 8", stock.Stock)
	}

	if err := s.CreateOrder(ctx, o, nil); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("duplicate order: got %v", err)
	}
}

func testCreateOrderAtomic(t *testing.T, s store.Store) {
	ctx := context.Background()
	inv := model.InventoryItem{ID: uuid.NewString(), OutletID: "o1", Name: "Rice", Stock: 10}
	if err := s.SaveInventoryItem(ctx, inv); err != nil {
		t.Fatalf("save inventory: %v", err)
	}

	o := newOrder("o1", "c1", ts(6))
	err := s.CreateOrder(ctx, o, []model.StockDeduction{
		{InventoryItemID: inv.ID, Quantity: 1},
		{InventoryItemID: "vanished", Quantity: 1},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("create order: got %v, want ErrNotFound", err)
	}

	if _, err := s.GetOrder(ctx, o.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("order should not exist after failed create, got %v", err)
	}
	stock, _ := s.GetInventoryItem(ctx, inv.ID)
	if stock.Stock != 10 {
		t.Errorf("stock changed after failed create: %v", stock.Stock)
	}
}

func testUpdateOrderStatus(t *testing.T, s store.Store) {
	ctx := context.Background()
	o := newOrder("o1", "c1", ts(7))
	if err := s.CreateOrder(ctx, o, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	entry := model.StatusEntry{Status: enum.OrderStatusAccepted, Time: ts(8), UpdatedBy: "m1"}
	got, err := s.UpdateOrderStatus(ctx, o.ID, enum.OrderStatusPending, entry)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != enum.OrderStatusAccepted || len(got.History) != 2 {
		t.Errorf("updated order: %+v", got)
	}
	if got.History[1].UpdatedBy != "m1" {
		t.Errorf("history actor: got %q", got.History[1].UpdatedBy)
	}

	// A second writer that still believes the order is PENDING loses.
	stale := model.StatusEntry{Status: enum.OrderStatusRejected, Time: ts(9), UpdatedBy: "m2"}
	if _, err := s.UpdateOrderStatus(ctx, o.ID, enum.OrderStatusPending, stale); !errors.Is(err, store.ErrConflict) {
		t.Errorf("stale update: got %v, want ErrConflict", err)
	}

	reread, _ := s.GetOrder(ctx, o.ID)
	if reread.Status != enum.OrderStatusAccepted || len(reread.History) != 2 {
		t.Errorf("order changed by losing writer: %+v", reread)
	}

	if _, err := s.UpdateOrderStatus(ctx, "missing", enum.OrderStatusPending, entry); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing order: got %v", err)
	}
}

func testOrderFilters(t *testing.T, s store.Store) {
	ctx := context.Background()
	o1 := newOrder("o1", "c1", ts(1))
	o2 := newOrder("o1", "c2", ts(3))
	o3 := newOrder("o2", "c1", ts(2))
	o3.Status = enum.OrderStatusDelivered
	for _, o := range []model.Order{o1, o2, o3} {
		if err := s.CreateOrder(ctx, o, nil); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	all, err := s.GetOrders(ctx, store.OrderFilter{})
	if err != nil {
		t.Fatalf("get orders: %v", err)
	}
	if len(all) != 3 || all[0].ID != o2.ID || all[2].ID != o1.ID {
		t.Errorf("newest first: got %v", ids(all))
	}

	byUser, _ := s.GetOrders(ctx, store.OrderFilter{UserID: "c1"})
	if len(byUser) != 2 || byUser[0].ID != o3.ID {
		t.Errorf("by user: got %v", ids(byUser))
	}

	byOutlet, _ := s.GetOrders(ctx, store.OrderFilter{OutletID: "o1"})
	if len(byOutlet) != 2 {
		t.Errorf("by outlet: got %v", ids(byOutlet))
	}

	delivered, _ := s.GetOrders(ctx, store.OrderFilter{Statuses: []string{enum.OrderStatusDelivered}})
	if len(delivered) != 1 || delivered[0].ID != o3.ID {
		t.Errorf("by status: got %v", ids(delivered))
	}
}

func ids(orders []model.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	staff := model.UserProfile{
		ID: uuid.NewString(), Name: "Manoj", Email: "manoj@example.com", Role: enum.RoleManager,
		OutletID: "o1", Permissions: &model.Permissions{ManageOrders: true}, PasswordHash: "hash", IsActive: true,
	}
	customer := model.UserProfile{ID: uuid.NewString(), Name: "Asha", Email: "asha@example.com", Role: enum.RoleCustomer, IsActive: true}
	for _, u := range []model.UserProfile{staff, customer} {
		if err := s.SaveUser(ctx, u); err != nil {
			t.Fatalf("save user: %v", err)
		}
	}

	got, err := s.GetUserByEmail(ctx, "MANOJ@example.com")
	if err != nil {
		t.Fatalf("by email: %v", err)
	}
	if got.ID != staff.ID || got.PasswordHash != "hash" || got.Permissions == nil || !got.Permissions.ManageOrders {
		t.Errorf("user: %+v", got)
	}

	staffList, _ := s.GetStaffUsers(ctx)
	customers, _ := s.GetCustomers(ctx)
	if len(staffList) != 1 || staffList[0].ID != staff.ID {
		t.Errorf("staff: %+v", staffList)
	}
	if len(customers) != 1 || customers[0].ID != customer.ID {
		t.Errorf("customers: %+v", customers)
	}

	dup := model.UserProfile{ID: uuid.NewString(), Name: "Other", Email: "asha@example.com", Role: enum.RoleCustomer}
	if err := s.SaveUser(ctx, dup); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("duplicate email: got %v", err)
	}

	// Re-saving the same user with its own email is an update.
	customer.Name = "Asha Verma"
	if err := s.SaveUser(ctx, customer); err != nil {
		t.Fatalf("update user: %v", err)
	}

	if err := s.DeleteUser(ctx, staff.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := s.GetUser(ctx, staff.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("deleted user: got %v", err)
	}
	if _, err := s.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown email: got %v", err)
	}
}

func testSettings(t *testing.T, s store.Store) {
	ctx := context.Background()
	gs, err := s.GetGlobalSettings(ctx)
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if gs.GSTPercentage != model.DefaultGlobalSettings().GSTPercentage || len(gs.DeliveryTiers) == 0 {
		t.Errorf("defaults: %+v", gs)
	}

	gs.GSTPercentage = 12
	gs.DeliveryTiers = []model.DeliveryTier{{UpToKm: 2, Charge: 20}}
	gs.Invoice.BusinessName = "Spice Route"
	if err := s.SaveGlobalSettings(ctx, gs); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, _ := s.GetGlobalSettings(ctx)
	if got.GSTPercentage != 12 || len(got.DeliveryTiers) != 1 || got.Invoice.BusinessName != "Spice Route" {
		t.Errorf("saved settings: %+v", got)
	}
}

func testManualInvoices(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := model.ManualInvoice{ID: uuid.NewString(), OutletID: "o1", Total: model.MoneyFromFloat(100), CreatedAt: ts(1)}
	b := model.ManualInvoice{ID: uuid.NewString(), OutletID: "o1", Total: model.MoneyFromFloat(200), CreatedAt: ts(2)}
	c := model.ManualInvoice{ID: uuid.NewString(), OutletID: "o2", Total: model.MoneyFromFloat(300), CreatedAt: ts(3)}
	for _, inv := range []model.ManualInvoice{a, b, c} {
		if err := s.SaveManualInvoice(ctx, inv); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	got, err := s.GetManualInvoices(ctx, "o1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 || got[0].ID != b.ID {
		t.Errorf("invoices: %+v", got)
	}

	if err := s.DeleteManualInvoice(ctx, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	all, _ := s.GetManualInvoices(ctx, "")
	if len(all) != 2 {
		t.Errorf("after delete: %d invoices", len(all))
	}
}

func testReservations(t *testing.T, s store.Store) {
	ctx := context.Background()
	later := model.Reservation{ID: uuid.NewString(), OutletID: "o1", Name: "Meera", PartySize: 4, Time: ts(30), CreatedAt: ts(0)}
	sooner := model.Reservation{ID: uuid.NewString(), OutletID: "o1", Name: "Ravi", PartySize: 2, Time: ts(10), CreatedAt: ts(1)}
	for _, r := range []model.Reservation{later, sooner} {
		if err := s.SaveReservation(ctx, r); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	got, err := s.GetReservations(ctx, "o1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 || got[0].ID != sooner.ID {
		t.Errorf("reservations: %+v", got)
	}
}

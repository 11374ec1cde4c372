package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/dineflow/api/internal/cart"
	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/geo"
	"github.com/dineflow/api/internal/handler"
	"github.com/dineflow/api/internal/middleware"
	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/orderflow"
	"github.com/dineflow/api/internal/service"
	"github.com/dineflow/api/internal/store"
	"github.com/dineflow/api/internal/store/memory"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// --- Mock OrderServicer ---

type mockOrderService struct {
	checkoutFn        func(ctx context.Context, req service.CheckoutRequest) (model.Order, error)
	transitionFn      func(ctx context.Context, id, to string, actor service.Actor) (model.Order, error)
	getFn             func(ctx context.Context, id string, actor service.Actor) (model.Order, error)
	listForCustomerFn func(ctx context.Context, userID string) ([]model.Order, error)
	listForOutletFn   func(ctx context.Context, outletID string, statuses []string, actor service.Actor) ([]model.Order, error)
	invoiceFn         func(ctx context.Context, id string, actor service.Actor) (service.Invoice, error)
	quoteFn           func(ctx context.Context, req service.QuoteRequest) (service.Quote, error)
}

func (m *mockOrderService) Checkout(ctx context.Context, req service.CheckoutRequest) (model.Order, error) {
	return m.checkoutFn(ctx, req)
}

func (m *mockOrderService) Transition(ctx context.Context, id, to string, actor service.Actor) (model.Order, error) {
	return m.transitionFn(ctx, id, to, actor)
}

func (m *mockOrderService) Get(ctx context.Context, id string, actor service.Actor) (model.Order, error) {
	return m.getFn(ctx, id, actor)
}

func (m *mockOrderService) ListForCustomer(ctx context.Context, userID string) ([]model.Order, error) {
	return m.listForCustomerFn(ctx, userID)
}

func (m *mockOrderService) ListForOutlet(ctx context.Context, outletID string, statuses []string, actor service.Actor) ([]model.Order, error) {
	return m.listForOutletFn(ctx, outletID, statuses, actor)
}

func (m *mockOrderService) Invoice(ctx context.Context, id string, actor service.Actor) (service.Invoice, error) {
	return m.invoiceFn(ctx, id, actor)
}

func (m *mockOrderService) Quote(ctx context.Context, req service.QuoteRequest) (service.Quote, error) {
	return m.quoteFn(ctx, req)
}

// --- Helpers ---

// setupOrderRouter mirrors the production layout: public order routes run
// behind OptionalAuthenticate, status changes behind Authenticate and the
// outlet queue inside an outlet-scoped admin subrouter.
func setupOrderRouter(svc handler.OrderServicer, extra ...func(chi.Router)) http.Handler {
	h := handler.NewOrderHandler(svc, zap.NewNop())

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuthenticate(testTokens))
		h.RegisterRoutes(r)
		for _, fn := range extra {
			fn(r)
		}
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testTokens))
		h.RegisterStaffRoutes(r)
		r.Get("/me/orders", h.MyOrders)
	})
	r.Route("/admin/outlets/{oid}", func(r chi.Router) {
		r.Use(middleware.Authenticate(testTokens))
		r.Use(middleware.RequireOutlet)
		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.RequirePermission(enum.PermManageOrders))
			h.RegisterOutletRoutes(r)
		})
	})
	return r
}

// orderStack wires the real order service to a seeded memory store so the
// whole checkout path runs.
type orderStack struct {
	db     *memory.Store
	carts  *cart.MemoryRepository
	router http.Handler
}

func newOrderStack(t *testing.T) *orderStack {
	t.Helper()
	db := seededStore(t)
	carts := cart.NewMemoryRepository()
	svc := service.NewOrderService(db, carts, geo.NewEstimator(geo.DefaultHeuristic()), nil, zap.NewNop())
	cartH := handler.NewCartHandler(db, carts, zap.NewNop())

	router := setupOrderRouter(svc, func(r chi.Router) {
		r.Route("/cart", cartH.RegisterRoutes)
	})
	return &orderStack{db: db, carts: carts, router: router}
}

func checkoutBody() map[string]interface{} {
	return map[string]interface{}{
		"recipient": map[string]string{
			"name":    "Asha Rao",
			"phone":   "9876543210",
			"address": "12 Residency Road, Bengaluru",
		},
		"email":         "asha@example.com",
		"paymentMethod": enum.PaymentMethodCOD,
		"location":      map[string]float64{"lat": 12.9716, "lng": 77.6046},
	}
}

func (s *orderStack) guestCheckout(t *testing.T, units int) model.Order {
	t.Helper()
	hdr := []string{handler.CartSessionHeader, guestSession}
	for i := 0; i < units; i++ {
		rr := request(t, s.router, "POST", "/cart/items", "", map[string]string{"menuItemId": testMenuItemID}, hdr...)
		expectStatus(t, rr, http.StatusOK)
	}
	rr := request(t, s.router, "POST", "/checkout", "", checkoutBody(), hdr...)
	expectStatus(t, rr, http.StatusCreated)

	var order model.Order
	decodeInto(t, rr, &order)
	return order
}

func orderManager(t *testing.T, outletID string) string {
	return tokenFor(t, "m-1", enum.RoleManager, outletID, enum.PermManageOrders)
}

// --- Checkout ---

func TestCheckout_GuestPlacesOrder(t *testing.T) {
	s := newOrderStack(t)

	order := s.guestCheckout(t, 2)
	if order.Status != enum.OrderStatusPending || len(order.History) != 1 {
		t.Errorf("status = %s, history = %+v", order.Status, order.History)
	}
	if !strings.HasPrefix(order.CustomerID, "guest_") {
		t.Errorf("customerId = %q, want guest_ prefix", order.CustomerID)
	}
	// 698 subtotal, 34.9 GST, ~1.1 km lands in the 3 km tier (30).
	if order.Subtotal.String() != "698.00" || order.Tax.String() != "34.90" || order.DeliveryCharge.String() != "30.00" || order.Total.String() != "762.90" {
		t.Errorf("totals = %v / %v / %v / %v", order.Subtotal, order.Tax, order.DeliveryCharge, order.Total)
	}

	inv, err := s.db.GetInventoryItem(context.Background(), testInvID)
	if err != nil {
		t.Fatalf("get inventory: %v", err)
	}
	if inv.Stock != 9.5 {
		t.Errorf("stock = %v, want 9.5", inv.Stock)
	}

	c, _ := s.carts.Get(context.Background(), "session:"+guestSession)
	if !c.IsEmpty() {
		t.Error("cart not cleared after checkout")
	}
}

func TestCheckout_Errors(t *testing.T) {
	s := newOrderStack(t)
	hdr := []string{handler.CartSessionHeader, guestSession}

	rr := request(t, s.router, "POST", "/checkout", "", checkoutBody(), hdr...)
	expectStatus(t, rr, http.StatusBadRequest)
	if resp := decodeResponse(t, rr); resp["error"] != service.ErrEmptyCart.Error() {
		t.Errorf("error = %v", resp["error"])
	}

	request(t, s.router, "POST", "/cart/items", "", map[string]string{"menuItemId": testMenuItemID}, hdr...)

	body := checkoutBody()
	body["recipient"] = map[string]string{"name": "A1", "phone": "12345", "address": "short"}
	rr = request(t, s.router, "POST", "/checkout", "", body, hdr...)
	expectStatus(t, rr, http.StatusBadRequest)
	resp := decodeResponse(t, rr)
	fields, _ := resp["fields"].(map[string]interface{})
	for _, f := range []string{"name", "phone", "address"} {
		if _, ok := fields[f]; !ok {
			t.Errorf("missing field error for %s: %v", f, resp)
		}
	}

	body = checkoutBody()
	body["paymentMethod"] = "CRYPTO"
	rr = request(t, s.router, "POST", "/checkout", "", body, hdr...)
	expectStatus(t, rr, http.StatusBadRequest)

	body = checkoutBody()
	body["location"] = map[string]float64{"lat": 13.5, "lng": 77.6}
	rr = request(t, s.router, "POST", "/checkout", "", body, hdr...)
	expectStatus(t, rr, http.StatusBadRequest)
	if resp := decodeResponse(t, rr); !strings.Contains(resp["error"].(string), "delivery radius") {
		t.Errorf("error = %v", resp["error"])
	}

	rr = request(t, s.router, "POST", "/checkout", "", checkoutBody())
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestCheckout_ItemWithdrawnAfterAdd(t *testing.T) {
	s := newOrderStack(t)
	hdr := []string{handler.CartSessionHeader, guestSession}
	request(t, s.router, "POST", "/cart/items", "", map[string]string{"menuItemId": testMenuItemID}, hdr...)

	ctx := context.Background()
	item, _ := s.db.GetMenuItem(ctx, testMenuItemID)
	item.Available = false
	if err := s.db.SaveMenuItem(ctx, item); err != nil {
		t.Fatalf("save item: %v", err)
	}

	rr := request(t, s.router, "POST", "/checkout", "", checkoutBody(), hdr...)
	expectStatus(t, rr, http.StatusBadRequest)

	orders, _ := s.db.GetOrders(ctx, store.OrderFilter{})
	if len(orders) != 0 {
		t.Errorf("%d orders stored after failed checkout", len(orders))
	}
}

func TestCheckout_SignedInCustomer(t *testing.T) {
	s := newOrderStack(t)
	tok := customerToken(t, "u-9")

	request(t, s.router, "POST", "/cart/items", tok, map[string]string{"menuItemId": testMenuItemID})
	rr := request(t, s.router, "POST", "/checkout", tok, checkoutBody())
	expectStatus(t, rr, http.StatusCreated)

	var order model.Order
	decodeInto(t, rr, &order)
	if order.CustomerID != "u-9" {
		t.Errorf("customerId = %q, want u-9", order.CustomerID)
	}

	rr = request(t, s.router, "GET", "/me/orders", tok, nil)
	expectStatus(t, rr, http.StatusOK)
	var mine []model.Order
	decodeInto(t, rr, &mine)
	if len(mine) != 1 || mine[0].ID != order.ID {
		t.Errorf("my orders = %+v", mine)
	}

	// Another customer cannot track it.
	rr = request(t, s.router, "GET", "/orders/"+order.ID, customerToken(t, "u-10"), nil)
	expectStatus(t, rr, http.StatusForbidden)

	rr = request(t, s.router, "GET", "/orders/"+order.ID, tok, nil)
	expectStatus(t, rr, http.StatusOK)
}

// --- Tracking and status ---

func TestTrack_UnknownOrder(t *testing.T) {
	s := newOrderStack(t)

	rr := request(t, s.router, "GET", "/orders/missing", "", nil)
	expectStatus(t, rr, http.StatusNotFound)
	if resp := decodeResponse(t, rr); resp["error"] != "order not found" {
		t.Errorf("error = %v", resp["error"])
	}
}

func TestUpdateStatus_Lifecycle(t *testing.T) {
	s := newOrderStack(t)
	order := s.guestCheckout(t, 1)
	path := "/orders/" + order.ID + "/status"
	tok := orderManager(t, testOutletID)

	rr := request(t, s.router, "PATCH", path, "", map[string]string{"status": enum.OrderStatusAccepted})
	expectStatus(t, rr, http.StatusUnauthorized)

	rr = request(t, s.router, "PATCH", path, customerToken(t, "u-1"), map[string]string{"status": enum.OrderStatusAccepted})
	expectStatus(t, rr, http.StatusForbidden)

	rr = request(t, s.router, "PATCH", path, orderManager(t, otherOutletID), map[string]string{"status": enum.OrderStatusAccepted})
	expectStatus(t, rr, http.StatusForbidden)

	rr = request(t, s.router, "PATCH", path, tok, map[string]string{"status": enum.OrderStatusDelivered})
	expectStatus(t, rr, http.StatusConflict)

	rr = request(t, s.router, "PATCH", path, tok, map[string]string{"status": "COOKING"})
	expectStatus(t, rr, http.StatusBadRequest)

	rr = request(t, s.router, "PATCH", path, tok, map[string]string{})
	expectStatus(t, rr, http.StatusBadRequest)

	rr = request(t, s.router, "PATCH", path, tok, map[string]string{"status": enum.OrderStatusAccepted})
	expectStatus(t, rr, http.StatusOK)
	var updated model.Order
	decodeInto(t, rr, &updated)
	if updated.Status != enum.OrderStatusAccepted || len(updated.History) != 2 {
		t.Errorf("updated = %s with %d history entries", updated.Status, len(updated.History))
	}
	if updated.History[1].UpdatedBy != "m-1" {
		t.Errorf("updatedBy = %q", updated.History[1].UpdatedBy)
	}

	rr = request(t, s.router, "PATCH", path, tok, map[string]string{"status": enum.OrderStatusRejected})
	expectStatus(t, rr, http.StatusOK)

	rr = request(t, s.router, "PATCH", path, tok, map[string]string{"status": enum.OrderStatusPreparing})
	expectStatus(t, rr, http.StatusConflict)

	rr = request(t, s.router, "PATCH", "/orders/missing/status", tok, map[string]string{"status": enum.OrderStatusAccepted})
	expectStatus(t, rr, http.StatusNotFound)
}

func TestOutletOrders(t *testing.T) {
	s := newOrderStack(t)
	first := s.guestCheckout(t, 1)
	s.guestCheckout(t, 1)

	tok := orderManager(t, testOutletID)
	rr := request(t, s.router, "PATCH", "/orders/"+first.ID+"/status", tok, map[string]string{"status": enum.OrderStatusAccepted})
	expectStatus(t, rr, http.StatusOK)

	base := "/admin/outlets/" + testOutletID + "/orders/"
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCount  int
	}{
		{"all", "", http.StatusOK, 2},
		{"pending only", "?status=PENDING", http.StatusOK, 1},
		{"two statuses", "?status=PENDING&status=ACCEPTED", http.StatusOK, 2},
		{"unknown status", "?status=LOST", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := request(t, s.router, "GET", base+tt.query, tok, nil)
			expectStatus(t, rr, tt.wantStatus)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var orders []model.Order
			decodeInto(t, rr, &orders)
			if len(orders) != tt.wantCount {
				t.Errorf("got %d orders, want %d", len(orders), tt.wantCount)
			}
		})
	}

	rr = request(t, s.router, "GET", "/admin/outlets/"+otherOutletID+"/orders/", tok, nil)
	expectStatus(t, rr, http.StatusForbidden)
}

func TestOrderPayloads_NextActions(t *testing.T) {
	s := newOrderStack(t)
	delivered := s.guestCheckout(t, 1)
	rejected := s.guestCheckout(t, 1)
	tok := orderManager(t, testOutletID)

	type payload struct {
		Status      string   `json:"status"`
		NextActions []string `json:"nextActions"`
	}

	rr := request(t, s.router, "GET", "/orders/"+delivered.ID, "", nil)
	expectStatus(t, rr, http.StatusOK)
	var tracked payload
	decodeInto(t, rr, &tracked)
	if fmt.Sprint(tracked.NextActions) != fmt.Sprint([]string{enum.OrderStatusAccepted, enum.OrderStatusRejected}) {
		t.Errorf("pending nextActions = %v", tracked.NextActions)
	}

	var last payload
	for _, status := range []string{
		enum.OrderStatusAccepted, enum.OrderStatusPreparing, enum.OrderStatusReady,
		enum.OrderStatusOutForDelivery, enum.OrderStatusDelivered,
	} {
		rr = request(t, s.router, "PATCH", "/orders/"+delivered.ID+"/status", tok, map[string]string{"status": status})
		expectStatus(t, rr, http.StatusOK)
		last = payload{}
		decodeInto(t, rr, &last)
	}
	if last.Status != enum.OrderStatusDelivered || last.NextActions == nil || len(last.NextActions) != 0 {
		t.Errorf("delivered payload = %+v, want empty nextActions", last)
	}

	rr = request(t, s.router, "PATCH", "/orders/"+rejected.ID+"/status", tok, map[string]string{"status": enum.OrderStatusRejected})
	expectStatus(t, rr, http.StatusOK)

	rr = request(t, s.router, "GET", "/admin/outlets/"+testOutletID+"/orders/", tok, nil)
	expectStatus(t, rr, http.StatusOK)
	var queue []payload
	decodeInto(t, rr, &queue)
	if len(queue) != 2 {
		t.Fatalf("got %d orders, want 2", len(queue))
	}
	for _, o := range queue {
		if o.NextActions == nil || len(o.NextActions) != 0 {
			t.Errorf("%s order nextActions = %v, want []", o.Status, o.NextActions)
		}
	}
}

func TestInvoice_ResolvesBranding(t *testing.T) {
	s := newOrderStack(t)
	order := s.guestCheckout(t, 1)

	rr := request(t, s.router, "GET", "/orders/"+order.ID+"/invoice", "", nil)
	expectStatus(t, rr, http.StatusOK)

	var inv service.Invoice
	decodeInto(t, rr, &inv)
	if inv.Order.ID != order.ID || inv.Outlet.ID != testOutletID || inv.GSTPercentage != 5 {
		t.Errorf("invoice = %+v", inv)
	}
}

// --- Error mapping with a mocked service ---

func TestOrderHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", fmt.Errorf("get order: %w", store.ErrNotFound), http.StatusNotFound},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"illegal", fmt.Errorf("%w: x", orderflow.ErrIllegalTransition), http.StatusConflict},
		{"terminal", orderflow.ErrTerminal, http.StatusConflict},
		{"cas lost", fmt.Errorf("update order status: %w", store.ErrConflict), http.StatusConflict},
		{"unexpected", errBoom, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockOrderService{
				getFn: func(context.Context, string, service.Actor) (model.Order, error) {
					return model.Order{}, tt.err
				},
			}
			rr := request(t, setupOrderRouter(svc), "GET", "/orders/o-1", "", nil)
			expectStatus(t, rr, tt.wantStatus)
			if tt.wantStatus == http.StatusInternalServerError {
				if resp := decodeResponse(t, rr); resp["error"] != "internal server error" {
					t.Errorf("500 body leaked details: %v", resp)
				}
			}
		})
	}
}

func TestOrderHandler_PassesActor(t *testing.T) {
	var got service.Actor
	svc := &mockOrderService{
		getFn: func(_ context.Context, _ string, actor service.Actor) (model.Order, error) {
			got = actor
			return model.Order{ID: "o-1"}, nil
		},
	}
	router := setupOrderRouter(svc)

	rr := request(t, router, "GET", "/orders/o-1", orderManager(t, testOutletID), nil)
	expectStatus(t, rr, http.StatusOK)
	if got.UserID != "m-1" || got.OutletID != testOutletID || !got.Can(enum.PermManageOrders) {
		t.Errorf("actor = %+v", got)
	}

	// An expired or garbage token falls back to a guest.
	rr = request(t, router, "GET", "/orders/o-1", "garbage", nil)
	expectStatus(t, rr, http.StatusOK)
	if !got.IsGuest() {
		t.Errorf("actor = %+v, want guest", got)
	}
}

// --- Quote ---

func TestQuote(t *testing.T) {
	s := newOrderStack(t)

	rr := request(t, s.router, "POST", "/delivery/quote", "", map[string]interface{}{
		"outletId": testOutletID,
		"location": map[string]float64{"lat": 12.9716, "lng": 77.6046},
	})
	expectStatus(t, rr, http.StatusOK)

	var q service.Quote
	decodeInto(t, rr, &q)
	if !q.Precise || !q.WithinRadius || q.DeliveryCharge.String() != "30.00" || q.Total.String() != "30.00" {
		t.Errorf("quote = %+v", q)
	}

	rr = request(t, s.router, "POST", "/delivery/quote", "", map[string]interface{}{"outletId": testOutletID})
	expectStatus(t, rr, http.StatusBadRequest)

	rr = request(t, s.router, "POST", "/delivery/quote", "", map[string]interface{}{
		"outletId": "ghost", "address": "12 Residency Road",
	})
	expectStatus(t, rr, http.StatusConflict)
}

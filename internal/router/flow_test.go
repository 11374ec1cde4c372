package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dineflow/api/internal/auth"
	"github.com/dineflow/api/internal/cart"
	"github.com/dineflow/api/internal/config"
	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/handler"
	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/router"
	"github.com/dineflow/api/internal/store"
	"github.com/dineflow/api/internal/ws"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	adminEmail    = "admin@dineflow.test"
	adminPassword = "integration-pass"
	guestSession  = "flow-session"
)

// newTestRouter wires the full router over db with an in-memory cart
// repository and a running hub.
func newTestRouter(t *testing.T, db store.Store) http.Handler {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := ws.NewHub()
	go hub.Run(ctx)

	cfg := &config.Config{
		Server: config.ServerConfig{CORSOrigins: []string{"http://localhost:3000"}},
	}
	return router.New(cfg, router.Deps{
		Store:     db,
		Carts:     cart.NewMemoryRepository(),
		Tokens:    auth.NewTokens("flow-test-secret", 15*time.Minute, time.Hour),
		Hub:       hub,
		Publisher: hub,
		Log:       zap.NewNop(),
	})
}

func seedAdmin(t *testing.T, db store.Store) {
	t.Helper()
	hash, err := auth.HashPassword(adminPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := db.SaveUser(context.Background(), model.UserProfile{
		ID:           uuid.NewString(),
		Name:         "Flow Admin",
		Email:        adminEmail,
		Role:         enum.RoleSuperAdmin,
		OutletID:     enum.OutletScopeAll,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func mustStatus(t *testing.T, step string, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("%s: status = %d, want %d (body: %s)", step, rr.Code, want, rr.Body.String())
	}
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rr.Body.String())
	}
}

// runFlow drives one order from outlet setup to a delivered order on the
// revenue report.
func runFlow(t *testing.T, db store.Store) {
	seedAdmin(t, db)
	h := newTestRouter(t, db)

	// 1. Health
	rr := doRequest(t, h, "GET", "/health", "", nil)
	mustStatus(t, "health", rr, http.StatusOK)

	// 2. Login
	rr = doRequest(t, h, "POST", "/auth/login", "", map[string]string{
		"email": adminEmail, "password": adminPassword,
	})
	mustStatus(t, "login", rr, http.StatusOK)
	var sess struct {
		AccessToken string `json:"accessToken"`
	}
	decode(t, rr, &sess)
	admin := sess.AccessToken

	// 3. Outlet
	rr = doRequest(t, h, "POST", "/admin/outlets", admin, map[string]interface{}{
		"name":             "Dineflow Indiranagar",
		"address":          "100 Feet Road, Indiranagar, Bengaluru",
		"phone":            "9876543210",
		"location":         map[string]float64{"lat": 12.9716, "lng": 77.5946},
		"deliveryRadiusKm": 10,
	})
	mustStatus(t, "create outlet", rr, http.StatusCreated)
	var outlet model.Outlet
	decode(t, rr, &outlet)

	rr = doRequest(t, h, "PUT", "/admin/outlets/"+outlet.ID, admin, map[string]interface{}{
		"name":             "Dineflow Indiranagar",
		"address":          "100 Feet Road, Indiranagar, Bengaluru",
		"phone":            "9876543210",
		"location":         map[string]float64{"lat": 12.9716, "lng": 77.5946},
		"deliveryRadiusKm": 8,
	})
	mustStatus(t, "update outlet", rr, http.StatusOK)

	// 4. Menu
	rr = doRequest(t, h, "POST", "/admin/outlets/"+outlet.ID+"/menu", admin, map[string]interface{}{
		"name":     "Masala Dosa",
		"category": "Breakfast",
		"price":    map[string]float64{"full": 300},
		"foodType": enum.FoodTypeVeg,
	})
	mustStatus(t, "create menu item", rr, http.StatusCreated)
	var item struct {
		ID string `json:"id"`
	}
	decode(t, rr, &item)

	rr = doRequest(t, h, "GET", "/outlets/"+outlet.ID+"/menu", "", nil)
	mustStatus(t, "public menu", rr, http.StatusOK)

	// 5. Guest cart and checkout, about 1.1 km from the outlet
	session := []string{handler.CartSessionHeader, guestSession}
	for i := 0; i < 2; i++ {
		rr = doRequest(t, h, "POST", "/cart/items", "", map[string]string{"menuItemId": item.ID}, session...)
		mustStatus(t, "add to cart", rr, http.StatusOK)
	}
	rr = doRequest(t, h, "POST", "/checkout", "", map[string]interface{}{
		"recipient": map[string]string{
			"name":    "Asha Rao",
			"phone":   "9876543210",
			"address": "12 Residency Road, Bengaluru",
		},
		"paymentMethod": enum.PaymentMethodUPI,
		"location":      map[string]float64{"lat": 12.9716, "lng": 77.6046},
	}, session...)
	mustStatus(t, "checkout", rr, http.StatusCreated)
	var order model.Order
	decode(t, rr, &order)

	// 600 + 5% GST + 30 for the first delivery tier
	if order.Subtotal.String() != "600.00" || order.Tax.String() != "30.00" || order.DeliveryCharge.String() != "30.00" || order.Total.String() != "660.00" {
		t.Errorf("order totals = %v / %v / %v / %v", order.Subtotal, order.Tax, order.DeliveryCharge, order.Total)
	}
	if order.Status != enum.OrderStatusPending {
		t.Errorf("status = %q, want PENDING", order.Status)
	}

	// 6. Lifecycle
	for _, status := range []string{
		enum.OrderStatusAccepted, enum.OrderStatusPreparing, enum.OrderStatusReady,
		enum.OrderStatusOutForDelivery, enum.OrderStatusDelivered,
	} {
		rr = doRequest(t, h, "PATCH", "/orders/"+order.ID+"/status", admin, map[string]string{"status": status})
		mustStatus(t, "move to "+status, rr, http.StatusOK)
	}
	rr = doRequest(t, h, "PATCH", "/orders/"+order.ID+"/status", admin, map[string]string{"status": enum.OrderStatusRejected})
	mustStatus(t, "reject delivered", rr, http.StatusConflict)

	// 7. Public tracking
	rr = doRequest(t, h, "GET", "/orders/"+order.ID, "", nil)
	mustStatus(t, "track", rr, http.StatusOK)
	var tracked model.Order
	decode(t, rr, &tracked)
	if tracked.Status != enum.OrderStatusDelivered || len(tracked.History) != 6 {
		t.Errorf("tracked = %s with %d history entries", tracked.Status, len(tracked.History))
	}

	// 8. Revenue
	rr = doRequest(t, h, "GET", "/admin/reports/revenue?outlet_id="+outlet.ID, admin, nil)
	mustStatus(t, "revenue", rr, http.StatusOK)
	var report struct {
		OrderCount   int    `json:"orderCount"`
		OrderRevenue string `json:"orderRevenue"`
	}
	decode(t, rr, &report)
	if report.OrderCount != 1 || report.OrderRevenue != "660.00" {
		t.Errorf("report = %+v", report)
	}

	// 9. Guest cannot reach admin routes
	rr = doRequest(t, h, "GET", "/admin/outlets/"+outlet.ID+"/orders", "", nil)
	mustStatus(t, "admin without token", rr, http.StatusUnauthorized)
}

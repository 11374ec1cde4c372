package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dineflow/api/internal/auth"
	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/store/memory"
)

const testSecret = "test-secret"

const (
	testOutletID   = "outlet-1"
	otherOutletID  = "outlet-2"
	testMenuItemID = "item-1"
	testInvID      = "inv-1"
)

var errBoom = errors.New("boom")

var testTokens = auth.NewTokens(testSecret, time.Hour, time.Hour)

var outletLocation = model.Coordinates{Lat: 12.9716, Lng: 77.5946}

// tokenFor issues an access token for a user with the given role, outlet
// scope and permissions.
func tokenFor(t *testing.T, userID, role, outletID string, perms ...string) string {
	t.Helper()
	tok, err := testTokens.GenerateToken(auth.Subject{
		UserID:      userID,
		Role:        role,
		OutletID:    outletID,
		Permissions: perms,
	})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return tok
}

func superAdminToken(t *testing.T) string {
	return tokenFor(t, "admin-1", enum.RoleSuperAdmin, enum.OutletScopeAll)
}

func customerToken(t *testing.T, userID string) string {
	return tokenFor(t, userID, enum.RoleCustomer, "")
}

// seededStore returns a memory store holding two active outlets, one
// inventory item, one menu item and the default settings.
func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	db := memory.New()

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	must(db.SaveOutlet(ctx, model.Outlet{
		ID:               testOutletID,
		Name:             "Koramangala",
		Address:          "80 Feet Road, Koramangala",
		Location:         &outletLocation,
		DeliveryRadiusKm: 10,
		IsActive:         true,
	}))
	must(db.SaveOutlet(ctx, model.Outlet{
		ID:       otherOutletID,
		Name:     "Whitefield",
		Address:  "ITPL Main Road, Whitefield",
		Location: &model.Coordinates{Lat: 12.9698, Lng: 77.7500},
		IsActive: true,
	}))
	must(db.SaveInventoryItem(ctx, model.InventoryItem{
		ID: testInvID, OutletID: testOutletID, Name: "Paneer", Stock: 10, MinStock: 2, Unit: "kg",
	}))
	half := 199.0
	must(db.SaveMenuItem(ctx, model.MenuItem{
		ID:              testMenuItemID,
		OutletID:        testOutletID,
		Name:            "Paneer Tikka",
		Category:        "Starters",
		Price:           model.Price{Full: 349, Half: &half},
		Available:       true,
		FoodType:        enum.FoodTypeVeg,
		SpiceLevel:      enum.SpiceMild,
		DiscountPercent: 0,
		Inventory:       []model.InventoryLink{{InventoryItemID: testInvID, QuantityPerUnit: 0.25}},
	}))
	must(db.SaveGlobalSettings(ctx, model.DefaultGlobalSettings()))
	return db
}

// request is a JSON request against router. body may be nil; headers are
// applied pairwise (name, value).
func request(t *testing.T, router http.Handler, method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("marshal request: %v", err)
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
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", rr.Code, want, rr.Body.String())
	}
}

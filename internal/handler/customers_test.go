package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/handler"
	"github.com/dineflow/api/internal/middleware"
	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type mockCustomerService struct {
	listFn func(ctx context.Context, actor service.Actor) ([]model.UserProfile, error)
}

func (m *mockCustomerService) ListCustomers(ctx context.Context, actor service.Actor) ([]model.UserProfile, error) {
	return m.listFn(ctx, actor)
}

func setupCustomerRouter(svc handler.CustomerServicer) http.Handler {
	h := handler.NewCustomerHandler(svc, zap.NewNop())

	r := chi.NewRouter()
	r.Route("/admin/customers", func(r chi.Router) {
		r.Use(middleware.Authenticate(testTokens))
		r.Use(middleware.RequireRole(enum.RoleSuperAdmin))
		h.RegisterRoutes(r)
	})
	return r
}

func customerFixtures() *mockCustomerService {
	return &mockCustomerService{
		listFn: func(context.Context, service.Actor) ([]model.UserProfile, error) {
			return []model.UserProfile{
				{ID: "c-1", Name: "Asha Rao", Email: "asha@example.com", Phone: "9876543210", Role: enum.RoleCustomer},
				{ID: "c-2", Name: "Vikram Shah", Email: "vik@example.org", Phone: "9123456780", Role: enum.RoleCustomer},
			}, nil
		},
	}
}

func TestCustomers_Search(t *testing.T) {
	router := setupCustomerRouter(customerFixtures())
	tok := superAdminToken(t)

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{"no filter", "", []string{"c-1", "c-2"}},
		{"by name any case", "?search=ASHA", []string{"c-1"}},
		{"by email", "?search=example.org", []string{"c-2"}},
		{"by phone", "?search=91234", []string{"c-2"}},
		{"no match", "?search=nobody", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := request(t, router, "GET", "/admin/customers/"+tt.query, tok, nil)
			expectStatus(t, rr, http.StatusOK)

			var got []model.UserProfile
			decodeInto(t, rr, &got)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d customers, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("customer[%d] = %q, want %q", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestCustomers_SuperAdminOnly(t *testing.T) {
	router := setupCustomerRouter(customerFixtures())
	tok := tokenFor(t, "o-1", enum.RoleOutletOwner, enum.OutletScopeAll, enum.PermManageManagers)

	rr := request(t, router, "GET", "/admin/customers/", tok, nil)
	expectStatus(t, rr, http.StatusForbidden)
}

package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/handler"
	"github.com/dineflow/api/internal/middleware"
	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/service"
	"github.com/dineflow/api/internal/store"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type mockStaffService struct {
	listFn   func(ctx context.Context, actor service.Actor) ([]model.UserProfile, error)
	createFn func(ctx context.Context, in service.StaffInput, actor service.Actor) (model.UserProfile, error)
	updateFn func(ctx context.Context, id string, in service.StaffInput, actor service.Actor) (model.UserProfile, error)
	deleteFn func(ctx context.Context, id string, actor service.Actor) error
}

func (m *mockStaffService) ListStaff(ctx context.Context, actor service.Actor) ([]model.UserProfile, error) {
	return m.listFn(ctx, actor)
}

func (m *mockStaffService) CreateStaff(ctx context.Context, in service.StaffInput, actor service.Actor) (model.UserProfile, error) {
	return m.createFn(ctx, in, actor)
}

func (m *mockStaffService) UpdateStaff(ctx context.Context, id string, in service.StaffInput, actor service.Actor) (model.UserProfile, error) {
	return m.updateFn(ctx, id, in, actor)
}

func (m *mockStaffService) DeleteStaff(ctx context.Context, id string, actor service.Actor) error {
	return m.deleteFn(ctx, id, actor)
}

func setupUserRouter(svc handler.StaffServicer) http.Handler {
	h := handler.NewUserHandler(svc, zap.NewNop())

	r := chi.NewRouter()
	r.Route("/admin/users", func(r chi.Router) {
		r.Use(middleware.Authenticate(testTokens))
		r.Use(middleware.RequirePermission(enum.PermManageManagers))
		h.RegisterRoutes(r)
	})
	return r
}

func ownerToken(t *testing.T) string {
	return tokenFor(t, "o-1", enum.RoleOutletOwner, enum.OutletScopeAll, enum.PermManageManagers)
}

func TestUsers_List(t *testing.T) {
	svc := &mockStaffService{
		listFn: func(_ context.Context, actor service.Actor) ([]model.UserProfile, error) {
			if actor.UserID != "o-1" {
				t.Errorf("actor = %+v", actor)
			}
			return []model.UserProfile{
				{ID: "m-1", Name: "Ravi", Role: enum.RoleManager, OutletID: testOutletID, IsActive: true},
			}, nil
		},
	}
	router := setupUserRouter(svc)

	rr := request(t, router, "GET", "/admin/users/", ownerToken(t), nil)
	expectStatus(t, rr, http.StatusOK)

	var users []model.UserProfile
	decodeInto(t, rr, &users)
	if len(users) != 1 || users[0].ID != "m-1" {
		t.Errorf("users = %+v", users)
	}
}

func TestUsers_CreatePassesInput(t *testing.T) {
	var got service.StaffInput
	svc := &mockStaffService{
		createFn: func(_ context.Context, in service.StaffInput, _ service.Actor) (model.UserProfile, error) {
			got = in
			return model.UserProfile{ID: "m-9", Name: in.Name, Role: in.Role, OutletID: in.OutletID, IsActive: true}, nil
		},
	}
	router := setupUserRouter(svc)

	rr := request(t, router, "POST", "/admin/users/", ownerToken(t), map[string]interface{}{
		"name":        "Meera",
		"email":       "meera@example.com",
		"role":        enum.RoleManager,
		"outletId":    testOutletID,
		"password":    "s3cretpass",
		"permissions": map[string]bool{"manageMenu": true, "manageOrders": true},
	})
	expectStatus(t, rr, http.StatusCreated)

	if got.Email != "meera@example.com" || got.Password != "s3cretpass" || got.OutletID != testOutletID {
		t.Errorf("input = %+v", got)
	}
	if !got.Permissions.ManageMenu || !got.Permissions.ManageOrders || got.Permissions.ManageOutlets {
		t.Errorf("permissions = %+v", got.Permissions)
	}
	if got.IsActive != nil {
		t.Errorf("isActive = %v, want nil when omitted", *got.IsActive)
	}
}

func TestUsers_CreateErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"email taken", service.ErrEmailTaken, http.StatusConflict},
		{"bad role", service.ErrInvalidRole, http.StatusBadRequest},
		{"outlet required", service.ErrOutletRequired, http.StatusBadRequest},
		{"weak password", service.ErrWeakPassword, http.StatusBadRequest},
		{"unknown outlet", fmt.Errorf("get outlet: %w", store.ErrNotFound), http.StatusNotFound},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockStaffService{
				createFn: func(context.Context, service.StaffInput, service.Actor) (model.UserProfile, error) {
					return model.UserProfile{}, tt.err
				},
			}
			rr := request(t, setupUserRouter(svc), "POST", "/admin/users/", ownerToken(t), map[string]string{"name": "X"})
			expectStatus(t, rr, tt.wantStatus)
		})
	}
}

func TestUsers_UpdateAndDelete(t *testing.T) {
	var updatedID, deletedID string
	svc := &mockStaffService{
		updateFn: func(_ context.Context, id string, in service.StaffInput, _ service.Actor) (model.UserProfile, error) {
			updatedID = id
			if in.IsActive == nil || *in.IsActive {
				t.Errorf("isActive = %v, want false", in.IsActive)
			}
			return model.UserProfile{ID: id, Name: in.Name}, nil
		},
		deleteFn: func(_ context.Context, id string, actor service.Actor) error {
			if id == actor.UserID {
				return service.ErrForbidden
			}
			deletedID = id
			return nil
		},
	}
	router := setupUserRouter(svc)
	tok := ownerToken(t)

	rr := request(t, router, "PUT", "/admin/users/m-1", tok, map[string]interface{}{"name": "Ravi K", "isActive": false})
	expectStatus(t, rr, http.StatusOK)
	if updatedID != "m-1" {
		t.Errorf("updated id = %q", updatedID)
	}

	rr = request(t, router, "DELETE", "/admin/users/m-1", tok, nil)
	expectStatus(t, rr, http.StatusNoContent)
	if deletedID != "m-1" {
		t.Errorf("deleted id = %q", deletedID)
	}

	rr = request(t, router, "DELETE", "/admin/users/o-1", tok, nil)
	expectStatus(t, rr, http.StatusForbidden)
}

func TestUsers_RequiresManageManagers(t *testing.T) {
	router := setupUserRouter(&mockStaffService{})
	tok := tokenFor(t, "m-1", enum.RoleManager, testOutletID, enum.PermManageOrders)

	rr := request(t, router, "GET", "/admin/users/", tok, nil)
	expectStatus(t, rr, http.StatusForbidden)
}

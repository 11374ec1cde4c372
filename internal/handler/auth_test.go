package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/dineflow/api/internal/auth"
	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/handler"
	"github.com/dineflow/api/internal/middleware"
	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/service"
	"github.com/dineflow/api/internal/validate"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// --- Mock AccountServicer ---

type mockAccountService struct {
	registerFn       func(ctx context.Context, in validate.Registration) (service.Session, error)
	loginFn          func(ctx context.Context, email, password string) (service.Session, error)
	refreshFn        func(ctx context.Context, token string) (service.Session, error)
	profileFn        func(ctx context.Context, userID string) (model.UserProfile, error)
	updatePasswordFn func(ctx context.Context, userID, current, next string) error
}

func (m *mockAccountService) RegisterCustomer(ctx context.Context, in validate.Registration) (service.Session, error) {
	return m.registerFn(ctx, in)
}

func (m *mockAccountService) Login(ctx context.Context, email, password string) (service.Session, error) {
	return m.loginFn(ctx, email, password)
}

func (m *mockAccountService) Refresh(ctx context.Context, token string) (service.Session, error) {
	return m.refreshFn(ctx, token)
}

func (m *mockAccountService) Profile(ctx context.Context, userID string) (model.UserProfile, error) {
	return m.profileFn(ctx, userID)
}

func (m *mockAccountService) UpdatePassword(ctx context.Context, userID, current, next string) error {
	return m.updatePasswordFn(ctx, userID, current, next)
}

// --- Helpers ---

func setupAuthRouter(svc handler.AccountServicer) http.Handler {
	h := handler.NewAuthHandler(svc, zap.NewNop())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	r.Route("/me", func(r chi.Router) {
		r.Use(middleware.Authenticate(testTokens))
		h.RegisterMeRoutes(r)
	})
	return r
}

func testSession() service.Session {
	return service.Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		User:         model.UserProfile{ID: "u-1", Name: "Asha", Email: "asha@example.com", Role: enum.RoleCustomer},
	}
}

// --- Login tests ---

func TestLogin_Success(t *testing.T) {
	svc := &mockAccountService{
		loginFn: func(_ context.Context, email, password string) (service.Session, error) {
			if email != "asha@example.com" || password != "secret-pass" {
				t.Errorf("login called with %q / %q", email, password)
			}
			return testSession(), nil
		},
	}
	router := setupAuthRouter(svc)

	rr := request(t, router, "POST", "/auth/login", "", map[string]string{
		"email": "asha@example.com", "password": "secret-pass",
	})
	expectStatus(t, rr, http.StatusOK)

	resp := decodeResponse(t, rr)
	if resp["accessToken"] != "access" || resp["refreshToken"] != "refresh" {
		t.Errorf("unexpected tokens: %v", resp)
	}
	user, _ := resp["user"].(map[string]interface{})
	if _, ok := user["passwordHash"]; ok {
		t.Error("password hash leaked in response")
	}
}

func TestLogin_MissingFields(t *testing.T) {
	router := setupAuthRouter(&mockAccountService{})

	rr := request(t, router, "POST", "/auth/login", "", map[string]string{"email": "asha@example.com"})
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &mockAccountService{
		loginFn: func(context.Context, string, string) (service.Session, error) {
			return service.Session{}, service.ErrInvalidCredentials
		},
	}
	router := setupAuthRouter(svc)

	rr := request(t, router, "POST", "/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "whatever-pass",
	})
	expectStatus(t, rr, http.StatusUnauthorized)
	if resp := decodeResponse(t, rr); resp["error"] != "invalid credentials" {
		t.Errorf("error = %v, want generic message", resp["error"])
	}
}

func TestLogin_InvalidBody(t *testing.T) {
	router := setupAuthRouter(&mockAccountService{})

	rr := request(t, router, "POST", "/auth/login", "", "not an object")
	expectStatus(t, rr, http.StatusBadRequest)
}

// --- Register tests ---

func TestRegister_Created(t *testing.T) {
	svc := &mockAccountService{
		registerFn: func(_ context.Context, in validate.Registration) (service.Session, error) {
			if in.Email != "asha@example.com" {
				t.Errorf("email = %q", in.Email)
			}
			return testSession(), nil
		},
	}
	router := setupAuthRouter(svc)

	rr := request(t, router, "POST", "/auth/register", "", map[string]string{
		"name": "Asha", "email": "asha@example.com", "password": "secret-pass",
	})
	expectStatus(t, rr, http.StatusCreated)
}

func TestRegister_FieldErrors(t *testing.T) {
	svc := &mockAccountService{
		registerFn: func(context.Context, validate.Registration) (service.Session, error) {
			return service.Session{}, validate.FieldErrors{"email": validate.MsgEmail}
		},
	}
	router := setupAuthRouter(svc)

	rr := request(t, router, "POST", "/auth/register", "", map[string]string{"email": "bad"})
	expectStatus(t, rr, http.StatusBadRequest)

	resp := decodeResponse(t, rr)
	fields, _ := resp["fields"].(map[string]interface{})
	if fields["email"] != validate.MsgEmail {
		t.Errorf("fields = %v", resp["fields"])
	}
}

func TestRegister_EmailTaken(t *testing.T) {
	svc := &mockAccountService{
		registerFn: func(context.Context, validate.Registration) (service.Session, error) {
			return service.Session{}, service.ErrEmailTaken
		},
	}
	router := setupAuthRouter(svc)

	rr := request(t, router, "POST", "/auth/register", "", map[string]string{"email": "asha@example.com"})
	expectStatus(t, rr, http.StatusConflict)
}

// --- Refresh tests ---

func TestRefresh(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]string
		err        error
		wantStatus int
	}{
		{"success", map[string]string{"refreshToken": "good"}, nil, http.StatusOK},
		{"missing token", map[string]string{}, nil, http.StatusBadRequest},
		{"invalid token", map[string]string{"refreshToken": "bad"}, auth.ErrInvalidToken, http.StatusUnauthorized},
		{"store failure", map[string]string{"refreshToken": "good"}, fmt.Errorf("get user: %w", errBoom), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAccountService{
				refreshFn: func(context.Context, string) (service.Session, error) {
					if tt.err != nil {
						return service.Session{}, tt.err
					}
					return testSession(), nil
				},
			}
			rr := request(t, setupAuthRouter(svc), "POST", "/auth/refresh", "", tt.body)
			expectStatus(t, rr, tt.wantStatus)
		})
	}
}

// --- Me tests ---

func TestMe_RequiresToken(t *testing.T) {
	router := setupAuthRouter(&mockAccountService{})

	rr := request(t, router, "GET", "/me/", "", nil)
	expectStatus(t, rr, http.StatusUnauthorized)
}

func TestMe_ReturnsProfile(t *testing.T) {
	svc := &mockAccountService{
		profileFn: func(_ context.Context, userID string) (model.UserProfile, error) {
			return model.UserProfile{ID: userID, Name: "Asha", Role: enum.RoleCustomer}, nil
		},
	}
	router := setupAuthRouter(svc)

	rr := request(t, router, "GET", "/me/", customerToken(t, "u-42"), nil)
	expectStatus(t, rr, http.StatusOK)
	if resp := decodeResponse(t, rr); resp["id"] != "u-42" {
		t.Errorf("id = %v, want u-42", resp["id"])
	}
}

func TestUpdatePassword(t *testing.T) {
	var gotUser, gotNext string
	svc := &mockAccountService{
		updatePasswordFn: func(_ context.Context, userID, current, next string) error {
			gotUser, gotNext = userID, next
			if current != "old-password" {
				return service.ErrInvalidCredentials
			}
			return nil
		},
	}
	router := setupAuthRouter(svc)
	tok := customerToken(t, "u-42")

	rr := request(t, router, "PUT", "/me/password", tok, map[string]string{
		"currentPassword": "old-password", "newPassword": "new-password",
	})
	expectStatus(t, rr, http.StatusNoContent)
	if gotUser != "u-42" || gotNext != "new-password" {
		t.Errorf("update called with %q / %q", gotUser, gotNext)
	}

	rr = request(t, router, "PUT", "/me/password", tok, map[string]string{
		"currentPassword": "wrong", "newPassword": "new-password",
	})
	expectStatus(t, rr, http.StatusUnauthorized)
}

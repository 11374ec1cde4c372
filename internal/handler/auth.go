package handler

import (
	"context"
	"net/http"

	"github.com/dineflow/api/internal/middleware"
	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/service"
	"github.com/dineflow/api/internal/validate"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AccountServicer defines the service methods needed by auth handlers.
// Satisfied by *service.AccountService; narrow interface for testability.
type AccountServicer interface {
	RegisterCustomer(ctx context.Context, in validate.Registration) (service.Session, error)
	Login(ctx context.Context, email, password string) (service.Session, error)
	Refresh(ctx context.Context, refreshToken string) (service.Session, error)
	Profile(ctx context.Context, userID string) (model.UserProfile, error)
	UpdatePassword(ctx context.Context, userID, current, next string) error
}

// AuthHandler handles sign-up, sign-in and the caller's own account.
type AuthHandler struct {
	svc AccountServicer
	log *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc AccountServicer, log *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

// RegisterRoutes registers public auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
	r.Post("/auth/register", h.Register)
	r.Post("/auth/refresh", h.Refresh)
}

// RegisterMeRoutes registers endpoints for the signed-in user.
// Expected to be mounted behind Authenticate: /me
func (h *AuthHandler) RegisterMeRoutes(r chi.Router) {
	r.Get("/", h.Me)
	r.Put("/password", h.UpdatePassword)
}

// --- Request types ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// --- Handlers ---

// Login handles email + password authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}

	sess, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.log, "user", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Register creates a customer account and signs it in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req validate.Registration
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := h.svc.RegisterCustomer(r.Context(), req)
	if err != nil {
		writeError(w, h.log, "user", err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// Refresh exchanges a valid refresh token for a new access + refresh token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "refreshToken is required"})
		return
	}

	sess, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, h.log, "user", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Me returns the signed-in user's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	u, err := h.svc.Profile(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, h.log, "user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdatePassword changes the signed-in user's password.
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req updatePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.svc.UpdatePassword(r.Context(), claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, h.log, "user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

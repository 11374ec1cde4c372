package handler

import (
	"context"
	"net/http"

	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// StaffServicer defines the service methods needed by staff handlers.
// Satisfied by *service.AccountService; narrow interface for testability.
type StaffServicer interface {
	ListStaff(ctx context.Context, actor service.Actor) ([]model.UserProfile, error)
	CreateStaff(ctx context.Context, in service.StaffInput, actor service.Actor) (model.UserProfile, error)
	UpdateStaff(ctx context.Context, id string, in service.StaffInput, actor service.Actor) (model.UserProfile, error)
	DeleteStaff(ctx context.Context, id string, actor service.Actor) error
}

// UserHandler handles staff account CRUD endpoints.
type UserHandler struct {
	svc StaffServicer
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc StaffServicer, log *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, log: log}
}

// RegisterRoutes registers staff CRUD endpoints on the given Chi router.
// Expected to be mounted behind RequirePermission(manageManagers): /admin/users
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request types ---

type staffRequest struct {
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Phone       string            `json:"phone"`
	Role        string            `json:"role"`
	OutletID    string            `json:"outletId"`
	Permissions model.Permissions `json:"permissions"`
	Password    string            `json:"password"`
	IsActive    *bool             `json:"isActive"`
}

func (req staffRequest) input() service.StaffInput {
	return service.StaffInput{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Role:        req.Role,
		OutletID:    req.OutletID,
		Permissions: req.Permissions,
		Password:    req.Password,
		IsActive:    req.IsActive,
	}
}

// --- Handlers ---

// List returns the staff accounts the caller manages.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListStaff(r.Context(), actorFrom(r))
	if err != nil {
		writeError(w, h.log, "user", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Create adds a staff account.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req staffRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.svc.CreateStaff(r.Context(), req.input(), actorFrom(r))
	if err != nil {
		writeError(w, h.log, "outlet", err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// Update edits a staff account. An empty password keeps the current one.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req staffRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.svc.UpdateStaff(r.Context(), chi.URLParam(r, "id"), req.input(), actorFrom(r))
	if err != nil {
		writeError(w, h.log, "user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Delete removes a staff account. Callers cannot delete themselves.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteStaff(r.Context(), chi.URLParam(r, "id"), actorFrom(r)); err != nil {
		writeError(w, h.log, "user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CustomerServicer defines the service methods needed by customer handlers.
// Satisfied by *service.AccountService; narrow interface for testability.
type CustomerServicer interface {
	ListCustomers(ctx context.Context, actor service.Actor) ([]model.UserProfile, error)
}

// CustomerHandler lists customer accounts for the super admin.
type CustomerHandler struct {
	svc CustomerServicer
	log *zap.Logger
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(svc CustomerServicer, log *zap.Logger) *CustomerHandler {
	return &CustomerHandler{svc: svc, log: log}
}

// RegisterRoutes registers customer endpoints.
// Expected to be mounted behind RequireRole(SUPER_ADMIN): /admin/customers
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

// List returns customers, optionally filtered by ?search= on name, email
// or phone.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	customers, err := h.svc.ListCustomers(r.Context(), actorFrom(r))
	if err != nil {
		writeError(w, h.log, "customer", err)
		return
	}

	search := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("search")))
	if search == "" {
		writeJSON(w, http.StatusOK, customers)
		return
	}
	matched := make([]model.UserProfile, 0, len(customers))
	for _, c := range customers {
		if strings.Contains(strings.ToLower(c.Name), search) ||
			strings.Contains(strings.ToLower(c.Email), search) ||
			strings.Contains(c.Phone, search) {
			matched = append(matched, c)
		}
	}
	writeJSON(w, http.StatusOK, matched)
}

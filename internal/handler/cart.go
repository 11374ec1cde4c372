package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/dineflow/api/internal/cart"
	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/middleware"
	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/pricing"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CartSessionHeader identifies a guest's cart between requests.
const CartSessionHeader = "X-Cart-Session"

// CartStore defines the store methods needed by cart handlers.
// Satisfied by store.Store; narrow interface for testability.
type CartStore interface {
	GetMenuItem(ctx context.Context, id string) (model.MenuItem, error)
	GetGlobalSettings(ctx context.Context) (model.GlobalSettings, error)
}

// CartHandler handles the pending order of a customer or guest.
type CartHandler struct {
	store CartStore
	carts cart.Repository
	log   *zap.Logger
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(store CartStore, carts cart.Repository, log *zap.Logger) *CartHandler {
	return &CartHandler{store: store, carts: carts, log: log}
}

// RegisterRoutes registers cart endpoints.
// Expected to be mounted behind OptionalAuthenticate: /cart
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Delete("/", h.Clear)
	r.Post("/items", h.AddItem)
	r.Patch("/items", h.UpdateItem)
	r.Delete("/items", h.RemoveItem)
}

// --- Request / Response types ---

type cartItemRequest struct {
	MenuItemID string `json:"menuItemId"`
	Variant    string `json:"variant"`
	Delta      int    `json:"delta"`
}

// cartResponse shows the running totals before a delivery distance is
// known, so the delivery charge is always zero here.
type cartResponse struct {
	OutletID string            `json:"outletId,omitempty"`
	Lines    []model.OrderItem `json:"lines"`
	Count    int               `json:"count"`
	Subtotal model.Money       `json:"subtotal"`
	Tax      model.Money       `json:"tax"`
	Total    model.Money       `json:"total"`
}

// --- Handlers ---

// Get returns the cart with its running totals.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := cartOwner(w, r)
	if !ok {
		return
	}
	c, err := h.carts.Get(r.Context(), owner)
	if err != nil {
		writeError(w, h.log, "cart", err)
		return
	}
	h.respond(w, r, http.StatusOK, c)
}

// AddItem adds one unit of a menu item variant.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := cartOwner(w, r)
	if !ok {
		return
	}

	var req cartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MenuItemID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "menuItemId is required"})
		return
	}
	if req.Variant == "" {
		req.Variant = enum.VariantFull
	}

	item, err := h.store.GetMenuItem(r.Context(), req.MenuItemID)
	if err != nil {
		writeError(w, h.log, "menu item", err)
		return
	}

	c, err := h.carts.Get(r.Context(), owner)
	if err != nil {
		writeError(w, h.log, "cart", err)
		return
	}
	if err := c.Add(item, req.Variant); err != nil {
		writeError(w, h.log, "cart", err)
		return
	}
	if err := h.carts.Save(r.Context(), owner, c); err != nil {
		writeError(w, h.log, "cart", err)
		return
	}
	h.respond(w, r, http.StatusOK, c)
}

// UpdateItem changes a line's quantity by delta. Lines reaching zero are dropped.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := cartOwner(w, r)
	if !ok {
		return
	}

	var req cartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MenuItemID == "" || req.Delta == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "menuItemId and a non-zero delta are required"})
		return
	}
	if req.Variant == "" {
		req.Variant = enum.VariantFull
	}

	c, err := h.carts.Get(r.Context(), owner)
	if err != nil {
		writeError(w, h.log, "cart", err)
		return
	}
	c.UpdateQuantity(req.MenuItemID, req.Variant, req.Delta)
	if err := h.carts.Save(r.Context(), owner, c); err != nil {
		writeError(w, h.log, "cart", err)
		return
	}
	h.respond(w, r, http.StatusOK, c)
}

// RemoveItem drops the line named by ?menuItemId=&variant=.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := cartOwner(w, r)
	if !ok {
		return
	}

	menuItemID := r.URL.Query().Get("menuItemId")
	if menuItemID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "menuItemId is required"})
		return
	}
	variant := r.URL.Query().Get("variant")
	if variant == "" {
		variant = enum.VariantFull
	}

	c, err := h.carts.Get(r.Context(), owner)
	if err != nil {
		writeError(w, h.log, "cart", err)
		return
	}
	c.Remove(menuItemID, variant)
	if err := h.carts.Save(r.Context(), owner, c); err != nil {
		writeError(w, h.log, "cart", err)
		return
	}
	h.respond(w, r, http.StatusOK, c)
}

// Clear empties the cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	owner, ok := cartOwner(w, r)
	if !ok {
		return
	}
	if err := h.carts.Delete(r.Context(), owner); err != nil {
		writeError(w, h.log, "cart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request, status int, c *cart.Cart) {
	settings, err := h.store.GetGlobalSettings(r.Context())
	if err != nil {
		writeError(w, h.log, "settings", err)
		return
	}
	lines := c.Items()
	subtotal, tax, _, total := pricing.Calculate(lines, settings, nil).Money()
	writeJSON(w, status, cartResponse{
		OutletID: c.OutletID,
		Lines:    lines,
		Count:    c.Count(),
		Subtotal: subtotal,
		Tax:      tax,
		Total:    total,
	})
}

// cartOwner keys the cart by user id when signed in and by the guest
// session header otherwise. Guest keys are prefixed so they can never
// collide with a user id.
func cartOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		return claims.UserID, true
	}
	session := strings.TrimSpace(r.Header.Get(CartSessionHeader))
	if session == "" || len(session) > 128 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": CartSessionHeader + " header is required"})
		return "", false
	}
	return "session:" + session, true
}

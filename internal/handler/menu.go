package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/pricing"
	"github.com/dineflow/api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MenuStore defines the store methods needed by menu handlers.
// Satisfied by store.Store; narrow interface for testability.
type MenuStore interface {
	GetOutlet(ctx context.Context, id string) (model.Outlet, error)
	GetMenu(ctx context.Context, outletID string) ([]model.MenuItem, error)
	GetMenuItem(ctx context.Context, id string) (model.MenuItem, error)
	SaveMenuItem(ctx context.Context, item model.MenuItem) error
	DeleteMenuItem(ctx context.Context, id string) error
	GetInventoryItem(ctx context.Context, id string) (model.InventoryItem, error)
}

// MenuHandler handles menu browsing and menu administration.
type MenuHandler struct {
	store MenuStore
	log   *zap.Logger
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore, log *zap.Logger) *MenuHandler {
	return &MenuHandler{store: store, log: log}
}

// RegisterRoutes registers menu management endpoints.
// Expected to be mounted inside an outlet-scoped subrouter: /admin/outlets/{oid}/menu
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type menuItemRequest struct {
	Name            string                `json:"name"`
	Description     string                `json:"description"`
	Category        string                `json:"category"`
	Price           model.Price           `json:"price"`
	Servings        model.ServingLabels   `json:"servings"`
	ImageURL        string                `json:"imageUrl"`
	Available       *bool                 `json:"available"`
	SpiceLevel      string                `json:"spiceLevel"`
	FoodType        string                `json:"foodType"`
	DiscountPercent float64               `json:"discountPercent"`
	Inventory       []model.InventoryLink `json:"inventory"`
}

func (req *menuItemRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.SpiceLevel == "" {
		req.SpiceLevel = enum.SpiceNone
	}

	switch {
	case req.Name == "":
		return "name is required"
	case req.Category == "":
		return "category is required"
	case req.Price.Full <= 0:
		return "price.full must be > 0"
	case req.Price.Half != nil && *req.Price.Half <= 0:
		return "price.half must be > 0 when set"
	case req.Price.Qtr != nil && *req.Price.Qtr <= 0:
		return "price.qtr must be > 0 when set"
	case !enum.IsSpiceLevel(req.SpiceLevel):
		return "invalid spiceLevel"
	case !enum.IsFoodType(req.FoodType):
		return "foodType must be Veg or Non-Veg"
	case req.DiscountPercent < 0 || req.DiscountPercent > 100:
		return "discountPercent must be between 0 and 100"
	}
	for _, link := range req.Inventory {
		if link.InventoryItemID == "" || link.QuantityPerUnit <= 0 {
			return "inventory links need an inventoryItemId and a quantityPerUnit > 0"
		}
	}
	return ""
}

func (req menuItemRequest) apply(item *model.MenuItem) {
	item.Name = req.Name
	item.Description = strings.TrimSpace(req.Description)
	item.Category = req.Category
	item.Price = req.Price
	item.Servings = req.Servings
	item.ImageURL = req.ImageURL
	item.SpiceLevel = req.SpiceLevel
	item.FoodType = req.FoodType
	item.DiscountPercent = req.DiscountPercent
	item.Inventory = req.Inventory
	if req.Available != nil {
		item.Available = *req.Available
	}
}

type displayPrice struct {
	Full float64  `json:"full"`
	Half *float64 `json:"half,omitempty"`
	Qtr  *float64 `json:"qtr,omitempty"`
}

type menuItemResponse struct {
	model.MenuItem
	DisplayPrice displayPrice `json:"displayPrice"`
}

func toMenuItemResponse(item model.MenuItem) menuItemResponse {
	dp := displayPrice{Full: pricing.DisplayPrice(item.Price.Full, item.DiscountPercent)}
	if p, ok := item.Price.For(enum.VariantHalf); ok {
		v := pricing.DisplayPrice(p, item.DiscountPercent)
		dp.Half = &v
	}
	if p, ok := item.Price.For(enum.VariantQtr); ok {
		v := pricing.DisplayPrice(p, item.DiscountPercent)
		dp.Qtr = &v
	}
	return menuItemResponse{MenuItem: item, DisplayPrice: dp}
}

// --- Handlers ---

// ListPublic returns the available items of an outlet with discounted
// prices, optionally filtered by ?category= and ?foodType=.
func (h *MenuHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	outletID := chi.URLParam(r, "oid")
	outlet, err := h.store.GetOutlet(r.Context(), outletID)
	if err != nil {
		writeError(w, h.log, "outlet", err)
		return
	}
	if !outlet.IsActive {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "outlet not found"})
		return
	}

	items, err := h.store.GetMenu(r.Context(), outletID)
	if err != nil {
		writeError(w, h.log, "menu", err)
		return
	}

	category := r.URL.Query().Get("category")
	foodType := r.URL.Query().Get("foodType")
	resp := make([]menuItemResponse, 0, len(items))
	for _, item := range items {
		if !item.Available {
			continue
		}
		if category != "" && !strings.EqualFold(item.Category, category) {
			continue
		}
		if foodType != "" && item.FoodType != foodType {
			continue
		}
		resp = append(resp, toMenuItemResponse(item))
	}
	writeJSON(w, http.StatusOK, resp)
}

// List returns every item of the outlet, including unavailable ones.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.GetMenu(r.Context(), chi.URLParam(r, "oid"))
	if err != nil {
		writeError(w, h.log, "menu", err)
		return
	}
	resp := make([]menuItemResponse, len(items))
	for i, item := range items {
		resp[i] = toMenuItemResponse(item)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a menu item to the outlet.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	outletID := chi.URLParam(r, "oid")

	var req menuItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}
	if !h.checkLinks(w, r, outletID, req.Inventory) {
		return
	}

	item := model.MenuItem{
		ID:        uuid.NewString(),
		OutletID:  outletID,
		Available: true,
		CreatedAt: time.Now().UTC(),
	}
	req.apply(&item)

	if err := h.store.SaveMenuItem(r.Context(), item); err != nil {
		writeError(w, h.log, "menu item", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// Update replaces a menu item. Carts holding the item keep their price
// snapshot.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	outletID := chi.URLParam(r, "oid")

	var req menuItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	item, ok := h.outletItem(w, r, outletID)
	if !ok {
		return
	}
	if !h.checkLinks(w, r, outletID, req.Inventory) {
		return
	}
	req.apply(&item)

	if err := h.store.SaveMenuItem(r.Context(), item); err != nil {
		writeError(w, h.log, "menu item", err)
		return
	}
	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Delete removes a menu item.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.outletItem(w, r, chi.URLParam(r, "oid"))
	if !ok {
		return
	}
	if err := h.store.DeleteMenuItem(r.Context(), item.ID); err != nil {
		writeError(w, h.log, "menu item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// outletItem loads {id} and makes sure it belongs to the outlet in the path.
func (h *MenuHandler) outletItem(w http.ResponseWriter, r *http.Request, outletID string) (model.MenuItem, bool) {
	item, err := h.store.GetMenuItem(r.Context(), chi.URLParam(r, "id"))
	if err == nil && item.OutletID != outletID {
		err = store.ErrNotFound
	}
	if err != nil {
		writeError(w, h.log, "menu item", err)
		return model.MenuItem{}, false
	}
	return item, true
}

// checkLinks verifies that every linked inventory item exists in the outlet.
func (h *MenuHandler) checkLinks(w http.ResponseWriter, r *http.Request, outletID string, links []model.InventoryLink) bool {
	for _, link := range links {
		inv, err := h.store.GetInventoryItem(r.Context(), link.InventoryItemID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && inv.OutletID != outletID) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown inventory item " + link.InventoryItemID})
			return false
		}
		if err != nil {
			writeError(w, h.log, "inventory item", err)
			return false
		}
	}
	return true
}

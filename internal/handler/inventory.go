package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InventoryStore defines the store methods needed by inventory handlers.
// Satisfied by store.Store; narrow interface for testability.
type InventoryStore interface {
	GetInventory(ctx context.Context, outletID string) ([]model.InventoryItem, error)
	GetInventoryItem(ctx context.Context, id string) (model.InventoryItem, error)
	SaveInventoryItem(ctx context.Context, item model.InventoryItem) error
	DeleteInventoryItem(ctx context.Context, id string) error
	AdjustStock(ctx context.Context, id string, delta float64) (model.InventoryItem, error)
}

// InventoryHandler handles stock management for one outlet.
type InventoryHandler struct {
	store InventoryStore
	log   *zap.Logger
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(store InventoryStore, log *zap.Logger) *InventoryHandler {
	return &InventoryHandler{store: store, log: log}
}

// RegisterRoutes registers inventory endpoints.
// Expected to be mounted inside an outlet-scoped subrouter: /admin/outlets/{oid}/inventory
func (h *InventoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/low-stock", h.LowStock)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/adjust", h.Adjust)
}

// --- Request types ---

type inventoryRequest struct {
	Name     string  `json:"name"`
	Stock    float64 `json:"stock"`
	MinStock float64 `json:"minStock"`
	Unit     string  `json:"unit"`
}

func (req *inventoryRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	req.Unit = strings.TrimSpace(req.Unit)
	switch {
	case req.Name == "":
		return "name is required"
	case req.Unit == "":
		return "unit is required"
	case req.Stock < 0:
		return "stock must be >= 0"
	case req.MinStock < 0:
		return "minStock must be >= 0"
	}
	return ""
}

type adjustRequest struct {
	Delta float64 `json:"delta"`
}

// --- Handlers ---

// List returns the outlet's inventory.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.GetInventory(r.Context(), chi.URLParam(r, "oid"))
	if err != nil {
		writeError(w, h.log, "inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// LowStock returns items at or below their minimum threshold.
func (h *InventoryHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.GetInventory(r.Context(), chi.URLParam(r, "oid"))
	if err != nil {
		writeError(w, h.log, "inventory", err)
		return
	}
	low := make([]model.InventoryItem, 0)
	for _, it := range items {
		if it.IsLow() {
			low = append(low, it)
		}
	}
	writeJSON(w, http.StatusOK, low)
}

// Create adds an inventory item to the outlet.
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req inventoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	item := model.InventoryItem{
		ID:        uuid.NewString(),
		OutletID:  chi.URLParam(r, "oid"),
		Name:      req.Name,
		Stock:     req.Stock,
		MinStock:  req.MinStock,
		Unit:      req.Unit,
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.store.SaveInventoryItem(r.Context(), item); err != nil {
		writeError(w, h.log, "inventory item", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// Update replaces an inventory item's fields, including its stock level.
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req inventoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	item, ok := h.outletItem(w, r)
	if !ok {
		return
	}
	item.Name = req.Name
	item.Stock = req.Stock
	item.MinStock = req.MinStock
	item.Unit = req.Unit
	item.UpdatedAt = time.Now().UTC()

	if err := h.store.SaveInventoryItem(r.Context(), item); err != nil {
		writeError(w, h.log, "inventory item", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Delete removes an inventory item.
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.outletItem(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteInventoryItem(r.Context(), item.ID); err != nil {
		writeError(w, h.log, "inventory item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Adjust adds delta (negative to consume) to the stock. The result never
// drops below zero.
func (h *InventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Delta == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "delta must not be 0"})
		return
	}

	item, ok := h.outletItem(w, r)
	if !ok {
		return
	}
	updated, err := h.store.AdjustStock(r.Context(), item.ID, req.Delta)
	if err != nil {
		writeError(w, h.log, "inventory item", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *InventoryHandler) outletItem(w http.ResponseWriter, r *http.Request) (model.InventoryItem, bool) {
	item, err := h.store.GetInventoryItem(r.Context(), chi.URLParam(r, "id"))
	if err == nil && item.OutletID != chi.URLParam(r, "oid") {
		err = store.ErrNotFound
	}
	if err != nil {
		writeError(w, h.log, "inventory item", err)
		return model.InventoryItem{}, false
	}
	return item, true
}

package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dineflow/api/internal/geo"
	"github.com/dineflow/api/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OutletStore defines the store methods needed by outlet handlers.
// Satisfied by store.Store; narrow interface for testability.
type OutletStore interface {
	GetOutlets(ctx context.Context) ([]model.Outlet, error)
	GetOutlet(ctx context.Context, id string) (model.Outlet, error)
	SaveOutlet(ctx context.Context, o model.Outlet) error
	DeleteOutlet(ctx context.Context, id string) error
}

// OutletHandler handles outlet discovery and outlet administration.
type OutletHandler struct {
	store OutletStore
	log   *zap.Logger
}

// NewOutletHandler creates a new OutletHandler.
func NewOutletHandler(store OutletStore, log *zap.Logger) *OutletHandler {
	return &OutletHandler{store: store, log: log}
}

// RegisterRoutes registers public outlet endpoints.
// Expected to be mounted at /outlets
func (h *OutletHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/nearest", h.Nearest)
	r.Get("/{oid}", h.Get)
}

// RegisterAdminRoutes registers outlet creation.
// Expected to be mounted behind RequirePermission(manageOutlets): /admin/outlets
func (h *OutletHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/", h.Create)
}

// RegisterManageRoutes registers edits to a single outlet.
// Expected to be mounted inside an outlet-scoped subrouter behind
// RequirePermission(manageOutlets): /admin/outlets/{oid}
func (h *OutletHandler) RegisterManageRoutes(r chi.Router) {
	r.Put("/", h.Update)
	r.Delete("/", h.Delete)
}

// --- Request / Response types ---

type outletRequest struct {
	Name             string             `json:"name"`
	Address          string             `json:"address"`
	Phone            string             `json:"phone"`
	Email            string             `json:"email"`
	ImageURL         string             `json:"imageUrl"`
	Location         *model.Coordinates `json:"location"`
	DeliveryRadiusKm float64            `json:"deliveryRadiusKm"`
	OwnerEmail       string             `json:"ownerEmail"`
	IsActive         *bool              `json:"isActive"`
}

func (req outletRequest) validate() string {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return "name is required"
	case strings.TrimSpace(req.Address) == "":
		return "address is required"
	case req.DeliveryRadiusKm < 0:
		return "deliveryRadiusKm must be >= 0"
	case req.Location != nil && (req.Location.Lat < -90 || req.Location.Lat > 90 || req.Location.Lng < -180 || req.Location.Lng > 180):
		return "location is out of range"
	}
	return ""
}

func (req outletRequest) apply(o *model.Outlet) {
	o.Name = strings.TrimSpace(req.Name)
	o.Address = strings.TrimSpace(req.Address)
	o.Phone = strings.TrimSpace(req.Phone)
	o.Email = strings.TrimSpace(req.Email)
	o.ImageURL = req.ImageURL
	o.Location = req.Location
	o.DeliveryRadiusKm = req.DeliveryRadiusKm
	o.OwnerEmail = strings.ToLower(strings.TrimSpace(req.OwnerEmail))
	if req.IsActive != nil {
		o.IsActive = *req.IsActive
	}
}

type nearestResponse struct {
	Outlet     model.Outlet `json:"outlet"`
	DistanceKm float64      `json:"distanceKm"`
}

// --- Handlers ---

// List returns every active outlet.
func (h *OutletHandler) List(w http.ResponseWriter, r *http.Request) {
	outlets, err := h.store.GetOutlets(r.Context())
	if err != nil {
		writeError(w, h.log, "outlet", err)
		return
	}
	writeJSON(w, http.StatusOK, outlets)
}

// Nearest picks the active outlet closest to ?lat=&lng=.
func (h *OutletHandler) Nearest(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat and lng are required"})
		return
	}

	outlets, err := h.store.GetOutlets(r.Context())
	if err != nil {
		writeError(w, h.log, "outlet", err)
		return
	}

	best, km, ok := geo.NearestOutlet(model.Coordinates{Lat: lat, Lng: lng}, outlets)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no outlet with a known location"})
		return
	}
	writeJSON(w, http.StatusOK, nearestResponse{Outlet: best, DistanceKm: km})
}

// Get returns one outlet, including a deactivated one.
func (h *OutletHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.store.GetOutlet(r.Context(), chi.URLParam(r, "oid"))
	if err != nil {
		writeError(w, h.log, "outlet", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// Create adds an outlet. New outlets are active unless stated otherwise.
func (h *OutletHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req outletRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	o := model.Outlet{
		ID:        uuid.NewString(),
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	req.apply(&o)

	if err := h.store.SaveOutlet(r.Context(), o); err != nil {
		writeError(w, h.log, "outlet", err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// Update replaces the editable fields of an outlet. Rating is left alone.
func (h *OutletHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req outletRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	o, err := h.store.GetOutlet(r.Context(), chi.URLParam(r, "oid"))
	if err != nil {
		writeError(w, h.log, "outlet", err)
		return
	}
	req.apply(&o)

	if err := h.store.SaveOutlet(r.Context(), o); err != nil {
		writeError(w, h.log, "outlet", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// Delete deactivates an outlet. Its orders stay readable.
func (h *OutletHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteOutlet(r.Context(), chi.URLParam(r, "oid")); err != nil {
		writeError(w, h.log, "outlet", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

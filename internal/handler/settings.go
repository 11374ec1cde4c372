package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/dineflow/api/internal/model"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SettingsStore defines the store methods needed by settings handlers.
// Satisfied by store.Store; narrow interface for testability.
type SettingsStore interface {
	GetGlobalSettings(ctx context.Context) (model.GlobalSettings, error)
	SaveGlobalSettings(ctx context.Context, s model.GlobalSettings) error
}

// SettingsHandler exposes the global pricing and invoice configuration.
type SettingsHandler struct {
	store SettingsStore
	log   *zap.Logger
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(store SettingsStore, log *zap.Logger) *SettingsHandler {
	return &SettingsHandler{store: store, log: log}
}

// RegisterRoutes registers settings management endpoints.
// Expected to be mounted behind RequireRole(SUPER_ADMIN): /admin/settings
func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Put("/", h.Update)
}

// --- Request / Response types ---

type deliveryConfigResponse struct {
	GSTPercentage          float64              `json:"gstPercentage"`
	DeliveryBaseCharge     float64              `json:"deliveryBaseCharge"`
	DeliveryChargePerKm    float64              `json:"deliveryChargePerKm"`
	FreeDeliveryThreshold  float64              `json:"freeDeliveryThreshold"`
	FreeDeliveryDistanceKm float64              `json:"freeDeliveryDistanceKm"`
	DeliveryTiers          []model.DeliveryTier `json:"deliveryTiers"`
}

type settingsRequest struct {
	GSTPercentage          float64               `json:"gstPercentage"`
	DeliveryBaseCharge     float64               `json:"deliveryBaseCharge"`
	DeliveryChargePerKm    float64               `json:"deliveryChargePerKm"`
	FreeDeliveryThreshold  float64               `json:"freeDeliveryThreshold"`
	FreeDeliveryDistanceKm float64               `json:"freeDeliveryDistanceKm"`
	DeliveryTiers          []model.DeliveryTier  `json:"deliveryTiers"`
	Invoice                model.InvoiceSettings `json:"invoice"`
}

func (req settingsRequest) validate() string {
	switch {
	case req.GSTPercentage < 0 || req.GSTPercentage > 100:
		return "gstPercentage must be between 0 and 100"
	case req.DeliveryBaseCharge < 0:
		return "deliveryBaseCharge must be >= 0"
	case req.DeliveryChargePerKm < 0:
		return "deliveryChargePerKm must be >= 0"
	case req.FreeDeliveryThreshold < 0:
		return "freeDeliveryThreshold must be >= 0"
	case req.FreeDeliveryDistanceKm < 0:
		return "freeDeliveryDistanceKm must be >= 0"
	}
	seen := make(map[float64]bool, len(req.DeliveryTiers))
	for _, t := range req.DeliveryTiers {
		if t.UpToKm <= 0 || t.Charge < 0 {
			return "delivery tiers need upToKm > 0 and charge >= 0"
		}
		if seen[t.UpToKm] {
			return "delivery tiers must have distinct upToKm values"
		}
		seen[t.UpToKm] = true
	}
	return ""
}

// --- Handlers ---

// Delivery returns the public part of the settings: everything a client
// needs to preview totals.
func (h *SettingsHandler) Delivery(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.GetGlobalSettings(r.Context())
	if err != nil {
		writeError(w, h.log, "settings", err)
		return
	}
	tiers := s.DeliveryTiers
	if tiers == nil {
		tiers = []model.DeliveryTier{}
	}
	writeJSON(w, http.StatusOK, deliveryConfigResponse{
		GSTPercentage:          s.GSTPercentage,
		DeliveryBaseCharge:     s.DeliveryBaseCharge,
		DeliveryChargePerKm:    s.DeliveryChargePerKm,
		FreeDeliveryThreshold:  s.FreeDeliveryThreshold,
		FreeDeliveryDistanceKm: s.FreeDeliveryDistanceKm,
		DeliveryTiers:          tiers,
	})
}

// Get returns the full settings record.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.GetGlobalSettings(r.Context())
	if err != nil {
		writeError(w, h.log, "settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Update replaces the settings record. Tiers are stored in ascending
// distance order.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	tiers := append([]model.DeliveryTier{}, req.DeliveryTiers...)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].UpToKm < tiers[j].UpToKm })

	s := model.GlobalSettings{
		ID:                     model.GlobalSettingsID,
		GSTPercentage:          req.GSTPercentage,
		DeliveryBaseCharge:     req.DeliveryBaseCharge,
		DeliveryChargePerKm:    req.DeliveryChargePerKm,
		FreeDeliveryThreshold:  req.FreeDeliveryThreshold,
		FreeDeliveryDistanceKm: req.FreeDeliveryDistanceKm,
		DeliveryTiers:          tiers,
		Invoice:                req.Invoice,
		UpdatedAt:              time.Now().UTC(),
	}
	if err := h.store.SaveGlobalSettings(r.Context(), s); err != nil {
		writeError(w, h.log, "settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

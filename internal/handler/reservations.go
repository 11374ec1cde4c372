package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/store"
	"github.com/dineflow/api/internal/validate"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReservationStore defines the store methods needed by reservation handlers.
// Satisfied by store.Store; narrow interface for testability.
type ReservationStore interface {
	GetOutlet(ctx context.Context, id string) (model.Outlet, error)
	SaveReservation(ctx context.Context, r model.Reservation) error
	GetReservations(ctx context.Context, outletID string) ([]model.Reservation, error)
}

// ReservationHandler handles table bookings.
type ReservationHandler struct {
	store ReservationStore
	log   *zap.Logger
	now   func() time.Time
}

// NewReservationHandler creates a new ReservationHandler.
func NewReservationHandler(store ReservationStore, log *zap.Logger) *ReservationHandler {
	return &ReservationHandler{store: store, log: log, now: time.Now}
}

// RegisterRoutes registers the outlet's booking list.
// Expected to be mounted inside an outlet-scoped subrouter: /admin/outlets/{oid}/reservations
func (h *ReservationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

// --- Request types ---

type reservationRequest struct {
	validate.ReservationInput
	OutletID string `json:"outletId"`
	Note     string `json:"note"`
}

// --- Handlers ---

// Create books a table. Anyone may submit the form; the outlet is optional.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req reservationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := validate.Reservation(req.ReservationInput, h.now()); !errs.OK() {
		writeError(w, h.log, "reservation", errs)
		return
	}

	if req.OutletID != "" {
		o, err := h.store.GetOutlet(r.Context(), req.OutletID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && !o.IsActive) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown outlet"})
			return
		}
		if err != nil {
			writeError(w, h.log, "outlet", err)
			return
		}
	}

	res := model.Reservation{
		ID:        uuid.NewString(),
		OutletID:  req.OutletID,
		Name:      strings.TrimSpace(req.Name),
		Phone:     strings.TrimSpace(req.Phone),
		Email:     strings.TrimSpace(req.Email),
		PartySize: req.PartySize,
		Time:      req.Time.UTC(),
		Note:      strings.TrimSpace(req.Note),
		CreatedAt: h.now().UTC(),
	}
	if err := h.store.SaveReservation(r.Context(), res); err != nil {
		writeError(w, h.log, "reservation", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// List returns the outlet's bookings.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.GetReservations(r.Context(), chi.URLParam(r, "oid"))
	if err != nil {
		writeError(w, h.log, "reservation", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

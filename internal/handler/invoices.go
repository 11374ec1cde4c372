package handler

import (
	"context"
	"net/http"

	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// InvoiceServicer defines the service methods needed by invoice handlers.
// Satisfied by *service.InvoiceService; narrow interface for testability.
type InvoiceServicer interface {
	CreateManual(ctx context.Context, req service.ManualInvoiceRequest) (model.ManualInvoice, error)
	List(ctx context.Context, outletID string, actor service.Actor) ([]model.ManualInvoice, error)
	Delete(ctx context.Context, id string, actor service.Actor) error
}

// InvoiceHandler handles manual (in-person) invoices.
type InvoiceHandler struct {
	svc InvoiceServicer
	log *zap.Logger
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(svc InvoiceServicer, log *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{svc: svc, log: log}
}

// RegisterRoutes registers outlet invoice endpoints.
// Expected to be mounted inside an outlet-scoped subrouter: /admin/outlets/{oid}/invoices
func (h *InvoiceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
}

// --- Request types ---

type manualLineRequest struct {
	MenuItemID string `json:"menuItemId"`
	Variant    string `json:"variant"`
	Quantity   int    `json:"quantity"`
}

type manualInvoiceRequest struct {
	Customer      model.Contact       `json:"customer"`
	CustomerID    string              `json:"customerId"`
	Items         []manualLineRequest `json:"items"`
	PaymentMethod string              `json:"paymentMethod"`
	DistanceKm    *float64            `json:"distanceKm"`
}

// --- Handlers ---

// List returns the outlet's manual invoices, newest first.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.svc.List(r.Context(), chi.URLParam(r, "oid"), actorFrom(r))
	if err != nil {
		writeError(w, h.log, "invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

// Create records a manual invoice priced from the current menu.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req manualInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	lines := make([]service.ManualLine, len(req.Items))
	for i, it := range req.Items {
		lines[i] = service.ManualLine{MenuItemID: it.MenuItemID, Variant: it.Variant, Quantity: it.Quantity}
	}

	inv, err := h.svc.CreateManual(r.Context(), service.ManualInvoiceRequest{
		OutletID:      chi.URLParam(r, "oid"),
		Customer:      req.Customer,
		CustomerID:    req.CustomerID,
		Items:         lines,
		PaymentMethod: req.PaymentMethod,
		DistanceKm:    req.DistanceKm,
		Actor:         actorFrom(r),
	})
	if err != nil {
		writeError(w, h.log, "outlet", err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// Delete removes a manual invoice.
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"), actorFrom(r)); err != nil {
		writeError(w, h.log, "invoice", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

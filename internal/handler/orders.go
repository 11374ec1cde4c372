package handler

import (
	"context"
	"net/http"

	"github.com/dineflow/api/internal/middleware"
	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/orderflow"
	"github.com/dineflow/api/internal/service"
	"github.com/dineflow/api/internal/validate"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	Checkout(ctx context.Context, req service.CheckoutRequest) (model.Order, error)
	Transition(ctx context.Context, orderID, to string, actor service.Actor) (model.Order, error)
	Get(ctx context.Context, orderID string, actor service.Actor) (model.Order, error)
	ListForCustomer(ctx context.Context, userID string) ([]model.Order, error)
	ListForOutlet(ctx context.Context, outletID string, statuses []string, actor service.Actor) ([]model.Order, error)
	Invoice(ctx context.Context, orderID string, actor service.Actor) (service.Invoice, error)
	Quote(ctx context.Context, req service.QuoteRequest) (service.Quote, error)
}

// OrderHandler handles checkout, tracking and order status changes.
type OrderHandler struct {
	svc OrderServicer
	log *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, log *zap.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, log: log}
}

// RegisterRoutes registers customer-facing order endpoints. Callers may be
// guests, so the router must run OptionalAuthenticate in front of them.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/checkout", h.Checkout)
	r.Post("/delivery/quote", h.Quote)
	r.Get("/orders/{id}", h.Track)
	r.Get("/orders/{id}/invoice", h.Invoice)
}

// RegisterStaffRoutes registers status changes.
// Expected to be mounted behind Authenticate.
func (h *OrderHandler) RegisterStaffRoutes(r chi.Router) {
	r.Patch("/orders/{id}/status", h.UpdateStatus)
}

// RegisterOutletRoutes registers the outlet order queue.
// Expected to be mounted inside an outlet-scoped subrouter: /admin/outlets/{oid}/orders
func (h *OrderHandler) RegisterOutletRoutes(r chi.Router) {
	r.Get("/", h.OutletOrders)
}

// --- Request types ---

type checkoutRequest struct {
	Recipient     validate.Recipient `json:"recipient"`
	Email         string             `json:"email"`
	PaymentMethod string             `json:"paymentMethod"`
	Location      *model.Coordinates `json:"location"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type quoteRequest struct {
	OutletID string             `json:"outletId"`
	Address  string             `json:"address"`
	Location *model.Coordinates `json:"location"`
	Items    []model.OrderItem  `json:"items"`
}

// --- Response types ---

// orderResponse is an order plus the statuses staff may move it to next.
type orderResponse struct {
	model.Order
	NextActions []string `json:"nextActions"`
}

func newOrderResponse(o model.Order) orderResponse {
	return orderResponse{Order: o, NextActions: orderflow.NextActions(o.Status)}
}

// --- Handlers ---

// Checkout places an order from the caller's cart.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	owner, ok := cartOwner(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.svc.Checkout(r.Context(), service.CheckoutRequest{
		CartOwner:     owner,
		Actor:         actorFrom(r),
		Recipient:     req.Recipient,
		Email:         req.Email,
		PaymentMethod: req.PaymentMethod,
		Location:      req.Location,
	})
	if err != nil {
		writeError(w, h.log, "outlet", err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// Track returns one order to a caller allowed to see it.
func (h *OrderHandler) Track(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), actorFrom(r))
	if err != nil {
		writeError(w, h.log, "order", err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

// Invoice returns an order together with the branding printed on its invoice.
func (h *OrderHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.Invoice(r.Context(), chi.URLParam(r, "id"), actorFrom(r))
	if err != nil {
		writeError(w, h.log, "order", err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// UpdateStatus moves an order through its lifecycle.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	order, err := h.svc.Transition(r.Context(), chi.URLParam(r, "id"), req.Status, actorFrom(r))
	if err != nil {
		writeError(w, h.log, "order", err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

// MyOrders lists the signed-in customer's orders, newest first.
func (h *OrderHandler) MyOrders(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orders, err := h.svc.ListForCustomer(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, h.log, "order", err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// OutletOrders lists an outlet's orders, optionally filtered by one or
// more ?status= values.
func (h *OrderHandler) OutletOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListForOutlet(r.Context(), chi.URLParam(r, "oid"), r.URL.Query()["status"], actorFrom(r))
	if err != nil {
		writeError(w, h.log, "order", err)
		return
	}
	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = newOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Quote prices delivery to an address without placing an order.
func (h *OrderHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.OutletID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "outletId is required"})
		return
	}
	if req.Address == "" && req.Location == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "address or location is required"})
		return
	}

	q, err := h.svc.Quote(r.Context(), service.QuoteRequest{
		OutletID: req.OutletID,
		Address:  req.Address,
		Location: req.Location,
		Items:    req.Items,
	})
	if err != nil {
		writeError(w, h.log, "outlet", err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func actorFrom(r *http.Request) service.Actor {
	return service.ActorFromClaims(middleware.ClaimsFromContext(r.Context()))
}

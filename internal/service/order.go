package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dineflow/api/internal/cart"
	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/events"
	"github.com/dineflow/api/internal/geo"
	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/orderflow"
	"github.com/dineflow/api/internal/pricing"
	"github.com/dineflow/api/internal/store"
	"github.com/dineflow/api/internal/validate"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const guestPrefix = "guest_"

// Errors returned by the order service.
var (
	ErrEmptyCart             = errors.New("cart is empty")
	ErrInvalidPaymentMethod  = errors.New("paymentMethod must be UPI, CARD or COD")
	ErrOutletUnavailable     = errors.New("outlet is not accepting orders")
	ErrDistanceUnknown       = errors.New("delivery distance is unknown")
	ErrOutsideDeliveryRadius = errors.New("address is outside the delivery radius")
	ErrItemUnavailable       = errors.New("item is no longer available")
	ErrStockChanged          = errors.New("stock changed while placing the order, please retry")
	ErrForbidden             = errors.New("forbidden")
)

// OrderStore defines the store methods needed to place and move orders.
// Satisfied by store.Store; narrow interface for testability.
type OrderStore interface {
	GetOutlet(ctx context.Context, id string) (model.Outlet, error)
	GetMenuItem(ctx context.Context, id string) (model.MenuItem, error)
	GetInventoryItem(ctx context.Context, id string) (model.InventoryItem, error)
	GetGlobalSettings(ctx context.Context) (model.GlobalSettings, error)
	GetOrders(ctx context.Context, f store.OrderFilter) ([]model.Order, error)
	GetOrder(ctx context.Context, id string) (model.Order, error)
	CreateOrder(ctx context.Context, o model.Order, deductions []model.StockDeduction) error
	UpdateOrderStatus(ctx context.Context, id, expected string, entry model.StatusEntry) (model.Order, error)
}

// OrderService turns carts into orders and moves orders through their
// lifecycle.
type OrderService struct {
	store     OrderStore
	carts     cart.Repository
	estimator *geo.Estimator
	pub       events.Publisher
	log       *zap.Logger
	now       func() time.Time
}

func NewOrderService(store OrderStore, carts cart.Repository, estimator *geo.Estimator, pub events.Publisher, log *zap.Logger) *OrderService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &OrderService{
		store:     store,
		carts:     carts,
		estimator: estimator,
		pub:       pub,
		log:       log,
		now:       time.Now,
	}
}

// CheckoutRequest is the input for placing an order from a stored cart.
type CheckoutRequest struct {
	CartOwner     string
	Actor         Actor
	Recipient     validate.Recipient
	Email         string
	PaymentMethod string
	// Location is the device position, when the customer shared it.
	Location *model.Coordinates
}

// StatusChange is the payload of an order.status_changed event.
type StatusChange struct {
	OrderID   string    `json:"orderId"`
	OutletID  string    `json:"outletId"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	UpdatedBy string    `json:"updatedBy"`
	Time      time.Time `json:"time"`
}

// Checkout validates the cart and recipient, prices the order and writes it
// together with its stock deductions. The cart is cleared only once the
// order is stored.
func (s *OrderService) Checkout(ctx context.Context, req CheckoutRequest) (model.Order, error) {
	// --- Validate payment method ---
	if !enum.IsPaymentMethod(req.PaymentMethod) {
		return model.Order{}, ErrInvalidPaymentMethod
	}

	// --- Validate recipient ---
	recipient := req.Recipient.Normalize()
	if errs := validate.Checkout(recipient); !errs.OK() {
		return model.Order{}, errs
	}

	// --- Load cart ---
	c, err := s.carts.Get(ctx, req.CartOwner)
	if err != nil {
		return model.Order{}, fmt.Errorf("load cart: %w", err)
	}
	if c.IsEmpty() {
		return model.Order{}, ErrEmptyCart
	}

	// --- Load outlet ---
	outlet, err := s.store.GetOutlet(ctx, c.OutletID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Order{}, ErrOutletUnavailable
		}
		return model.Order{}, fmt.Errorf("get outlet: %w", err)
	}
	if !outlet.IsActive {
		return model.Order{}, ErrOutletUnavailable
	}

	// --- Resolve distance ---
	km, precise, err := s.estimator.Distance(outlet, recipient.Address, req.Location)
	if err != nil {
		return model.Order{}, ErrDistanceUnknown
	}
	if outlet.DeliveryRadiusKm > 0 && km > outlet.DeliveryRadiusKm {
		return model.Order{}, fmt.Errorf("%w: %.1f km > %.1f km", ErrOutsideDeliveryRadius, km, outlet.DeliveryRadiusKm)
	}

	// --- Revalidate lines and collect stock deductions ---
	items := c.Items()
	deductions, err := s.revalidate(ctx, outlet.ID, items)
	if err != nil {
		return model.Order{}, err
	}

	// --- Price ---
	settings, err := s.store.GetGlobalSettings(ctx)
	if err != nil {
		return model.Order{}, fmt.Errorf("get settings: %w", err)
	}
	subtotal, tax, delivery, total := pricing.Calculate(items, settings, &km).Money()

	customerID := req.Actor.UserID
	if customerID == "" {
		customerID = guestPrefix + uuid.NewString()
	}

	now := s.now().UTC()
	order := model.Order{
		ID:       uuid.NewString(),
		OutletID: outlet.ID,
		Customer: model.Contact{
			Name:    recipient.Name,
			Phone:   recipient.Phone,
			Email:   strings.TrimSpace(req.Email),
			Address: recipient.Address,
		},
		CustomerID:     customerID,
		Items:          items,
		Subtotal:       subtotal,
		Tax:            tax,
		DeliveryCharge: delivery,
		Total:          total,
		DistanceKm:     decimal.NewFromFloat(km).Round(2).InexactFloat64(),
		PaymentMethod:  req.PaymentMethod,
		CreatedAt:      now,
	}
	orderflow.New(&order, now)

	// --- Persist order and deductions atomically ---
	if err := s.store.CreateOrder(ctx, order, deductions); err != nil {
		// An inventory item deleted after revalidation.
		if errors.Is(err, store.ErrNotFound) {
			return model.Order{}, ErrStockChanged
		}
		return model.Order{}, fmt.Errorf("create order: %w", err)
	}

	// The order exists from here on; a stale cart is only an inconvenience.
	if err := s.carts.Delete(ctx, req.CartOwner); err != nil {
		s.log.Warn("clear cart after checkout", zap.String("order_id", order.ID), zap.Error(err))
	}

	s.log.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("outlet_id", order.OutletID),
		zap.Stringer("total", order.Total),
		zap.Bool("precise_distance", precise),
	)
	s.publish(ctx, events.TypeOrderCreated, order, events.OrderTopic(order.ID), events.OutletTopic(order.OutletID))
	return order, nil
}

// revalidate checks every line against the current menu and sums the
// inventory each line consumes. Line prices stay as snapshotted. Links to
// inventory items that no longer exist are skipped.
func (s *OrderService) revalidate(ctx context.Context, outletID string, items []model.OrderItem) ([]model.StockDeduction, error) {
	var (
		order  []string
		totals = make(map[string]float64)
		stale  = make(map[string]bool)
	)
	for _, line := range items {
		item, err := s.store.GetMenuItem(ctx, line.MenuItemID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrItemUnavailable, line.Name)
			}
			return nil, fmt.Errorf("get menu item: %w", err)
		}
		if !item.Available || item.OutletID != outletID {
			return nil, fmt.Errorf("%w: %s", ErrItemUnavailable, line.Name)
		}
		for _, link := range item.Inventory {
			if link.InventoryItemID == "" || link.QuantityPerUnit <= 0 || stale[link.InventoryItemID] {
				continue
			}
			if _, seen := totals[link.InventoryItemID]; !seen {
				if _, err := s.store.GetInventoryItem(ctx, link.InventoryItemID); err != nil {
					if !errors.Is(err, store.ErrNotFound) {
						return nil, fmt.Errorf("get inventory item: %w", err)
					}
					s.log.Warn("menu item links missing inventory item",
						zap.String("menu_item_id", item.ID),
						zap.String("inventory_item_id", link.InventoryItemID),
					)
					stale[link.InventoryItemID] = true
					continue
				}
			}
			if _, seen := totals[link.InventoryItemID]; !seen {
				order = append(order, link.InventoryItemID)
			}
			totals[link.InventoryItemID] += link.QuantityPerUnit * float64(line.Quantity)
		}
	}

	deductions := make([]model.StockDeduction, 0, len(order))
	for _, id := range order {
		deductions = append(deductions, model.StockDeduction{InventoryItemID: id, Quantity: totals[id]})
	}
	return deductions, nil
}

// Transition moves an order to the next status on behalf of a staff
// member. Nothing is written or announced unless the move is legal and the
// order has not changed since it was read.
func (s *OrderService) Transition(ctx context.Context, orderID, to string, actor Actor) (model.Order, error) {
	if !actor.Can(enum.PermManageOrders) {
		return model.Order{}, ErrForbidden
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, fmt.Errorf("get order: %w", err)
	}
	if !actor.CanAccessOutlet(order.OutletID) {
		return model.Order{}, ErrForbidden
	}

	if err := orderflow.CheckHistory(order.Status, order.History); err != nil {
		s.log.Warn("order history inconsistent", zap.String("order_id", order.ID), zap.Error(err))
	}

	from := order.Status
	entry, err := orderflow.Apply(&order, to, actor.label(), s.now().UTC())
	if err != nil {
		return model.Order{}, err
	}

	updated, err := s.store.UpdateOrderStatus(ctx, orderID, from, entry)
	if err != nil {
		return model.Order{}, fmt.Errorf("update order status: %w", err)
	}

	s.publish(ctx, events.TypeOrderStatusChanged, StatusChange{
		OrderID:   updated.ID,
		OutletID:  updated.OutletID,
		From:      from,
		To:        entry.Status,
		UpdatedBy: entry.UpdatedBy,
		Time:      entry.Time,
	}, events.OrderTopic(updated.ID), events.OutletTopic(updated.OutletID))
	return updated, nil
}

// Get returns an order to someone allowed to track it: its customer, staff
// of its outlet, or anyone holding the id of a guest order.
func (s *OrderService) Get(ctx context.Context, orderID string, actor Actor) (model.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, fmt.Errorf("get order: %w", err)
	}
	if !canView(order, actor) {
		return model.Order{}, ErrForbidden
	}
	return order, nil
}

func canView(o model.Order, a Actor) bool {
	switch {
	case strings.HasPrefix(o.CustomerID, guestPrefix):
		return true
	case a.UserID != "" && a.UserID == o.CustomerID:
		return true
	case a.IsStaff() && a.CanAccessOutlet(o.OutletID):
		return true
	}
	return false
}

// ListForCustomer returns a customer's own orders, newest first.
func (s *OrderService) ListForCustomer(ctx context.Context, userID string) ([]model.Order, error) {
	orders, err := s.store.GetOrders(ctx, store.OrderFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("list customer orders: %w", err)
	}
	return orders, nil
}

// ListForOutlet returns an outlet's orders, optionally narrowed to some
// statuses. An empty outlet id lists every outlet and needs global scope.
func (s *OrderService) ListForOutlet(ctx context.Context, outletID string, statuses []string, actor Actor) ([]model.Order, error) {
	if !actor.Can(enum.PermManageOrders) {
		return nil, ErrForbidden
	}
	if outletID == "" && !actor.CanAccessOutlet(enum.OutletScopeAll) {
		outletID = actor.OutletID
	}
	if outletID != "" && !actor.CanAccessOutlet(outletID) {
		return nil, ErrForbidden
	}
	for _, st := range statuses {
		if !orderflow.IsValid(st) {
			return nil, fmt.Errorf("%w: %q", orderflow.ErrUnknownStatus, st)
		}
	}
	orders, err := s.store.GetOrders(ctx, store.OrderFilter{OutletID: outletID, Statuses: statuses})
	if err != nil {
		return nil, fmt.Errorf("list outlet orders: %w", err)
	}
	return orders, nil
}

// Invoice is a fully resolved order plus the branding to print with it.
type Invoice struct {
	Order         model.Order           `json:"order"`
	Outlet        model.Outlet          `json:"outlet"`
	GSTPercentage float64               `json:"gstPercentage"`
	Settings      model.InvoiceSettings `json:"settings"`
}

// Invoice resolves everything an invoice renderer needs for one order.
func (s *OrderService) Invoice(ctx context.Context, orderID string, actor Actor) (Invoice, error) {
	order, err := s.Get(ctx, orderID, actor)
	if err != nil {
		return Invoice{}, err
	}
	outlet, err := s.store.GetOutlet(ctx, order.OutletID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Invoice{}, fmt.Errorf("get outlet: %w", err)
	}
	settings, err := s.store.GetGlobalSettings(ctx)
	if err != nil {
		return Invoice{}, fmt.Errorf("get settings: %w", err)
	}
	return Invoice{
		Order:         order,
		Outlet:        outlet,
		GSTPercentage: settings.GSTPercentage,
		Settings:      settings.Invoice,
	}, nil
}

// QuoteRequest asks what delivery to an address would cost.
type QuoteRequest struct {
	OutletID string
	Address  string
	Location *model.Coordinates
	Items    []model.OrderItem
}

// Quote is the priced answer to a QuoteRequest.
type Quote struct {
	DistanceKm     float64     `json:"distanceKm"`
	Precise        bool        `json:"precise"`
	WithinRadius   bool        `json:"withinRadius"`
	Subtotal       model.Money `json:"subtotal"`
	Tax            model.Money `json:"tax"`
	DeliveryCharge model.Money `json:"deliveryCharge"`
	Total          model.Money `json:"total"`
}

// Quote estimates the distance to an address and prices the given lines
// for delivery there. Nothing is stored.
func (s *OrderService) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	outlet, err := s.store.GetOutlet(ctx, req.OutletID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Quote{}, ErrOutletUnavailable
		}
		return Quote{}, fmt.Errorf("get outlet: %w", err)
	}
	if !outlet.IsActive {
		return Quote{}, ErrOutletUnavailable
	}

	km, precise, err := s.estimator.Distance(outlet, req.Address, req.Location)
	if err != nil {
		return Quote{}, ErrDistanceUnknown
	}

	settings, err := s.store.GetGlobalSettings(ctx)
	if err != nil {
		return Quote{}, fmt.Errorf("get settings: %w", err)
	}

	q := Quote{
		DistanceKm:   decimal.NewFromFloat(km).Round(2).InexactFloat64(),
		Precise:      precise,
		WithinRadius: outlet.DeliveryRadiusKm <= 0 || km <= outlet.DeliveryRadiusKm,
	}
	if len(req.Items) == 0 {
		q.DeliveryCharge = model.NewMoney(pricing.DeliveryCharge(settings, km))
		q.Total = q.DeliveryCharge
		return q, nil
	}
	q.Subtotal, q.Tax, q.DeliveryCharge, q.Total = pricing.Calculate(req.Items, settings, &km).Money()
	return q, nil
}

func (s *OrderService) publish(ctx context.Context, typ string, payload interface{}, topics ...string) {
	e, err := events.New(typ, payload, topics...)
	if err != nil {
		s.log.Error("build event", zap.String("type", typ), zap.Error(err))
		return
	}
	if err := s.pub.Publish(ctx, e); err != nil {
		s.log.Warn("publish event", zap.String("type", typ), zap.Error(err))
	}
}

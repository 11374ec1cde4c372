package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/pricing"
	"github.com/dineflow/api/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Errors returned by the invoice service.
var (
	ErrEmptyItems      = errors.New("items are required")
	ErrInvalidQuantity = errors.New("quantity must be > 0")
	ErrInvalidVariant  = errors.New("variant is not offered for this item")
	ErrCustomerName    = errors.New("customer name is required")
)

// InvoiceStore defines the store methods needed for manual invoices.
// Satisfied by store.Store; narrow interface for testability.
type InvoiceStore interface {
	GetOutlet(ctx context.Context, id string) (model.Outlet, error)
	GetMenuItem(ctx context.Context, id string) (model.MenuItem, error)
	GetGlobalSettings(ctx context.Context) (model.GlobalSettings, error)
	GetManualInvoices(ctx context.Context, outletID string) ([]model.ManualInvoice, error)
	SaveManualInvoice(ctx context.Context, inv model.ManualInvoice) error
	DeleteManualInvoice(ctx context.Context, id string) error
}

// InvoiceService records in-person sales that bypass the order lifecycle.
type InvoiceService struct {
	store InvoiceStore
	log   *zap.Logger
	now   func() time.Time
}

func NewInvoiceService(store InvoiceStore, log *zap.Logger) *InvoiceService {
	return &InvoiceService{store: store, log: log, now: time.Now}
}

// ManualLine is one line typed in by staff.
type ManualLine struct {
	MenuItemID string
	Variant    string
	Quantity   int
}

// ManualInvoiceRequest is the validated input for a manual invoice.
type ManualInvoiceRequest struct {
	OutletID      string
	Customer      model.Contact
	CustomerID    string
	Items         []ManualLine
	PaymentMethod string
	// DistanceKm is set for sales delivered by the outlet itself.
	DistanceKm *float64
	Actor      Actor
}

// CreateManual prices the lines from the current menu and stores the
// invoice.
func (s *InvoiceService) CreateManual(ctx context.Context, req ManualInvoiceRequest) (model.ManualInvoice, error) {
	if !req.Actor.Can(enum.PermManageOrders) || !req.Actor.CanAccessOutlet(req.OutletID) {
		return model.ManualInvoice{}, ErrForbidden
	}

	// --- Validate input ---
	if len(req.Items) == 0 {
		return model.ManualInvoice{}, ErrEmptyItems
	}
	if !enum.IsPaymentMethod(req.PaymentMethod) {
		return model.ManualInvoice{}, ErrInvalidPaymentMethod
	}
	req.Customer.Name = strings.TrimSpace(req.Customer.Name)
	if req.Customer.Name == "" {
		return model.ManualInvoice{}, ErrCustomerName
	}

	if _, err := s.store.GetOutlet(ctx, req.OutletID); err != nil {
		return model.ManualInvoice{}, fmt.Errorf("get outlet: %w", err)
	}

	// --- Price lines from the menu ---
	items := make([]model.OrderItem, 0, len(req.Items))
	for i, line := range req.Items {
		if line.Quantity <= 0 {
			return model.ManualInvoice{}, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		variant := line.Variant
		if variant == "" {
			variant = enum.VariantFull
		}
		item, err := s.store.GetMenuItem(ctx, line.MenuItemID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return model.ManualInvoice{}, fmt.Errorf("item[%d]: %w", i, ErrItemUnavailable)
			}
			return model.ManualInvoice{}, fmt.Errorf("get menu item: %w", err)
		}
		if item.OutletID != req.OutletID {
			return model.ManualInvoice{}, fmt.Errorf("item[%d]: %w", i, ErrItemUnavailable)
		}
		price, ok := item.Price.For(variant)
		if !ok {
			return model.ManualInvoice{}, fmt.Errorf("item[%d]: %w", i, ErrInvalidVariant)
		}
		items = append(items, model.OrderItem{
			MenuItemID: item.ID,
			Name:       item.Name,
			Variant:    variant,
			Price:      pricing.DisplayPrice(price, item.DiscountPercent),
			Quantity:   line.Quantity,
		})
	}

	settings, err := s.store.GetGlobalSettings(ctx)
	if err != nil {
		return model.ManualInvoice{}, fmt.Errorf("get settings: %w", err)
	}
	subtotal, tax, delivery, total := pricing.Calculate(items, settings, req.DistanceKm).Money()

	inv := model.ManualInvoice{
		ID:             uuid.NewString(),
		OutletID:       req.OutletID,
		CustomerID:     req.CustomerID,
		Customer:       req.Customer,
		Items:          items,
		Subtotal:       subtotal,
		Tax:            tax,
		DeliveryCharge: delivery,
		Total:          total,
		PaymentMethod:  req.PaymentMethod,
		CreatedBy:      req.Actor.label(),
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.SaveManualInvoice(ctx, inv); err != nil {
		return model.ManualInvoice{}, fmt.Errorf("save manual invoice: %w", err)
	}

	s.log.Info("manual invoice created",
		zap.String("invoice_id", inv.ID),
		zap.String("outlet_id", inv.OutletID),
		zap.Stringer("total", inv.Total),
	)
	return inv, nil
}

// List returns manual invoices visible to the actor, newest first.
func (s *InvoiceService) List(ctx context.Context, outletID string, actor Actor) ([]model.ManualInvoice, error) {
	if !actor.Can(enum.PermManageOrders) {
		return nil, ErrForbidden
	}
	if outletID == "" && !actor.CanAccessOutlet(enum.OutletScopeAll) {
		outletID = actor.OutletID
	}
	if outletID != "" && !actor.CanAccessOutlet(outletID) {
		return nil, ErrForbidden
	}
	invoices, err := s.store.GetManualInvoices(ctx, outletID)
	if err != nil {
		return nil, fmt.Errorf("list manual invoices: %w", err)
	}
	return invoices, nil
}

// Delete removes a manual invoice. Only super admins may do this.
func (s *InvoiceService) Delete(ctx context.Context, id string, actor Actor) error {
	if !actor.IsSuperAdmin() {
		return ErrForbidden
	}
	if err := s.store.DeleteManualInvoice(ctx, id); err != nil {
		return fmt.Errorf("delete manual invoice: %w", err)
	}
	return nil
}

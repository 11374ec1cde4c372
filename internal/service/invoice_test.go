package service

import (
	"context"
	"errors"
	"testing"

	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/store/memory"
	"go.uber.org/zap"
)

func newInvoiceService(t *testing.T) (*InvoiceService, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	db := memory.New()
	half := 199.0
	if err := db.SaveOutlet(ctx, model.Outlet{ID: testOutletID, Name: "Koramangala", IsActive: true}); err != nil {
		t.Fatalf("seed outlet: %v", err)
	}
	if err := db.SaveMenuItem(ctx, model.MenuItem{
		ID:              testMenuItemID,
		OutletID:        testOutletID,
		Name:            "Butter Chicken",
		Price:           model.Price{Full: 400, Half: &half},
		DiscountPercent: 10,
		Available:       true,
	}); err != nil {
		t.Fatalf("seed menu: %v", err)
	}
	return NewInvoiceService(db, zap.NewNop()), db
}

func manualReq() ManualInvoiceRequest {
	return ManualInvoiceRequest{
		OutletID:      testOutletID,
		Customer:      model.Contact{Name: "Walk-in", Phone: "9123456789"},
		Items:         []ManualLine{{MenuItemID: testMenuItemID, Variant: enum.VariantFull, Quantity: 2}},
		PaymentMethod: enum.PaymentMethodCOD,
		Actor:         staffActor(),
	}
}

func TestCreateManual(t *testing.T) {
	svc, db := newInvoiceService(t)
	ctx := context.Background()

	inv, err := svc.CreateManual(ctx, manualReq())
	if err != nil {
		t.Fatalf("create manual invoice: %v", err)
	}

	// 400 less 10% = 360, times 2 = 720, 5% GST = 36, no delivery.
	if inv.Subtotal.String() != "720.00" {
		t.Errorf("subtotal: got %v, want 720.00", inv.Subtotal)
	}
	if inv.Tax.String() != "36.00" {
		t.Errorf("tax: got %v, want 36.00", inv.Tax)
	}
	if inv.DeliveryCharge.String() != "0.00" {
		t.Errorf("delivery: got %v, want 0.00", inv.DeliveryCharge)
	}
	if inv.Total.String() != "756.00" {
		t.Errorf("total: got %v, want 756.00", inv.Total)
	}
	if inv.CreatedBy != "staff-1" {
		t.Errorf("createdBy: got %q, want staff-1", inv.CreatedBy)
	}

	stored, err := db.GetManualInvoices(ctx, testOutletID)
	if err != nil {
		t.Fatalf("list invoices: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("stored invoices: got %d, want 1", len(stored))
	}
}

func TestCreateManual_WithDelivery(t *testing.T) {
	svc, _ := newInvoiceService(t)

	req := manualReq()
	km := 4.0
	req.DistanceKm = &km
	inv, err := svc.CreateManual(context.Background(), req)
	if err != nil {
		t.Fatalf("create manual invoice: %v", err)
	}
	if inv.DeliveryCharge.String() != "50.00" {
		t.Errorf("delivery: got %v, want 50.00", inv.DeliveryCharge)
	}
}

func TestCreateManual_Validation(t *testing.T) {
	svc, _ := newInvoiceService(t)

	tests := []struct {
		name    string
		mutate  func(*ManualInvoiceRequest)
		wantErr error
	}{
		{"no items", func(r *ManualInvoiceRequest) { r.Items = nil }, ErrEmptyItems},
		{"zero quantity", func(r *ManualInvoiceRequest) { r.Items[0].Quantity = 0 }, ErrInvalidQuantity},
		{"variant not offered", func(r *ManualInvoiceRequest) { r.Items[0].Variant = enum.VariantQtr }, ErrInvalidVariant},
		{"unknown item", func(r *ManualInvoiceRequest) { r.Items[0].MenuItemID = "missing" }, ErrItemUnavailable},
		{"bad payment method", func(r *ManualInvoiceRequest) { r.PaymentMethod = "CHEQUE" }, ErrInvalidPaymentMethod},
		{"blank customer", func(r *ManualInvoiceRequest) { r.Customer.Name = "  " }, ErrCustomerName},
		{"customer actor", func(r *ManualInvoiceRequest) { r.Actor = Actor{UserID: "c", Role: enum.RoleCustomer} }, ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := manualReq()
			tt.mutate(&req)
			_, err := svc.CreateManual(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDeleteManual_SuperAdminOnly(t *testing.T) {
	svc, _ := newInvoiceService(t)
	ctx := context.Background()
	inv, err := svc.CreateManual(ctx, manualReq())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, inv.ID, staffActor()); !errors.Is(err, ErrForbidden) {
		t.Errorf("manager delete: expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(ctx, inv.ID, superAdmin()); err != nil {
		t.Errorf("super admin delete: %v", err)
	}
}

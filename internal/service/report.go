package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/store"
	"github.com/shopspring/decimal"
)

// ErrInvalidRange is returned when a report window is empty or inverted.
var ErrInvalidRange = errors.New("from must be before to")

// ReportStore defines the store methods needed for revenue reports.
// Satisfied by store.Store; narrow interface for testability.
type ReportStore interface {
	GetOutlet(ctx context.Context, id string) (model.Outlet, error)
	GetOrders(ctx context.Context, f store.OrderFilter) ([]model.Order, error)
	GetManualInvoices(ctx context.Context, outletID string) ([]model.ManualInvoice, error)
}

// ReportService aggregates delivered orders and manual invoices.
type ReportService struct {
	store ReportStore
}

func NewReportService(store ReportStore) *ReportService {
	return &ReportService{store: store}
}

// OutletRevenue is one outlet's share of a revenue report.
type OutletRevenue struct {
	OutletID     string `json:"outletId"`
	OutletName   string `json:"outletName"`
	OrderCount   int    `json:"orderCount"`
	InvoiceCount int    `json:"invoiceCount"`
	Revenue      string `json:"revenue"`
}

// RevenueReport covers [From, To). Money is rendered with two decimals.
type RevenueReport struct {
	From             time.Time       `json:"from"`
	To               time.Time       `json:"to"`
	OrderRevenue     string          `json:"orderRevenue"`
	InvoiceRevenue   string          `json:"invoiceRevenue"`
	TotalRevenue     string          `json:"totalRevenue"`
	TaxCollected     string          `json:"taxCollected"`
	OrderCount       int             `json:"orderCount"`
	InvoiceCount     int             `json:"invoiceCount"`
	StatusBreakdown  map[string]int  `json:"statusBreakdown"`
	PaymentBreakdown map[string]int  `json:"paymentBreakdown"`
	Outlets          []OutletRevenue `json:"outlets"`
}

type outletTally struct {
	orders   int
	invoices int
	revenue  decimal.Decimal
}

// Revenue reports on one outlet, or on every outlet when outletID is
// empty. Only delivered orders earn revenue; the status breakdown counts
// every order placed in the window.
func (s *ReportService) Revenue(ctx context.Context, outletID string, from, to time.Time, actor Actor) (RevenueReport, error) {
	if !actor.Can(enum.PermViewStats) {
		return RevenueReport{}, ErrForbidden
	}
	if outletID == "" && !actor.CanAccessOutlet(enum.OutletScopeAll) {
		outletID = actor.OutletID
	}
	if outletID != "" && !actor.CanAccessOutlet(outletID) {
		return RevenueReport{}, ErrForbidden
	}
	if !from.Before(to) {
		return RevenueReport{}, ErrInvalidRange
	}

	orders, err := s.store.GetOrders(ctx, store.OrderFilter{OutletID: outletID})
	if err != nil {
		return RevenueReport{}, fmt.Errorf("list orders: %w", err)
	}
	invoices, err := s.store.GetManualInvoices(ctx, outletID)
	if err != nil {
		return RevenueReport{}, fmt.Errorf("list manual invoices: %w", err)
	}
	inWindow := func(t time.Time) bool {
		return !t.Before(from) && t.Before(to)
	}

	var (
		orderRevenue   = decimal.Zero
		invoiceRevenue = decimal.Zero
		tax            = decimal.Zero
		tallies        = make(map[string]*outletTally)
	)
	tally := func(id string) *outletTally {
		t, ok := tallies[id]
		if !ok {
			t = &outletTally{revenue: decimal.Zero}
			tallies[id] = t
		}
		return t
	}

	report := RevenueReport{
		From:             from,
		To:               to,
		StatusBreakdown:  make(map[string]int),
		PaymentBreakdown: make(map[string]int),
	}

	for _, o := range orders {
		if !inWindow(o.CreatedAt) {
			continue
		}
		report.StatusBreakdown[o.Status]++
		if o.Status != enum.OrderStatusDelivered {
			continue
		}
		amount := o.Total.Decimal
		orderRevenue = orderRevenue.Add(amount)
		tax = tax.Add(o.Tax.Decimal)
		report.OrderCount++
		report.PaymentBreakdown[o.PaymentMethod]++

		t := tally(o.OutletID)
		t.orders++
		t.revenue = t.revenue.Add(amount)
	}

	for _, inv := range invoices {
		if !inWindow(inv.CreatedAt) {
			continue
		}
		amount := inv.Total.Decimal
		invoiceRevenue = invoiceRevenue.Add(amount)
		tax = tax.Add(inv.Tax.Decimal)
		report.InvoiceCount++
		report.PaymentBreakdown[inv.PaymentMethod]++

		t := tally(inv.OutletID)
		t.invoices++
		t.revenue = t.revenue.Add(amount)
	}

	// Deleted outlets keep their name on past revenue.
	for id, t := range tallies {
		outlet, err := s.store.GetOutlet(ctx, id)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return RevenueReport{}, fmt.Errorf("get outlet: %w", err)
		}
		report.Outlets = append(report.Outlets, OutletRevenue{
			OutletID:     id,
			OutletName:   outlet.Name,
			OrderCount:   t.orders,
			InvoiceCount: t.invoices,
			Revenue:      t.revenue.StringFixed(2),
		})
	}
	sort.Slice(report.Outlets, func(i, j int) bool {
		return report.Outlets[i].OutletID < report.Outlets[j].OutletID
	})

	report.OrderRevenue = orderRevenue.StringFixed(2)
	report.InvoiceRevenue = invoiceRevenue.StringFixed(2)
	report.TotalRevenue = orderRevenue.Add(invoiceRevenue).StringFixed(2)
	report.TaxCollected = tax.StringFixed(2)
	return report, nil
}

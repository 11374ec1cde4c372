package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dineflow/api/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ReportServicer defines the service methods needed by report handlers.
// Satisfied by *service.ReportService; narrow interface for testability.
type ReportServicer interface {
	Revenue(ctx context.Context, outletID string, from, to time.Time, actor service.Actor) (service.RevenueReport, error)
}

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	svc ReportServicer
	log *zap.Logger
	now func() time.Time
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(svc ReportServicer, log *zap.Logger) *ReportsHandler {
	return &ReportsHandler{svc: svc, log: log, now: time.Now}
}

// RegisterRoutes registers report endpoints.
// Expected to be mounted behind RequirePermission(viewStats): /admin/reports
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/revenue", h.Revenue)
}

// --- Handlers ---

// Revenue reports delivered-order and manual-invoice revenue for
// ?start_date=&end_date= (inclusive days), optionally narrowed by
// ?outlet_id=. Staff scoped to one outlet always get that outlet.
func (h *ReportsHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r, h.now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	report, err := h.svc.Revenue(r.Context(), r.URL.Query().Get("outlet_id"), from, to, actorFrom(r))
	if err != nil {
		writeError(w, h.log, "report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// --- Helpers ---

// reportLocation is the business time zone used to cut report days.
var reportLocation = loadReportLocation()

func loadReportLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return time.FixedZone("IST", 5*3600+1800)
	}
	return loc
}

// parseDateRange parses start_date and end_date query params in the
// business time zone. Defaults to the last 30 days if not provided.
// The returned end is exclusive (midnight after end_date).
func parseDateRange(r *http.Request, now time.Time) (time.Time, time.Time, error) {
	const layout = "2006-01-02"

	now = now.In(reportLocation)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, reportLocation)
	startDate := today.AddDate(0, 0, -30)
	endDate := today.AddDate(0, 0, 1)

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, reportLocation)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date format: %w", err)
		}
		startDate = t
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, reportLocation)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date format: %w", err)
		}
		endDate = t.AddDate(0, 0, 1)
	}

	if !startDate.Before(endDate) {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date must be before end_date")
	}
	return startDate, endDate, nil
}

package router

import (
	"net/http"

	"github.com/dineflow/api/internal/auth"
	"github.com/dineflow/api/internal/cart"
	"github.com/dineflow/api/internal/config"
	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/events"
	"github.com/dineflow/api/internal/geo"
	"github.com/dineflow/api/internal/handler"
	mw "github.com/dineflow/api/internal/middleware"
	"github.com/dineflow/api/internal/service"
	"github.com/dineflow/api/internal/store"
	"github.com/dineflow/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Deps are the long-lived components the HTTP layer is built on.
type Deps struct {
	Store     store.Store
	Carts     cart.Repository
	Tokens    *auth.Tokens
	Hub       *ws.Hub
	Publisher events.Publisher
	Estimator *geo.Estimator
	Log       *zap.Logger
}

// New creates a Chi router with all application routes wired up.
// Applies authentication, outlet scoping, and permission middleware as needed.
func New(cfg *config.Config, d Deps) chi.Router {
	log := d.Log
	if d.Estimator == nil {
		d.Estimator = geo.NewEstimator(geo.DefaultHeuristic())
	}

	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(mw.RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", handler.CartSessionHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Services
	orderSvc := service.NewOrderService(d.Store, d.Carts, d.Estimator, d.Publisher, log)
	accountSvc := service.NewAccountService(d.Store, d.Tokens, log)
	invoiceSvc := service.NewInvoiceService(d.Store, log)
	reportSvc := service.NewReportService(d.Store)

	// Handlers
	authH := handler.NewAuthHandler(accountSvc, log)
	outletH := handler.NewOutletHandler(d.Store, log)
	menuH := handler.NewMenuHandler(d.Store, log)
	inventoryH := handler.NewInventoryHandler(d.Store, log)
	cartH := handler.NewCartHandler(d.Store, d.Carts, log)
	orderH := handler.NewOrderHandler(orderSvc, log)
	settingsH := handler.NewSettingsHandler(d.Store, log)
	invoiceH := handler.NewInvoiceHandler(invoiceSvc, log)
	reservationH := handler.NewReservationHandler(d.Store, log)
	reportsH := handler.NewReportsHandler(reportSvc, log)
	userH := handler.NewUserHandler(accountSvc, log)
	customerH := handler.NewCustomerHandler(accountSvc, log)

	r.Get("/health", handler.Health(d.Store, log))

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(d.Hub, d.Tokens, log, w, r)
	})

	// Public routes: guests allowed, signed-in callers identified
	r.Group(func(r chi.Router) {
		r.Use(mw.OptionalAuthenticate(d.Tokens))

		authH.RegisterRoutes(r)
		r.Route("/outlets", func(r chi.Router) {
			outletH.RegisterRoutes(r)
			r.Get("/{oid}/menu", menuH.ListPublic)
		})
		r.Get("/settings/delivery", settingsH.Delivery)
		orderH.RegisterRoutes(r)
		r.Post("/reservations", reservationH.Create)
		r.Route("/cart", cartH.RegisterRoutes)
	})

	// Signed-in routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(d.Tokens))

		r.Route("/me", func(r chi.Router) {
			authH.RegisterMeRoutes(r)
			r.Get("/orders", orderH.MyOrders)
		})
		orderH.RegisterStaffRoutes(r)
	})

	// Admin routes
	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.Authenticate(d.Tokens))

		r.Route("/outlets", func(r chi.Router) {
			r.Use(mw.RequirePermission(enum.PermManageOutlets))
			outletH.RegisterAdminRoutes(r)
		})

		// Outlet-scoped routes. PUT and DELETE on the outlet itself live
		// here too: the subrouter owns /outlets/{oid} for every method.
		r.Route("/outlets/{oid}", func(r chi.Router) {
			r.Use(mw.RequireOutlet)

			r.Group(func(r chi.Router) {
				r.Use(mw.RequirePermission(enum.PermManageOutlets))
				outletH.RegisterManageRoutes(r)
			})
			r.Route("/menu", func(r chi.Router) {
				r.Use(mw.RequirePermission(enum.PermManageMenu))
				menuH.RegisterRoutes(r)
			})
			r.Route("/inventory", func(r chi.Router) {
				r.Use(mw.RequirePermission(enum.PermManageInventory))
				inventoryH.RegisterRoutes(r)
			})
			r.Route("/orders", func(r chi.Router) {
				r.Use(mw.RequirePermission(enum.PermManageOrders))
				orderH.RegisterOutletRoutes(r)
			})
			r.Route("/invoices", func(r chi.Router) {
				r.Use(mw.RequirePermission(enum.PermManageOrders))
				invoiceH.RegisterRoutes(r)
			})
			r.Route("/reservations", func(r chi.Router) {
				r.Use(mw.RequirePermission(enum.PermManageOrders))
				reservationH.RegisterRoutes(r)
			})
		})

		r.Route("/reports", func(r chi.Router) {
			r.Use(mw.RequirePermission(enum.PermViewStats))
			reportsH.RegisterRoutes(r)
		})
		r.Route("/users", func(r chi.Router) {
			r.Use(mw.RequirePermission(enum.PermManageManagers))
			userH.RegisterRoutes(r)
		})

		// Super admin only
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleSuperAdmin))
			r.Delete("/invoices/{id}", invoiceH.Delete)
			r.Route("/customers", customerH.RegisterRoutes)
			r.Route("/settings", settingsH.RegisterRoutes)
		})
	})

	log.Info("router initialized")
	return r
}

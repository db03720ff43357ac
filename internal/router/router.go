package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lunchpack/api/internal/config"
	"github.com/lunchpack/api/internal/database"
	"github.com/lunchpack/api/internal/enum"
	"github.com/lunchpack/api/internal/handler"
	mw "github.com/lunchpack/api/internal/middleware"
	"github.com/lunchpack/api/internal/service"
	"github.com/lunchpack/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication, business scoping, and role-based middleware as
// needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/businesses/{bid}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services share the pool-bound queries for reads and transaction-bound
	// stores for multi-statement operations.
	windowEval := service.NewWindowEvaluator()
	orderService := service.NewOrderService(pool, queries, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, windowEval)
	menuService := service.NewMenuService(queries, cfg.DefaultCutoff)
	dayLockService := service.NewDayLockService(pool, func(db database.DBTX) service.DayLockStore {
		return database.New(db)
	})
	subscriptionService := service.NewSubscriptionService(pool, queries, func(db database.DBTX) service.SubscriptionStore {
		return database.New(db)
	})
	invoiceService := service.NewInvoiceService(pool, queries, func(db database.DBTX) service.InvoiceStore {
		return database.New(db)
	}, cfg.InvoiceDueDays)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Employee ordering
		orderHandler := handler.NewOrderHandler(orderService, hub)
		r.Route("/orders", orderHandler.RegisterRoutes)

		// Menus: reads for everyone, authoring for SUPER_ADMIN
		menuHandler := handler.NewMenuHandler(menuService, hub)
		r.Route("/menus", func(r chi.Router) {
			menuHandler.RegisterRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleSuperAdmin))
				menuHandler.RegisterAdminRoutes(r)
			})
		})

		// Platform-wide operations (SUPER_ADMIN)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleSuperAdmin))

			dayLockHandler := handler.NewDayLockHandler(dayLockService, hub)
			dayLockHandler.RegisterRoutes(r)

			invoiceHandler := handler.NewInvoiceHandler(invoiceService)
			r.Route("/invoices", invoiceHandler.RegisterRoutes)
		})

		// Business-scoped routes
		r.Route("/businesses/{bid}", func(r chi.Router) {
			r.Use(mw.RequireBusiness)

			serviceHandler := handler.NewServiceHandler(subscriptionService)
			r.Route("/services", serviceHandler.RegisterRoutes)

			invoiceHandler := handler.NewInvoiceHandler(invoiceService)
			r.Route("/invoices", invoiceHandler.RegisterBusinessRoutes)
		})
	})

	return r
}

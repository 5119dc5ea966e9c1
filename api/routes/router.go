package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/occasionbuddy/occasionbuddy-backend/api/controllers"
	"github.com/occasionbuddy/occasionbuddy-backend/api/middleware"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/auth"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/authsession"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/notifications"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/orders"
	products "github.com/occasionbuddy/occasionbuddy-backend/internal/products"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/support"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/toasts"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/wishlist"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/auth/session"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/config"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/metrics"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/redis"
)

// Params carries everything the API router wires into handlers.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Sessions session.AccessSessionChecker
	Profiles authsession.ProfileLookup

	Auth          auth.Service
	Products      products.Service
	Orders        orders.Service
	Support       support.Service
	Notifications notifications.Service
	Wishlist      wishlist.Service
	Toasts        *toasts.Hub

	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, p.HTTPMetrics),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	// A nil *redis.Client must reach the middlewares as a nil interface.
	var (
		idemStore redis.IdempotencyStore
		rateStore redis.RateLimiter
	)
	if p.Redis != nil {
		idemStore, rateStore = p.Redis, p.Redis
	}
	requireAuth := middleware.Auth(cfg.JWT, p.Sessions, logg)
	idempotency := middleware.Idempotency(idemStore, logg)
	registerLimit := middleware.AuthRateLimit(registerPolicy, rateStore, logg)
	loginLimit := middleware.AuthRateLimit(loginPolicy, rateStore, logg)
	adminLoginLimit := middleware.AuthRateLimit(middleware.NewAuthRateLimitPolicy(
		"admin-login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	), rateStore, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readinessChecks(p), logg))
	})
	if p.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", p.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(registerLimit).Post("/register", controllers.AuthRegister(p.Auth, logg))
			r.With(loginLimit).Post("/login", controllers.AuthLogin(p.Auth, logg))
			r.With(requireAuth).Post("/logout", controllers.AuthLogout(p.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(p.Auth, logg))
		})

		r.Get("/products", controllers.ListProducts(p.Products, logg))
		r.Get("/products/{productId}", controllers.GetProduct(p.Products, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.DeviceID(logg))
			r.Get("/wishlist", controllers.ListWishlist(p.Wishlist, logg))
			r.Post("/wishlist/{productId}/toggle", controllers.ToggleWishlist(p.Wishlist, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, idempotency)

			r.Get("/session", controllers.Session(p.Profiles, logg))

			r.Post("/orders", controllers.CreateOrder(p.Orders, logg))
			r.Get("/orders", controllers.ListMyOrders(p.Orders, logg))
			r.Get("/orders/{orderId}", controllers.GetMyOrder(p.Orders, logg))

			r.Post("/support-tickets", controllers.CreateSupportTicket(p.Support, logg))
			r.Get("/support-tickets", controllers.ListMySupportTickets(p.Support, logg))

			r.Get("/notifications", controllers.ListNotifications(p.Notifications, logg))
			r.Post("/notifications/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
			r.Post("/notifications/{notificationId}/read", controllers.MarkNotificationRead(p.Notifications, logg))

			r.Get("/toasts", controllers.ListToasts(p.Toasts, logg))
			r.Post("/toasts", controllers.AddToast(p.Toasts, logg))
			r.Delete("/toasts/{toastId}", controllers.RemoveToast(p.Toasts, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.With(adminLoginLimit).Post("/auth/login", controllers.AdminAuthLogin(p.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, middleware.RequireAdmin(p.Profiles, logg), idempotency)

			r.Post("/products", controllers.AdminCreateProduct(p.Products, logg))
			r.Patch("/products/{productId}", controllers.AdminUpdateProduct(p.Products, logg))
			r.Delete("/products/{productId}", controllers.AdminDeleteProduct(p.Products, logg))

			r.Get("/orders", controllers.AdminListOrders(p.Orders, logg))
			r.Patch("/orders/{orderId}/status", controllers.AdminUpdateOrderStatus(p.Orders, logg))

			r.Get("/support-tickets", controllers.AdminListSupportTickets(p.Support, logg))
			r.Patch("/support-tickets/{ticketId}/status", controllers.AdminUpdateSupportTicketStatus(p.Support, logg))
		})
	})

	return r
}

func readinessChecks(p Params) map[string]controllers.Pinger {
	checks := map[string]controllers.Pinger{}
	if p.DB != nil {
		checks["database"] = p.DB
	}
	if p.Redis != nil {
		checks["redis"] = p.Redis
	}
	return checks
}

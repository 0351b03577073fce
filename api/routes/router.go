package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mercatolabs/storefront-backend/api/controllers"
	"github.com/mercatolabs/storefront-backend/api/middleware"
	addrsvc "github.com/mercatolabs/storefront-backend/internal/addresses"
	authsvc "github.com/mercatolabs/storefront-backend/internal/auth"
	cartsvc "github.com/mercatolabs/storefront-backend/internal/cart"
	catsvc "github.com/mercatolabs/storefront-backend/internal/categories"
	optsvc "github.com/mercatolabs/storefront-backend/internal/options"
	ordersvc "github.com/mercatolabs/storefront-backend/internal/orders"
	pmsvc "github.com/mercatolabs/storefront-backend/internal/paymentmethods"
	privsvc "github.com/mercatolabs/storefront-backend/internal/privacy"
	wlsvc "github.com/mercatolabs/storefront-backend/internal/wishlist"
	"github.com/mercatolabs/storefront-backend/pkg/config"
	"github.com/mercatolabs/storefront-backend/pkg/db"
	"github.com/mercatolabs/storefront-backend/pkg/enums"
	"github.com/mercatolabs/storefront-backend/pkg/logger"
	"github.com/mercatolabs/storefront-backend/pkg/metrics"
	pkgredis "github.com/mercatolabs/storefront-backend/pkg/redis"
)

// Services bundles the domain services the router exposes.
type Services struct {
	Auth           authsvc.Service
	Addresses      addrsvc.Service
	Cart           cartsvc.Service
	Orders         ordersvc.Service
	Categories     catsvc.Service
	Options        optsvc.Service
	PaymentMethods pmsvc.Service
	Privacy        privsvc.Service
	Wishlist       wlsvc.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	registry *prometheus.Registry,
	httpMetrics *metrics.HTTPMetrics,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(),
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

	requireAuth := middleware.Auth(cfg.JWT, logg)
	optionalAuth := middleware.OptionalAuth(cfg.JWT, logg)
	requireAdmin := middleware.RequireRole(string(enums.UserRoleAdmin), logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, redisClient, logg))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.Idempotency(redisClient, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.Register(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.Login(svcs.Auth, logg))
		r.With(requireAuth).Get("/me", controllers.Me(svcs.Auth, logg))
	})

	// Owner-scoped resources accept either a bearer token or a guest
	// sessionId query parameter.
	r.Route("/api/v1/addresses", func(r chi.Router) {
		r.Use(optionalAuth, middleware.GuestSession(logg))
		r.Get("/", controllers.ListAddresses(svcs.Addresses, logg))
		r.Post("/", controllers.CreateAddress(svcs.Addresses, logg))
		r.Get("/{addressId}", controllers.GetAddress(svcs.Addresses, logg))
		r.Put("/{addressId}", controllers.UpdateAddress(svcs.Addresses, logg))
		r.Delete("/{addressId}", controllers.DeleteAddress(svcs.Addresses, logg))
		r.Put("/{addressId}/default", controllers.SetDefaultAddress(svcs.Addresses, logg))
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(optionalAuth, middleware.GuestSession(logg), middleware.Idempotency(redisClient, logg))
		r.Get("/", controllers.GetCart(svcs.Cart, logg))
		r.Post("/items", controllers.AddCartItem(svcs.Cart, logg))
		r.Put("/items/{itemId}", controllers.UpdateCartItem(svcs.Cart, logg))
		r.Delete("/items/{itemId}", controllers.RemoveCartItem(svcs.Cart, logg))
		r.Post("/clear", controllers.ClearCart(svcs.Cart, logg))
		r.With(requireAuth).Post("/migrate", controllers.MigrateCart(svcs.Cart, logg))
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(optionalAuth, middleware.GuestSession(logg), middleware.Idempotency(redisClient, logg))
		r.Get("/", controllers.ListOrders(svcs.Orders, logg))
		r.Get("/status/{status}", controllers.ListOrdersByStatus(svcs.Orders, logg))
		r.Post("/checkout", controllers.Checkout(svcs.Orders, logg))
		r.Get("/{orderId}", controllers.GetOrder(svcs.Orders, logg))
		r.Post("/{orderId}/cancel", controllers.CancelOrder(svcs.Orders, logg))
		r.Post("/{orderId}/refund", controllers.RefundOrder(svcs.Orders, logg))
		r.With(requireAuth, requireAdmin).Put("/{orderId}/status", controllers.UpdateOrderStatus(svcs.Orders, logg))
	})

	r.Route("/api/v1/categories", func(r chi.Router) {
		r.Get("/", controllers.ListCategories(svcs.Categories, logg))
		r.Get("/tree", controllers.CategoryTree(svcs.Categories, logg))
		r.Get("/navigation", controllers.CategoryNavigation(svcs.Categories, logg))
		r.Get("/search", controllers.SearchCategories(svcs.Categories, logg))
		r.Get("/{categoryId}", controllers.GetCategory(svcs.Categories, logg))
		r.Get("/{categoryId}/breadcrumbs", controllers.CategoryBreadcrumbs(svcs.Categories, logg))
		r.Get("/{categoryId}/siblings", controllers.CategorySiblings(svcs.Categories, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, requireAdmin)
			r.Post("/", controllers.CreateCategory(svcs.Categories, logg))
			r.Put("/{categoryId}", controllers.UpdateCategory(svcs.Categories, logg))
			r.Delete("/{categoryId}", controllers.DeleteCategory(svcs.Categories, logg))
			r.Get("/stats", controllers.CategoryStats(svcs.Categories, logg))
			r.Post("/{categoryId}/products/assign", controllers.AssignCategoryProducts(svcs.Categories, logg))
			r.Post("/{categoryId}/products/remove", controllers.RemoveCategoryProducts(svcs.Categories, logg))
			r.Post("/{categoryId}/products/move", controllers.MoveCategoryProducts(svcs.Categories, logg))
		})
	})

	r.Route("/api/v1/option-groups", func(r chi.Router) {
		r.Get("/", controllers.ListOptionGroups(svcs.Options, logg))
		r.Get("/{groupId}", controllers.GetOptionGroup(svcs.Options, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, requireAdmin)
			r.Post("/", controllers.CreateOptionGroup(svcs.Options, logg))
			r.Put("/{groupId}", controllers.UpdateOptionGroup(svcs.Options, logg))
			r.Delete("/{groupId}", controllers.DeleteOptionGroup(svcs.Options, logg))
		})
	})

	r.Route("/api/v1/option-values", func(r chi.Router) {
		r.Get("/group/{groupId}", controllers.ListOptionValuesByGroup(svcs.Options, logg))
		r.Get("/listing/{listingId}", controllers.ListOptionValuesByListing(svcs.Options, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, requireAdmin)
			r.Post("/", controllers.CreateOptionValue(svcs.Options, logg))
			r.Post("/bulk", controllers.BulkCreateOptionValues(svcs.Options, logg))
			r.Put("/{valueId}", controllers.UpdateOptionValue(svcs.Options, logg))
			r.Delete("/{valueId}", controllers.DeleteOptionValue(svcs.Options, logg))
		})
	})

	r.Route("/api/v1/variants", func(r chi.Router) {
		r.Get("/{variantId}", controllers.GetVariant(svcs.Options, logg))
		r.Get("/listing/{listingId}", controllers.ListVariantsByListing(svcs.Options, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, requireAdmin)
			r.Post("/", controllers.CreateVariant(svcs.Options, logg))
			r.Put("/{variantId}", controllers.UpdateVariant(svcs.Options, logg))
		})
	})

	r.Route("/api/v1/payment-methods", func(r chi.Router) {
		r.Get("/", controllers.ListPaymentMethods(svcs.PaymentMethods, true, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, requireAdmin)
			r.Get("/all", controllers.ListPaymentMethods(svcs.PaymentMethods, false, logg))
			r.Post("/", controllers.CreatePaymentMethod(svcs.PaymentMethods, logg))
			r.Get("/{methodId}", controllers.GetPaymentMethod(svcs.PaymentMethods, logg))
			r.Put("/{methodId}", controllers.UpdatePaymentMethod(svcs.PaymentMethods, logg))
			r.Delete("/{methodId}", controllers.DeletePaymentMethod(svcs.PaymentMethods, logg))
			r.Route("/basic", func(r chi.Router) {
				r.Get("/stats", controllers.PaymentMethodStats(svcs.PaymentMethods, logg))
				r.Post("/init", controllers.InitPaymentMethods(svcs.PaymentMethods, logg))
				r.Post("/{methodId}/activate", controllers.ActivatePaymentMethod(svcs.PaymentMethods, logg))
				r.Post("/{methodId}/deactivate", controllers.DeactivatePaymentMethod(svcs.PaymentMethods, logg))
			})
		})
	})

	r.Route("/api/v1/privacy", func(r chi.Router) {
		r.Use(requireAuth, middleware.Idempotency(redisClient, logg))
		r.Get("/me", controllers.GetPrivacySettings(svcs.Privacy, logg))
		r.Put("/me", controllers.UpdatePrivacySettings(svcs.Privacy, logg))
		r.Post("/me/reset", controllers.ResetPrivacySettings(svcs.Privacy, logg))
		r.Get("/me/export", controllers.ExportMyData(svcs.Privacy, logg))
		r.Delete("/me/data", controllers.DeleteMyData(svcs.Privacy, logg))
	})

	r.Route("/api/v1/wishlist", func(r chi.Router) {
		r.Use(requireAuth, middleware.Idempotency(redisClient, logg))
		r.Get("/", controllers.ListWishlist(svcs.Wishlist, logg))
		r.Post("/", controllers.AddWishlistItem(svcs.Wishlist, logg))
		r.Delete("/{listingId}", controllers.RemoveWishlistItem(svcs.Wishlist, logg))
	})

	return r
}

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront/pkg/redis"
)

// Dependencies are the collaborators the BFF routes need. Nil optional
// members disable the feature that uses them.
type Dependencies struct {
	Checkout    controllers.CheckoutSender
	Catalog     controllers.CatalogReader
	Admin       controllers.AdminRelay
	CartBackend controllers.CartBackend

	Idempotency pkgredis.IdempotencyStore
	RateLimiter pkgredis.RateLimiter
	Registry    *prometheus.Registry
	Pingers     map[string]controllers.Pinger
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Storefront.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	commitPolicy := middleware.NewCommitRateLimitPolicy("checkout", cfg.Checkout.CommitWindow, cfg.Checkout.CommitIPLimit)
	if cfg.Checkout.DisableRateLimit {
		commitPolicy = middleware.NewCommitRateLimitPolicy("checkout", 0, 0)
	}
	idempotencyPolicy := middleware.IdempotencyPolicy{CheckoutTTL: cfg.Checkout.IdempotencyTTL}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.StoreContext(cfg.Admin.StoreID, logg))
		r.Use(middleware.CartToken(logg))
		r.Use(middleware.Idempotency(deps.Idempotency, idempotencyPolicy, logg))

		r.With(middleware.CommitRateLimit(commitPolicy, deps.RateLimiter, logg)).
			Post("/checkout", controllers.CheckoutProxy(deps.Checkout, logg))

		if deps.Catalog != nil {
			r.Get("/products", controllers.CatalogProducts(deps.Catalog, logg))
			r.Get("/products/{productId}", controllers.CatalogProduct(deps.Catalog, logg))
			r.Get("/categories", controllers.CatalogCategories(deps.Catalog, logg))
			r.Get("/search", controllers.CatalogSearch(deps.Catalog, logg))
		}

		if deps.Admin != nil {
			r.Get("/admin/stores/{storeId}", controllers.StoreProxy(deps.Admin, logg))
			r.Get("/reviews", controllers.ReviewsList(deps.Admin, logg))
			r.Post("/reviews", controllers.ReviewsCreate(deps.Admin, logg))
		}

		if deps.CartBackend != nil {
			cartCtrl := controllers.NewCartController(deps.CartBackend, deps.Catalog, logg)
			r.Route("/v1/cart", func(r chi.Router) {
				r.Get("/", cartCtrl.Get())
				r.Delete("/", cartCtrl.Clear())
				r.Post("/items", cartCtrl.AddItem())
				r.Patch("/items/{productId}", cartCtrl.UpdateItem())
				r.Delete("/items/{productId}", cartCtrl.RemoveItem())
			})
		}
	})

	return r
}

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-cart/api/controllers"
	"github.com/angelmondragon/storefront-cart/api/middleware"
	"github.com/angelmondragon/storefront-cart/internal/cartserver"
	"github.com/angelmondragon/storefront-cart/pkg/config"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
)

// APIPrefix is where the cart contract is mounted.
const APIPrefix = "/api/v1"

type routerOptions struct {
	corsOrigins []string
}

// Option configures optional router behavior.
type Option func(*routerOptions)

// WithCORS allows cross-origin requests from origins.
func WithCORS(origins []string) Option {
	return func(o *routerOptions) {
		o.corsOrigins = origins
	}
}

// NewRouter serves the backend cart contract over svc. A nil metrics handler
// leaves /metrics unmounted.
func NewRouter(auth config.AuthConfig, logg *logger.Logger, svc cartserver.Service, metrics http.Handler, opts ...Option) http.Handler {
	var options routerOptions
	for _, opt := range opts {
		opt(&options)
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)
	if len(options.corsOrigins) > 0 {
		r.Use(middleware.CORS(options.corsOrigins))
	}

	r.Get("/health", controllers.Health())
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route(APIPrefix, func(r chi.Router) {
		r.Get("/products", controllers.ProductList(svc, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(auth, logg))
			r.Route("/cart", func(r chi.Router) {
				r.Post("/items", controllers.CartAddItem(svc, logg))
				r.Put("/items/{itemId}", controllers.CartUpdateItem(svc, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(svc, logg))
				r.Get("/{userId}", controllers.CartGet(svc, logg))
				r.Delete("/{userId}", controllers.CartClear(svc, logg))
			})
		})
	})

	return r
}

// NewMetricsRouter serves only /metrics, for processes that host no API.
func NewMetricsRouter(metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", metrics)
	return r
}

package http

import (
	"net/http"
	"time"

	"github.com/fjod/go_cart/fakestore/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Catalog        ProductCatalog
	Sessions       CartSessions
	Checkout       Checkouter
	Logger         *logger.Logger
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	productHandler := NewProductHandler(cfg.Catalog, cfg.Logger, cfg.RequestTimeout, cfg.MaxBodyBytes)
	cartHandler := NewCartHandler(cfg.Catalog, cfg.Sessions, cfg.Checkout, cfg.Logger, cfg.RequestTimeout, cfg.MaxBodyBytes)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(AccessLog(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		productHandler.respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Post("/", productHandler.Create)
			r.Get("/{id}", productHandler.Get)
			r.Put("/{id}", productHandler.Update)
			r.Delete("/{id}", productHandler.Delete)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(SessionMiddleware(cfg.Logger))

			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Post("/items/{product_id}/increment", cartHandler.IncrementItem)
			r.Post("/items/{product_id}/decrement", cartHandler.DecrementItem)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
			r.Post("/checkout", cartHandler.Checkout)
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}

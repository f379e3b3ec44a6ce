package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/cache"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Catalog  CatalogService
	Profiles ProfileService
	Cart     CartService
	Orders   OrderService
	Payments PaymentService

	Idempotency    cache.IdempotencyStore
	IdempotencyTTL time.Duration
	Metrics        *metrics.ServerMetrics
	Gatherer       prometheus.Gatherer
	// Ping reports whether the database is reachable; nil skips the check.
	Ping           func(ctx context.Context) error
	RequestTimeout time.Duration
	Log            *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	products := NewProductHandler(cfg.Catalog, cfg.RequestTimeout)
	profiles := NewProfileHandler(cfg.Profiles, cfg.RequestTimeout)
	cart := NewCartHandler(cfg.Cart, cfg.RequestTimeout)
	orders := NewOrdersHandler(cfg.Orders, cfg.RequestTimeout)
	payments := NewPaymentsHandler(cfg.Payments, cfg.RequestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	if cfg.Metrics != nil {
		r.Use(MetricsMiddleware(cfg.Metrics))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ping != nil {
			if err := cfg.Ping(r.Context()); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// the provider redirects the buyer here without our identity headers
		r.Get("/payments/success", payments.Success)
		r.Get("/payments/cancel", payments.Cancel)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware)

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", profiles.GetProfile)
				r.Post("/", profiles.CreateProfile)
				r.Put("/", profiles.UpdateProfile)
			})
			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", profiles.ListAddresses)
				r.Post("/", profiles.CreateAddress)
				r.Delete("/{address_id}", profiles.DeleteAddress)
			})
			r.Route("/products", func(r chi.Router) {
				r.Get("/", products.ListProducts)
				r.Post("/", products.CreateProduct)
				r.Get("/{product_id}", products.GetProduct)
				r.Put("/{product_id}", products.UpdateProduct)
				r.Post("/{product_id}/restock", products.RestockProduct)
			})
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cart.GetCart)
				r.Post("/items", cart.AddItem)
				r.Patch("/items/{item_id}", cart.UpdateItem)
				r.Delete("/items/{item_id}", cart.RemoveItem)
			})
			r.Route("/orders", func(r chi.Router) {
				r.With(Idempotency(cfg.Idempotency, cfg.IdempotencyTTL, cfg.Log)).Post("/", orders.PlaceOrder)
				r.Get("/", orders.ListOrders)
				r.Get("/{order_id}", orders.GetOrder)
			})
			r.Route("/payments", func(r chi.Router) {
				r.Get("/", payments.ListPayments)
				r.Get("/renew", payments.Renew)
				r.Get("/{payment_id}", payments.GetPayment)
			})
		})
	})

	return otelhttp.NewHandler(r, "lux-clothing-portal")
}

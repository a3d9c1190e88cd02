package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Orders   *OrderHandler
	Checkout *CheckoutHandler
	Webhooks *WebhookHandler
	Cart     *CartHandler
	Products *ProductHandler
	Promos   *PromoHandler
}

func NewRouter(h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// CMS content sync. Signature-checked against the raw body, so it stays
	// outside any body-rewriting middleware.
	r.Post("/webhook/sanity", h.Webhooks.SanityWebhook)

	r.Route("/api", func(r chi.Router) {
		r.Post("/webhooks/paypal", h.Webhooks.PayPalWebhook)

		r.Post("/orders/create", h.Checkout.CreateOrder)
		r.Post("/orders/{orderId}/capture", h.Checkout.CaptureOrder)
		r.Get("/orders/{orderId}", h.Orders.GetOrder)
		r.Get("/users/{userId}/orders", h.Orders.ListOrdersByUser)

		r.Post("/cart", h.Cart.AddItem)
		r.Get("/cart/{userId}", h.Cart.GetCart)
		r.Delete("/cart/{userId}", h.Cart.ClearCart)
		r.Delete("/cart/{userId}/{productId}", h.Cart.RemoveItem)

		r.Get("/products", h.Products.ListProducts)
		r.Get("/products/{id}", h.Products.GetProduct)

		r.Post("/promos/dynamic", h.Promos.CreateDynamicPromo)
		r.Get("/promos/dynamic", h.Promos.ListDynamicPromos)
	})

	return r
}

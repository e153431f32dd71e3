package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Hian201/AniceHolidaySample/internal/cart"
	"github.com/Hian201/AniceHolidaySample/internal/checkout"
	"github.com/Hian201/AniceHolidaySample/internal/history"
	"github.com/Hian201/AniceHolidaySample/internal/menu"
	"github.com/Hian201/AniceHolidaySample/pkg/health"
	"github.com/Hian201/AniceHolidaySample/pkg/middleware"
)

// NewRouter creates a chi router with all shop routes registered.
func NewRouter(
	menuMirror *menu.Mirror,
	cartStore *cart.Store,
	orchestrator *checkout.Orchestrator,
	historyMirror *history.Mirror,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("teashop"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	menuHandler := NewMenuHandler(menuMirror, logger)
	cartHandler := NewCartHandler(cartStore, menuMirror, logger)
	checkoutHandler := NewCheckoutHandler(orchestrator, logger)
	ordersHandler := NewOrdersHandler(historyMirror, orchestrator, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/menu", menuHandler.GetMenu)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{item}", cartHandler.UpdateItem)
			r.Delete("/items", cartHandler.RemoveItems)
			r.Post("/reorder", cartHandler.Reorder)
		})

		r.Post("/checkout", checkoutHandler.Submit)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordersHandler.ListOrders)
			r.Get("/{id}/items", ordersHandler.GetOrderItems)
			r.Patch("/{id}/items/{itemId}", ordersHandler.EditItem)
			r.Delete("/{id}", ordersHandler.DeleteOrder)
		})
	})

	return r
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/storelab/orders-api/pkg/health"
)

// NewRouter mounts the API routes and probe endpoints. The fixed
// /shipping subtree is registered before the {cep} wildcard so rate and
// quote lookups are never swallowed by CEP resolution.
func NewRouter(h *Handler, hc *health.Health) http.Handler {
	r := chi.NewRouter()

	r.Route("/api/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)
		r.Put("/{id}", h.UpdateOrder)
		r.Delete("/{id}", h.DeleteOrder)
	})

	r.Route("/api/cep", func(r chi.Router) {
		r.Get("/shipping/rates", h.ShippingRates)
		r.Get("/shipping/{state}", h.QuoteShipping)
		r.Get("/{cep}", h.LookupCEP)
	})

	r.Get("/livez", hc.LiveEndpoint)
	r.Get("/readyz", hc.ReadyEndpoint)
	r.Get("/health", hc.ReadyEndpoint)

	return r
}

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/storelab/orders-api/internal/domain/shipping"
)

type cepResponse struct {
	Valid        bool   `json:"valid"`
	CEP          string `json:"cep"`
	Street       string `json:"street"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	IBGE         string `json:"ibge,omitempty"`
	DDD          string `json:"ddd,omitempty"`

	Shipping              *shippingQuoteResponse `json:"shipping,omitempty"`
	EstimatedDeliveryDays int                    `json:"estimated_delivery_days,omitempty"`
}

type shippingQuoteResponse struct {
	State                 string  `json:"state"`
	OriginalCost          float64 `json:"original_cost"`
	FinalCost             float64 `json:"final_cost"`
	FreeShipping          bool    `json:"free_shipping"`
	Message               string  `json:"message,omitempty"`
	EstimatedDeliveryDays int     `json:"estimated_delivery_days"`
}

type cepErrorResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error"`
}

func toQuoteResponse(q shipping.Quote) shippingQuoteResponse {
	return shippingQuoteResponse{
		State:                 q.State,
		OriginalCost:          q.OriginalCost.InexactFloat64(),
		FinalCost:             q.FinalCost.InexactFloat64(),
		FreeShipping:          q.FreeShipping,
		Message:               q.Message,
		EstimatedDeliveryDays: q.DeliveryDays,
	}
}

// LookupCEP handles GET /api/cep/{cep}. With calculate_shipping=true the
// response also carries a zero-subtotal quote for the resolved state.
func (h *Handler) LookupCEP(w http.ResponseWriter, r *http.Request) {
	addr, err := h.resolver.Resolve(r.Context(), chi.URLParam(r, "cep"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, cepErrorResponse{
			Valid: false,
			Error: cepErrorMessage(err),
		})
		return
	}

	resp := cepResponse{
		Valid:        true,
		CEP:          addr.CEP,
		Street:       addr.Street,
		Complement:   addr.Complement,
		Neighborhood: addr.Neighborhood,
		City:         addr.City,
		State:        addr.State,
		IBGE:         addr.IBGE,
		DDD:          addr.DDD,
	}
	if r.URL.Query().Get("calculate_shipping") == "true" {
		q := toQuoteResponse(h.shipping.Quote(addr.State, decimal.Zero))
		resp.Shipping = &q
		resp.EstimatedDeliveryDays = q.EstimatedDeliveryDays
	}
	writeJSON(w, http.StatusOK, resp)
}

// QuoteShipping handles GET /api/cep/shipping/{state}. The optional
// total_amount query parameter feeds the free-shipping rule.
func (h *Handler) QuoteShipping(w http.ResponseWriter, r *http.Request) {
	state := chi.URLParam(r, "state")

	subtotal := decimal.Zero
	if v := r.URL.Query().Get("total_amount"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			writeError(w, http.StatusBadRequest, "total_amount must be a non-negative number", nil)
			return
		}
		subtotal = decimal.NewFromFloat(f)
	}

	writeJSON(w, http.StatusOK, toQuoteResponse(h.shipping.Quote(state, subtotal)))
}

// ShippingRates handles GET /api/cep/shipping/rates.
func (h *Handler) ShippingRates(w http.ResponseWriter, r *http.Request) {
	rates := make(map[string]float64)
	for state, cost := range h.shipping.Rates() {
		rates[state] = cost.InexactFloat64()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rates":                   rates,
		"free_shipping_threshold": h.shipping.FreeShippingThreshold().InexactFloat64(),
	})
}

// Package api exposes the order-management HTTP surface: order CRUD, CEP
// validation, and shipping-quote endpoints. Handlers translate between
// JSON DTOs and the domain types and map domain errors to status codes.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/storelab/orders-api/internal/domain/cep"
	"github.com/storelab/orders-api/internal/domain/order"
	"github.com/storelab/orders-api/internal/domain/shipping"
)

// Handler carries the wired domain dependencies for all routes.
type Handler struct {
	orders   *order.Service
	resolver cep.Resolver
	shipping *shipping.Calculator
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(orders *order.Service, resolver cep.Resolver, calc *shipping.Calculator) *Handler {
	return &Handler{
		orders:   orders,
		resolver: resolver,
		shipping: calc,
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, details any) {
	writeJSON(w, status, errorResponse{Error: msg, Details: details})
}

// writeDomainError maps domain errors to HTTP responses. Unclassified
// errors are logged with full context and surfaced as a generic 500 so
// internal detail never leaks to the caller.
func writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	var verr *order.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, "Invalid request data", verr.Fields)
		return
	}

	var arErr *order.AddressResolutionError
	if errors.As(err, &arErr) {
		writeError(w, http.StatusBadRequest, "Invalid CEP", cepErrorMessage(arErr.Err))
		return
	}

	switch {
	case errors.Is(err, order.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "Invalid order status", nil)
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "Order not found", nil)
	default:
		zctx.From(ctx).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error", nil)
	}
}

// cepErrorMessage renders a resolution failure for API consumers.
func cepErrorMessage(err error) string {
	switch {
	case errors.Is(err, cep.ErrInvalidFormat):
		return "CEP must contain 8 digits"
	case errors.Is(err, cep.ErrNotFound):
		return "CEP not found"
	case errors.Is(err, cep.ErrLookupTimeout):
		return "CEP lookup timed out, try again"
	default:
		return "CEP lookup service unavailable"
	}
}

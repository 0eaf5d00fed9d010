package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"roomdine-order-service/internal/order"
	"roomdine-order-service/internal/pos"
	"roomdine-order-service/internal/stock"
	"roomdine-order-service/pkg/response"
)

func readPathString(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

func readPathInt64(r *http.Request, key string) (int64, error) {
	value := readPathString(r, key)
	if value == "" {
		return 0, errMissingParam
	}
	var out int64
	_, err := fmt.Sscan(value, &out)
	return out, err
}

var errMissingParam = errors.New("missing param")

// writeOrderError translates domain errors into the API error envelope.
// Everything not recognized is a 500 and gets logged; recognized failures are
// the guest's to fix and stay at warn level upstream.
func (h *Handler) writeOrderError(w http.ResponseWriter, err error) {
	var conflict *stock.ConflictError
	var closed *order.ClosedCategoryError

	switch {
	case errors.Is(err, order.ErrMissingRoom),
		errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrInvalidQuantity):
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, order.ErrProductNotFound):
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.As(err, &conflict):
		response.Error(w, http.StatusConflict, "STOCK_CONFLICT", conflict.Error())
	case errors.As(err, &closed):
		response.Error(w, http.StatusConflict, "CATEGORY_CLOSED", closed.Error())
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, order.ErrTicketNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, pos.ErrProvider):
		response.Error(w, http.StatusBadGateway, "PROVIDER_ERROR", "POS provider is unavailable")
	default:
		h.Logger.Error("order operation failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
	}
}

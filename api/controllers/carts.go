package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-catalog/api/responses"
	"github.com/angelmondragon/storefront-catalog/api/validators"
	"github.com/angelmondragon/storefront-catalog/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-catalog/pkg/errors"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
)

type cartResponse struct {
	ID        string      `json:"id"`
	Lines     []cart.Line `json:"lines"`
	ItemCount int         `json:"itemCount"`
	Total     string      `json:"total"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

func newCartResponse(c *cart.Cart) cartResponse {
	lines := c.Lines
	if lines == nil {
		lines = []cart.Line{}
	}
	return cartResponse{
		ID:        c.ID,
		Lines:     lines,
		ItemCount: c.ItemCount(),
		Total:     c.Total().StringFixed(2),
		UpdatedAt: c.UpdatedAt,
	}
}

type cartQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

func CartCreate(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		created, err := svc.Create(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(created))
	}
}

func CartFetch(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := svc.Get(r.Context(), chi.URLParam(r, "cartId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(record))
	}
}

// CartUpdateLine sets a line's quantity; zero or less removes it.
func CartUpdateLine(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.UpdateQuantity(r.Context(), chi.URLParam(r, "cartId"), chi.URLParam(r, "lineId"), *payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(record))
	}
}

func CartRemoveLine(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := svc.RemoveLine(r.Context(), chi.URLParam(r, "cartId"), chi.URLParam(r, "lineId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(record))
	}
}

package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-catalog/api/responses"
	"github.com/angelmondragon/storefront-catalog/api/validators"
	"github.com/angelmondragon/storefront-catalog/internal/checkout"
	"github.com/angelmondragon/storefront-catalog/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-catalog/pkg/errors"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
)

type checkoutCustomer struct {
	Name         string `json:"name" validate:"required,max=120"`
	Phone        string `json:"phone" validate:"required,max=40"`
	Email        string `json:"email" validate:"omitempty,email"`
	Instructions string `json:"instructions" validate:"max=500"`
}

type checkoutPayment struct {
	Method        string `json:"method" validate:"required,oneof=card cash_pickup"`
	Authorized    bool   `json:"authorized"`
	TransactionID string `json:"transactionId"`
}

type checkoutRequest struct {
	Customer checkoutCustomer `json:"customer"`
	Payment  checkoutPayment  `json:"payment"`
}

// CartCheckout places an order from the cart. The route sits behind the
// idempotency middleware.
func CartCheckout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cartID := chi.URLParam(r, "cartId")
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithCartID(ctx, cartID)
		}

		order, err := svc.PlaceOrder(ctx, checkout.Input{
			CartID: cartID,
			Customer: checkout.Customer{
				Name:         payload.Customer.Name,
				Phone:        payload.Customer.Phone,
				Email:        payload.Customer.Email,
				Instructions: payload.Customer.Instructions,
			},
			Payment: checkout.Payment{
				Method:        enums.PaymentMethod(payload.Payment.Method),
				Authorized:    payload.Payment.Authorized,
				TransactionID: payload.Payment.TransactionID,
			},
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

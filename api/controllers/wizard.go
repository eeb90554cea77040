package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-catalog/api/responses"
	"github.com/angelmondragon/storefront-catalog/api/validators"
	"github.com/angelmondragon/storefront-catalog/internal/cart"
	"github.com/angelmondragon/storefront-catalog/internal/wizard"
	"github.com/angelmondragon/storefront-catalog/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-catalog/pkg/errors"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
)

type wizardStartRequest struct {
	Query string `json:"query"`
	// Model starts from a catalog entry the shopper tapped; it wins over Query.
	Model string `json:"model"`
	Mode  string `json:"mode" validate:"omitempty,oneof=fixed facet"`
}

type wizardSelectRequest struct {
	Value string `json:"value" validate:"required"`
}

type wizardCartRequest struct {
	CartID   string `json:"cartId"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

func WizardStart(svc wizard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wizard service unavailable"))
			return
		}
		var payload wizardStartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.Start(r.Context(), wizard.StartInput{
			Query: strings.TrimSpace(payload.Query),
			Model: strings.TrimSpace(payload.Model),
			Mode:  enums.WizardMode(payload.Mode),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

func WizardGet(svc wizard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := svc.Get(r.Context(), chi.URLParam(r, "sessionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

func WizardSelect(svc wizard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload wizardSelectRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.Select(r.Context(), chi.URLParam(r, "sessionId"), payload.Value)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

func WizardBack(svc wizard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := svc.Back(r.Context(), chi.URLParam(r, "sessionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

func WizardCancel(svc wizard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Cancel(r.Context(), chi.URLParam(r, "sessionId")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// WizardAddToCart puts the resolved variant in the shopper's cart, opening a
// new cart when none is given.
func WizardAddToCart(svc wizard.Service, carts cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		var payload wizardCartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := svc.CartLine(r.Context(), chi.URLParam(r, "sessionId"), payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cartID := strings.TrimSpace(payload.CartID)
		if cartID == "" {
			created, err := carts.Create(r.Context())
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			cartID = created.ID
		}

		updated, err := carts.AddLine(r.Context(), cartID, line)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(updated))
	}
}

package controllers

import (
	"net/http"

	"github.com/chanmoly/khmart-backend/api/responses"
	"github.com/chanmoly/khmart-backend/api/validators"
	checkoutsvc "github.com/chanmoly/khmart-backend/internal/checkout"
	pkgerrors "github.com/chanmoly/khmart-backend/pkg/errors"
	"github.com/chanmoly/khmart-backend/pkg/logger"
)

type checkoutRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"required,min=5,max=500"`
	PaymentMethod   string `json:"payment_method" validate:"omitempty,oneof=payway"`
}

type checkoutResponse struct {
	Order      orderResponse `json:"order"`
	PaymentURL string        `json:"payment_url"`
}

// Checkout converts the caller's cart into a pending order and returns the
// gateway redirect.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Execute(r.Context(), userID, checkoutsvc.Input{
			ShippingAddress: payload.ShippingAddress,
			PaymentMethod:   payload.PaymentMethod,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			Order:      newOrderResponse(result.Order),
			PaymentURL: result.PaymentURL,
		})
	}
}

package controllers

import (
	"net/http"
	"strings"

	"github.com/rahulmehra/mandiflow-backend/api/responses"
	"github.com/rahulmehra/mandiflow-backend/api/validators"
	checkoutsvc "github.com/rahulmehra/mandiflow-backend/internal/checkout"
	"github.com/rahulmehra/mandiflow-backend/pkg/enums"
	pkgerrors "github.com/rahulmehra/mandiflow-backend/pkg/errors"
	"github.com/rahulmehra/mandiflow-backend/pkg/logger"
)

type placeOrderRequest struct {
	DeliveryAddress   string   `json:"delivery_address" validate:"required,min=10,max=500"`
	DeliveryLatitude  *float64 `json:"delivery_latitude" validate:"omitempty,min=-90,max=90"`
	DeliveryLongitude *float64 `json:"delivery_longitude" validate:"omitempty,min=-180,max=180"`
	Notes             *string  `json:"notes" validate:"omitempty,max=1000"`
	PaymentMethod     string   `json:"payment_method" validate:"required"`
}

// CheckoutPlaceOrder turns the buyer's cart into per-seller orders, charging
// each partition separately.
func CheckoutPlaceOrder(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethodType(strings.TrimSpace(payload.PaymentMethod))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		result, err := svc.PlaceOrder(r.Context(), checkoutsvc.PlaceOrderInput{
			BuyerID:           userID,
			DeliveryAddress:   payload.DeliveryAddress,
			DeliveryLatitude:  payload.DeliveryLatitude,
			DeliveryLongitude: payload.DeliveryLongitude,
			Notes:             payload.Notes,
			PaymentMethod:     method,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

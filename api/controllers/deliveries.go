package controllers

import (
	"net/http"

	"github.com/rahulmehra/mandiflow-backend/api/responses"
	"github.com/rahulmehra/mandiflow-backend/api/validators"
	deliverysvc "github.com/rahulmehra/mandiflow-backend/internal/delivery"
	pkgerrors "github.com/rahulmehra/mandiflow-backend/pkg/errors"
	"github.com/rahulmehra/mandiflow-backend/pkg/logger"
)

// DeliveryTrackingGet serves shipment progress for an order, visible to the
// order's buyer or seller.
func DeliveryTrackingGet(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.GetByOrder(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

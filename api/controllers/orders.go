package controllers

import (
	"net/http"
	"strings"

	"github.com/rahulmehra/mandiflow-backend/api/responses"
	"github.com/rahulmehra/mandiflow-backend/api/validators"
	ordersvc "github.com/rahulmehra/mandiflow-backend/internal/orders"
	"github.com/rahulmehra/mandiflow-backend/pkg/enums"
	pkgerrors "github.com/rahulmehra/mandiflow-backend/pkg/errors"
	"github.com/rahulmehra/mandiflow-backend/pkg/logger"
	"github.com/rahulmehra/mandiflow-backend/pkg/pagination"
)

// OrdersGet serves one order visible to its buyer or seller.
func OrdersGet(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
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

		order, err := svc.Get(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrdersPurchases lists orders the caller placed as a buyer.
func OrdersPurchases(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return ordersListing(svc, logg, func(svc ordersvc.Service, r *http.Request, params ordersvc.QueryParams) (*ordersvc.ListResult, error) {
		userID, err := currentUserID(r)
		if err != nil {
			return nil, err
		}
		return svc.ListForBuyer(r.Context(), userID, params)
	})
}

// OrdersSales lists orders the caller received as a seller.
func OrdersSales(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return ordersListing(svc, logg, func(svc ordersvc.Service, r *http.Request, params ordersvc.QueryParams) (*ordersvc.ListResult, error) {
		userID, err := currentUserID(r)
		if err != nil {
			return nil, err
		}
		return svc.ListForSeller(r.Context(), userID, params)
	})
}

func ordersListing(
	svc ordersvc.Service,
	logg *logger.Logger,
	list func(ordersvc.Service, *http.Request, ordersvc.QueryParams) (*ordersvc.ListResult, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := ordersvc.QueryParams{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			params.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("kind")); raw != "" {
			kind, err := enums.ParseOrderKind(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kind"))
				return
			}
			params.Kind = &kind
		}

		result, err := list(svc, r, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

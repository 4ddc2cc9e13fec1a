package controllers

import (
	"net/http"

	"github.com/vaiven-app/vaiven-backend/api/responses"
	"github.com/vaiven-app/vaiven-backend/api/validators"
	"github.com/vaiven-app/vaiven-backend/internal/checkout"
	pkgerrors "github.com/vaiven-app/vaiven-backend/pkg/errors"
	"github.com/vaiven-app/vaiven-backend/pkg/logger"
	"github.com/vaiven-app/vaiven-backend/pkg/types"
)

type CheckoutController struct {
	service checkout.Service
	logg    *logger.Logger
}

func NewCheckoutController(service checkout.Service, logg *logger.Logger) *CheckoutController {
	return &CheckoutController{service: service, logg: logg}
}

type checkoutRequest struct {
	DeliveryAddress     *types.Address `json:"delivery_address"`
	PaymentMethodRef    string         `json:"payment_method_ref" validate:"required"`
	SpecialInstructions *string        `json:"special_instructions"`
}

// Checkout validates the open cart against the live catalog and, when clean,
// converts it into an order. Stale lines come back as an itemized 400.
func (c *CheckoutController) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, _, err := principal(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	var req checkoutRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	if req.DeliveryAddress != nil {
		req.DeliveryAddress.Normalize()
	}

	result, err := c.service.Validate(r.Context(), userID)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	if !result.Valid {
		responses.WriteError(r.Context(), c.logg, w,
			pkgerrors.New(pkgerrors.CodeValidation, "cart failed checkout validation").
				WithDetails(map[string]any{"issues": result.Issues}))
		return
	}

	order, err := c.service.Convert(r.Context(), userID, checkout.ConvertInput{
		DeliveryAddress:     req.DeliveryAddress,
		PaymentMethodRef:    req.PaymentMethodRef,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, order)
}

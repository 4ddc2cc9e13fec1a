package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vaiven-app/vaiven-backend/api/responses"
	"github.com/vaiven-app/vaiven-backend/api/validators"
	"github.com/vaiven-app/vaiven-backend/internal/confirmation"
	"github.com/vaiven-app/vaiven-backend/pkg/logger"
)

type ConfirmationController struct {
	service confirmation.Service
	logg    *logger.Logger
}

func NewConfirmationController(service confirmation.Service, logg *logger.Logger) *ConfirmationController {
	return &ConfirmationController{service: service, logg: logg}
}

type confirmRequest struct {
	ConfirmationToken string `json:"confirmation_token" validate:"required"`
}

// Confirm redeems a purchase confirmation token. Only the owner of the store
// behind the delivery may redeem it.
func (c *ConfirmationController) Confirm(w http.ResponseWriter, r *http.Request) {
	userID, role, err := principal(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	var req confirmRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	record, request, err := c.service.Confirm(r.Context(), req.ConfirmationToken, confirmation.Actor{UserID: userID, Role: role})
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, map[string]any{
		"confirmation": record,
		"delivery":     request,
	})
}

func (c *ConfirmationController) Get(w http.ResponseWriter, r *http.Request) {
	if _, _, err := principal(r); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	record, err := c.service.Get(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, record)
}

package controllers

import (
	"net/http"

	"github.com/vaiven-app/vaiven-backend/api/responses"
	"github.com/vaiven-app/vaiven-backend/api/validators"
	"github.com/vaiven-app/vaiven-backend/internal/webhooks"
	"github.com/vaiven-app/vaiven-backend/pkg/logger"
)

type WebhookController struct {
	service webhooks.SubscriptionService
	logg    *logger.Logger
}

func NewWebhookController(service webhooks.SubscriptionService, logg *logger.Logger) *WebhookController {
	return &WebhookController{service: service, logg: logg}
}

type createSubscriptionRequest struct {
	URL        string   `json:"url" validate:"required,url"`
	Secret     string   `json:"secret"`
	EventKinds []string `json:"event_kinds"`
}

func (c *WebhookController) Create(w http.ResponseWriter, r *http.Request) {
	userID, _, err := principal(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	var req createSubscriptionRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	record, err := c.service.Create(r.Context(), userID, webhooks.CreateSubscriptionInput{
		URL:        req.URL,
		Secret:     req.Secret,
		EventKinds: req.EventKinds,
	})
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, record)
}

func (c *WebhookController) List(w http.ResponseWriter, r *http.Request) {
	userID, _, err := principal(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	rows, err := c.service.List(r.Context(), userID)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, rows)
}

func (c *WebhookController) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _, err := principal(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	id, err := pathUUID(r, "subscriptionID")
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	if err := c.service.Delete(r.Context(), userID, id); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusOK, map[string]any{"deleted": true})
}

package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/vaiven-app/vaiven-backend/api/responses"
	"github.com/vaiven-app/vaiven-backend/api/validators"
	"github.com/vaiven-app/vaiven-backend/internal/cart"
	pkgerrors "github.com/vaiven-app/vaiven-backend/pkg/errors"
	"github.com/vaiven-app/vaiven-backend/pkg/logger"
)

type CartController struct {
	service cart.Service
	logg    *logger.Logger
}

func NewCartController(service cart.Service, logg *logger.Logger) *CartController {
	return &CartController{service: service, logg: logg}
}

type addCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"min=0"`
}

// Get returns the caller's open cart, creating an empty one when absent.
func (c *CartController) Get(w http.ResponseWriter, r *http.Request) {
	userID, _, err := principal(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	record, err := c.service.GetOrCreate(r.Context(), userID)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, record)
}

func (c *CartController) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, _, err := principal(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	var req addCartItemRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w,
			pkgerrors.New(pkgerrors.CodeValidation, "product_id must be a valid uuid"))
		return
	}

	record, err := c.service.AddItem(r.Context(), userID, productID, req.Quantity)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, record)
}

func (c *CartController) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, _, err := principal(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	itemID, err := pathUUID(r, "itemID")
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	var req updateCartItemRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	record, err := c.service.UpdateItem(r.Context(), userID, itemID, req.Quantity)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, record)
}

func (c *CartController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, _, err := principal(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	itemID, err := pathUUID(r, "itemID")
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	record, err := c.service.RemoveItem(r.Context(), userID, itemID)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, record)
}

func (c *CartController) Clear(w http.ResponseWriter, r *http.Request) {
	userID, _, err := principal(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	record, err := c.service.Clear(r.Context(), userID)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, record)
}

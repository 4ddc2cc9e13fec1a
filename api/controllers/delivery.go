package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/vaiven-app/vaiven-backend/api/responses"
	"github.com/vaiven-app/vaiven-backend/api/validators"
	"github.com/vaiven-app/vaiven-backend/internal/delivery"
	"github.com/vaiven-app/vaiven-backend/pkg/db/models"
	pkgerrors "github.com/vaiven-app/vaiven-backend/pkg/errors"
	"github.com/vaiven-app/vaiven-backend/pkg/logger"
	"github.com/vaiven-app/vaiven-backend/pkg/types"
)

type DeliveryController struct {
	service delivery.Service
	logg    *logger.Logger
}

func NewDeliveryController(service delivery.Service, logg *logger.Logger) *DeliveryController {
	return &DeliveryController{service: service, logg: logg}
}

type pointRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p pointRequest) coordinates() types.Coordinates {
	return types.Coordinates{Lat: p.Lat, Lng: p.Lng}
}

type estimateItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity" validate:"min=0"`
}

type estimateRequest struct {
	StoreID  string                `json:"store_id" validate:"required,uuid4"`
	Customer pointRequest          `json:"customer"`
	Items    []estimateItemRequest `json:"items" validate:"dive"`
}

type storePurchaseRequest struct {
	OrderID  string       `json:"order_id" validate:"required,uuid4"`
	StoreID  string       `json:"store_id" validate:"required,uuid4"`
	Customer pointRequest `json:"customer"`
}

type userToUserRequest struct {
	Pickup    pointRequest `json:"pickup"`
	Dropoff   pointRequest `json:"dropoff"`
	ItemCount int          `json:"item_count" validate:"min=0"`
}

type createDeliveryResponse struct {
	Order        *models.Order           `json:"order,omitempty"`
	Delivery     *models.DeliveryRequest `json:"delivery"`
	TrackingCode string                  `json:"tracking_code"`
}

// Estimate quotes distance, eta, and fee for a prospective store purchase.
// The pickup point comes from the store record, so callers only supply the
// store, their own coordinates, and the items. Nothing is persisted.
func (c *DeliveryController) Estimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "store_id must be a valid uuid"))
		return
	}

	itemCount := 0
	for _, item := range req.Items {
		itemCount += item.Quantity
	}

	quote, err := c.service.Estimate(r.Context(), storeID, req.Customer.coordinates(), itemCount)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, quote)
}

func (c *DeliveryController) CreateStorePurchase(w http.ResponseWriter, r *http.Request) {
	userID, role, err := principal(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	var req storePurchaseRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order_id must be a valid uuid"))
		return
	}
	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "store_id must be a valid uuid"))
		return
	}

	result, err := c.service.CreateStorePurchase(r.Context(), delivery.Actor{UserID: userID, Role: role}, delivery.CreateStorePurchaseInput{
		OrderID:  orderID,
		StoreID:  storeID,
		Customer: req.Customer.coordinates(),
	})
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, createDeliveryResponse{
		Order:        result.Order,
		Delivery:     result.Delivery,
		TrackingCode: result.TrackingCode,
	})
}

func (c *DeliveryController) CreateUserToUser(w http.ResponseWriter, r *http.Request) {
	userID, role, err := principal(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	var req userToUserRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	result, err := c.service.CreateUserToUser(r.Context(), delivery.Actor{UserID: userID, Role: role}, delivery.CreateUserToUserInput{
		Pickup:    req.Pickup.coordinates(),
		Dropoff:   req.Dropoff.coordinates(),
		ItemCount: req.ItemCount,
	})
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, createDeliveryResponse{
		Delivery:     result.Delivery,
		TrackingCode: result.TrackingCode,
	})
}

func (c *DeliveryController) Get(w http.ResponseWriter, r *http.Request) {
	if _, _, err := principal(r); err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	deliveryID, err := pathUUID(r, "deliveryID")
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	record, err := c.service.Get(r.Context(), deliveryID)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, record)
}

func (c *DeliveryController) Assign(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.service.Assign)
}

func (c *DeliveryController) MarkInTransit(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.service.MarkInTransit)
}

// MarkDelivered completes the carrier leg. Store purchases additionally get a
// purchase confirmation token in the response.
func (c *DeliveryController) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	userID, role, err := principal(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	deliveryID, err := pathUUID(r, "deliveryID")
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	record, confirmation, err := c.service.MarkDelivered(r.Context(), deliveryID, delivery.Actor{UserID: userID, Role: role})
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	payload := map[string]any{"delivery": record}
	if confirmation != nil {
		payload["confirmation"] = confirmation
	}
	responses.WriteSuccess(w, payload)
}

func (c *DeliveryController) Cancel(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.service.Cancel)
}

func (c *DeliveryController) transition(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, id uuid.UUID, actor delivery.Actor) (*models.DeliveryRequest, error),
) {
	userID, role, err := principal(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	deliveryID, err := pathUUID(r, "deliveryID")
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	record, err := op(r.Context(), deliveryID, delivery.Actor{UserID: userID, Role: role})
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, record)
}

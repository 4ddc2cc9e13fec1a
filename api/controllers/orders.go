package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/vaiven-app/vaiven-backend/api/responses"
	"github.com/vaiven-app/vaiven-backend/internal/orders"
	"github.com/vaiven-app/vaiven-backend/pkg/enums"
	pkgerrors "github.com/vaiven-app/vaiven-backend/pkg/errors"
	"github.com/vaiven-app/vaiven-backend/pkg/logger"
	"github.com/vaiven-app/vaiven-backend/pkg/pagination"
)

type OrderController struct {
	repo orders.OrderRepository
	logg *logger.Logger
}

func NewOrderController(repo orders.OrderRepository, logg *logger.Logger) *OrderController {
	return &OrderController{repo: repo, logg: logg}
}

func (c *OrderController) List(w http.ResponseWriter, r *http.Request) {
	userID, _, err := principal(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	params := pagination.Params{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		responses.WriteError(r.Context(), c.logg, w,
			pkgerrors.New(pkgerrors.CodeValidation, "cursor is malformed"))
		return
	}

	rows, next, err := c.repo.ListByOwner(r.Context(), userID, params)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w,
			pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders"))
		return
	}
	responses.WriteSuccess(w, map[string]any{
		"orders":      rows,
		"next_cursor": next,
	})
}

func (c *OrderController) Get(w http.ResponseWriter, r *http.Request) {
	userID, role, err := principal(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	orderID, err := pathUUID(r, "orderID")
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}

	record, err := c.repo.FindByID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			responses.WriteError(r.Context(), c.logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		responses.WriteError(r.Context(), c.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order"))
		return
	}
	if record.OwnerUserID != userID && role != enums.UserRoleAdmin {
		responses.WriteError(r.Context(), c.logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
		return
	}
	responses.WriteSuccess(w, record)
}

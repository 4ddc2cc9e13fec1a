package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vaiven-app/vaiven-backend/api/responses"
	"github.com/vaiven-app/vaiven-backend/internal/tracking"
	"github.com/vaiven-app/vaiven-backend/pkg/logger"
)

type TrackingController struct {
	service tracking.Service
	logg    *logger.Logger
}

func NewTrackingController(service tracking.Service, logg *logger.Logger) *TrackingController {
	return &TrackingController{service: service, logg: logg}
}

// Track is the public lookup endpoint. The snapshot carries no principal
// identifiers, so no auth is required.
func (c *TrackingController) Track(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "trackingCode")

	snapshot, err := c.service.Resolve(r.Context(), code)
	if err != nil {
		responses.WriteError(r.Context(), c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, snapshot)
}

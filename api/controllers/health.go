package controllers

import (
	"context"
	"net/http"

	"github.com/vaiven-app/vaiven-backend/api/responses"
	pkgerrors "github.com/vaiven-app/vaiven-backend/pkg/errors"
	"github.com/vaiven-app/vaiven-backend/pkg/logger"
)

type dbPinger interface {
	Ping(ctx context.Context) error
}

type cachePinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	db    dbPinger
	cache cachePinger
	logg  *logger.Logger
}

func NewHealthController(db dbPinger, cache cachePinger, logg *logger.Logger) *HealthController {
	return &HealthController{db: db, cache: cache, logg: logg}
}

func (c *HealthController) Live(w http.ResponseWriter, r *http.Request) {
	responses.WriteSuccess(w, map[string]string{"status": "ok"})
}

// Ready verifies the database and cache are reachable.
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	if c.db != nil {
		if err := c.db.Ping(r.Context()); err != nil {
			responses.WriteError(r.Context(), c.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
			return
		}
	}
	if c.cache != nil {
		if err := c.cache.Ping(r.Context()); err != nil {
			responses.WriteError(r.Context(), c.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cache unreachable"))
			return
		}
	}
	responses.WriteSuccess(w, map[string]string{"status": "ready"})
}

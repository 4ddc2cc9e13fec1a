package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaiven-app/vaiven-backend/pkg/db"
	"github.com/vaiven-app/vaiven-backend/pkg/db/models"
	"github.com/vaiven-app/vaiven-backend/pkg/enums"
	pkgerrors "github.com/vaiven-app/vaiven-backend/pkg/errors"
	"github.com/vaiven-app/vaiven-backend/pkg/token"
)

// collisions on a 26-char random code are vanishingly rare; two retries is
// already generous
const issueAttempts = 3

type deliveryLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.DeliveryRequest, error)
}

// Snapshot is the public view of a delivery resolved through its tracking
// code. It deliberately exposes no principal identifiers.
type Snapshot struct {
	TrackingCode string               `json:"tracking_code"`
	Status       enums.DeliveryStatus `json:"status"`
	Kind         enums.DeliveryKind   `json:"kind"`
	DistanceKm   float64              `json:"distance_km"`
	EtaMinutes   float64              `json:"eta_minutes"`
	CreatedAt    time.Time            `json:"created_at"`
	AssignedAt   *time.Time           `json:"assigned_at,omitempty"`
	InTransitAt  *time.Time           `json:"in_transit_at,omitempty"`
	DeliveredAt  *time.Time           `json:"delivered_at,omitempty"`
	ConfirmedAt  *time.Time           `json:"confirmed_at,omitempty"`
	CancelledAt  *time.Time           `json:"cancelled_at,omitempty"`
}

// Service issues and resolves public tracking codes.
type Service interface {
	Issue(ctx context.Context, tx *gorm.DB, deliveryRequestID uuid.UUID) (string, error)
	Resolve(ctx context.Context, code string) (*Snapshot, error)
}

type service struct {
	repo       TrackingRepository
	deliveries deliveryLoader
	generator  token.Generator
}

// NewService builds the tracking registry.
func NewService(repo TrackingRepository, deliveries deliveryLoader, generator token.Generator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tracking repository required")
	}
	if deliveries == nil {
		return nil, fmt.Errorf("delivery loader required")
	}
	if generator == nil {
		return nil, fmt.Errorf("token generator required")
	}
	return &service{repo: repo, deliveries: deliveries, generator: generator}, nil
}

// Issue generates a unique tracking code for the delivery and stores the
// mapping, optionally inside the caller's transaction. Codes are never
// recycled.
func (s *service) Issue(ctx context.Context, tx *gorm.DB, deliveryRequestID uuid.UUID) (string, error) {
	if deliveryRequestID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "delivery request id is required")
	}

	repo := s.repo.WithTx(tx)
	var lastErr error
	for attempt := 0; attempt < issueAttempts; attempt++ {
		code, err := s.generator.Generate(token.NamespaceTracking)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate tracking code")
		}
		_, err = repo.Create(ctx, &models.TrackingRecord{
			Code:              code,
			DeliveryRequestID: deliveryRequestID,
		})
		if err == nil {
			return code, nil
		}
		if !db.IsUniqueViolation(err) {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store tracking code")
		}
		lastErr = err
	}
	return "", pkgerrors.Wrap(pkgerrors.CodeInternal, lastErr, "tracking code collision")
}

// Resolve returns the delivery snapshot behind a code. Malformed and unknown
// codes get the same answer so callers cannot probe the code space.
func (s *service) Resolve(ctx context.Context, code string) (*Snapshot, error) {
	if !token.HasNamespace(code, token.NamespaceTracking) {
		return nil, notFound()
	}

	record, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve tracking code")
	}

	request, err := s.deliveries.FindByID(ctx, record.DeliveryRequestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
	}

	return &Snapshot{
		TrackingCode: record.Code,
		Status:       request.Status,
		Kind:         request.Kind,
		DistanceKm:   request.DistanceKm,
		EtaMinutes:   request.EtaMinutes,
		CreatedAt:    request.CreatedAt,
		AssignedAt:   request.AssignedAt,
		InTransitAt:  request.InTransitAt,
		DeliveredAt:  request.DeliveredAt,
		ConfirmedAt:  request.ConfirmedAt,
		CancelledAt:  request.CancelledAt,
	}, nil
}

func notFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "tracking code not found")
}

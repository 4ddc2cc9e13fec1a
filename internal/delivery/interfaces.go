package delivery

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaiven-app/vaiven-backend/pkg/db/models"
	"github.com/vaiven-app/vaiven-backend/pkg/enums"
)

// DeliveryRepository exposes persistence for delivery requests. Transition
// is a compare-and-swap on the current status; callers never write status
// directly.
type DeliveryRepository interface {
	WithTx(tx *gorm.DB) DeliveryRepository
	Create(ctx context.Context, record *models.DeliveryRequest) (*models.DeliveryRequest, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.DeliveryRequest, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.DeliveryRequest, error)
	ListByCarrier(ctx context.Context, carrierID uuid.UUID) ([]models.DeliveryRequest, error)
	Transition(ctx context.Context, id uuid.UUID, from, to enums.DeliveryStatus, set map[string]any) (bool, error)
}

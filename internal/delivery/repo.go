package delivery

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaiven-app/vaiven-backend/pkg/db/models"
	"github.com/vaiven-app/vaiven-backend/pkg/enums"
)

// Repository persists delivery requests.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a delivery repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) DeliveryRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a delivery request. The unique index on order_id rejects a
// second delivery for the same order.
func (r *Repository) Create(ctx context.Context, record *models.DeliveryRequest) (*models.DeliveryRequest, error) {
	if record.Status == "" {
		record.Status = enums.DeliveryStatusCreated
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// FindByID loads a delivery request.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DeliveryRequest, error) {
	var record models.DeliveryRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByOrderID loads the delivery created for an order, if any.
func (r *Repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.DeliveryRequest, error) {
	var record models.DeliveryRequest
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByCarrier returns the carrier's deliveries, newest first.
func (r *Repository) ListByCarrier(ctx context.Context, carrierID uuid.UUID) ([]models.DeliveryRequest, error) {
	var rows []models.DeliveryRequest
	err := r.db.WithContext(ctx).
		Where("carrier_user_id = ?", carrierID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Transition applies a guarded status flip. The WHERE clause on the current
// status is the compare-and-swap: zero rows affected means another writer
// moved the delivery first.
func (r *Repository) Transition(ctx context.Context, id uuid.UUID, from, to enums.DeliveryStatus, set map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for column, value := range set {
		updates[column] = value
	}
	result := r.db.WithContext(ctx).
		Model(&models.DeliveryRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

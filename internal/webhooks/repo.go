package webhooks

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaiven-app/vaiven-backend/pkg/db/models"
)

// SubscriptionRepository persists registered webhook listeners.
type SubscriptionRepository interface {
	WithTx(tx *gorm.DB) SubscriptionRepository
	Create(ctx context.Context, record *models.WebhookSubscription) (*models.WebhookSubscription, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.WebhookSubscription, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.WebhookSubscription, error)
	ListActive(ctx context.Context) ([]models.WebhookSubscription, error)
	Delete(ctx context.Context, id, ownerID uuid.UUID) (bool, error)
}

// Repository is the gorm-backed SubscriptionRepository.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a subscription repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) SubscriptionRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a subscription.
func (r *Repository) Create(ctx context.Context, record *models.WebhookSubscription) (*models.WebhookSubscription, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// FindByID loads one subscription.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.WebhookSubscription, error) {
	var record models.WebhookSubscription
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByOwner returns the owner's subscriptions.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.WebhookSubscription, error) {
	var rows []models.WebhookSubscription
	err := r.db.WithContext(ctx).
		Where("owner_user_id = ?", ownerID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListActive returns every active subscription. Event-kind filtering happens
// in memory via Wants; listener counts stay small.
func (r *Repository) ListActive(ctx context.Context) ([]models.WebhookSubscription, error) {
	var rows []models.WebhookSubscription
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes a subscription scoped to its owner.
func (r *Repository) Delete(ctx context.Context, id, ownerID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND owner_user_id = ?", id, ownerID).
		Delete(&models.WebhookSubscription{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

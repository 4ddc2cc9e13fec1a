package tracking

import (
	"context"

	"gorm.io/gorm"

	"github.com/vaiven-app/vaiven-backend/pkg/db/models"
)

// TrackingRepository persists tracking code mappings.
type TrackingRepository interface {
	WithTx(tx *gorm.DB) TrackingRepository
	Create(ctx context.Context, record *models.TrackingRecord) (*models.TrackingRecord, error)
	FindByCode(ctx context.Context, code string) (*models.TrackingRecord, error)
}

// Repository is the gorm-backed TrackingRepository.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a tracking repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) TrackingRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a tracking record. The unique index on code guarantees
// codes are never reused.
func (r *Repository) Create(ctx context.Context, record *models.TrackingRecord) (*models.TrackingRecord, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// FindByCode resolves a code to its record.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.TrackingRecord, error) {
	var record models.TrackingRecord
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

package carrier

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaiven-app/vaiven-backend/pkg/db/models"
)

// Repository reads carrier profiles. Profile writes belong to the onboarding
// flow, which is out of scope here beyond verification lookups.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a carrier repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) ProfileRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByUserID loads the profile for the given principal.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.CarrierProfile, error) {
	var profile models.CarrierProfile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

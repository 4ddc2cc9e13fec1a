package carrier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaiven-app/vaiven-backend/pkg/db/models"
	"github.com/vaiven-app/vaiven-backend/pkg/enums"
	pkgerrors "github.com/vaiven-app/vaiven-backend/pkg/errors"
)

// ProfileRepository exposes carrier profile reads.
type ProfileRepository interface {
	WithTx(tx *gorm.DB) ProfileRepository
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.CarrierProfile, error)
}

// EligibilityChecker gates delivery assignment. Checks run in a fixed order:
// role class, profile existence, commission currency, then verification
// approval when the delivery kind demands it.
type EligibilityChecker interface {
	CheckAssignable(ctx context.Context, userID uuid.UUID, role enums.UserRole, requireApproval bool, now time.Time) (*models.CarrierProfile, error)
}

type checker struct {
	profiles ProfileRepository
}

// NewEligibilityChecker builds the assignment gate.
func NewEligibilityChecker(profiles ProfileRepository) (EligibilityChecker, error) {
	if profiles == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	return &checker{profiles: profiles}, nil
}

// CheckAssignable returns the carrier profile when the principal may take
// the delivery, or a typed authorization error when not. Dispatchers carry
// the same commission gating as drivers.
func (c *checker) CheckAssignable(ctx context.Context, userID uuid.UUID, role enums.UserRole, requireApproval bool, now time.Time) (*models.CarrierProfile, error) {
	if !role.IsCarrier() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "driver not eligible").
			WithDetails(map[string]any{"reason": "role is not a driver-class role"})
	}

	profile, err := c.profiles.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "driver not eligible").
				WithDetails(map[string]any{"reason": "driver profile missing"})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load carrier profile")
	}

	if !profile.IsCommissionCurrent(now) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "commission overdue").
			WithDetails(map[string]any{"reason": "outstanding platform commission"})
	}

	if requireApproval && profile.VerificationStatus != enums.VerificationStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "driver not eligible").
			WithDetails(map[string]any{"reason": "profile verification not approved"})
	}

	return profile, nil
}

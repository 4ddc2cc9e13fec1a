package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vaiven-app/vaiven-backend/pkg/enums"
)

// CarrierProfile is the role-specific profile a driver-class principal must
// hold before assignment. Commission currency is derived from
// CommissionPaidUntil at read time.
type CarrierProfile struct {
	ID                  uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              uuid.UUID                `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Kind                enums.CarrierKind        `gorm:"column:kind;type:text;not null"`
	VerificationStatus  enums.VerificationStatus `gorm:"column:verification_status;type:text;not null;default:'pending'"`
	VehicleRef          *string                  `gorm:"column:vehicle_ref"`
	CommissionPaidUntil *time.Time               `gorm:"column:commission_paid_until"`
	CreatedAt           time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// IsCommissionCurrent reports whether no platform fees are outstanding at
// the given instant.
func (p *CarrierProfile) IsCommissionCurrent(now time.Time) bool {
	return p.CommissionPaidUntil != nil && !p.CommissionPaidUntil.Before(now)
}

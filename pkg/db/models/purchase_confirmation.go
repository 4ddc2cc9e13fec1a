package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vaiven-app/vaiven-backend/pkg/enums"
)

// PurchaseConfirmation is the single-use, time-limited token a store owner
// redeems after a store-purchase delivery lands. Expiry is enforced lazily
// at read time; the sweep only exists for reminders and tidy-up.
type PurchaseConfirmation struct {
	ID                uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Token             string                   `gorm:"column:token;not null;uniqueIndex"`
	DeliveryRequestID uuid.UUID                `gorm:"column:delivery_request_id;type:uuid;not null;index"`
	Status            enums.ConfirmationStatus `gorm:"column:status;type:text;not null;default:'issued'"`
	IssuedAt          time.Time                `gorm:"column:issued_at;not null"`
	ExpiresAt         time.Time                `gorm:"column:expires_at;not null"`
	RemindedAt        *time.Time               `gorm:"column:reminded_at"`
	ConfirmedAt       *time.Time               `gorm:"column:confirmed_at"`
	ConfirmedByUserID *uuid.UUID               `gorm:"column:confirmed_by_user_id;type:uuid"`
	CreatedAt         time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// IsExpiredAt reports whether the token's TTL has elapsed at the instant.
func (p *PurchaseConfirmation) IsExpiredAt(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

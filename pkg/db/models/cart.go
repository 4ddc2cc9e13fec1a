package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vaiven-app/vaiven-backend/pkg/enums"
)

// Cart holds one owner's pre-purchase line items. A partial unique index on
// (owner_user_id) WHERE status <> 'converted' keeps at most one live cart
// per owner; version backs the optimistic concurrency check on mutation.
type Cart struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerUserID uuid.UUID        `gorm:"column:owner_user_id;type:uuid;not null;index"`
	Status      enums.CartStatus `gorm:"column:status;type:text;not null;default:'draft'"`
	Version     int64            `gorm:"column:version;not null;default:0"`
	ConvertedAt *time.Time       `gorm:"column:converted_at"`
	Items       []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// SubtotalCents sums the line subtotals of the loaded items.
func (c *Cart) SubtotalCents() int {
	total := 0
	for _, item := range c.Items {
		total += item.UnitPriceCents * item.Quantity
	}
	return total
}

// ItemCount sums quantities across the loaded items.
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vaiven-app/vaiven-backend/pkg/types"
)

// Order is the immutable snapshot written when a cart converts. It is never
// updated after creation; delivery state lives on the DeliveryRequest.
type Order struct {
	ID                  uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerUserID         uuid.UUID      `gorm:"column:owner_user_id;type:uuid;not null;index"`
	CartID              uuid.UUID      `gorm:"column:cart_id;type:uuid;not null;uniqueIndex"`
	StoreID             *uuid.UUID     `gorm:"column:store_id;type:uuid;index"`
	SubtotalCents       int            `gorm:"column:subtotal_cents;not null"`
	DeliveryAddress     *types.Address `gorm:"column:delivery_address;type:jsonb;serializer:json"`
	PaymentMethodRef    string         `gorm:"column:payment_method_ref;not null"`
	SpecialInstructions *string        `gorm:"column:special_instructions"`
	Items               []OrderItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time      `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vaiven-app/vaiven-backend/pkg/enums"
	"github.com/vaiven-app/vaiven-backend/pkg/types"
)

// DeliveryRequest is the dispatched delivery task derived from an order.
// Status transitions are applied only through guarded updates on the
// expected current status. The unique index on order_id keeps one delivery
// per order.
type DeliveryRequest struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       *uuid.UUID           `gorm:"column:order_id;type:uuid;uniqueIndex"`
	Kind          enums.DeliveryKind   `gorm:"column:kind;type:text;not null"`
	Status        enums.DeliveryStatus `gorm:"column:status;type:text;not null;default:'created'"`
	StoreID       *uuid.UUID           `gorm:"column:store_id;type:uuid;index"`
	SenderUserID  *uuid.UUID           `gorm:"column:sender_user_id;type:uuid;index"`
	CarrierUserID *uuid.UUID           `gorm:"column:carrier_user_id;type:uuid;index"`
	Pickup        types.Coordinates    `gorm:"embedded;embeddedPrefix:pickup_"`
	Dropoff       types.Coordinates    `gorm:"embedded;embeddedPrefix:dropoff_"`
	DistanceKm    float64              `gorm:"column:distance_km;not null"`
	EtaMinutes    float64              `gorm:"column:eta_minutes;not null"`
	FeeCents      int                  `gorm:"column:fee_cents;not null"`
	ItemCount     int                  `gorm:"column:item_count;not null;default:0"`
	AssignedAt    *time.Time           `gorm:"column:assigned_at"`
	InTransitAt   *time.Time           `gorm:"column:in_transit_at"`
	DeliveredAt   *time.Time           `gorm:"column:delivered_at"`
	ConfirmedAt   *time.Time           `gorm:"column:confirmed_at"`
	CancelledAt   *time.Time           `gorm:"column:cancelled_at"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

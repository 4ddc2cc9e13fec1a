package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vaiven-app/vaiven-backend/pkg/types"
)

// Store is a selling location on the marketplace. Owner gates the purchase
// confirmation step for store-purchase deliveries.
type Store struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerUserID uuid.UUID         `gorm:"column:owner_user_id;type:uuid;not null;index"`
	Name        string            `gorm:"column:name;not null"`
	Address     *types.Address    `gorm:"column:address;type:jsonb;serializer:json"`
	Location    types.Coordinates `gorm:"embedded;embeddedPrefix:location_"`
	IsActive    bool              `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

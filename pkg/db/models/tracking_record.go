package models

import (
	"time"

	"github.com/google/uuid"
)

// TrackingRecord maps an opaque public code to a delivery request. Rows are
// write-once and never reused, even after the delivery reaches a terminal
// state.
type TrackingRecord struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code              string    `gorm:"column:code;not null;uniqueIndex"`
	DeliveryRequestID uuid.UUID `gorm:"column:delivery_request_id;type:uuid;not null;index"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// WebhookSubscription is a registered listener endpoint. EventKinds filters
// which lifecycle events the listener receives; an empty list means all.
type WebhookSubscription struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerUserID uuid.UUID      `gorm:"column:owner_user_id;type:uuid;not null;index"`
	URL         string         `gorm:"column:url;not null"`
	Secret      string         `gorm:"column:secret;not null"`
	EventKinds  pq.StringArray `gorm:"column:event_kinds;type:text[]"`
	IsActive    bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// Wants reports whether the subscription listens for the given event kind.
func (s *WebhookSubscription) Wants(kind string) bool {
	if len(s.EventKinds) == 0 {
		return true
	}
	for _, candidate := range s.EventKinds {
		if candidate == kind {
			return true
		}
	}
	return false
}

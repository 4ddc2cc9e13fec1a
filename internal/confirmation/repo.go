package confirmation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaiven-app/vaiven-backend/pkg/db/models"
	"github.com/vaiven-app/vaiven-backend/pkg/enums"
)

// ConfirmationRepository persists purchase confirmation tokens. Status flips
// are compare-and-swaps so tokens stay single-use under concurrency.
type ConfirmationRepository interface {
	WithTx(tx *gorm.DB) ConfirmationRepository
	Create(ctx context.Context, record *models.PurchaseConfirmation) (*models.PurchaseConfirmation, error)
	FindByToken(ctx context.Context, token string) (*models.PurchaseConfirmation, error)
	FindOpenByDelivery(ctx context.Context, deliveryRequestID uuid.UUID) (*models.PurchaseConfirmation, error)
	MarkConfirmed(ctx context.Context, id, confirmedBy uuid.UUID, now time.Time) (bool, error)
	MarkExpired(ctx context.Context, id uuid.UUID) (bool, error)
	MarkReminded(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	ListDueReminders(ctx context.Context, now time.Time, offset time.Duration) ([]models.PurchaseConfirmation, error)
	ListExpiredIssued(ctx context.Context, now time.Time) ([]models.PurchaseConfirmation, error)
	ListDeliveredAwaitingIssue(ctx context.Context) ([]models.DeliveryRequest, error)
}

// Repository is the gorm-backed ConfirmationRepository.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a confirmation repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) ConfirmationRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a confirmation token record.
func (r *Repository) Create(ctx context.Context, record *models.PurchaseConfirmation) (*models.PurchaseConfirmation, error) {
	if record.Status == "" {
		record.Status = enums.ConfirmationStatusIssued
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// FindByToken loads a confirmation by its opaque token.
func (r *Repository) FindByToken(ctx context.Context, token string) (*models.PurchaseConfirmation, error) {
	var record models.PurchaseConfirmation
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// FindOpenByDelivery loads the delivery's confirmation that is not Expired,
// if one exists. Used as the issuance guard.
func (r *Repository) FindOpenByDelivery(ctx context.Context, deliveryRequestID uuid.UUID) (*models.PurchaseConfirmation, error) {
	var record models.PurchaseConfirmation
	err := r.db.WithContext(ctx).
		Where("delivery_request_id = ? AND status <> ?", deliveryRequestID, enums.ConfirmationStatusExpired).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// MarkConfirmed flips Issued -> Confirmed exactly once.
func (r *Repository) MarkConfirmed(ctx context.Context, id, confirmedBy uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.PurchaseConfirmation{}).
		Where("id = ? AND status = ?", id, enums.ConfirmationStatusIssued).
		Updates(map[string]any{
			"status":               enums.ConfirmationStatusConfirmed,
			"confirmed_at":         now,
			"confirmed_by_user_id": confirmedBy,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkExpired flips Issued -> Expired.
func (r *Repository) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.PurchaseConfirmation{}).
		Where("id = ? AND status = ?", id, enums.ConfirmationStatusIssued).
		Update("status", enums.ConfirmationStatusExpired)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkReminded stamps the reminder exactly once per record.
func (r *Repository) MarkReminded(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.PurchaseConfirmation{}).
		Where("id = ? AND status = ? AND reminded_at IS NULL", id, enums.ConfirmationStatusIssued).
		Update("reminded_at", now)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListDueReminders returns Issued confirmations inside the reminder window
// that have not been reminded yet. The stamp is never cleared, so
// reminded_at IS NULL is the whole dedupe.
func (r *Repository) ListDueReminders(ctx context.Context, now time.Time, offset time.Duration) ([]models.PurchaseConfirmation, error) {
	var rows []models.PurchaseConfirmation
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at > ? AND expires_at <= ? AND reminded_at IS NULL",
			enums.ConfirmationStatusIssued, now, now.Add(offset)).
		Order("expires_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListDeliveredAwaitingIssue returns delivered store purchases that carry no
// confirmation row at all. These are deliveries whose issuance failed after
// the delivered transition committed; the issuance sweep retries them.
func (r *Repository) ListDeliveredAwaitingIssue(ctx context.Context) ([]models.DeliveryRequest, error) {
	var rows []models.DeliveryRequest
	err := r.db.WithContext(ctx).
		Where("kind = ? AND status = ?", enums.DeliveryKindStorePurchase, enums.DeliveryStatusDelivered).
		Where("NOT EXISTS (SELECT 1 FROM purchase_confirmations pc WHERE pc.delivery_request_id = delivery_requests.id)").
		Order("delivered_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListExpiredIssued returns Issued confirmations whose TTL has elapsed.
func (r *Repository) ListExpiredIssued(ctx context.Context, now time.Time) ([]models.PurchaseConfirmation, error) {
	var rows []models.PurchaseConfirmation
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", enums.ConfirmationStatusIssued, now).
		Order("expires_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

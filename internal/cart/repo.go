package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaiven-app/vaiven-backend/pkg/db/models"
	"github.com/vaiven-app/vaiven-backend/pkg/enums"
)

// Repository persists carts and cart items. All quantity math happens in SQL
// so concurrent mutations on the same owner compose instead of clobbering.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new cart. The partial unique index on open carts rejects
// a second live cart for the same owner.
func (r *Repository) Create(ctx context.Context, record *models.Cart) (*models.Cart, error) {
	if record.Status == "" {
		record.Status = enums.CartStatusDraft
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// FindOpenByOwner loads the owner's non-converted cart with its items.
func (r *Repository) FindOpenByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error) {
	var record models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC")
		}).
		Where("owner_user_id = ? AND status <> ?", ownerID, enums.CartStatusConverted).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindItem loads a single line scoped to the cart.
func (r *Repository) FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// AddItemQuantity adds to an existing line or inserts a fresh one. The
// increment runs as a SQL expression so two concurrent adds both land.
func (r *Repository) AddItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity, unitPriceCents int) error {
	tx := r.db.WithContext(ctx)
	result := tx.Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Updates(map[string]any{
			"quantity":         gorm.Expr("quantity + ?", quantity),
			"unit_price_cents": unitPriceCents,
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	return tx.Create(&models.CartItem{
		CartID:         cartID,
		ProductID:      productID,
		Quantity:       quantity,
		UnitPriceCents: unitPriceCents,
	}).Error
}

// SetItemQuantity overwrites a line's quantity. Returns false when the line
// does not exist in the cart.
func (r *Repository) SetItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity, unitPriceCents int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Updates(map[string]any{
			"quantity":         quantity,
			"unit_price_cents": unitPriceCents,
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteItem removes a single line. Returns false when nothing matched.
func (r *Repository) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Delete(&models.CartItem{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteItems clears every line in the cart.
func (r *Repository) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}

// TouchMutation bumps the cart version and drops a stale Validated badge.
// Guarded on the cart still being open; false means it converted underneath.
func (r *Repository) TouchMutation(ctx context.Context, cartID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ? AND status <> ?", cartID, enums.CartStatusConverted).
		Updates(map[string]any{
			"status":  enums.CartStatusDraft,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkValidated flips Draft to Validated only when the version is unchanged
// since the caller read the cart.
func (r *Repository) MarkValidated(ctx context.Context, cartID uuid.UUID, expectedVersion int64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ? AND status = ? AND version = ?", cartID, enums.CartStatusDraft, expectedVersion).
		Update("status", enums.CartStatusValidated)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkConverted flips the cart to Converted exactly once. False means a
// concurrent conversion already claimed it.
func (r *Repository) MarkConverted(ctx context.Context, cartID uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ? AND status <> ?", cartID, enums.CartStatusConverted).
		Updates(map[string]any{
			"status":       enums.CartStatusConverted,
			"converted_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaiven-app/vaiven-backend/pkg/db/models"
)

// CartRepository exposes persistence operations for cart state. Defined as an
// interface so services can swap an in-memory fake under test.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	Create(ctx context.Context, record *models.Cart) (*models.Cart, error)
	FindOpenByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error)
	FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
	AddItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity, unitPriceCents int) error
	SetItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity, unitPriceCents int) (bool, error)
	DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) (bool, error)
	DeleteItems(ctx context.Context, cartID uuid.UUID) error
	TouchMutation(ctx context.Context, cartID uuid.UUID) (bool, error)
	MarkValidated(ctx context.Context, cartID uuid.UUID, expectedVersion int64) (bool, error)
	MarkConverted(ctx context.Context, cartID uuid.UUID) (bool, error)
}

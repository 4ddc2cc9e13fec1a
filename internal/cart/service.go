package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaiven-app/vaiven-backend/pkg/db"
	"github.com/vaiven-app/vaiven-backend/pkg/db/models"
	pkgerrors "github.com/vaiven-app/vaiven-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service owns per-user cart state. Every mutation runs inside one
// transaction and bumps the cart version, so checkout can detect carts that
// moved under it.
type Service interface {
	GetOrCreate(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, ownerID, productID uuid.UUID, quantity int) (*models.Cart, error)
	UpdateItem(ctx context.Context, ownerID, itemID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, ownerID, itemID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error)
}

type service struct {
	repo    CartRepository
	tx      txRunner
	catalog productLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, catalog productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, tx: tx, catalog: catalog}, nil
}

// GetOrCreate returns the owner's open cart, creating an empty one when none
// exists. Repeat calls with a live cart are side-effect free.
func (s *service) GetOrCreate(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}

	record, err := s.repo.FindOpenByOwner(ctx, ownerID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	created, err := s.repo.Create(ctx, &models.Cart{OwnerUserID: ownerID})
	if err != nil {
		// lost the creation race: someone else opened the cart first
		if db.IsUniqueViolation(err) {
			return s.loadOpen(ctx, ownerID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return created, nil
}

// AddItem appends quantity to the owner's line for the product, creating the
// line when absent. Stock is checked against the catalog at call time and
// not re-checked until checkout.
func (s *service) AddItem(ctx context.Context, ownerID, productID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	record, err := s.GetOrCreate(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}

	requested := quantity
	for _, item := range record.Items {
		if item.ProductID == productID {
			requested += item.Quantity
			break
		}
	}
	if requested > product.StockQty {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "insufficient stock for product").
			WithDetails(map[string]any{
				"product_id": productID.String(),
				"requested":  requested,
				"available":  product.StockQty,
			})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.AddItemQuantity(ctx, record.ID, productID, quantity, product.PriceCents); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
		}
		return s.touch(ctx, repo, record.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.loadOpen(ctx, ownerID)
}

// UpdateItem overwrites a line's quantity. Zero removes the line and is not
// an error.
func (s *service) UpdateItem(ctx context.Context, ownerID, itemID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be zero or positive")
	}

	record, err := s.requireOpen(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindItem(ctx, record.ID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	unitPrice := item.UnitPriceCents
	if quantity > item.Quantity {
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if quantity > product.StockQty {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "insufficient stock for product").
				WithDetails(map[string]any{
					"product_id": item.ProductID.String(),
					"requested":  quantity,
					"available":  product.StockQty,
				})
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if quantity == 0 {
			if _, err := repo.DeleteItem(ctx, record.ID, itemID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
			}
		} else {
			updated, err := repo.SetItemQuantity(ctx, record.ID, itemID, quantity, unitPrice)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
			}
			if !updated {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
		}
		return s.touch(ctx, repo, record.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.loadOpen(ctx, ownerID)
}

// RemoveItem drops a line from the cart.
func (s *service) RemoveItem(ctx context.Context, ownerID, itemID uuid.UUID) (*models.Cart, error) {
	record, err := s.requireOpen(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		deleted, err := repo.DeleteItem(ctx, record.ID, itemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return s.touch(ctx, repo, record.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.loadOpen(ctx, ownerID)
}

// Clear empties the owner's cart. A missing cart clears to a fresh empty one.
func (s *service) Clear(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error) {
	record, err := s.GetOrCreate(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(record.Items) == 0 {
		return record, nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteItems(ctx, record.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		return s.touch(ctx, repo, record.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.loadOpen(ctx, ownerID)
}

func (s *service) requireOpen(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	record, err := s.repo.FindOpenByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return record, nil
}

func (s *service) loadOpen(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error) {
	record, err := s.repo.FindOpenByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart")
	}
	return record, nil
}

func (s *service) touch(ctx context.Context, repo CartRepository, cartID uuid.UUID) error {
	touched, err := repo.TouchMutation(ctx, cartID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch cart")
	}
	if !touched {
		return pkgerrors.New(pkgerrors.CodeConflict, "cart already converted")
	}
	return nil
}

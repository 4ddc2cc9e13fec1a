package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaiven-app/vaiven-backend/internal/cart"
	"github.com/vaiven-app/vaiven-backend/internal/orders"
	"github.com/vaiven-app/vaiven-backend/pkg/db/models"
	"github.com/vaiven-app/vaiven-backend/pkg/enums"
	pkgerrors "github.com/vaiven-app/vaiven-backend/pkg/errors"
	"github.com/vaiven-app/vaiven-backend/pkg/types"
)

const validateRetries = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type catalogClient interface {
	GetProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

// StockDecrementer reserves inventory inside the conversion transaction.
type StockDecrementer interface {
	DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
}

// StockDecrementerFactory rebinds the catalog store to the conversion
// transaction.
type StockDecrementerFactory func(tx *gorm.DB) StockDecrementer

type eventEmitter interface {
	Emit(ctx context.Context, kind enums.WebhookEventKind, subjectID uuid.UUID, payload map[string]any)
}

// ItemIssue describes one failing cart line found during validation.
type ItemIssue struct {
	ItemID            uuid.UUID               `json:"item_id"`
	ProductID         uuid.UUID               `json:"product_id"`
	Kind              enums.CheckoutIssueKind `json:"kind"`
	Message           string                  `json:"message"`
	Requested         int                     `json:"requested,omitempty"`
	Available         int                     `json:"available,omitempty"`
	CartPriceCents    int                     `json:"cart_price_cents,omitempty"`
	CatalogPriceCents int                     `json:"catalog_price_cents,omitempty"`
}

// ValidationResult is the all-or-nothing outcome of checkout validation.
// When Valid is false the cart is left untouched in Draft.
type ValidationResult struct {
	Valid  bool        `json:"valid"`
	Issues []ItemIssue `json:"issues"`
}

// ConvertInput carries the order fields supplied at checkout.
type ConvertInput struct {
	DeliveryAddress     *types.Address
	PaymentMethodRef    string
	SpecialInstructions *string
}

// Service re-verifies cart lines against the live catalog and converts
// validated carts into immutable orders.
type Service interface {
	Validate(ctx context.Context, ownerID uuid.UUID) (*ValidationResult, error)
	Convert(ctx context.Context, ownerID uuid.UUID, input ConvertInput) (*models.Order, error)
}

type service struct {
	carts        cart.CartRepository
	orders       orders.OrderRepository
	catalog      catalogClient
	stockFactory StockDecrementerFactory
	tx           txRunner
	notifier     eventEmitter
}

// NewService builds the checkout service.
func NewService(
	carts cart.CartRepository,
	orderRepo orders.OrderRepository,
	catalog catalogClient,
	stockFactory StockDecrementerFactory,
	tx txRunner,
	notifier eventEmitter,
) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog client required")
	}
	if stockFactory == nil {
		return nil, fmt.Errorf("stock decrementer factory required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{
		carts:        carts,
		orders:       orderRepo,
		catalog:      catalog,
		stockFactory: stockFactory,
		tx:           tx,
		notifier:     notifier,
	}, nil
}

// Validate re-checks every line's stock and price against the current
// catalog. On full success the cart flips Draft -> Validated guarded on the
// version read here; a cart mutated mid-flight is re-read a bounded number
// of times.
func (s *service) Validate(ctx context.Context, ownerID uuid.UUID) (*ValidationResult, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}

	for attempt := 0; attempt < validateRetries; attempt++ {
		record, err := s.loadOpenCart(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		if len(record.Items) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		issues, _, err := s.checkLines(ctx, record.Items)
		if err != nil {
			return nil, err
		}
		if len(issues) > 0 {
			return &ValidationResult{Valid: false, Issues: issues}, nil
		}

		flipped, err := s.carts.MarkValidated(ctx, record.ID, record.Version)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark cart validated")
		}
		if flipped || record.Status == enums.CartStatusValidated {
			return &ValidationResult{Valid: true, Issues: nil}, nil
		}
		// version moved underneath us; re-read and try again
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart changed during validation")
}

// Convert atomically flips the cart to Converted, reserves stock, and writes
// the order snapshot. Replay fails with a conflict; it never returns the
// prior order.
func (s *service) Convert(ctx context.Context, ownerID uuid.UUID, input ConvertInput) (*models.Order, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	if input.PaymentMethodRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method is required")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)

		record, err := carts.FindOpenByOwner(ctx, ownerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// an owner always holds one open cart; absence means it
				// just converted
				return pkgerrors.New(pkgerrors.CodeConflict, "cart already converted")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(record.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		issues, products, err := s.checkLines(ctx, record.Items)
		if err != nil {
			return err
		}
		if len(issues) > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart failed checkout validation").
				WithDetails(map[string]any{"issues": issues})
		}

		stock := s.stockFactory(tx)
		for _, item := range record.Items {
			reserved, err := stock.DecrementStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
			}
			if !reserved {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart failed checkout validation").
					WithDetails(map[string]any{"issues": []ItemIssue{{
						ItemID:    item.ID,
						ProductID: item.ProductID,
						Kind:      enums.CheckoutIssueOutOfStock,
						Message:   "insufficient stock at conversion",
						Requested: item.Quantity,
					}}})
			}
		}

		converted, err := carts.MarkConverted(ctx, record.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark cart converted")
		}
		if !converted {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart already converted")
		}

		snapshot := buildOrderSnapshot(record, input, products)
		created, err := s.orders.WithTx(tx).Create(ctx, snapshot)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Emit(ctx, enums.WebhookEventOrderCreated, order.ID, map[string]any{
		"order_id":       order.ID.String(),
		"owner_user_id":  order.OwnerUserID.String(),
		"subtotal_cents": order.SubtotalCents,
		"item_count":     len(order.Items),
	})
	return order, nil
}

func (s *service) loadOpenCart(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error) {
	record, err := s.carts.FindOpenByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return record, nil
}

// checkLines compares every line against the live catalog. All lines are
// inspected so the caller gets the complete issue list, not just the first.
func (s *service) checkLines(ctx context.Context, items []models.CartItem) ([]ItemIssue, map[uuid.UUID]models.Product, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog products")
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	var issues []ItemIssue
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok || !product.IsActive {
			issues = append(issues, ItemIssue{
				ItemID:    item.ID,
				ProductID: item.ProductID,
				Kind:      enums.CheckoutIssueProductUnavailable,
				Message:   "product is no longer available",
			})
			continue
		}
		if product.StockQty < item.Quantity {
			issues = append(issues, ItemIssue{
				ItemID:    item.ID,
				ProductID: item.ProductID,
				Kind:      enums.CheckoutIssueOutOfStock,
				Message:   "insufficient stock",
				Requested: item.Quantity,
				Available: product.StockQty,
			})
			continue
		}
		if product.PriceCents != item.UnitPriceCents {
			issues = append(issues, ItemIssue{
				ItemID:            item.ID,
				ProductID:         item.ProductID,
				Kind:              enums.CheckoutIssuePriceChanged,
				Message:           "price changed since the item was added",
				CartPriceCents:    item.UnitPriceCents,
				CatalogPriceCents: product.PriceCents,
			})
		}
	}
	return issues, byID, nil
}

func buildOrderSnapshot(record *models.Cart, input ConvertInput, products map[uuid.UUID]models.Product) *models.Order {
	items := make([]models.OrderItem, 0, len(record.Items))
	subtotal := 0
	for _, line := range record.Items {
		items = append(items, models.OrderItem{
			ProductID:      line.ProductID,
			Title:          products[line.ProductID].Title,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
		})
		subtotal += line.Quantity * line.UnitPriceCents
	}
	return &models.Order{
		OwnerUserID:         record.OwnerUserID,
		CartID:              record.ID,
		SubtotalCents:       subtotal,
		DeliveryAddress:     input.DeliveryAddress,
		PaymentMethodRef:    input.PaymentMethodRef,
		SpecialInstructions: input.SpecialInstructions,
		Items:               items,
	}
}

package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaiven-app/vaiven-backend/internal/cart"
	"github.com/vaiven-app/vaiven-backend/internal/orders"
	"github.com/vaiven-app/vaiven-backend/pkg/db/models"
	"github.com/vaiven-app/vaiven-backend/pkg/enums"
	pkgerrors "github.com/vaiven-app/vaiven-backend/pkg/errors"
	"github.com/vaiven-app/vaiven-backend/pkg/pagination"
)

type stubCartRepo struct {
	record  *models.Cart
	findErr error

	validatedMiss  bool
	convertedMiss  bool
	validatedCalls int
	convertedCalls int
}

func (s *stubCartRepo) WithTx(tx *gorm.DB) cart.CartRepository { return s }

func (s *stubCartRepo) Create(ctx context.Context, record *models.Cart) (*models.Cart, error) {
	return record, nil
}

func (s *stubCartRepo) FindOpenByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.record, nil
}

func (s *stubCartRepo) FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCartRepo) AddItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity, unitPriceCents int) error {
	return nil
}

func (s *stubCartRepo) SetItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity, unitPriceCents int) (bool, error) {
	return false, nil
}

func (s *stubCartRepo) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) (bool, error) {
	return false, nil
}

func (s *stubCartRepo) DeleteItems(ctx context.Context, cartID uuid.UUID) error { return nil }

func (s *stubCartRepo) TouchMutation(ctx context.Context, cartID uuid.UUID) (bool, error) {
	return true, nil
}

func (s *stubCartRepo) MarkValidated(ctx context.Context, cartID uuid.UUID, expectedVersion int64) (bool, error) {
	s.validatedCalls++
	return !s.validatedMiss, nil
}

func (s *stubCartRepo) MarkConverted(ctx context.Context, cartID uuid.UUID) (bool, error) {
	s.convertedCalls++
	return !s.convertedMiss, nil
}

type stubOrderRepo struct {
	created *models.Order
}

func (s *stubOrderRepo) WithTx(tx *gorm.DB) orders.OrderRepository { return s }

func (s *stubOrderRepo) Create(ctx context.Context, record *models.Order) (*models.Order, error) {
	record.ID = uuid.New()
	s.created = record
	return record, nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrderRepo) FindByCartID(ctx context.Context, cartID uuid.UUID) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrderRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	return nil, "", nil
}

type stubCatalog struct {
	products map[uuid.UUID]models.Product
}

func (s stubCatalog) GetProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var out []models.Product
	for _, id := range ids {
		if product, ok := s.products[id]; ok {
			out = append(out, product)
		}
	}
	return out, nil
}

type stubStock struct {
	depleted map[uuid.UUID]bool
	decCalls int
}

func (s *stubStock) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	s.decCalls++
	return !s.depleted[productID], nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type recordingNotifier struct {
	kinds []enums.WebhookEventKind
}

func (r *recordingNotifier) Emit(ctx context.Context, kind enums.WebhookEventKind, subjectID uuid.UUID, payload map[string]any) {
	r.kinds = append(r.kinds, kind)
}

func newCheckoutTestService(t *testing.T, carts *stubCartRepo, orderRepo *stubOrderRepo, catalog stubCatalog, stock *stubStock, notifier *recordingNotifier) Service {
	t.Helper()
	svc, err := NewService(
		carts,
		orderRepo,
		catalog,
		func(tx *gorm.DB) StockDecrementer { return stock },
		stubTxRunner{},
		notifier,
	)
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	return svc
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected code %s, got %v", code, err)
	}
}

func driftedCart(owner uuid.UUID) (*models.Cart, stubCatalog) {
	priceChanged := uuid.New()
	outOfStock := uuid.New()
	unavailable := uuid.New()

	record := &models.Cart{
		ID:          uuid.New(),
		OwnerUserID: owner,
		Status:      enums.CartStatusDraft,
		Version:     4,
		Items: []models.CartItem{
			{ID: uuid.New(), ProductID: priceChanged, Quantity: 1, UnitPriceCents: 500},
			{ID: uuid.New(), ProductID: outOfStock, Quantity: 5, UnitPriceCents: 300},
			{ID: uuid.New(), ProductID: unavailable, Quantity: 2, UnitPriceCents: 900},
		},
	}
	catalog := stubCatalog{products: map[uuid.UUID]models.Product{
		priceChanged: {ID: priceChanged, IsActive: true, StockQty: 10, PriceCents: 650},
		outOfStock:   {ID: outOfStock, IsActive: true, StockQty: 2, PriceCents: 300},
		unavailable:  {ID: unavailable, IsActive: false, StockQty: 10, PriceCents: 900},
	}}
	return record, catalog
}

func TestValidateCollectsEveryIssue(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	record, catalog := driftedCart(owner)
	carts := &stubCartRepo{record: record}
	svc := newCheckoutTestService(t, carts, &stubOrderRepo{}, catalog, &stubStock{}, &recordingNotifier{})

	result, err := svc.Validate(context.Background(), owner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Valid {
		t.Fatal("expected invalid result")
	}
	if len(result.Issues) != 3 {
		t.Fatalf("expected 3 issues, got %d", len(result.Issues))
	}
	kinds := map[enums.CheckoutIssueKind]bool{}
	for _, issue := range result.Issues {
		kinds[issue.Kind] = true
	}
	for _, want := range []enums.CheckoutIssueKind{
		enums.CheckoutIssuePriceChanged,
		enums.CheckoutIssueOutOfStock,
		enums.CheckoutIssueProductUnavailable,
	} {
		if !kinds[want] {
			t.Fatalf("missing issue kind %s", want)
		}
	}
	if carts.validatedCalls != 0 {
		t.Fatal("a failing validation must leave the cart in draft")
	}
}

func TestValidateEmptyCart(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	carts := &stubCartRepo{record: &models.Cart{ID: uuid.New(), OwnerUserID: owner}}
	svc := newCheckoutTestService(t, carts, &stubOrderRepo{}, stubCatalog{}, &stubStock{}, &recordingNotifier{})

	_, err := svc.Validate(context.Background(), owner)
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestValidateSuccessFlipsStatus(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	productID := uuid.New()
	carts := &stubCartRepo{record: &models.Cart{
		ID:          uuid.New(),
		OwnerUserID: owner,
		Status:      enums.CartStatusDraft,
		Version:     2,
		Items:       []models.CartItem{{ID: uuid.New(), ProductID: productID, Quantity: 2, UnitPriceCents: 450}},
	}}
	catalog := stubCatalog{products: map[uuid.UUID]models.Product{
		productID: {ID: productID, IsActive: true, StockQty: 5, PriceCents: 450},
	}}
	svc := newCheckoutTestService(t, carts, &stubOrderRepo{}, catalog, &stubStock{}, &recordingNotifier{})

	result, err := svc.Validate(context.Background(), owner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Valid || len(result.Issues) != 0 {
		t.Fatalf("expected clean validation, got %+v", result)
	}
	if carts.validatedCalls != 1 {
		t.Fatalf("expected one validated flip, got %d", carts.validatedCalls)
	}
}

func TestValidateGivesUpAfterRepeatedRaces(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	productID := uuid.New()
	carts := &stubCartRepo{
		record: &models.Cart{
			ID:          uuid.New(),
			OwnerUserID: owner,
			Status:      enums.CartStatusDraft,
			Items:       []models.CartItem{{ID: uuid.New(), ProductID: productID, Quantity: 1, UnitPriceCents: 100}},
		},
		validatedMiss: true,
	}
	catalog := stubCatalog{products: map[uuid.UUID]models.Product{
		productID: {ID: productID, IsActive: true, StockQty: 5, PriceCents: 100},
	}}
	svc := newCheckoutTestService(t, carts, &stubOrderRepo{}, catalog, &stubStock{}, &recordingNotifier{})

	_, err := svc.Validate(context.Background(), owner)
	assertCode(t, err, pkgerrors.CodeConflict)
	if carts.validatedCalls != validateRetries {
		t.Fatalf("expected %d attempts, got %d", validateRetries, carts.validatedCalls)
	}
}

func TestConvertBuildsImmutableSnapshot(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	productA := uuid.New()
	productB := uuid.New()
	carts := &stubCartRepo{record: &models.Cart{
		ID:          uuid.New(),
		OwnerUserID: owner,
		Status:      enums.CartStatusDraft,
		Items: []models.CartItem{
			{ID: uuid.New(), ProductID: productA, Quantity: 2, UnitPriceCents: 450},
			{ID: uuid.New(), ProductID: productB, Quantity: 1, UnitPriceCents: 1200},
		},
	}}
	catalog := stubCatalog{products: map[uuid.UUID]models.Product{
		productA: {ID: productA, Title: "alpha", IsActive: true, StockQty: 5, PriceCents: 450},
		productB: {ID: productB, Title: "beta", IsActive: true, StockQty: 3, PriceCents: 1200},
	}}
	orderRepo := &stubOrderRepo{}
	stock := &stubStock{}
	notifier := &recordingNotifier{}
	svc := newCheckoutTestService(t, carts, orderRepo, catalog, stock, notifier)

	order, err := svc.Convert(context.Background(), owner, ConvertInput{PaymentMethodRef: "pm_123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.SubtotalCents != 2*450+1200 {
		t.Fatalf("unexpected subtotal %d", order.SubtotalCents)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 snapshot items, got %d", len(order.Items))
	}
	titles := map[string]bool{}
	for _, item := range order.Items {
		titles[item.Title] = true
	}
	if !titles["alpha"] || !titles["beta"] {
		t.Fatalf("snapshot items missing titles: %+v", order.Items)
	}
	if stock.decCalls != 2 {
		t.Fatalf("expected 2 stock reservations, got %d", stock.decCalls)
	}
	if carts.convertedCalls != 1 {
		t.Fatalf("expected one converted flip, got %d", carts.convertedCalls)
	}
	if len(notifier.kinds) != 1 || notifier.kinds[0] != enums.WebhookEventOrderCreated {
		t.Fatalf("expected order.created event, got %v", notifier.kinds)
	}
}

func TestConvertReplayConflicts(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	carts := &stubCartRepo{findErr: gorm.ErrRecordNotFound}
	svc := newCheckoutTestService(t, carts, &stubOrderRepo{}, stubCatalog{}, &stubStock{}, &recordingNotifier{})

	_, err := svc.Convert(context.Background(), owner, ConvertInput{PaymentMethodRef: "pm_123"})
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestConvertStockRaceFailsValidation(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	productID := uuid.New()
	carts := &stubCartRepo{record: &models.Cart{
		ID:          uuid.New(),
		OwnerUserID: owner,
		Status:      enums.CartStatusDraft,
		Items:       []models.CartItem{{ID: uuid.New(), ProductID: productID, Quantity: 2, UnitPriceCents: 100}},
	}}
	catalog := stubCatalog{products: map[uuid.UUID]models.Product{
		productID: {ID: productID, IsActive: true, StockQty: 2, PriceCents: 100},
	}}
	orderRepo := &stubOrderRepo{}
	stock := &stubStock{depleted: map[uuid.UUID]bool{productID: true}}
	notifier := &recordingNotifier{}
	svc := newCheckoutTestService(t, carts, orderRepo, catalog, stock, notifier)

	_, err := svc.Convert(context.Background(), owner, ConvertInput{PaymentMethodRef: "pm_123"})
	assertCode(t, err, pkgerrors.CodeValidation)
	if orderRepo.created != nil {
		t.Fatal("expected no order on stock race")
	}
	if carts.convertedCalls != 0 {
		t.Fatal("expected cart to stay unconverted")
	}
	if len(notifier.kinds) != 0 {
		t.Fatalf("expected no events, got %v", notifier.kinds)
	}
}

func TestConvertRequiresPaymentMethod(t *testing.T) {
	t.Parallel()

	svc := newCheckoutTestService(t, &stubCartRepo{}, &stubOrderRepo{}, stubCatalog{}, &stubStock{}, &recordingNotifier{})

	_, err := svc.Convert(context.Background(), uuid.New(), ConvertInput{})
	assertCode(t, err, pkgerrors.CodeValidation)
}

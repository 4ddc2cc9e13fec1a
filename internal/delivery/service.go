package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaiven-app/vaiven-backend/internal/carrier"
	"github.com/vaiven-app/vaiven-backend/pkg/config"
	"github.com/vaiven-app/vaiven-backend/pkg/db"
	"github.com/vaiven-app/vaiven-backend/pkg/db/models"
	"github.com/vaiven-app/vaiven-backend/pkg/enums"
	pkgerrors "github.com/vaiven-app/vaiven-backend/pkg/errors"
	"github.com/vaiven-app/vaiven-backend/pkg/logger"
	"github.com/vaiven-app/vaiven-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type storeLoader interface {
	GetStore(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

type trackingIssuer interface {
	Issue(ctx context.Context, tx *gorm.DB, deliveryRequestID uuid.UUID) (string, error)
}

type confirmationIssuer interface {
	IssueForDelivery(ctx context.Context, record *models.DeliveryRequest) (*models.PurchaseConfirmation, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, kind enums.WebhookEventKind, subjectID uuid.UUID, payload map[string]any)
}

// Actor identifies the authenticated principal driving an operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// CreateStorePurchaseInput describes a store-to-customer delivery.
type CreateStorePurchaseInput struct {
	OrderID  uuid.UUID
	StoreID  uuid.UUID
	Customer types.Coordinates
}

// CreateUserToUserInput describes a peer-to-peer delivery with
// principal-supplied endpoints.
type CreateUserToUserInput struct {
	Pickup    types.Coordinates
	Dropoff   types.Coordinates
	ItemCount int
}

// CreateResult bundles the created delivery with its public tracking code.
// Order is set for store purchases only.
type CreateResult struct {
	Delivery     *models.DeliveryRequest
	Order        *models.Order
	TrackingCode string
}

// Service is the delivery dispatcher: creation, quoting, and the guarded
// state machine created -> assigned -> in_transit -> delivered
// (-> confirmed for store purchases), with cancellation from any
// non-terminal state.
type Service interface {
	Estimate(ctx context.Context, storeID uuid.UUID, customer types.Coordinates, itemCount int) (Estimate, error)
	CreateStorePurchase(ctx context.Context, actor Actor, input CreateStorePurchaseInput) (*CreateResult, error)
	CreateUserToUser(ctx context.Context, actor Actor, input CreateUserToUserInput) (*CreateResult, error)
	Get(ctx context.Context, id uuid.UUID) (*models.DeliveryRequest, error)
	Assign(ctx context.Context, deliveryID uuid.UUID, actor Actor) (*models.DeliveryRequest, error)
	MarkInTransit(ctx context.Context, deliveryID uuid.UUID, actor Actor) (*models.DeliveryRequest, error)
	MarkDelivered(ctx context.Context, deliveryID uuid.UUID, actor Actor) (*models.DeliveryRequest, *models.PurchaseConfirmation, error)
	Cancel(ctx context.Context, deliveryID uuid.UUID, actor Actor) (*models.DeliveryRequest, error)
}

type service struct {
	repo          DeliveryRepository
	orders        orderLoader
	stores        storeLoader
	eligibility   carrier.EligibilityChecker
	tracking      trackingIssuer
	confirmations confirmationIssuer
	tx            txRunner
	notifier      eventEmitter
	cfg           config.DeliveryConfig
	logg          *logger.Logger
	now           func() time.Time
}

// NewService builds the delivery dispatcher.
func NewService(
	repo DeliveryRepository,
	orderRepo orderLoader,
	stores storeLoader,
	eligibility carrier.EligibilityChecker,
	tracking trackingIssuer,
	confirmations confirmationIssuer,
	tx txRunner,
	notifier eventEmitter,
	cfg config.DeliveryConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("delivery repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order loader required")
	}
	if stores == nil {
		return nil, fmt.Errorf("store loader required")
	}
	if eligibility == nil {
		return nil, fmt.Errorf("eligibility checker required")
	}
	if tracking == nil {
		return nil, fmt.Errorf("tracking issuer required")
	}
	if confirmations == nil {
		return nil, fmt.Errorf("confirmation issuer required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:          repo,
		orders:        orderRepo,
		stores:        stores,
		eligibility:   eligibility,
		tracking:      tracking,
		confirmations: confirmations,
		tx:            tx,
		notifier:      notifier,
		cfg:           cfg,
		logg:          logg,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

// Estimate quotes a prospective store-to-customer delivery without creating
// anything. The pickup point is the store's registered location, never caller
// input.
func (s *service) Estimate(ctx context.Context, storeID uuid.UUID, customer types.Coordinates, itemCount int) (Estimate, error) {
	if customer.IsZero() {
		return Estimate{}, pkgerrors.New(pkgerrors.CodeValidation, "customer coordinates are required")
	}
	if err := customer.Validate(); err != nil {
		return Estimate{}, pkgerrors.New(pkgerrors.CodeValidation, "customer: "+err.Error())
	}

	store, err := s.stores.GetStore(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Estimate{}, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return Estimate{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}

	return CalculateEstimate(s.cfg, store.Location, customer, itemCount), nil
}

// CreateStorePurchase opens a store-to-customer delivery for an order owned
// by the acting customer. The delivery row and tracking record land in one
// transaction.
func (s *service) CreateStorePurchase(ctx context.Context, actor Actor, input CreateStorePurchaseInput) (*CreateResult, error) {
	if err := input.Customer.Validate(); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.OwnerUserID != actor.UserID && actor.Role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another principal")
	}

	store, err := s.stores.GetStore(ctx, input.StoreID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}

	itemCount := 0
	for _, item := range order.Items {
		itemCount += item.Quantity
	}
	estimate := CalculateEstimate(s.cfg, store.Location, input.Customer, itemCount)

	orderID := order.ID
	storeID := store.ID
	record := &models.DeliveryRequest{
		OrderID:    &orderID,
		Kind:       enums.DeliveryKindStorePurchase,
		StoreID:    &storeID,
		Pickup:     store.Location,
		Dropoff:    input.Customer,
		DistanceKm: estimate.DistanceKm,
		EtaMinutes: estimate.EtaMinutes,
		FeeCents:   estimate.FeeCents,
		ItemCount:  itemCount,
	}

	result, err := s.create(ctx, record)
	if err != nil {
		return nil, err
	}
	result.Order = order
	return result, nil
}

// CreateUserToUser opens a peer-to-peer delivery between arbitrary points.
func (s *service) CreateUserToUser(ctx context.Context, actor Actor, input CreateUserToUserInput) (*CreateResult, error) {
	if err := input.Pickup.Validate(); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup: "+err.Error())
	}
	if err := input.Dropoff.Validate(); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dropoff: "+err.Error())
	}
	itemCount := input.ItemCount
	if itemCount < 1 {
		itemCount = 1
	}

	estimate := CalculateEstimate(s.cfg, input.Pickup, input.Dropoff, itemCount)
	senderID := actor.UserID
	record := &models.DeliveryRequest{
		Kind:         enums.DeliveryKindUserToUser,
		SenderUserID: &senderID,
		Pickup:       input.Pickup,
		Dropoff:      input.Dropoff,
		DistanceKm:   estimate.DistanceKm,
		EtaMinutes:   estimate.EtaMinutes,
		FeeCents:     estimate.FeeCents,
		ItemCount:    itemCount,
	}

	return s.create(ctx, record)
}

func (s *service) create(ctx context.Context, record *models.DeliveryRequest) (*CreateResult, error) {
	var code string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.repo.WithTx(tx).Create(ctx, record)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return pkgerrors.New(pkgerrors.CodeConflict, "delivery already exists for order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery request")
		}
		record = created

		issued, err := s.tracking.Issue(ctx, tx, record.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue tracking code")
		}
		code = issued
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, enums.WebhookEventDeliveryCreated, record)
	return &CreateResult{Delivery: record, TrackingCode: code}, nil
}

// Get loads a delivery request by id.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.DeliveryRequest, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
	}
	return record, nil
}

// Assign moves created -> assigned for an eligible carrier. Two concurrent
// assignment attempts race on the status guard; exactly one wins.
func (s *service) Assign(ctx context.Context, deliveryID uuid.UUID, actor Actor) (*models.DeliveryRequest, error) {
	record, err := s.Get(ctx, deliveryID)
	if err != nil {
		return nil, err
	}

	requireApproval := record.Kind.RequiresConfirmation()
	if _, err := s.eligibility.CheckAssignable(ctx, actor.UserID, actor.Role, requireApproval, s.now()); err != nil {
		return nil, err
	}

	now := s.now()
	updated, err := s.transition(ctx, record.ID, enums.DeliveryStatusCreated, enums.DeliveryStatusAssigned, map[string]any{
		"carrier_user_id": actor.UserID,
		"assigned_at":     now,
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, enums.WebhookEventDeliveryAssigned, updated)
	return updated, nil
}

// MarkInTransit moves assigned -> in_transit, reported by the assigned
// carrier only.
func (s *service) MarkInTransit(ctx context.Context, deliveryID uuid.UUID, actor Actor) (*models.DeliveryRequest, error) {
	record, err := s.Get(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAssignedCarrier(record, actor); err != nil {
		return nil, err
	}

	updated, err := s.transition(ctx, record.ID, enums.DeliveryStatusAssigned, enums.DeliveryStatusInTransit, map[string]any{
		"in_transit_at": s.now(),
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, enums.WebhookEventDeliveryInTransit, updated)
	return updated, nil
}

// MarkDelivered moves in_transit -> delivered. Store purchases get a
// confirmation token issued immediately; a failure there is logged and does
// not unwind the delivered transition. The confirmation issuance sweep
// retries any delivery left without a token.
func (s *service) MarkDelivered(ctx context.Context, deliveryID uuid.UUID, actor Actor) (*models.DeliveryRequest, *models.PurchaseConfirmation, error) {
	record, err := s.Get(ctx, deliveryID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.requireAssignedCarrier(record, actor); err != nil {
		return nil, nil, err
	}

	updated, err := s.transition(ctx, record.ID, enums.DeliveryStatusInTransit, enums.DeliveryStatusDelivered, map[string]any{
		"delivered_at": s.now(),
	})
	if err != nil {
		return nil, nil, err
	}

	s.emit(ctx, enums.WebhookEventDeliveryDelivered, updated)

	var confirmation *models.PurchaseConfirmation
	if updated.Kind.RequiresConfirmation() {
		issued, err := s.confirmations.IssueForDelivery(ctx, updated)
		if err != nil {
			lctx := s.logg.WithDeliveryID(ctx, updated.ID.String())
			s.logg.Error(lctx, "issuing purchase confirmation after delivery", err)
		} else {
			confirmation = issued
		}
	}
	return updated, confirmation, nil
}

// Cancel moves any non-terminal delivery to cancelled. A completed
// user-to-user delivery counts as terminal.
func (s *service) Cancel(ctx context.Context, deliveryID uuid.UUID, actor Actor) (*models.DeliveryRequest, error) {
	record, err := s.Get(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if err := s.requireCancelParty(ctx, record, actor); err != nil {
		return nil, err
	}

	retries := s.retries()
	for attempt := 0; attempt < retries; attempt++ {
		if record.Status.IsTerminal() ||
			(record.Status == enums.DeliveryStatusDelivered && !record.Kind.RequiresConfirmation()) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "delivery already completed").
				WithDetails(map[string]any{"status": record.Status.String()})
		}

		flipped, err := s.repo.Transition(ctx, record.ID, record.Status, enums.DeliveryStatusCancelled, map[string]any{
			"cancelled_at": s.now(),
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel delivery")
		}
		if flipped {
			updated, err := s.Get(ctx, record.ID)
			if err != nil {
				return nil, err
			}
			s.emit(ctx, enums.WebhookEventDeliveryCancelled, updated)
			return updated, nil
		}

		// status moved underneath us; re-read and retry
		record, err = s.Get(ctx, record.ID)
		if err != nil {
			return nil, err
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "delivery state changed concurrently").
		WithDetails(map[string]any{"status": record.Status.String()})
}

// transition applies one fixed-edge CAS with bounded retries. A retry only
// makes sense while the row still shows the expected source status.
func (s *service) transition(ctx context.Context, id uuid.UUID, from, to enums.DeliveryStatus, set map[string]any) (*models.DeliveryRequest, error) {
	retries := s.retries()
	for attempt := 0; attempt < retries; attempt++ {
		flipped, err := s.repo.Transition(ctx, id, from, to, set)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition delivery")
		}
		if flipped {
			return s.Get(ctx, id)
		}

		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status != from {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "delivery state transition disallowed").
				WithDetails(map[string]any{
					"current":  current.Status.String(),
					"expected": from.String(),
					"target":   to.String(),
				})
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "delivery state changed concurrently")
}

func (s *service) retries() int {
	if s.cfg.TransitionRetries > 0 {
		return s.cfg.TransitionRetries
	}
	return 1
}

func (s *service) requireAssignedCarrier(record *models.DeliveryRequest, actor Actor) error {
	if record.CarrierUserID == nil || *record.CarrierUserID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "delivery is assigned to another carrier")
	}
	return nil
}

// requireCancelParty allows the order owner, the sender, the assigned
// carrier, or an admin to cancel.
func (s *service) requireCancelParty(ctx context.Context, record *models.DeliveryRequest, actor Actor) error {
	if actor.Role == enums.UserRoleAdmin {
		return nil
	}
	if record.CarrierUserID != nil && *record.CarrierUserID == actor.UserID {
		return nil
	}
	if record.SenderUserID != nil && *record.SenderUserID == actor.UserID {
		return nil
	}
	if record.OrderID != nil {
		order, err := s.orders.FindByID(ctx, *record.OrderID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if err == nil && order.OwnerUserID == actor.UserID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this delivery")
}

func (s *service) emit(ctx context.Context, kind enums.WebhookEventKind, record *models.DeliveryRequest) {
	payload := map[string]any{
		"delivery_id": record.ID.String(),
		"kind":        record.Kind.String(),
		"status":      record.Status.String(),
	}
	if record.OrderID != nil {
		payload["order_id"] = record.OrderID.String()
	}
	if record.CarrierUserID != nil {
		payload["carrier_user_id"] = record.CarrierUserID.String()
	}
	s.notifier.Emit(ctx, kind, record.ID, payload)
}

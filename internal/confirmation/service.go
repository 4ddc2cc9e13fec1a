package confirmation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaiven-app/vaiven-backend/internal/delivery"
	"github.com/vaiven-app/vaiven-backend/pkg/config"
	"github.com/vaiven-app/vaiven-backend/pkg/db"
	"github.com/vaiven-app/vaiven-backend/pkg/db/models"
	"github.com/vaiven-app/vaiven-backend/pkg/enums"
	pkgerrors "github.com/vaiven-app/vaiven-backend/pkg/errors"
	"github.com/vaiven-app/vaiven-backend/pkg/logger"
	"github.com/vaiven-app/vaiven-backend/pkg/token"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type storeLoader interface {
	GetStore(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, kind enums.WebhookEventKind, subjectID uuid.UUID, payload map[string]any)
}

// Actor identifies the confirming principal.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// Service manages single-use, time-limited purchase confirmation tokens.
// Expiry is enforced lazily at read time; the sweeps handle reminders,
// tidy-up, and retrying issuance for deliveries that missed their token.
type Service interface {
	IssueForDelivery(ctx context.Context, record *models.DeliveryRequest) (*models.PurchaseConfirmation, error)
	Get(ctx context.Context, tokenStr string) (*models.PurchaseConfirmation, error)
	Confirm(ctx context.Context, tokenStr string, actor Actor) (*models.PurchaseConfirmation, *models.DeliveryRequest, error)
	SweepIssuance(ctx context.Context) (int, error)
	SweepReminders(ctx context.Context) (int, error)
	SweepExpiry(ctx context.Context) (int, error)
}

type service struct {
	repo       ConfirmationRepository
	deliveries delivery.DeliveryRepository
	stores     storeLoader
	tx         txRunner
	generator  token.Generator
	notifier   eventEmitter
	cfg        config.ConfirmationConfig
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds the purchase confirmation manager.
func NewService(
	repo ConfirmationRepository,
	deliveries delivery.DeliveryRepository,
	stores storeLoader,
	tx txRunner,
	generator token.Generator,
	notifier eventEmitter,
	cfg config.ConfirmationConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("confirmation repository required")
	}
	if deliveries == nil {
		return nil, fmt.Errorf("delivery repository required")
	}
	if stores == nil {
		return nil, fmt.Errorf("store loader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if generator == nil {
		return nil, fmt.Errorf("token generator required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       repo,
		deliveries: deliveries,
		stores:     stores,
		tx:         tx,
		generator:  generator,
		notifier:   notifier,
		cfg:        cfg,
		logg:       logg,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// IssueForDelivery mints a confirmation token once the delivery has reached
// Delivered. At most one non-expired confirmation may exist per delivery.
func (s *service) IssueForDelivery(ctx context.Context, record *models.DeliveryRequest) (*models.PurchaseConfirmation, error) {
	if record == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery is required")
	}
	if !record.Kind.RequiresConfirmation() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery kind carries no confirmation step")
	}
	if record.Status != enums.DeliveryStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "delivery has not been delivered yet").
			WithDetails(map[string]any{"status": record.Status.String()})
	}

	tokenStr, err := s.generator.Generate(token.NamespaceConfirmation)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate confirmation token")
	}

	now := s.now()
	var created *models.PurchaseConfirmation
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindOpenByDelivery(ctx, record.ID)
		if err == nil {
			if existing.Status == enums.ConfirmationStatusIssued && existing.IsExpiredAt(now) {
				// dead token: retire it and continue issuing a fresh one
				if _, err := repo.MarkExpired(ctx, existing.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire stale confirmation")
				}
			} else {
				return pkgerrors.New(pkgerrors.CodeConflict, "confirmation already issued")
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing confirmation")
		}

		fresh, err := repo.Create(ctx, &models.PurchaseConfirmation{
			Token:             tokenStr,
			DeliveryRequestID: record.ID,
			IssuedAt:          now,
			ExpiresAt:         now.Add(s.cfg.TokenTTL),
		})
		if err != nil {
			if db.IsUniqueViolation(err) {
				return pkgerrors.New(pkgerrors.CodeConflict, "confirmation already issued")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create confirmation")
		}
		created = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Emit(ctx, enums.WebhookEventConfirmationIssued, record.ID, map[string]any{
		"delivery_id": record.ID.String(),
		"token":       created.Token,
		"expires_at":  created.ExpiresAt.Format(time.RFC3339),
	})
	return created, nil
}

// Get loads a confirmation by token, applying lazy expiry on the way out.
func (s *service) Get(ctx context.Context, tokenStr string) (*models.PurchaseConfirmation, error) {
	record, err := s.load(ctx, tokenStr)
	if err != nil {
		return nil, err
	}
	if record.Status == enums.ConfirmationStatusIssued && record.IsExpiredAt(s.now()) {
		record = s.lazyExpire(ctx, record)
	}
	return record, nil
}

// Confirm redeems a token exactly once. The confirming principal must own
// the store behind the delivery; success also moves the delivery
// Delivered -> Confirmed in the same transaction.
func (s *service) Confirm(ctx context.Context, tokenStr string, actor Actor) (*models.PurchaseConfirmation, *models.DeliveryRequest, error) {
	record, err := s.load(ctx, tokenStr)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	switch record.Status {
	case enums.ConfirmationStatusConfirmed:
		return nil, nil, pkgerrors.New(pkgerrors.CodeConflict, "confirmation token already used")
	case enums.ConfirmationStatusExpired:
		return nil, nil, tokenExpired()
	}
	if record.IsExpiredAt(now) {
		s.lazyExpire(ctx, record)
		return nil, nil, tokenExpired()
	}

	request, err := s.deliveries.FindByID(ctx, record.DeliveryRequestID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
	}
	if err := s.requireStoreOwner(ctx, request, actor); err != nil {
		return nil, nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		confirmed, err := s.repo.WithTx(tx).MarkConfirmed(ctx, record.ID, actor.UserID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm token")
		}
		if !confirmed {
			return pkgerrors.New(pkgerrors.CodeConflict, "confirmation token already used")
		}

		flipped, err := s.deliveries.WithTx(tx).Transition(ctx, request.ID,
			enums.DeliveryStatusDelivered, enums.DeliveryStatusConfirmed,
			map[string]any{"confirmed_at": now})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm delivery")
		}
		if !flipped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery is not awaiting confirmation")
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	confirmed, err := s.repo.FindByToken(ctx, record.Token)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload confirmation")
	}
	request, err = s.deliveries.FindByID(ctx, record.DeliveryRequestID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload delivery")
	}

	s.notifier.Emit(ctx, enums.WebhookEventDeliveryConfirmed, request.ID, map[string]any{
		"delivery_id":  request.ID.String(),
		"confirmed_by": actor.UserID.String(),
	})
	return confirmed, request, nil
}

// SweepIssuance re-issues tokens for delivered store purchases that have no
// confirmation row. Issuance runs inline when the delivery is marked
// delivered, but a failure there must not unwind the delivered transition,
// so this sweep is what eventually gets those deliveries their token.
func (s *service) SweepIssuance(ctx context.Context) (int, error) {
	rows, err := s.repo.ListDeliveredAwaitingIssue(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deliveries awaiting confirmation")
	}

	issued := 0
	for i := range rows {
		record := rows[i]
		if _, err := s.IssueForDelivery(ctx, &record); err != nil {
			// a concurrent issue already won; anything else gets retried
			// next cycle
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict {
				continue
			}
			lctx := s.logg.WithDeliveryID(ctx, record.ID.String())
			s.logg.Error(lctx, "reissuing purchase confirmation", err)
			continue
		}
		issued++
	}
	return issued, nil
}

// SweepReminders sends one best-effort reminder per Issued confirmation
// inside the reminder window. The reminded_at stamp makes the sweep
// idempotent across cycles.
func (s *service) SweepReminders(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.repo.ListDueReminders(ctx, now, s.cfg.ReminderOffset)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due reminders")
	}

	reminded := 0
	for i := range due {
		record := due[i]
		stamped, err := s.repo.MarkReminded(ctx, record.ID, now)
		if err != nil {
			s.logg.Error(ctx, "stamping confirmation reminder", err)
			continue
		}
		if !stamped {
			continue
		}
		s.notifier.Emit(ctx, enums.WebhookEventConfirmationReminder, record.DeliveryRequestID, map[string]any{
			"delivery_id": record.DeliveryRequestID.String(),
			"expires_at":  record.ExpiresAt.Format(time.RFC3339),
		})
		reminded++
	}
	return reminded, nil
}

// SweepExpiry retires Issued confirmations past their TTL. Reads enforce
// expiry on their own; this sweep only tidies rows and notifies listeners.
func (s *service) SweepExpiry(ctx context.Context) (int, error) {
	now := s.now()
	rows, err := s.repo.ListExpiredIssued(ctx, now)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired confirmations")
	}

	expired := 0
	for i := range rows {
		record := rows[i]
		flipped, err := s.repo.MarkExpired(ctx, record.ID)
		if err != nil {
			s.logg.Error(ctx, "expiring confirmation", err)
			continue
		}
		if !flipped {
			continue
		}
		s.notifier.Emit(ctx, enums.WebhookEventConfirmationExpired, record.DeliveryRequestID, map[string]any{
			"delivery_id": record.DeliveryRequestID.String(),
		})
		expired++
	}
	return expired, nil
}

func (s *service) load(ctx context.Context, tokenStr string) (*models.PurchaseConfirmation, error) {
	if !token.HasNamespace(tokenStr, token.NamespaceConfirmation) {
		return nil, tokenNotFound()
	}
	record, err := s.repo.FindByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tokenNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load confirmation")
	}
	return record, nil
}

// lazyExpire retires a stale token as a side effect of reading it. The
// expired webhook fires here too so listeners never depend on the sweep.
func (s *service) lazyExpire(ctx context.Context, record *models.PurchaseConfirmation) *models.PurchaseConfirmation {
	flipped, err := s.repo.MarkExpired(ctx, record.ID)
	if err != nil {
		s.logg.Error(ctx, "lazily expiring confirmation", err)
		return record
	}
	if flipped {
		s.notifier.Emit(ctx, enums.WebhookEventConfirmationExpired, record.DeliveryRequestID, map[string]any{
			"delivery_id": record.DeliveryRequestID.String(),
		})
	}
	record.Status = enums.ConfirmationStatusExpired
	return record
}

func (s *service) requireStoreOwner(ctx context.Context, request *models.DeliveryRequest, actor Actor) error {
	if actor.Role == enums.UserRoleAdmin {
		return nil
	}
	if request.StoreID == nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not authorized to confirm this delivery")
	}
	store, err := s.stores.GetStore(ctx, *request.StoreID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if store.OwnerUserID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not authorized to confirm this delivery")
	}
	return nil
}

func tokenNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "confirmation token not found")
}

func tokenExpired() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "confirmation token expired")
}

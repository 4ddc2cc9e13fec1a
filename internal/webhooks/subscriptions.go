package webhooks

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/vaiven-app/vaiven-backend/pkg/db/models"
	"github.com/vaiven-app/vaiven-backend/pkg/enums"
	pkgerrors "github.com/vaiven-app/vaiven-backend/pkg/errors"
	"github.com/vaiven-app/vaiven-backend/pkg/token"
)

// CreateSubscriptionInput registers a listener endpoint. An empty EventKinds
// list subscribes to everything; an empty Secret gets one generated.
type CreateSubscriptionInput struct {
	URL        string
	Secret     string
	EventKinds []string
}

// SubscriptionService is the owner-scoped CRUD surface for webhook listeners.
type SubscriptionService interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateSubscriptionInput) (*models.WebhookSubscription, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]models.WebhookSubscription, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

type subscriptionService struct {
	repo      SubscriptionRepository
	generator token.Generator
}

// NewSubscriptionService builds the listener CRUD service.
func NewSubscriptionService(repo SubscriptionRepository, generator token.Generator) (SubscriptionService, error) {
	if repo == nil {
		return nil, fmt.Errorf("subscription repository required")
	}
	if generator == nil {
		return nil, fmt.Errorf("token generator required")
	}
	return &subscriptionService{repo: repo, generator: generator}, nil
}

func (s *subscriptionService) Create(ctx context.Context, ownerID uuid.UUID, input CreateSubscriptionInput) (*models.WebhookSubscription, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	parsed, err := url.Parse(input.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "url must be a valid http(s) endpoint")
	}
	for _, kind := range input.EventKinds {
		if _, err := enums.ParseWebhookEventKind(kind); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown event kind").
				WithDetails(map[string]any{"event_kind": kind})
		}
	}

	secret := input.Secret
	if secret == "" {
		generated, err := s.generator.Generate(token.NamespaceWebhook)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate webhook secret")
		}
		secret = generated
	}

	record, err := s.repo.Create(ctx, &models.WebhookSubscription{
		OwnerUserID: ownerID,
		URL:         input.URL,
		Secret:      secret,
		EventKinds:  pq.StringArray(input.EventKinds),
		IsActive:    true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription")
	}
	return record, nil
}

func (s *subscriptionService) List(ctx context.Context, ownerID uuid.UUID) ([]models.WebhookSubscription, error) {
	rows, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions")
	}
	return rows, nil
}

func (s *subscriptionService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete subscription")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	return nil
}

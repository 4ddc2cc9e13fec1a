package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/vaiven-app/vaiven-backend/pkg/config"
	"github.com/vaiven-app/vaiven-backend/pkg/db/models"
	"github.com/vaiven-app/vaiven-backend/pkg/enums"
	"github.com/vaiven-app/vaiven-backend/pkg/logger"
	"github.com/vaiven-app/vaiven-backend/pkg/metrics"
)

type stubSubscriptionRepo struct {
	subs []models.WebhookSubscription
}

func (s *stubSubscriptionRepo) WithTx(tx *gorm.DB) SubscriptionRepository { return s }

func (s *stubSubscriptionRepo) Create(ctx context.Context, record *models.WebhookSubscription) (*models.WebhookSubscription, error) {
	record.ID = uuid.New()
	s.subs = append(s.subs, *record)
	return record, nil
}

func (s *stubSubscriptionRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.WebhookSubscription, error) {
	for i := range s.subs {
		if s.subs[i].ID == id {
			return &s.subs[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubSubscriptionRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.WebhookSubscription, error) {
	var rows []models.WebhookSubscription
	for _, sub := range s.subs {
		if sub.OwnerUserID == ownerID {
			rows = append(rows, sub)
		}
	}
	return rows, nil
}

func (s *stubSubscriptionRepo) ListActive(ctx context.Context) ([]models.WebhookSubscription, error) {
	var rows []models.WebhookSubscription
	for _, sub := range s.subs {
		if sub.IsActive {
			rows = append(rows, sub)
		}
	}
	return rows, nil
}

func (s *stubSubscriptionRepo) Delete(ctx context.Context, id, ownerID uuid.UUID) (bool, error) {
	for i := range s.subs {
		if s.subs[i].ID == id && s.subs[i].OwnerUserID == ownerID {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type capturedRequest struct {
	event     string
	delivery  string
	signature string
	body      []byte
}

// captureServer records every request it receives and answers with the
// status codes queued up front, then 200 for the rest.
type captureServer struct {
	mu       sync.Mutex
	requests []capturedRequest
	statuses []int
	server   *httptest.Server
}

func newCaptureServer(t *testing.T, statuses ...int) *captureServer {
	t.Helper()
	c := &captureServer{statuses: statuses}
	c.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.requests = append(c.requests, capturedRequest{
			event:     r.Header.Get("X-Vaiven-Event"),
			delivery:  r.Header.Get("X-Vaiven-Delivery"),
			signature: r.Header.Get("X-Vaiven-Signature"),
			body:      body,
		})
		status := http.StatusOK
		if len(c.statuses) > 0 {
			status = c.statuses[0]
			c.statuses = c.statuses[1:]
		}
		c.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(c.server.Close)
	return c
}

func (c *captureServer) captured() []capturedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]capturedRequest(nil), c.requests...)
}

func newTestNotifier(t *testing.T, repo SubscriptionRepository, cfg config.WebhookConfig) *Notifier {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	notifier, err := NewNotifier(repo, cfg, logg, metrics.NewWebhookMetrics(nil))
	if err != nil {
		t.Fatalf("building notifier: %v", err)
	}
	return notifier
}

func testWebhookConfig() config.WebhookConfig {
	return config.WebhookConfig{
		MaxAttempts:    3,
		BackoffBase:    time.Millisecond,
		QueueSize:      16,
		Workers:        1,
		RequestTimeout: 2 * time.Second,
	}
}

func TestNotifierDeliversSignedEvent(t *testing.T) {
	t.Parallel()

	listener := newCaptureServer(t)
	repo := &stubSubscriptionRepo{subs: []models.WebhookSubscription{
		{ID: uuid.New(), URL: listener.server.URL, Secret: "s3cret", IsActive: true},
	}}
	notifier := newTestNotifier(t, repo, testWebhookConfig())
	notifier.Start()

	subjectID := uuid.New()
	notifier.Emit(context.Background(), enums.WebhookEventOrderCreated, subjectID, map[string]any{
		"order_id": subjectID.String(),
	})
	notifier.Stop()

	requests := listener.captured()
	if len(requests) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(requests))
	}
	got := requests[0]
	if got.event != "order.created" {
		t.Fatalf("unexpected event header %q", got.event)
	}
	if got.delivery == "" {
		t.Fatal("expected a delivery id header")
	}
	if got.signature != Sign("s3cret", got.body) {
		t.Fatal("signature does not verify against the shared secret")
	}

	var event Event
	if err := json.Unmarshal(got.body, &event); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if event.Kind != enums.WebhookEventOrderCreated || event.SubjectID != subjectID {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestNotifierRetriesOnServerError(t *testing.T) {
	t.Parallel()

	listener := newCaptureServer(t, http.StatusInternalServerError)
	repo := &stubSubscriptionRepo{subs: []models.WebhookSubscription{
		{ID: uuid.New(), URL: listener.server.URL, Secret: "s3cret", IsActive: true},
	}}
	notifier := newTestNotifier(t, repo, testWebhookConfig())
	notifier.Start()

	notifier.Emit(context.Background(), enums.WebhookEventDeliveryCreated, uuid.New(), nil)
	notifier.Stop()

	requests := listener.captured()
	if len(requests) != 2 {
		t.Fatalf("expected retry after 500, got %d requests", len(requests))
	}
}

func TestNotifierGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	listener := newCaptureServer(t,
		http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway)
	repo := &stubSubscriptionRepo{subs: []models.WebhookSubscription{
		{ID: uuid.New(), URL: listener.server.URL, Secret: "s3cret", IsActive: true},
	}}
	notifier := newTestNotifier(t, repo, testWebhookConfig())
	notifier.Start()

	notifier.Emit(context.Background(), enums.WebhookEventDeliveryCancelled, uuid.New(), nil)
	notifier.Stop()

	requests := listener.captured()
	if len(requests) != 3 {
		t.Fatalf("expected exactly MaxAttempts requests, got %d", len(requests))
	}
}

func TestNotifierFiltersByEventKind(t *testing.T) {
	t.Parallel()

	listener := newCaptureServer(t)
	repo := &stubSubscriptionRepo{subs: []models.WebhookSubscription{
		{
			ID:         uuid.New(),
			URL:        listener.server.URL,
			Secret:     "s3cret",
			IsActive:   true,
			EventKinds: pq.StringArray{"delivery.created"},
		},
	}}
	notifier := newTestNotifier(t, repo, testWebhookConfig())
	notifier.Start()

	notifier.Emit(context.Background(), enums.WebhookEventOrderCreated, uuid.New(), nil)
	notifier.Emit(context.Background(), enums.WebhookEventDeliveryCreated, uuid.New(), nil)
	notifier.Stop()

	requests := listener.captured()
	if len(requests) != 1 {
		t.Fatalf("expected only the subscribed kind, got %d requests", len(requests))
	}
	if requests[0].event != "delivery.created" {
		t.Fatalf("unexpected event %q", requests[0].event)
	}
}

func TestNotifierSkipsInactiveSubscriptions(t *testing.T) {
	t.Parallel()

	listener := newCaptureServer(t)
	repo := &stubSubscriptionRepo{subs: []models.WebhookSubscription{
		{ID: uuid.New(), URL: listener.server.URL, Secret: "s3cret", IsActive: false},
	}}
	notifier := newTestNotifier(t, repo, testWebhookConfig())
	notifier.Start()

	notifier.Emit(context.Background(), enums.WebhookEventOrderCreated, uuid.New(), nil)
	notifier.Stop()

	if got := len(listener.captured()); got != 0 {
		t.Fatalf("expected no deliveries, got %d", got)
	}
}

func TestNotifierDropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	listener := newCaptureServer(t)
	repo := &stubSubscriptionRepo{subs: []models.WebhookSubscription{
		{ID: uuid.New(), URL: listener.server.URL, Secret: "s3cret", IsActive: true},
	}}
	cfg := testWebhookConfig()
	cfg.QueueSize = 1
	notifier := newTestNotifier(t, repo, cfg)

	// no workers running yet, so the second emit finds the queue full
	notifier.Emit(context.Background(), enums.WebhookEventOrderCreated, uuid.New(), nil)
	notifier.Emit(context.Background(), enums.WebhookEventOrderCreated, uuid.New(), nil)

	notifier.Start()
	notifier.Stop()

	if got := len(listener.captured()); got != 1 {
		t.Fatalf("expected the queued event only, got %d", got)
	}
}

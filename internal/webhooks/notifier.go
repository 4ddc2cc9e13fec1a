package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vaiven-app/vaiven-backend/pkg/config"
	"github.com/vaiven-app/vaiven-backend/pkg/db/models"
	"github.com/vaiven-app/vaiven-backend/pkg/enums"
	"github.com/vaiven-app/vaiven-backend/pkg/logger"
	"github.com/vaiven-app/vaiven-backend/pkg/metrics"
)

const (
	headerEvent     = "X-Vaiven-Event"
	headerDelivery  = "X-Vaiven-Delivery"
	headerSignature = "X-Vaiven-Signature"
)

// Event is the outbound notification unit. Events are ephemeral: they live
// only in the in-process queue and die with the process.
type Event struct {
	ID        uuid.UUID              `json:"event_id"`
	Kind      enums.WebhookEventKind `json:"event_kind"`
	SubjectID uuid.UUID              `json:"subject_id"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]any         `json:"payload"`
}

// Notifier fans events out to registered listeners with bounded retries.
// Emit never blocks and never fails the caller: a full queue drops the event
// with a log line, and exhausted retries are logged, not surfaced. Delivery
// is at-least-once; listeners own duplicate tolerance.
type Notifier struct {
	subs    SubscriptionRepository
	client  *http.Client
	cfg     config.WebhookConfig
	logg    *logger.Logger
	metrics *metrics.WebhookMetrics

	queue chan Event
	wg    sync.WaitGroup
	once  sync.Once
}

// NewNotifier builds the webhook notifier. Call Start before emitting and
// Stop on shutdown to drain the queue.
func NewNotifier(subs SubscriptionRepository, cfg config.WebhookConfig, logg *logger.Logger, m *metrics.WebhookMetrics) (*Notifier, error) {
	if subs == nil {
		return nil, fmt.Errorf("subscription repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Notifier{
		subs:    subs,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		cfg:     cfg,
		logg:    logg,
		metrics: m,
		queue:   make(chan Event, queueSize),
	}, nil
}

// Start launches the worker pool. Workers stop once Stop closes the queue.
func (n *Notifier) Start() {
	workers := n.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			for event := range n.queue {
				n.dispatch(event)
			}
		}()
	}
}

// Stop closes the queue and waits for in-flight deliveries to finish.
func (n *Notifier) Stop() {
	n.once.Do(func() { close(n.queue) })
	n.wg.Wait()
}

// Emit queues one event. Fire-and-forget: the triggering operation has
// already committed and must not observe webhook problems.
func (n *Notifier) Emit(ctx context.Context, kind enums.WebhookEventKind, subjectID uuid.UUID, payload map[string]any) {
	event := Event{
		ID:        uuid.New(),
		Kind:      kind,
		SubjectID: subjectID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	select {
	case n.queue <- event:
	default:
		lctx := n.logg.WithEventKind(ctx, kind.String())
		n.logg.Warn(lctx, "webhook queue full, dropping event")
		n.metrics.IncDropped(kind.String(), "queue_full")
	}
}

// dispatch fans one event out to every interested listener. Workers use a
// background context: request contexts are long gone by the time we run.
func (n *Notifier) dispatch(event Event) {
	ctx := context.Background()
	subs, err := n.subs.ListActive(ctx)
	if err != nil {
		lctx := n.logg.WithEventKind(ctx, event.Kind.String())
		n.logg.Error(lctx, "listing webhook subscriptions", err)
		n.metrics.IncDropped(event.Kind.String(), "subscription_lookup")
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		n.logg.Error(ctx, "marshaling webhook event", err)
		return
	}

	for i := range subs {
		sub := subs[i]
		if !sub.Wants(event.Kind.String()) {
			continue
		}
		n.deliver(ctx, &sub, event, body)
	}
}

// deliver POSTs to one listener with exponential backoff. Exhaustion is
// terminal for this event+listener pair.
func (n *Notifier) deliver(ctx context.Context, sub *models.WebhookSubscription, event Event, body []byte) {
	attempts := n.cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	lctx := n.logg.WithFields(ctx, map[string]any{
		"event_kind":      event.Kind.String(),
		"event_id":        event.ID.String(),
		"subscription_id": sub.ID.String(),
	})

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			time.Sleep(n.cfg.BackoffBase * (1 << (attempt - 1)))
		}

		start := time.Now()
		err := n.post(ctx, sub, event, body)
		n.metrics.ObserveRequest(event.Kind.String(), time.Since(start))
		if err == nil {
			n.metrics.IncAttempt(event.Kind.String(), "ok")
			return
		}
		lastErr = err
		n.metrics.IncAttempt(event.Kind.String(), "error")
	}

	n.logg.Error(lctx, "webhook delivery exhausted retries", lastErr)
	n.metrics.IncDropped(event.Kind.String(), "retries_exhausted")
}

func (n *Notifier) post(ctx context.Context, sub *models.WebhookSubscription, event Event, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerEvent, event.Kind.String())
	req.Header.Set(headerDelivery, event.ID.String())
	req.Header.Set(headerSignature, Sign(sub.Secret, body))

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		resp.Body.Close()              //nolint:errcheck
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("listener responded %d", resp.StatusCode)
	}
	return nil
}

// Sign computes the hex HMAC-SHA256 listeners verify against their secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

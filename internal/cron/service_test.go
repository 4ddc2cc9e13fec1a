package cron

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vaiven-app/vaiven-backend/pkg/logger"
	"github.com/vaiven-app/vaiven-backend/pkg/metrics"
)

type recordingJob struct {
	name string
	err  error
	runs int
}

func (j *recordingJob) Name() string { return j.name }

func (j *recordingJob) Run(ctx context.Context) error {
	j.runs++
	return j.err
}

type stubLock struct {
	acquire    bool
	acquireErr error
	acquired   int
	released   int
}

func (l *stubLock) Acquire(ctx context.Context) (bool, error) {
	l.acquired++
	return l.acquire, l.acquireErr
}

func (l *stubLock) Release(ctx context.Context) error {
	l.released++
	return nil
}

func newCronTestService(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: NewRegistry(jobs...),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(nil),
		Interval: time.Minute,
	})
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	return svc
}

func TestCycleRunsEveryJobAndReleasesLock(t *testing.T) {
	t.Parallel()

	lock := &stubLock{acquire: true}
	first := &recordingJob{name: "first"}
	second := &recordingJob{name: "second"}
	svc := newCronTestService(t, lock, first, second)

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.runs != 1 || second.runs != 1 {
		t.Fatalf("expected both jobs to run once, got %d and %d", first.runs, second.runs)
	}
	if lock.released != 1 {
		t.Fatalf("expected lock released once, got %d", lock.released)
	}
}

func TestCycleSkipsWhenLockHeldElsewhere(t *testing.T) {
	t.Parallel()

	lock := &stubLock{acquire: false}
	job := &recordingJob{name: "sweep"}
	svc := newCronTestService(t, lock, job)

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected no runs without the lock, got %d", job.runs)
	}
	if lock.released != 0 {
		t.Fatal("must not release a lock it never held")
	}
}

func TestCycleContinuesPastFailingJob(t *testing.T) {
	t.Parallel()

	lock := &stubLock{acquire: true}
	failing := &recordingJob{name: "failing", err: errors.New("boom")}
	healthy := &recordingJob{name: "healthy"}
	svc := newCronTestService(t, lock, failing, healthy)

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if healthy.runs != 1 {
		t.Fatal("expected the healthy job to run after the failure")
	}
}

func TestRegistrySkipsNilJobs(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(nil, &recordingJob{name: "only"})
	registry.Register(nil)

	if got := len(registry.Jobs()); got != 1 {
		t.Fatalf("expected 1 job, got %d", got)
	}
}

type stubSweeper struct {
	count int
	err   error
}

func (s stubSweeper) SweepIssuance(ctx context.Context) (int, error)  { return s.count, s.err }
func (s stubSweeper) SweepReminders(ctx context.Context) (int, error) { return s.count, s.err }
func (s stubSweeper) SweepExpiry(ctx context.Context) (int, error)    { return s.count, s.err }

func TestIssuanceJobWrapsSweepError(t *testing.T) {
	t.Parallel()

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	job, err := NewConfirmationIssuanceJob(ConfirmationIssuanceJobParams{
		Logger:        logg,
		Confirmations: stubSweeper{err: errors.New("db down")},
	})
	if err != nil {
		t.Fatalf("building job: %v", err)
	}
	if job.Name() != "confirmation-issuance" {
		t.Fatalf("unexpected name %q", job.Name())
	}

	err = job.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "issuance sweep") {
		t.Fatalf("expected wrapped sweep error, got %v", err)
	}
}

func TestReminderJobWrapsSweepError(t *testing.T) {
	t.Parallel()

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	job, err := NewConfirmationReminderJob(ConfirmationReminderJobParams{
		Logger:        logg,
		Confirmations: stubSweeper{err: errors.New("db down")},
	})
	if err != nil {
		t.Fatalf("building job: %v", err)
	}

	err = job.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "reminder sweep") {
		t.Fatalf("expected wrapped sweep error, got %v", err)
	}
}

func TestExpiryJobRunsClean(t *testing.T) {
	t.Parallel()

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	job, err := NewConfirmationExpiryJob(ConfirmationExpiryJobParams{
		Logger:        logg,
		Confirmations: stubSweeper{count: 3},
	})
	if err != nil {
		t.Fatalf("building job: %v", err)
	}
	if job.Name() != "confirmation-expiry" {
		t.Fatalf("unexpected name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

type stubRedisStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newStubRedisStore() *stubRedisStore {
	return &stubRedisStore{values: map[string]string{}}
}

func (s *stubRedisStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.values[key]; held {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *stubRedisStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *stubRedisStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func TestRedisLockMutualExclusion(t *testing.T) {
	t.Parallel()

	store := newStubRedisStore()
	ctx := context.Background()

	first, err := NewRedisLock(store, "cron:lock", time.Minute)
	if err != nil {
		t.Fatalf("building lock: %v", err)
	}
	second, err := NewRedisLock(store, "cron:lock", time.Minute)
	if err != nil {
		t.Fatalf("building lock: %v", err)
	}

	held, err := first.Acquire(ctx)
	if err != nil || !held {
		t.Fatalf("expected first acquire to win, got %v %v", held, err)
	}
	held, err = second.Acquire(ctx)
	if err != nil || held {
		t.Fatalf("expected second acquire to lose, got %v %v", held, err)
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	held, err = second.Acquire(ctx)
	if err != nil || !held {
		t.Fatalf("expected acquire after release, got %v %v", held, err)
	}
}

func TestRedisLockReleaseIgnoresForeignOwner(t *testing.T) {
	t.Parallel()

	store := newStubRedisStore()
	ctx := context.Background()

	lock, err := NewRedisLock(store, "cron:lock", time.Minute)
	if err != nil {
		t.Fatalf("building lock: %v", err)
	}
	held, err := lock.Acquire(ctx)
	if err != nil || !held {
		t.Fatalf("expected acquire, got %v %v", held, err)
	}

	// simulate TTL expiry plus takeover by another replica
	store.mu.Lock()
	store.values["cron:lock"] = "someone-else"
	store.mu.Unlock()

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.values["cron:lock"] != "someone-else" {
		t.Fatal("release must not delete a lock it no longer owns")
	}
}

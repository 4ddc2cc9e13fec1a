package confirmation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vaiven-app/vaiven-backend/pkg/db"
	"github.com/vaiven-app/vaiven-backend/pkg/db/models"
	"github.com/vaiven-app/vaiven-backend/pkg/enums"
)

func setupConfirmationTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	confirmations := `
CREATE TABLE IF NOT EXISTS purchase_confirmations (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  token TEXT NOT NULL UNIQUE,
  delivery_request_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'issued',
  issued_at DATETIME NOT NULL,
  expires_at DATETIME NOT NULL,
  reminded_at DATETIME,
  confirmed_at DATETIME,
  confirmed_by_user_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_purchase_confirmations_open
  ON purchase_confirmations (delivery_request_id)
  WHERE status <> 'expired';
CREATE TABLE IF NOT EXISTS delivery_requests (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  order_id TEXT UNIQUE,
  kind TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'created',
  store_id TEXT,
  sender_user_id TEXT,
  carrier_user_id TEXT,
  pickup_lat REAL NOT NULL DEFAULT 0,
  pickup_lng REAL NOT NULL DEFAULT 0,
  dropoff_lat REAL NOT NULL DEFAULT 0,
  dropoff_lng REAL NOT NULL DEFAULT 0,
  distance_km REAL NOT NULL DEFAULT 0,
  eta_minutes REAL NOT NULL DEFAULT 0,
  fee_cents INTEGER NOT NULL DEFAULT 0,
  item_count INTEGER NOT NULL DEFAULT 0,
  assigned_at DATETIME,
  in_transit_at DATETIME,
  delivered_at DATETIME,
  confirmed_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, gdb.Exec(confirmations).Error)
	return gdb
}

func newConfirmationRow(t *testing.T, repo *Repository, tokenStr string, expiresAt time.Time) *models.PurchaseConfirmation {
	t.Helper()

	record, err := repo.Create(context.Background(), &models.PurchaseConfirmation{
		ID:                uuid.New(),
		Token:             tokenStr,
		DeliveryRequestID: uuid.New(),
		IssuedAt:          time.Now().UTC().Add(-time.Hour),
		ExpiresAt:         expiresAt,
	})
	require.NoError(t, err)
	require.Equal(t, enums.ConfirmationStatusIssued, record.Status)
	return record
}

func TestRepositoryCreate_rejectsDuplicateToken(t *testing.T) {
	gdb := setupConfirmationTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	tokenStr := "cnf_" + uuid.NewString()
	newConfirmationRow(t, repo, tokenStr, time.Now().UTC().Add(time.Hour))

	_, err := repo.Create(ctx, &models.PurchaseConfirmation{
		ID:                uuid.New(),
		Token:             tokenStr,
		DeliveryRequestID: uuid.New(),
		IssuedAt:          time.Now().UTC(),
		ExpiresAt:         time.Now().UTC().Add(time.Hour),
	})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err))
}

func TestRepositoryCreate_oneOpenConfirmationPerDelivery(t *testing.T) {
	gdb := setupConfirmationTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	deliveryID := uuid.New()
	now := time.Now().UTC()
	first, err := repo.Create(ctx, &models.PurchaseConfirmation{
		ID:                uuid.New(),
		Token:             "cnf_" + uuid.NewString(),
		DeliveryRequestID: deliveryID,
		IssuedAt:          now,
		ExpiresAt:         now.Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &models.PurchaseConfirmation{
		ID:                uuid.New(),
		Token:             "cnf_" + uuid.NewString(),
		DeliveryRequestID: deliveryID,
		IssuedAt:          now,
		ExpiresAt:         now.Add(time.Hour),
	})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err))

	flipped, err := repo.MarkExpired(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, flipped)

	_, err = repo.Create(ctx, &models.PurchaseConfirmation{
		ID:                uuid.New(),
		Token:             "cnf_" + uuid.NewString(),
		DeliveryRequestID: deliveryID,
		IssuedAt:          now,
		ExpiresAt:         now.Add(time.Hour),
	})
	require.NoError(t, err)
}

func TestRepositoryListDeliveredAwaitingIssue(t *testing.T) {
	gdb := setupConfirmationTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()
	now := time.Now().UTC()

	missing := &models.DeliveryRequest{
		ID:          uuid.New(),
		Kind:        enums.DeliveryKindStorePurchase,
		Status:      enums.DeliveryStatusDelivered,
		DeliveredAt: &now,
	}
	covered := &models.DeliveryRequest{
		ID:          uuid.New(),
		Kind:        enums.DeliveryKindStorePurchase,
		Status:      enums.DeliveryStatusDelivered,
		DeliveredAt: &now,
	}
	inTransit := &models.DeliveryRequest{
		ID:     uuid.New(),
		Kind:   enums.DeliveryKindStorePurchase,
		Status: enums.DeliveryStatusInTransit,
	}
	peer := &models.DeliveryRequest{
		ID:          uuid.New(),
		Kind:        enums.DeliveryKindUserToUser,
		Status:      enums.DeliveryStatusDelivered,
		DeliveredAt: &now,
	}
	for _, request := range []*models.DeliveryRequest{missing, covered, inTransit, peer} {
		require.NoError(t, gdb.Create(request).Error)
	}
	_, err := repo.Create(ctx, &models.PurchaseConfirmation{
		ID:                uuid.New(),
		Token:             "cnf_" + uuid.NewString(),
		DeliveryRequestID: covered.ID,
		IssuedAt:          now,
		ExpiresAt:         now.Add(time.Hour),
	})
	require.NoError(t, err)

	rows, err := repo.ListDeliveredAwaitingIssue(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, missing.ID, rows[0].ID)
}

func TestRepositoryMarkConfirmed_singleUse(t *testing.T) {
	gdb := setupConfirmationTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	record := newConfirmationRow(t, repo, "cnf_"+uuid.NewString(), time.Now().UTC().Add(time.Hour))
	confirmer := uuid.New()
	now := time.Now().UTC()

	first, err := repo.MarkConfirmed(ctx, record.ID, confirmer, now)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := repo.MarkConfirmed(ctx, record.ID, uuid.New(), now)
	require.NoError(t, err)
	assert.False(t, second)

	reloaded, err := repo.FindByToken(ctx, record.Token)
	require.NoError(t, err)
	assert.Equal(t, enums.ConfirmationStatusConfirmed, reloaded.Status)
	require.NotNil(t, reloaded.ConfirmedByUserID)
	assert.Equal(t, confirmer, *reloaded.ConfirmedByUserID)
	assert.NotNil(t, reloaded.ConfirmedAt)
}

func TestRepositoryMarkExpired_onlyFromIssued(t *testing.T) {
	gdb := setupConfirmationTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	record := newConfirmationRow(t, repo, "cnf_"+uuid.NewString(), time.Now().UTC().Add(time.Hour))

	confirmed, err := repo.MarkConfirmed(ctx, record.ID, uuid.New(), time.Now().UTC())
	require.NoError(t, err)
	require.True(t, confirmed)

	expired, err := repo.MarkExpired(ctx, record.ID)
	require.NoError(t, err)
	assert.False(t, expired)
}

func TestRepositoryMarkReminded_stampsOnce(t *testing.T) {
	gdb := setupConfirmationTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	record := newConfirmationRow(t, repo, "cnf_"+uuid.NewString(), time.Now().UTC().Add(time.Hour))
	now := time.Now().UTC()

	first, err := repo.MarkReminded(ctx, record.ID, now)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := repo.MarkReminded(ctx, record.ID, now)
	require.NoError(t, err)
	assert.False(t, second)

	reloaded, err := repo.FindByToken(ctx, record.Token)
	require.NoError(t, err)
	assert.NotNil(t, reloaded.RemindedAt)
}

func TestRepositoryListDueReminders_window(t *testing.T) {
	gdb := setupConfirmationTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()
	now := time.Now().UTC()
	offset := 4 * time.Hour

	due := newConfirmationRow(t, repo, "cnf_"+uuid.NewString(), now.Add(2*time.Hour))
	newConfirmationRow(t, repo, "cnf_"+uuid.NewString(), now.Add(12*time.Hour))
	alreadyReminded := newConfirmationRow(t, repo, "cnf_"+uuid.NewString(), now.Add(3*time.Hour))
	stamped, err := repo.MarkReminded(ctx, alreadyReminded.ID, now)
	require.NoError(t, err)
	require.True(t, stamped)

	rows, err := repo.ListDueReminders(ctx, now, offset)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, due.Token, rows[0].Token)
}

func TestRepositoryListExpiredIssued(t *testing.T) {
	gdb := setupConfirmationTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()
	now := time.Now().UTC()

	stale := newConfirmationRow(t, repo, "cnf_"+uuid.NewString(), now.Add(-time.Hour))
	newConfirmationRow(t, repo, "cnf_"+uuid.NewString(), now.Add(time.Hour))
	redeemed := newConfirmationRow(t, repo, "cnf_"+uuid.NewString(), now.Add(-2*time.Hour))
	confirmed, err := repo.MarkConfirmed(ctx, redeemed.ID, uuid.New(), now.Add(-3*time.Hour))
	require.NoError(t, err)
	require.True(t, confirmed)

	rows, err := repo.ListExpiredIssued(ctx, now)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, stale.Token, rows[0].Token)
}

func TestRepositoryFindOpenByDelivery_skipsExpired(t *testing.T) {
	gdb := setupConfirmationTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	record := newConfirmationRow(t, repo, "cnf_"+uuid.NewString(), time.Now().UTC().Add(time.Hour))

	flipped, err := repo.MarkExpired(ctx, record.ID)
	require.NoError(t, err)
	require.True(t, flipped)

	_, err = repo.FindOpenByDelivery(ctx, record.DeliveryRequestID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

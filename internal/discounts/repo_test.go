package discounts

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/healios-dev/healios-backend/pkg/db/models"
	"github.com/healios-dev/healios-backend/pkg/enums"
	pkgerrors "github.com/healios-dev/healios-backend/pkg/errors"
)

func setupDiscountsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	discountCodes := `
CREATE TABLE IF NOT EXISTS discount_codes (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  kind TEXT NOT NULL,
  value TEXT NOT NULL,
  description TEXT,
  min_spend TEXT,
  applicable_categories TEXT,
  excluded_categories TEXT,
  starts_at DATETIME,
  ends_at DATETIME,
  active INTEGER NOT NULL DEFAULT 1,
  stackable INTEGER NOT NULL DEFAULT 0,
  per_customer_cap INTEGER,
  global_redemption_cap INTEGER,
  redemption_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	redemptions := `
CREATE TABLE IF NOT EXISTS redemptions (
  id TEXT PRIMARY KEY,
  code_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  customer_id TEXT,
  session_id TEXT,
  guest_email TEXT,
  amount_discounted TEXT NOT NULL,
  released INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`
	releases := `
CREATE TABLE IF NOT EXISTS redemption_releases (
  id TEXT PRIMARY KEY,
  redemption_id TEXT NOT NULL UNIQUE,
  code_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  reason TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(discountCodes).Error)
	require.NoError(t, db.Exec(redemptions).Error)
	require.NoError(t, db.Exec(releases).Error)
	return db
}

// seedCode appends a random suffix so tests sharing the cached
// in-memory database never collide on the unique code column.
func seedCode(t *testing.T, db *gorm.DB, prefix string, globalCap *int) *models.DiscountCode {
	t.Helper()
	row := &models.DiscountCode{
		ID:                  uuid.New(),
		Code:                strings.ToUpper(prefix + "-" + uuid.NewString()[:8]),
		Kind:                enums.DiscountKindPercentage,
		Value:               decimal.NewFromInt(10),
		Active:              true,
		Stackable:           true,
		GlobalRedemptionCap: globalCap,
	}
	require.NoError(t, db.Create(row).Error)
	return row
}

func newRedemption(code *models.DiscountCode, customerID *uuid.UUID) *models.Redemption {
	return &models.Redemption{
		ID:               uuid.New(),
		CodeID:           code.ID,
		OrderID:          uuid.New(),
		CustomerID:       customerID,
		AmountDiscounted: decimal.NewFromInt(10),
	}
}

func TestRepoFindByCode(t *testing.T) {
	db := setupDiscountsTestDB(t)
	repo := NewCodeRepository(db)
	seeded := seedCode(t, db, "SAVE10", nil)

	found, err := repo.FindByCode(context.Background(), seeded.Code)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)

	_, err = repo.FindByCode(context.Background(), "MISSING")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCommitRedemptionStopsExactlyAtCap(t *testing.T) {
	db := setupDiscountsTestDB(t)
	repo := NewCodeRepository(db)
	capSize := 10
	code := seedCode(t, db, "LIMITED", &capSize)

	var committed, conflicted int
	for i := 0; i < 12; i++ {
		err := repo.CommitRedemption(context.Background(), newRedemption(code, nil))
		if err == nil {
			committed++
			continue
		}
		appErr := pkgerrors.As(err)
		require.NotNil(t, appErr, "unexpected error shape: %v", err)
		require.Equal(t, pkgerrors.CodeCapExceeded, appErr.Code())
		conflicted++
	}

	assert.Equal(t, 10, committed)
	assert.Equal(t, 2, conflicted)

	reloaded, err := repo.FindByID(context.Background(), code.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, reloaded.RedemptionCount, "counter must end exactly at the cap")

	var ledger int64
	require.NoError(t, db.Model(&models.Redemption{}).Where("code_id = ?", code.ID).Count(&ledger).Error)
	assert.EqualValues(t, 10, ledger, "one ledger row per consumed slot")
}

func TestCommitRedemptionUncappedCode(t *testing.T) {
	db := setupDiscountsTestDB(t)
	repo := NewCodeRepository(db)
	code := seedCode(t, db, "OPEN", nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.CommitRedemption(context.Background(), newRedemption(code, nil)))
	}

	reloaded, err := repo.FindByID(context.Background(), code.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.RedemptionCount)
}

func TestReleaseRedemptionReturnsQuota(t *testing.T) {
	db := setupDiscountsTestDB(t)
	repo := NewCodeRepository(db)
	capSize := 5
	code := seedCode(t, db, "SAVE10", &capSize)

	redemption := newRedemption(code, nil)
	require.NoError(t, repo.CommitRedemption(context.Background(), redemption))

	release, err := repo.ReleaseRedemption(context.Background(), redemption, "payment_failed")
	require.NoError(t, err)
	assert.Equal(t, redemption.ID, release.RedemptionID)
	assert.Equal(t, "payment_failed", release.Reason)

	reloaded, err := repo.FindByID(context.Background(), code.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.RedemptionCount)

	// ledger row survives, flagged rather than deleted
	var row models.Redemption
	require.NoError(t, db.Where("id = ?", redemption.ID).First(&row).Error)
	assert.True(t, row.Released)

	// second release of the same redemption conflicts
	_, err = repo.ReleaseRedemption(context.Background(), redemption, "payment_failed")
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())
}

func TestCountByCustomerScopesIdentity(t *testing.T) {
	db := setupDiscountsTestDB(t)
	repo := NewCodeRepository(db)
	code := seedCode(t, db, "SAVE10", nil)

	customer := uuid.New()
	require.NoError(t, repo.CommitRedemption(context.Background(), newRedemption(code, &customer)))
	require.NoError(t, repo.CommitRedemption(context.Background(), newRedemption(code, &customer)))

	guest := newRedemption(code, nil)
	session := "sess-42"
	guest.SessionID = &session
	require.NoError(t, repo.CommitRedemption(context.Background(), guest))

	count, err := repo.CountByCustomer(context.Background(), code.ID, Identity{CustomerID: &customer})
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	count, err = repo.CountByCustomer(context.Background(), code.ID, Identity{SessionID: "sess-42"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	count, err = repo.CountByCustomer(context.Background(), code.ID, Identity{})
	require.NoError(t, err)
	assert.Zero(t, count, "anonymous identity has nothing to count")

	// released rows stop counting
	_, err = repo.ReleaseRedemption(context.Background(), guest, "payment_failed")
	require.NoError(t, err)
	count, err = repo.CountByCustomer(context.Background(), code.ID, Identity{SessionID: "sess-42"})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDeactivateExpiredCodes(t *testing.T) {
	db := setupDiscountsTestDB(t)
	repo := NewCodeRepository(db)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	expired := seedCode(t, db, "OLD", nil)
	expired.EndsAt = &past
	require.NoError(t, db.Save(expired).Error)

	live := seedCode(t, db, "FRESH", nil)
	live.EndsAt = &future
	require.NoError(t, db.Save(live).Error)

	n, err := repo.DeactivateExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	reloaded, err := repo.FindByID(context.Background(), expired.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Active)

	stillLive, err := repo.FindByID(context.Background(), live.ID)
	require.NoError(t, err)
	assert.True(t, stillLive.Active)
}

func TestListRedemptionsByCodeIncludesReleasedRows(t *testing.T) {
	db := setupDiscountsTestDB(t)
	repo := NewCodeRepository(db)

	code := seedCode(t, db, "LEDGER", nil)
	other := seedCode(t, db, "OTHER", nil)
	customerID := uuid.New()

	first := newRedemption(code, &customerID)
	require.NoError(t, repo.CommitRedemption(context.Background(), first))
	second := newRedemption(code, &customerID)
	require.NoError(t, repo.CommitRedemption(context.Background(), second))
	require.NoError(t, repo.CommitRedemption(context.Background(), newRedemption(other, &customerID)))

	_, err := repo.ReleaseRedemption(context.Background(), first, "payment_failed")
	require.NoError(t, err)

	rows, err := repo.ListRedemptionsByCode(context.Background(), code.ID, nil, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2, "ledger keeps released rows")

	released := 0
	for _, row := range rows {
		assert.Equal(t, code.ID, row.CodeID)
		if row.Released {
			released++
		}
	}
	assert.Equal(t, 1, released)
}

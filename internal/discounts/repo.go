package discounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/healios-dev/healios-backend/pkg/db/models"
	pkgerrors "github.com/healios-dev/healios-backend/pkg/errors"
	"github.com/healios-dev/healios-backend/pkg/pagination"
)

// CodeRepository is the persistence surface the discount engine needs.
type CodeRepository interface {
	WithTx(tx *gorm.DB) CodeRepository
	FindByCode(ctx context.Context, code string) (*models.DiscountCode, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.DiscountCode, error)
	List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.DiscountCode, error)
	Create(ctx context.Context, code *models.DiscountCode) (*models.DiscountCode, error)
	Update(ctx context.Context, code *models.DiscountCode) (*models.DiscountCode, error)
	CountByCustomer(ctx context.Context, codeID uuid.UUID, identity Identity) (int64, error)
	CommitRedemption(ctx context.Context, redemption *models.Redemption) error
	FindRedemptionsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Redemption, error)
	ListRedemptionsByCode(ctx context.Context, codeID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Redemption, error)
	ReleaseRedemption(ctx context.Context, redemption *models.Redemption, reason string) (*models.RedemptionRelease, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// GormCodeRepository implements CodeRepository on GORM.
type GormCodeRepository struct {
	db *gorm.DB
}

// NewCodeRepository binds the repository to the provided GORM handle.
func NewCodeRepository(db *gorm.DB) *GormCodeRepository {
	return &GormCodeRepository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *GormCodeRepository) WithTx(tx *gorm.DB) CodeRepository {
	if tx == nil {
		return r
	}
	return &GormCodeRepository{db: tx}
}

// FindByCode looks up a code by its normalized string.
func (r *GormCodeRepository) FindByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	var row models.DiscountCode
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByID loads a code row by primary key.
func (r *GormCodeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.DiscountCode, error) {
	var row models.DiscountCode
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns a page of codes ordered newest first.
func (r *GormCodeRepository) List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.DiscountCode, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit)
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	var rows []models.DiscountCode
	err := q.Find(&rows).Error
	return rows, err
}

// Create inserts a new code row.
func (r *GormCodeRepository) Create(ctx context.Context, code *models.DiscountCode) (*models.DiscountCode, error) {
	if err := r.db.WithContext(ctx).Create(code).Error; err != nil {
		return nil, err
	}
	return code, nil
}

// Update persists the mutable rule fields of a code.
func (r *GormCodeRepository) Update(ctx context.Context, code *models.DiscountCode) (*models.DiscountCode, error) {
	if err := r.db.WithContext(ctx).Save(code).Error; err != nil {
		return nil, err
	}
	return code, nil
}

// CountByCustomer counts live redemptions attributable to the shopper.
// Released rows do not count against the cap. Guests match on session
// id or email, which is best-effort only.
func (r *GormCodeRepository) CountByCustomer(ctx context.Context, codeID uuid.UUID, identity Identity) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Redemption{}).
		Where("code_id = ? AND released = ?", codeID, false)

	switch {
	case identity.CustomerID != nil:
		q = q.Where("customer_id = ?", *identity.CustomerID)
	case identity.SessionID != "" && identity.Email != "":
		q = q.Where("session_id = ? OR guest_email = ?", identity.SessionID, identity.Email)
	case identity.SessionID != "":
		q = q.Where("session_id = ?", identity.SessionID)
	case identity.Email != "":
		q = q.Where("guest_email = ?", identity.Email)
	default:
		return 0, nil
	}

	var count int64
	err := q.Count(&count).Error
	return count, err
}

// CommitRedemption consumes one unit of redemption quota and inserts
// the ledger row in a single round trip per step. The counter moves
// only through the conditional UPDATE so two concurrent checkouts can
// never jointly exceed the cap; a stale advisory check upstream is
// harmless. Call inside the order-finalization transaction.
func (r *GormCodeRepository) CommitRedemption(ctx context.Context, redemption *models.Redemption) error {
	res := r.db.WithContext(ctx).Model(&models.DiscountCode{}).
		Where("id = ? AND (global_redemption_cap IS NULL OR redemption_count < global_redemption_cap)", redemption.CodeID).
		UpdateColumn("redemption_count", gorm.Expr("redemption_count + 1"))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "incrementing redemption count")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeCapExceeded, "redemption cap reached at commit")
	}

	if err := r.db.WithContext(ctx).Create(redemption).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "inserting redemption")
	}
	return nil
}

// FindRedemptionsByOrder returns the live redemptions committed for an order.
func (r *GormCodeRepository) FindRedemptionsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Redemption, error) {
	var rows []models.Redemption
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND released = ?", orderID, false).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// ListRedemptionsByCode pages the full ledger for a code, released rows
// included, newest first.
func (r *GormCodeRepository) ListRedemptionsByCode(ctx context.Context, codeID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Redemption, error) {
	q := r.db.WithContext(ctx).
		Where("code_id = ?", codeID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit)
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Redemption
	err := q.Find(&rows).Error
	return rows, err
}

// ReleaseRedemption compensates a committed redemption: it records the
// release row, flags the redemption, and hands the consumed quota back
// with a guarded decrement so the count never goes below zero. The
// redemption row itself is never deleted.
func (r *GormCodeRepository) ReleaseRedemption(ctx context.Context, redemption *models.Redemption, reason string) (*models.RedemptionRelease, error) {
	release := &models.RedemptionRelease{
		RedemptionID: redemption.ID,
		CodeID:       redemption.CodeID,
		OrderID:      redemption.OrderID,
		Reason:       reason,
	}
	if err := r.db.WithContext(ctx).Create(release).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "inserting redemption release")
	}

	res := r.db.WithContext(ctx).Model(&models.Redemption{}).
		Where("id = ? AND released = ?", redemption.ID, false).
		UpdateColumn("released", true)
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "flagging redemption released")
	}
	if res.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "redemption already released")
	}

	if err := r.db.WithContext(ctx).Model(&models.DiscountCode{}).
		Where("id = ? AND redemption_count > 0", redemption.CodeID).
		UpdateColumn("redemption_count", gorm.Expr("redemption_count - 1")).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrementing redemption count")
	}
	return release, nil
}

// DeactivateExpired flips the kill switch on codes whose window has
// closed. Used by the cron sweep.
func (r *GormCodeRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.DiscountCode{}).
		Where("active = ? AND ends_at IS NOT NULL AND ends_at < ?", true, now).
		UpdateColumn("active", false)
	return res.RowsAffected, res.Error
}

var _ CodeRepository = (*GormCodeRepository)(nil)

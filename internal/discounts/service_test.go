package discounts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/healios-dev/healios-backend/pkg/db/models"
	"github.com/healios-dev/healios-backend/pkg/enums"
	pkgerrors "github.com/healios-dev/healios-backend/pkg/errors"
	"github.com/healios-dev/healios-backend/pkg/pagination"
)

// fakeRepo implements CodeRepository in memory with the same
// commit semantics as the SQL path: the counter moves only behind a
// conditional check under one lock.
type fakeRepo struct {
	mu          sync.Mutex
	codes       map[uuid.UUID]*models.DiscountCode
	byCode      map[string]uuid.UUID
	redemptions []models.Redemption
	releases    []models.RedemptionRelease
}

func newFakeRepo(codes ...*models.DiscountCode) *fakeRepo {
	repo := &fakeRepo{
		codes:  map[uuid.UUID]*models.DiscountCode{},
		byCode: map[string]uuid.UUID{},
	}
	for _, code := range codes {
		repo.codes[code.ID] = code
		repo.byCode[code.Code] = code.ID
	}
	return repo
}

func (f *fakeRepo) WithTx(*gorm.DB) CodeRepository { return f }

func (f *fakeRepo) FindByCode(_ context.Context, code string) (*models.DiscountCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byCode[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *f.codes[id]
	return &copied, nil
}

func (f *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*models.DiscountCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.codes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeRepo) List(context.Context, *pagination.Cursor, int) ([]models.DiscountCode, error) {
	return nil, nil
}

func (f *fakeRepo) Create(_ context.Context, code *models.DiscountCode) (*models.DiscountCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if code.ID == uuid.Nil {
		code.ID = uuid.New()
	}
	f.codes[code.ID] = code
	f.byCode[code.Code] = code.ID
	return code, nil
}

func (f *fakeRepo) Update(_ context.Context, code *models.DiscountCode) (*models.DiscountCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[code.ID] = code
	return code, nil
}

func (f *fakeRepo) CountByCustomer(_ context.Context, codeID uuid.UUID, identity Identity) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, r := range f.redemptions {
		if r.CodeID != codeID || r.Released {
			continue
		}
		if identity.CustomerID != nil && r.CustomerID != nil && *r.CustomerID == *identity.CustomerID {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) CommitRedemption(_ context.Context, redemption *models.Redemption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	code, ok := f.codes[redemption.CodeID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if code.GlobalRedemptionCap != nil && code.RedemptionCount >= *code.GlobalRedemptionCap {
		return pkgerrors.New(pkgerrors.CodeCapExceeded, "redemption cap reached at commit")
	}
	code.RedemptionCount++
	redemption.ID = uuid.New()
	f.redemptions = append(f.redemptions, *redemption)
	return nil
}

func (f *fakeRepo) FindRedemptionsByOrder(_ context.Context, orderID uuid.UUID) ([]models.Redemption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []models.Redemption
	for _, r := range f.redemptions {
		if r.OrderID == orderID && !r.Released {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

func (f *fakeRepo) ListRedemptionsByCode(_ context.Context, codeID uuid.UUID, _ *pagination.Cursor, limit int) ([]models.Redemption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []models.Redemption
	for _, r := range f.redemptions {
		if r.CodeID == codeID {
			rows = append(rows, r)
		}
		if len(rows) == limit {
			break
		}
	}
	return rows, nil
}

func (f *fakeRepo) ReleaseRedemption(_ context.Context, redemption *models.Redemption, reason string) (*models.RedemptionRelease, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.redemptions {
		if f.redemptions[i].ID != redemption.ID {
			continue
		}
		if f.redemptions[i].Released {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "redemption already released")
		}
		f.redemptions[i].Released = true
		if code, ok := f.codes[redemption.CodeID]; ok && code.RedemptionCount > 0 {
			code.RedemptionCount--
		}
		release := models.RedemptionRelease{
			ID:           uuid.New(),
			RedemptionID: redemption.ID,
			CodeID:       redemption.CodeID,
			OrderID:      redemption.OrderID,
			Reason:       reason,
		}
		f.releases = append(f.releases, release)
		return &release, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, code := range f.codes {
		if code.Active && code.EndsAt != nil && code.EndsAt.Before(now) {
			code.Active = false
			n++
		}
	}
	return n, nil
}

func newTestService(t *testing.T, repo CodeRepository) Service {
	t.Helper()
	resolver, err := NewResolver(repo, nil, false, time.UTC)
	if err != nil {
		t.Fatalf("building resolver: %v", err)
	}
	eval, err := NewEvaluator(repo, 3)
	if err != nil {
		t.Fatalf("building evaluator: %v", err)
	}
	svc, err := NewService(repo, resolver, eval, nil, nil, decimal.NewFromFloat(0.15))
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	return svc
}

// commitTx satisfies the tx-required guard; the fake ignores the handle.
var commitTx = &gorm.DB{}

func TestPreviewIsSideEffectFree(t *testing.T) {
	t.Parallel()

	code := percentageCode("SAVE10", 10)
	repo := newFakeRepo(code)
	svc := newTestService(t, repo)

	for i := 0; i < 20; i++ {
		result, err := svc.Preview(context.Background(), PreviewInput{
			Code:     " save10 ",
			Cart:     testCart(200, 10),
			Identity: customerIdentity(),
		})
		if err != nil {
			t.Fatalf("preview: %v", err)
		}
		if !result.Accepted {
			t.Fatalf("expected acceptance, got %s", result.Reason)
		}
	}

	if code.RedemptionCount != 0 {
		t.Fatalf("preview must never move the redemption counter, got %d", code.RedemptionCount)
	}
	if len(repo.redemptions) != 0 {
		t.Fatalf("preview must never write ledger rows, got %d", len(repo.redemptions))
	}
}

func TestPreviewRejectionKeepsExistingStackPricing(t *testing.T) {
	t.Parallel()

	applied := percentageCode("SAVE10", 10)
	exclusive := percentageCode("EXCLUSIVE", 50)
	exclusive.Stackable = false
	repo := newFakeRepo(applied, exclusive)
	svc := newTestService(t, repo)

	result, err := svc.Preview(context.Background(), PreviewInput{
		Code:         "EXCLUSIVE",
		AppliedCodes: []string{"SAVE10"},
		Cart:         testCart(200, 0),
		Identity:     customerIdentity(),
	})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if result.Accepted {
		t.Fatalf("non-stackable candidate must be rejected")
	}
	if result.Reason != ReasonNotStackable {
		t.Fatalf("expected NOT_STACKABLE, got %s", result.Reason)
	}
	// breakdown still reflects the already-applied 10%
	if !result.Breakdown.DiscountedSubtotal.Equal(decimal.NewFromInt(180)) {
		t.Fatalf("expected existing stack pricing 180, got %s", result.Breakdown.DiscountedSubtotal)
	}
}

func TestPriceCartDropsUnresolvableCodes(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(percentageCode("SAVE10", 10))
	svc := newTestService(t, repo)

	priced, err := svc.PriceCart(context.Background(), testCart(100, 0), customerIdentity(), []string{"SAVE10", "GONE"})
	if err != nil {
		t.Fatalf("price cart: %v", err)
	}
	if len(priced.Outcomes) != 2 {
		t.Fatalf("expected two outcomes, got %d", len(priced.Outcomes))
	}
	if !priced.Breakdown.DiscountedSubtotal.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("only the resolvable code should price, got %s", priced.Breakdown.DiscountedSubtotal)
	}
}

func TestCommitConcurrentAttemptsHonorGlobalCap(t *testing.T) {
	t.Parallel()

	const attempts = 50
	const capSize = 10

	code := percentageCode("LIMITED", 10)
	limit := capSize
	code.GlobalRedemptionCap = &limit
	repo := newFakeRepo(code)
	svc := newTestService(t, repo)

	breakdown := Apply(testCart(100, 0), []*models.DiscountCode{code}, decimal.Zero)

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Commit(context.Background(), commitTx, breakdown, customerIdentity(), uuid.New())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var committed, conflicted int
	for err := range results {
		if err == nil {
			committed++
			continue
		}
		appErr := pkgerrors.As(err)
		if appErr == nil || appErr.Code() != pkgerrors.CodeCapExceeded {
			t.Fatalf("unexpected error: %v", err)
		}
		conflicted++
	}

	if committed != capSize {
		t.Fatalf("expected exactly %d successful commits, got %d", capSize, committed)
	}
	if conflicted != attempts-capSize {
		t.Fatalf("expected %d conflicts, got %d", attempts-capSize, conflicted)
	}
	if code.RedemptionCount != capSize {
		t.Fatalf("counter must end exactly at the cap, got %d", code.RedemptionCount)
	}
	if len(repo.redemptions) != capSize {
		t.Fatalf("expected %d ledger rows, got %d", capSize, len(repo.redemptions))
	}
}

func TestReleaseForOrderCompensatesCommittedRedemptions(t *testing.T) {
	t.Parallel()

	code := percentageCode("SAVE10", 10)
	limit := 5
	code.GlobalRedemptionCap = &limit
	repo := newFakeRepo(code)
	svc := newTestService(t, repo)

	orderID := uuid.New()
	breakdown := Apply(testCart(100, 0), []*models.DiscountCode{code}, decimal.Zero)
	if _, err := svc.Commit(context.Background(), commitTx, breakdown, customerIdentity(), orderID); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if code.RedemptionCount != 1 {
		t.Fatalf("expected one committed redemption, got %d", code.RedemptionCount)
	}

	released, err := svc.ReleaseForOrder(context.Background(), commitTx, orderID, "payment_failed")
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if len(released) != 1 {
		t.Fatalf("expected one release, got %d", len(released))
	}
	if code.RedemptionCount != 0 {
		t.Fatalf("released quota must return to the pool, got %d", code.RedemptionCount)
	}
	if !repo.redemptions[0].Released {
		t.Fatalf("redemption row must be flagged released, never deleted")
	}

	// releasing twice is a no-op because the rows are already flagged
	released, err = svc.ReleaseForOrder(context.Background(), commitTx, orderID, "payment_failed")
	if err != nil {
		t.Fatalf("second release: %v", err)
	}
	if len(released) != 0 {
		t.Fatalf("second release must find nothing live, got %d", len(released))
	}
}

func TestAdminCreateMatchesResolverCasing(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	input := CodeInput{
		Code:      "  Save10 ",
		Kind:      enums.DiscountKindPercentage,
		Value:     decimal.NewFromInt(10),
		Stackable: true,
	}

	admin, err := NewAdminService(repo, true)
	if err != nil {
		t.Fatalf("building admin service: %v", err)
	}
	created, err := admin.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Code != "Save10" {
		t.Fatalf("case-sensitive mode must keep the submitted casing, got %q", created.Code)
	}

	resolver, err := NewResolver(repo, nil, true, time.UTC)
	if err != nil {
		t.Fatalf("building resolver: %v", err)
	}
	if _, err := resolver.Resolve(context.Background(), "Save10"); err != nil {
		t.Fatalf("created code must resolve under the same setting: %v", err)
	}

	// The default mode keeps uppercasing on both sides.
	insensitive, err := NewAdminService(newFakeRepo(), false)
	if err != nil {
		t.Fatalf("building admin service: %v", err)
	}
	created, err = insensitive.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Code != "SAVE10" {
		t.Fatalf("default mode must uppercase, got %q", created.Code)
	}
}

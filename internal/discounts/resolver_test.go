package discounts

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/healios-dev/healios-backend/pkg/db/models"
	pkgerrors "github.com/healios-dev/healios-backend/pkg/errors"
)

type stubCodeFinder struct {
	codes map[string]*models.DiscountCode
}

func (s *stubCodeFinder) FindByCode(_ context.Context, code string) (*models.DiscountCode, error) {
	if row, ok := s.codes[code]; ok {
		copied := *row
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func newTestResolver(t *testing.T, codes ...*models.DiscountCode) *Resolver {
	t.Helper()
	finder := &stubCodeFinder{codes: map[string]*models.DiscountCode{}}
	for _, code := range codes {
		finder.codes[code.Code] = code
	}
	resolver, err := NewResolver(finder, nil, false, time.UTC)
	if err != nil {
		t.Fatalf("building resolver: %v", err)
	}
	return resolver
}

func TestResolveNormalizesCaseAndWhitespace(t *testing.T) {
	t.Parallel()

	resolver := newTestResolver(t, percentageCode("SAVE10", 10))

	for _, raw := range []string{" save10 ", "SAVE10", "Save10", "\tsAvE10\n"} {
		code, err := resolver.Resolve(context.Background(), raw)
		if err != nil {
			t.Fatalf("expected %q to resolve: %v", raw, err)
		}
		if code.Code != "SAVE10" {
			t.Fatalf("expected SAVE10, got %s", code.Code)
		}
	}
}

func TestResolveCollapsesMissShapesToNotFound(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-48 * time.Hour)
	future := time.Now().Add(48 * time.Hour)

	inactive := percentageCode("DEAD", 10)
	inactive.Active = false
	expired := percentageCode("EXPIRED", 10)
	expired.EndsAt = &past
	notStarted := percentageCode("SOON", 10)
	notStarted.StartsAt = &future

	resolver := newTestResolver(t, inactive, expired, notStarted)

	for _, raw := range []string{"NOPE", "DEAD", "EXPIRED", "SOON", "", "   "} {
		_, err := resolver.Resolve(context.Background(), raw)
		if err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
		appErr := pkgerrors.As(err)
		if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("expected NOT_FOUND for %q, got %v", raw, err)
		}
		// one generic message regardless of why, to avoid enumeration
		if appErr.Message() != "invalid or expired code" {
			t.Fatalf("unexpected message %q", appErr.Message())
		}
	}
}

func TestResolveRespectsActivationWindow(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 30, 23, 59, 59, 0, time.UTC)
	code := percentageCode("JUNE", 10)
	code.StartsAt = &start
	code.EndsAt = &end

	resolver := newTestResolver(t, code)
	resolver.now = func() time.Time { return time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC) }

	if _, err := resolver.Resolve(context.Background(), "june"); err != nil {
		t.Fatalf("code should resolve inside its window: %v", err)
	}

	resolver.now = func() time.Time { return time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC) }
	if _, err := resolver.Resolve(context.Background(), "june"); err == nil {
		t.Fatalf("code should not resolve after its window")
	}
}

func TestResolveCaseSensitiveMode(t *testing.T) {
	t.Parallel()

	finder := &stubCodeFinder{codes: map[string]*models.DiscountCode{
		"Save10": percentageCode("Save10", 10),
	}}
	resolver, err := NewResolver(finder, nil, true, time.UTC)
	if err != nil {
		t.Fatalf("building resolver: %v", err)
	}

	if _, err := resolver.Resolve(context.Background(), "Save10"); err != nil {
		t.Fatalf("exact case should resolve: %v", err)
	}
	if _, err := resolver.Resolve(context.Background(), "SAVE10"); err == nil {
		t.Fatalf("wrong case should not resolve in case-sensitive mode")
	}
}

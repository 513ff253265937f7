package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/healios-dev/healios-backend/pkg/logger"
)

type codeDeactivator interface {
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// DiscountWindowJobParams configure the expired code sweep.
type DiscountWindowJobParams struct {
	Logger *logger.Logger
	Codes  codeDeactivator
}

// NewDiscountWindowJob builds the cron job that deactivates codes whose
// activation window has closed. Resolution already rejects them at read
// time; the sweep keeps the admin listing and the active flag honest.
func NewDiscountWindowJob(params DiscountWindowJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Codes == nil {
		return nil, fmt.Errorf("code repository required")
	}
	return &discountWindowJob{
		logg:  params.Logger,
		codes: params.Codes,
		now:   time.Now,
	}, nil
}

type discountWindowJob struct {
	logg  *logger.Logger
	codes codeDeactivator
	now   func() time.Time
}

func (j *discountWindowJob) Name() string { return "discount-windows" }

func (j *discountWindowJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	deactivated, err := j.codes.DeactivateExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("deactivate expired codes: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": deactivated})
	j.logg.Info(logCtx, "discount window sweep complete")
	return nil
}

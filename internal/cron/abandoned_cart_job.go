package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/healios-dev/healios-backend/internal/cart"
	"github.com/healios-dev/healios-backend/pkg/db/models"
	"github.com/healios-dev/healios-backend/pkg/enums"
	"github.com/healios-dev/healios-backend/pkg/logger"
	"github.com/healios-dev/healios-backend/pkg/outbox"
	"github.com/healios-dev/healios-backend/pkg/outbox/payloads"
)

const (
	defaultAbandonAfter = 72 * time.Hour
	abandonSweepBatch   = 200
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// AbandonedCartJobParams configure the stale cart sweep.
type AbandonedCartJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Carts        cart.CartRepository
	Outbox       outboxEmitter
	AbandonAfter time.Duration
}

// NewAbandonedCartJob builds the cron job that flags idle active carts
// and emits a cart.abandoned event for each.
func NewAbandonedCartJob(params AbandonedCartJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	abandonAfter := params.AbandonAfter
	if abandonAfter <= 0 {
		abandonAfter = defaultAbandonAfter
	}
	return &abandonedCartJob{
		logg:         params.Logger,
		db:           params.DB,
		carts:        params.Carts,
		outbox:       params.Outbox,
		abandonAfter: abandonAfter,
		now:          time.Now,
	}, nil
}

type abandonedCartJob struct {
	logg         *logger.Logger
	db           txRunner
	carts        cart.CartRepository
	outbox       outboxEmitter
	abandonAfter time.Duration
	now          func() time.Time
}

func (j *abandonedCartJob) Name() string { return "abandoned-carts" }

func (j *abandonedCartJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.abandonAfter)
	stale, err := j.carts.FindStaleActive(ctx, cutoff, abandonSweepBatch)
	if err != nil {
		return fmt.Errorf("query stale carts: %w", err)
	}

	count := 0
	for _, record := range stale {
		flagged, err := j.abandon(ctx, record)
		if err != nil {
			return err
		}
		if flagged {
			count++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"cutoff": cutoff, "count": count})
	j.logg.Info(logCtx, "abandoned cart sweep complete")
	return nil
}

// abandon flips one cart inside its own transaction. The status guard in
// MarkAbandoned makes the sweep safe to rerun: a cart that converted or
// was already flagged since the query is skipped without an event.
func (j *abandonedCartJob) abandon(ctx context.Context, record models.CartRecord) (bool, error) {
	at := j.now().UTC()
	flagged := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := j.carts.WithTx(tx).MarkAbandoned(ctx, record.ID, at)
		if err != nil {
			return fmt.Errorf("mark cart abandoned: %w", err)
		}
		if !ok {
			return nil
		}
		flagged = true

		email := ""
		if record.Email != nil {
			email = *record.Email
		}
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCartAbandoned,
			AggregateType: enums.AggregateCart,
			AggregateID:   record.ID,
			Version:       1,
			OccurredAt:    at,
			Data: payloads.CartAbandonedEvent{
				CartID:      record.ID,
				CustomerID:  record.CustomerID,
				Email:       email,
				AbandonedAt: at,
			},
		})
	})
	return flagged, err
}

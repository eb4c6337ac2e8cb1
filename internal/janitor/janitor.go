// Package janitor periodically expires overdue escrows. Expiry is lazy and
// callable by anyone, so the sweep only bounds how long an overdue record
// can sit unexpired.
package janitor

import (
	"context"
	"time"

	"github.com/escrow-ledger/backend/internal/models"
	"github.com/escrow-ledger/backend/internal/services"
	"go.uber.org/zap"
)

type Sweeper interface {
	SweepExpired(ctx context.Context, after models.OverdueCursor, limit int) (services.SweepResult, error)
}

type Janitor struct {
	sweeper  Sweeper
	lease    Lease
	interval time.Duration
	batch    int
	log      *zap.Logger
}

func New(sweeper Sweeper, lease Lease, interval time.Duration, batch int, log *zap.Logger) *Janitor {
	if lease == nil {
		lease = AlwaysLease{}
	}
	if batch <= 0 {
		batch = 100
	}
	return &Janitor{sweeper: sweeper, lease: lease, interval: interval, batch: batch, log: log}
}

// Run sweeps every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	defer func() {
		if err := j.lease.Release(context.Background()); err != nil {
			j.log.Warn("failed to release janitor lease", zap.Error(err))
		}
	}()

	for {
		select {
		case <-ticker.C:
			j.Tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Tick runs one sweep if this replica holds the lease. The overdue set is
// walked page by page from the oldest deadline, so records that keep failing
// are passed over rather than rescanned.
func (j *Janitor) Tick(ctx context.Context) int {
	held, err := j.lease.Acquire(ctx)
	if err != nil {
		j.log.Warn("janitor lease unavailable", zap.Error(err))
		return 0
	}
	if !held {
		j.log.Debug("janitor lease held elsewhere")
		return 0
	}

	var (
		total  int
		cursor models.OverdueCursor
	)
	for ctx.Err() == nil {
		res, err := j.sweeper.SweepExpired(ctx, cursor, j.batch)
		if err != nil {
			j.log.Error("expire sweep failed", zap.Error(err))
			break
		}
		total += res.Expired
		if res.Scanned < j.batch {
			break
		}
		cursor = res.Next
	}

	if total > 0 {
		j.log.Info("expired overdue escrows", zap.Int("count", total))
	}
	return total
}

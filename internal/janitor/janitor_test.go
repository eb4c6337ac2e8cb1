package janitor

import (
	"context"
	"errors"
	"testing"

	"github.com/escrow-ledger/backend/internal/models"
	"github.com/escrow-ledger/backend/internal/services"
	"go.uber.org/zap"
)

// fakeSweeper serves overdue ids 1..len(fails) in order; ids marked in fails
// never expire.
type fakeSweeper struct {
	fails   []bool
	expired map[int64]bool
	calls   int
	err     error
}

func newFakeSweeper(backlog int, failing ...int64) *fakeSweeper {
	s := &fakeSweeper{fails: make([]bool, backlog), expired: make(map[int64]bool)}
	for _, id := range failing {
		s.fails[id-1] = true
	}
	return s
}

func (f *fakeSweeper) SweepExpired(ctx context.Context, after models.OverdueCursor, limit int) (services.SweepResult, error) {
	f.calls++
	res := services.SweepResult{Next: after}
	if f.err != nil {
		return res, f.err
	}
	for id := after.ID + 1; id <= int64(len(f.fails)) && res.Scanned < limit; id++ {
		if f.expired[id] {
			continue
		}
		res.Scanned++
		res.Next = models.OverdueCursor{ID: id}
		if !f.fails[id-1] {
			f.expired[id] = true
			res.Expired++
		}
	}
	return res, nil
}

type fakeLease struct {
	held bool
	err  error
}

func (l fakeLease) Acquire(context.Context) (bool, error) { return l.held, l.err }
func (l fakeLease) Release(context.Context) error         { return nil }

func TestTick(t *testing.T) {
	tests := []struct {
		name      string
		lease     Lease
		sweeper   *fakeSweeper
		want      int
		wantCalls int
	}{
		{"drains backlog in batches", AlwaysLease{}, newFakeSweeper(25), 25, 3},
		{"exact batch needs one empty follow-up", AlwaysLease{}, newFakeSweeper(20), 20, 3},
		{"nothing overdue", AlwaysLease{}, newFakeSweeper(0), 0, 1},
		{"lease held elsewhere", fakeLease{held: false}, newFakeSweeper(25), 0, 0},
		{"lease error", fakeLease{err: errors.New("redis down")}, newFakeSweeper(25), 0, 0},
		{"sweep error stops", AlwaysLease{}, &fakeSweeper{err: errors.New("db down")}, 0, 1},
		{
			"full batch of failures does not hide newer records",
			AlwaysLease{},
			newFakeSweeper(14, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10),
			4, 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := New(tt.sweeper, tt.lease, 0, 10, zap.NewNop())

			if got := j.Tick(context.Background()); got != tt.want {
				t.Errorf("Tick() = %d, want %d", got, tt.want)
			}
			if tt.sweeper.calls != tt.wantCalls {
				t.Errorf("sweeps = %d, want %d", tt.sweeper.calls, tt.wantCalls)
			}
		})
	}
}

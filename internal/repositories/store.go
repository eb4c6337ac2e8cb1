package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/escrow-ledger/backend/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict means a conditional update found the record in an unexpected status.
	ErrConflict = errors.New("status conflict")
)

const defaultListLimit = 50

// EscrowStore is the escrow record store: id -> record plus append-only
// payer and payee indices.
type EscrowStore interface {
	// RunInTx runs fn as one all-or-nothing unit. Every write made through tx
	// is discarded when fn returns an error. The context passed to fn carries
	// the transaction so collaborators on the same database can join it.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx EscrowTx) error) error

	GetByID(ctx context.Context, id int64) (*models.EscrowRecord, error)
	ListByPayer(ctx context.Context, payer string, f models.EscrowFilter) ([]models.EscrowRecord, error)
	ListByPayee(ctx context.Context, payee string, f models.EscrowFilter) ([]models.EscrowRecord, error)
	// ListOverdue returns non-terminal records with deadline <= now that sort
	// after the cursor, ordered by (deadline, id).
	ListOverdue(ctx context.Context, now time.Time, after models.OverdueCursor, limit int) ([]models.EscrowRecord, error)
	ListEvents(ctx context.Context, escrowID int64) ([]models.EscrowEvent, error)
}

type EscrowTx interface {
	// Insert assigns rec.ID and appends the id to both indices.
	Insert(ctx context.Context, rec *models.EscrowRecord) error
	// GetForUpdate reads a record and holds it until the unit ends.
	GetForUpdate(ctx context.Context, id int64) (*models.EscrowRecord, error)
	// Update writes rec only if the stored status still equals fromStatus.
	Update(ctx context.Context, rec *models.EscrowRecord, fromStatus string) error
	// AppendEvent assigns ev.Seq.
	AppendEvent(ctx context.Context, ev *models.EscrowEvent) error
}

func normalizeFilter(f models.EscrowFilter) models.EscrowFilter {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

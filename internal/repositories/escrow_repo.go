package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/escrow-ledger/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EscrowRepo struct {
	pool *pgxpool.Pool
}

func NewEscrowRepo(pool *pgxpool.Pool) *EscrowRepo {
	return &EscrowRepo{pool: pool}
}

const escrowColumns = `
	id, payer, payee, amount, protocol_fee, fee_bps, status, payload,
	created_at, deadline, confirmed_at, settled_at,
	payout_amount, fee_retained, expire_settlement`

func scanEscrow(row pgx.Row) (*models.EscrowRecord, error) {
	var e models.EscrowRecord
	err := row.Scan(&e.ID, &e.Payer, &e.Payee, &e.Amount, &e.ProtocolFee, &e.FeeBPS, &e.Status, &e.Payload,
		&e.CreatedAt, &e.Deadline, &e.ConfirmedAt, &e.SettledAt,
		&e.PayoutAmount, &e.FeeRetained, &e.ExpireSettlement)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func collectEscrows(rows pgx.Rows) ([]models.EscrowRecord, error) {
	defer rows.Close()

	out := []models.EscrowRecord{}
	for rows.Next() {
		e, err := scanEscrow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *EscrowRepo) RunInTx(ctx context.Context, fn func(ctx context.Context, tx EscrowTx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin escrow tx: %w", err)
	}

	txCtx := WithTx(ctx, tx)
	if err := fn(txCtx, &pgEscrowTx{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit escrow tx: %w", err)
	}
	return nil
}

type pgEscrowTx struct {
	tx pgx.Tx
}

func (t *pgEscrowTx) Insert(ctx context.Context, e *models.EscrowRecord) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO escrows (payer, payee, amount, protocol_fee, fee_bps, status, payload, created_at, deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, e.Payer, e.Payee, e.Amount, e.ProtocolFee, e.FeeBPS, e.Status, e.Payload, e.CreatedAt, e.Deadline).Scan(&e.ID)
}

func (t *pgEscrowTx) GetForUpdate(ctx context.Context, id int64) (*models.EscrowRecord, error) {
	return scanEscrow(t.tx.QueryRow(ctx, `SELECT `+escrowColumns+` FROM escrows WHERE id = $1 FOR UPDATE`, id))
}

func (t *pgEscrowTx) Update(ctx context.Context, e *models.EscrowRecord, fromStatus string) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE escrows SET status = $1, payload = $2, confirmed_at = $3, settled_at = $4,
		       payout_amount = $5, fee_retained = $6, expire_settlement = $7
		WHERE id = $8 AND status = $9
	`, e.Status, e.Payload, e.ConfirmedAt, e.SettledAt,
		e.PayoutAmount, e.FeeRetained, e.ExpireSettlement,
		e.ID, fromStatus)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("%w: escrow %d not in status %s", ErrConflict, e.ID, fromStatus)
	}
	return nil
}

func (t *pgEscrowTx) AppendEvent(ctx context.Context, ev *models.EscrowEvent) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO escrow_events (escrow_id, type, attributes, occurred_at)
		VALUES ($1, $2, $3, $4)
		RETURNING seq
	`, ev.EscrowID, ev.Type, ev.Attributes, ev.OccurredAt).Scan(&ev.Seq)
}

func (r *EscrowRepo) GetByID(ctx context.Context, id int64) (*models.EscrowRecord, error) {
	return scanEscrow(r.pool.QueryRow(ctx, `SELECT `+escrowColumns+` FROM escrows WHERE id = $1`, id))
}

func (r *EscrowRepo) ListByPayer(ctx context.Context, payer string, f models.EscrowFilter) ([]models.EscrowRecord, error) {
	f = normalizeFilter(f)
	rows, err := r.pool.Query(ctx, `
		SELECT `+escrowColumns+` FROM escrows WHERE payer = $1
		ORDER BY id LIMIT $2 OFFSET $3
	`, payer, f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	return collectEscrows(rows)
}

func (r *EscrowRepo) ListByPayee(ctx context.Context, payee string, f models.EscrowFilter) ([]models.EscrowRecord, error) {
	f = normalizeFilter(f)
	rows, err := r.pool.Query(ctx, `
		SELECT `+escrowColumns+` FROM escrows WHERE payee = $1
		ORDER BY id LIMIT $2 OFFSET $3
	`, payee, f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	return collectEscrows(rows)
}

func (r *EscrowRepo) ListOverdue(ctx context.Context, now time.Time, after models.OverdueCursor, limit int) ([]models.EscrowRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+escrowColumns+` FROM escrows
		WHERE status IN ('pending', 'confirmed') AND deadline <= $1
		  AND (deadline, id) > ($2, $3)
		ORDER BY deadline, id LIMIT $4
	`, now, after.Deadline, after.ID, limit)
	if err != nil {
		return nil, err
	}
	return collectEscrows(rows)
}

func (r *EscrowRepo) ListEvents(ctx context.Context, escrowID int64) ([]models.EscrowEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT seq, escrow_id, type, attributes, occurred_at
		FROM escrow_events WHERE escrow_id = $1 ORDER BY seq
	`, escrowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	evs := []models.EscrowEvent{}
	for rows.Next() {
		var ev models.EscrowEvent
		if err := rows.Scan(&ev.Seq, &ev.EscrowID, &ev.Type, &ev.Attributes, &ev.OccurredAt); err != nil {
			return nil, err
		}
		evs = append(evs, ev)
	}
	return evs, rows.Err()
}

package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/escrow-ledger/backend/internal/gateway"
	"github.com/escrow-ledger/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountRepo is the Postgres-backed value transfer gateway. Called with a
// context from EscrowRepo.RunInTx, transfers commit or roll back together
// with the escrow state change.
type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

var (
	_ gateway.Gateway       = (*AccountRepo)(nil)
	_ gateway.Transactional = (*AccountRepo)(nil)
	_ gateway.Accounts      = (*AccountRepo)(nil)
)

func (r *AccountRepo) JoinsStoreTx() bool { return true }

func (r *AccountRepo) Transfer(ctx context.Context, from, to string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: non-positive amount %d", gateway.ErrTransferRejected, amount)
	}
	if from == to {
		return fmt.Errorf("%w: self transfer", gateway.ErrTransferRejected)
	}

	return inTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO accounts (id) VALUES ($1), ($2) ON CONFLICT (id) DO NOTHING
		`, from, to); err != nil {
			return err
		}

		var blocked bool
		if err := tx.QueryRow(ctx, `
			SELECT bool_or(blocked) FROM accounts WHERE id IN ($1, $2)
		`, from, to).Scan(&blocked); err != nil {
			return err
		}
		if blocked {
			return fmt.Errorf("%w: account blocked", gateway.ErrTransferRejected)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE accounts SET balance = balance - $1, updated_at = now()
			WHERE id = $2 AND balance >= $1
		`, amount, from)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s cannot cover %d", gateway.ErrInsufficientFunds, from, amount)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE accounts SET balance = balance + $1, updated_at = now() WHERE id = $2
		`, amount, to); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO transfers (from_account, to_account, amount) VALUES ($1, $2, $3)
		`, from, to, amount)
		return err
	})
}

func (r *AccountRepo) GetByID(ctx context.Context, id string) (*models.Account, error) {
	var a models.Account
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, balance, blocked, created_at, updated_at FROM accounts WHERE id = $1
	`, id).Scan(&a.ID, &a.Balance, &a.Blocked, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", gateway.ErrUnknownAccount, id)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreditDeposit records an external deposit and credits the account once per
// txRef. It reports false when txRef was already credited.
func (r *AccountRepo) CreditDeposit(ctx context.Context, d *models.Deposit) (bool, error) {
	credited := false
	err := inTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO deposits (account_id, amount, tx_ref, from_addr)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (tx_ref) DO NOTHING
		`, d.AccountID, d.Amount, d.TxRef, d.FromAddr)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO accounts (id, balance) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET balance = accounts.balance + EXCLUDED.balance, updated_at = now()
		`, d.AccountID, d.Amount); err != nil {
			return err
		}
		credited = true
		return nil
	})
	return credited, err
}

func (r *AccountRepo) SetBlocked(ctx context.Context, id string, blocked bool) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO accounts (id, blocked) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET blocked = EXCLUDED.blocked, updated_at = now()
	`, id, blocked)
	return err
}

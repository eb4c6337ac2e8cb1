// Package gateway defines the value transfer contract the escrow ledger moves
// funds through.
package gateway

import (
	"context"
	"errors"

	"github.com/escrow-ledger/backend/internal/models"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrTransferRejected  = errors.New("transfer rejected")
	ErrUnknownAccount    = errors.New("unknown account")
)

// Gateway moves amount from one account to another. Any error aborts the
// enclosing ledger operation; the gateway never retries.
type Gateway interface {
	Transfer(ctx context.Context, from, to string, amount int64) error
}

// Accounts is implemented by gateways that keep account state the ledger can
// report and administer. A blocked account makes every transfer touching it
// fail with ErrTransferRejected.
type Accounts interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	SetBlocked(ctx context.Context, id string, blocked bool) error
}

// Transactional is implemented by gateways whose transfers run inside the
// store unit's transaction. Their transfers roll back with the unit and are
// never reversed by hand.
type Transactional interface {
	JoinsStoreTx() bool
}

package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/escrow-ledger/backend/internal/models"
)

// MemoryGateway is an in-process account book. Accounts listed in overdraft
// may go negative; it is used for the ledger's own mint/sink accounts in tests
// and in STORE_BACKEND=memory deployments.
type MemoryGateway struct {
	mu        sync.Mutex
	balances  map[string]int64
	overdraft map[string]bool
	rejects   map[string]bool
	created   map[string]time.Time
}

var _ Accounts = (*MemoryGateway)(nil)

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		balances:  make(map[string]int64),
		overdraft: make(map[string]bool),
		rejects:   make(map[string]bool),
		created:   make(map[string]time.Time),
	}
}

func (g *MemoryGateway) Transfer(ctx context.Context, from, to string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: non-positive amount %d", ErrTransferRejected, amount)
	}
	if from == to {
		return fmt.Errorf("%w: self transfer", ErrTransferRejected)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.rejects[from] || g.rejects[to] {
		return fmt.Errorf("%w: account blocked", ErrTransferRejected)
	}
	if !g.overdraft[from] && g.balances[from] < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, from, g.balances[from], amount)
	}

	g.touch(from)
	g.touch(to)
	g.balances[from] -= amount
	g.balances[to] += amount
	return nil
}

func (g *MemoryGateway) Balance(ctx context.Context, account string) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.balances[account], nil
}

// Credit adds funds to account from outside the book.
func (g *MemoryGateway) Credit(account string, amount int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.touch(account)
	g.balances[account] += amount
}

// Seed credits every account in balances.
func (g *MemoryGateway) Seed(balances map[string]int64) {
	for account, amount := range balances {
		g.Credit(account, amount)
	}
}

func (g *MemoryGateway) touch(account string) {
	if _, ok := g.created[account]; !ok {
		g.created[account] = time.Now()
	}
}

func (g *MemoryGateway) GetByID(ctx context.Context, id string) (*models.Account, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	created, ok := g.created[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, id)
	}
	return &models.Account{
		ID:        id,
		Balance:   g.balances[id],
		Blocked:   g.rejects[id],
		CreatedAt: created,
		UpdatedAt: created,
	}, nil
}

func (g *MemoryGateway) SetBlocked(ctx context.Context, id string, blocked bool) error {
	g.Block(id, blocked)
	return nil
}

func (g *MemoryGateway) AllowOverdraft(account string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.overdraft[account] = true
}

// Block makes every transfer touching account fail with ErrTransferRejected.
func (g *MemoryGateway) Block(account string, blocked bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.touch(account)
	g.rejects[account] = blocked
}

// Snapshot returns a copy of all non-zero balances.
func (g *MemoryGateway) Snapshot() map[string]int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]int64, len(g.balances))
	for k, v := range g.balances {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

package gateway

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryGatewayTransfer(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		setup   func(g *MemoryGateway)
		from    string
		to      string
		amount  int64
		wantErr error
	}{
		{"ok", func(g *MemoryGateway) { g.Credit("alice", 100) }, "alice", "bob", 60, nil},
		{"exact balance", func(g *MemoryGateway) { g.Credit("alice", 100) }, "alice", "bob", 100, nil},
		{"insufficient", func(g *MemoryGateway) { g.Credit("alice", 10) }, "alice", "bob", 11, ErrInsufficientFunds},
		{"zero amount", func(g *MemoryGateway) { g.Credit("alice", 10) }, "alice", "bob", 0, ErrTransferRejected},
		{"self", func(g *MemoryGateway) { g.Credit("alice", 10) }, "alice", "alice", 5, ErrTransferRejected},
		{"blocked payee", func(g *MemoryGateway) { g.Credit("alice", 10); g.Block("bob", true) }, "alice", "bob", 5, ErrTransferRejected},
		{"overdraft", func(g *MemoryGateway) { g.AllowOverdraft("mint") }, "mint", "bob", 500, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewMemoryGateway()
			tt.setup(g)
			before := g.Snapshot()

			err := g.Transfer(ctx, tt.from, tt.to, tt.amount)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Transfer error = %v, want %v", err, tt.wantErr)
			}

			after := g.Snapshot()
			if tt.wantErr != nil {
				for k, v := range before {
					if after[k] != v {
						t.Errorf("balance of %s changed on failed transfer: %d -> %d", k, v, after[k])
					}
				}
				return
			}
			if after[tt.from] != before[tt.from]-tt.amount {
				t.Errorf("from balance = %d, want %d", after[tt.from], before[tt.from]-tt.amount)
			}
			if after[tt.to] != before[tt.to]+tt.amount {
				t.Errorf("to balance = %d, want %d", after[tt.to], before[tt.to]+tt.amount)
			}
		})
	}
}

func TestMemoryGatewayAccounts(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()
	g.Seed(map[string]int64{"alice": 100, "bob": 0})

	if _, err := g.GetByID(ctx, "carol"); !errors.Is(err, ErrUnknownAccount) {
		t.Fatalf("GetByID(carol) error = %v, want ErrUnknownAccount", err)
	}
	bob, err := g.GetByID(ctx, "bob")
	if err != nil || bob.Balance != 0 || bob.Blocked {
		t.Fatalf("GetByID(bob) = %+v, %v", bob, err)
	}

	if err := g.SetBlocked(ctx, "bob", true); err != nil {
		t.Fatal(err)
	}
	if err := g.Transfer(ctx, "alice", "bob", 10); !errors.Is(err, ErrTransferRejected) {
		t.Fatalf("transfer to blocked account: %v, want ErrTransferRejected", err)
	}
	bob, _ = g.GetByID(ctx, "bob")
	if !bob.Blocked {
		t.Error("bob should be reported blocked")
	}

	_ = g.SetBlocked(ctx, "bob", false)
	if err := g.Transfer(ctx, "alice", "bob", 10); err != nil {
		t.Fatalf("transfer after unblock: %v", err)
	}
	alice, _ := g.GetByID(ctx, "alice")
	if alice.Balance != 90 {
		t.Errorf("alice balance = %d, want 90", alice.Balance)
	}
}

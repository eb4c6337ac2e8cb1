package repositories

import (
	"context"
	"testing"

	"github.com/escrow-ledger/backend/internal/models"
	"github.com/google/uuid"
)

func TestMemoryAuditGetByEntity(t *testing.T) {
	r := NewMemoryAuditRepo()
	ctx := context.Background()
	for _, e := range []models.AuditLog{
		{Action: "escrow_created", EntityType: "escrow", EntityID: 1},
		{Action: "escrow_created", EntityType: "escrow", EntityID: 2},
		{Action: "escrow_pending_to_confirmed", EntityType: "escrow", EntityID: 1},
		{Action: "account_blocked", EntityType: "account"},
		{Action: "escrow_confirmed_to_released", EntityType: "escrow", EntityID: 1},
	} {
		if err := r.Log(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name          string
		limit, offset int
		want          []string
	}{
		{"all", 0, 0, []string{"escrow_created", "escrow_pending_to_confirmed", "escrow_confirmed_to_released"}},
		{"first", 1, 0, []string{"escrow_created"}},
		{"offset", 5, 1, []string{"escrow_pending_to_confirmed", "escrow_confirmed_to_released"}},
		{"past end", 5, 3, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.GetByEntity(ctx, "escrow", 1, tt.limit, tt.offset)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d entries, want %d", len(got), len(tt.want))
			}
			for i, e := range got {
				if e.Action != tt.want[i] {
					t.Errorf("entry %d action = %s, want %s", i, e.Action, tt.want[i])
				}
				if e.ID == uuid.Nil || e.CreatedAt.IsZero() {
					t.Errorf("entry %d missing id or timestamp", i)
				}
			}
		})
	}

	if r.Len() != 5 {
		t.Errorf("Len() = %d, want 5", r.Len())
	}
}

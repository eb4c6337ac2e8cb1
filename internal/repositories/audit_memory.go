package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/escrow-ledger/backend/internal/models"
	"github.com/google/uuid"
)

// MemoryAuditRepo is the audit log of the memory backend.
type MemoryAuditRepo struct {
	mu      sync.RWMutex
	entries []models.AuditLog
}

func NewMemoryAuditRepo() *MemoryAuditRepo {
	return &MemoryAuditRepo{}
}

func (r *MemoryAuditRepo) Log(ctx context.Context, entry models.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *MemoryAuditRepo) GetByEntity(ctx context.Context, entityType string, entityID int64, limit, offset int) ([]models.AuditLog, error) {
	f := normalizeFilter(models.EscrowFilter{Limit: limit, Offset: offset})

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.AuditLog{}
	skipped := 0
	for _, e := range r.entries {
		if e.EntityType != entityType || e.EntityID != entityID {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		if len(out) == f.Limit {
			break
		}
		out = append(out, e)
	}
	return out, nil
}

// Len reports how many entries were logged.
func (r *MemoryAuditRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

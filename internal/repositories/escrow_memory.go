package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/escrow-ledger/backend/internal/models"
)

// MemoryEscrowRepo keeps records in an arena keyed by a monotonically
// increasing id. Units run one at a time; their writes are staged and only
// applied when fn succeeds. Ids and sequence numbers taken by an aborted
// unit are not reused.
type MemoryEscrowRepo struct {
	txMu sync.Mutex

	mu      sync.RWMutex
	nextID  int64
	nextSeq int64
	records map[int64]*models.EscrowRecord
	byPayer map[string][]int64
	byPayee map[string][]int64
	events  map[int64][]models.EscrowEvent
}

func NewMemoryEscrowRepo() *MemoryEscrowRepo {
	return &MemoryEscrowRepo{
		records: make(map[int64]*models.EscrowRecord),
		byPayer: make(map[string][]int64),
		byPayee: make(map[string][]int64),
		events:  make(map[int64][]models.EscrowEvent),
	}
}

type memTx struct {
	repo    *MemoryEscrowRepo
	staged  map[int64]*models.EscrowRecord
	order   []int64 // staged ids in first-touch order
	inserts map[int64]bool
	events  []models.EscrowEvent
}

func (r *MemoryEscrowRepo) RunInTx(ctx context.Context, fn func(ctx context.Context, tx EscrowTx) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	tx := &memTx{
		repo:    r,
		staged:  make(map[int64]*models.EscrowRecord),
		inserts: make(map[int64]bool),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.commit(tx)
	return nil
}

func (r *MemoryEscrowRepo) commit(tx *memTx) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range tx.order {
		rec := tx.staged[id]
		r.records[id] = rec
		if tx.inserts[id] {
			r.byPayer[rec.Payer] = append(r.byPayer[rec.Payer], id)
			r.byPayee[rec.Payee] = append(r.byPayee[rec.Payee], id)
		}
	}
	for _, ev := range tx.events {
		r.events[ev.EscrowID] = append(r.events[ev.EscrowID], ev)
	}
}

func (t *memTx) stage(rec *models.EscrowRecord) {
	if _, ok := t.staged[rec.ID]; !ok {
		t.order = append(t.order, rec.ID)
	}
	t.staged[rec.ID] = rec.Clone()
}

func (t *memTx) Insert(ctx context.Context, rec *models.EscrowRecord) error {
	t.repo.mu.Lock()
	t.repo.nextID++
	rec.ID = t.repo.nextID
	t.repo.mu.Unlock()

	t.inserts[rec.ID] = true
	t.stage(rec)
	return nil
}

func (t *memTx) current(id int64) (*models.EscrowRecord, bool) {
	if rec, ok := t.staged[id]; ok {
		return rec, true
	}
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()
	rec, ok := t.repo.records[id]
	return rec, ok
}

func (t *memTx) GetForUpdate(ctx context.Context, id int64) (*models.EscrowRecord, error) {
	rec, ok := t.current(id)
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (t *memTx) Update(ctx context.Context, rec *models.EscrowRecord, fromStatus string) error {
	cur, ok := t.current(rec.ID)
	if !ok {
		return ErrNotFound
	}
	if cur.Status != fromStatus {
		return fmt.Errorf("%w: escrow %d is %s, expected %s", ErrConflict, rec.ID, cur.Status, fromStatus)
	}
	t.stage(rec)
	return nil
}

func (t *memTx) AppendEvent(ctx context.Context, ev *models.EscrowEvent) error {
	t.repo.mu.Lock()
	t.repo.nextSeq++
	ev.Seq = t.repo.nextSeq
	t.repo.mu.Unlock()

	t.events = append(t.events, *ev)
	return nil
}

func (r *MemoryEscrowRepo) GetByID(ctx context.Context, id int64) (*models.EscrowRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (r *MemoryEscrowRepo) ListByPayer(ctx context.Context, payer string, f models.EscrowFilter) ([]models.EscrowRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.page(r.byPayer[payer], f), nil
}

func (r *MemoryEscrowRepo) ListByPayee(ctx context.Context, payee string, f models.EscrowFilter) ([]models.EscrowRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.page(r.byPayee[payee], f), nil
}

// page must be called with mu held.
func (r *MemoryEscrowRepo) page(ids []int64, f models.EscrowFilter) []models.EscrowRecord {
	f = normalizeFilter(f)
	if f.Offset >= len(ids) {
		return []models.EscrowRecord{}
	}
	end := f.Offset + f.Limit
	if end > len(ids) {
		end = len(ids)
	}
	out := make([]models.EscrowRecord, 0, end-f.Offset)
	for _, id := range ids[f.Offset:end] {
		out = append(out, *r.records[id].Clone())
	}
	return out
}

func (r *MemoryEscrowRepo) ListOverdue(ctx context.Context, now time.Time, after models.OverdueCursor, limit int) ([]models.EscrowRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.EscrowRecord
	for _, rec := range r.records {
		if rec.IsTerminal() || rec.Deadline.After(now) || !after.After(rec) {
			continue
		}
		out = append(out, *rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Deadline.Equal(out[j].Deadline) {
			return out[i].ID < out[j].ID
		}
		return out[i].Deadline.Before(out[j].Deadline)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryEscrowRepo) ListEvents(ctx context.Context, escrowID int64) ([]models.EscrowEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	evs := r.events[escrowID]
	out := make([]models.EscrowEvent, len(evs))
	copy(out, evs)
	return out, nil
}

// IndexSizes reports how many ids each payer and payee index holds.
func (r *MemoryEscrowRepo) IndexSizes() (payers, payees int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ids := range r.byPayer {
		payers += len(ids)
	}
	for _, ids := range r.byPayee {
		payees += len(ids)
	}
	return payers, payees
}

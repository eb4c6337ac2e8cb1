package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/escrow-ledger/backend/internal/config"
	"github.com/escrow-ledger/backend/internal/events"
	"github.com/escrow-ledger/backend/internal/gateway"
	"github.com/escrow-ledger/backend/internal/metrics"
	"github.com/escrow-ledger/backend/internal/models"
	"github.com/escrow-ledger/backend/internal/rbac"
	"github.com/escrow-ledger/backend/internal/repositories"
	"go.uber.org/zap"
)

const (
	auditEntityEscrow  = "escrow"
	auditEntityAccount = "account"
)

const (
	OpCreate  = "create"
	OpConfirm = "confirm"
	OpRelease = "release"
	OpRefund  = "refund"
	OpExpire  = "expire"
)

type EscrowConfig struct {
	CustodyAccount      string
	FeeCollectorAccount string
	FeeBPS              int
	ProtocolFee         int64
	MinDeadline         time.Duration
	MaxDeadline         time.Duration
	MaxPayloadBytes     int
	ReleasePolicy       ReleasePolicy
	ExpirePolicy        ExpirePolicy
	ClearPayload        bool // on expire
}

func EscrowConfigFrom(cfg *config.Config) (EscrowConfig, error) {
	release, err := ParseReleasePolicy(cfg.ReleasePolicy)
	if err != nil {
		return EscrowConfig{}, err
	}
	expire, err := ParseExpirePolicy(cfg.ExpirePolicy)
	if err != nil {
		return EscrowConfig{}, err
	}
	return EscrowConfig{
		CustodyAccount:      cfg.CustodyAccount,
		FeeCollectorAccount: cfg.FeeCollectorAccount,
		FeeBPS:              cfg.PlatformFeeBPS,
		ProtocolFee:         cfg.ProtocolFee,
		MinDeadline:         cfg.MinDeadline,
		MaxDeadline:         cfg.MaxDeadline,
		MaxPayloadBytes:     cfg.MaxPayloadBytes,
		ReleasePolicy:       release,
		ExpirePolicy:        expire,
		ClearPayload:        cfg.ExpireClearPayload,
	}, nil
}

type AuditLogger interface {
	Log(ctx context.Context, entry models.AuditLog) error
}

// EscrowService is the escrow ledger: it runs the record state machine over
// the store and moves value through the gateway. Mutating operations are
// serialized and each runs as one store unit, so a rejected or failed call
// changes nothing.
type EscrowService struct {
	mu        sync.Mutex
	store     repositories.EscrowStore
	gw        gateway.Gateway
	audit     AuditLogger
	publisher events.Publisher
	metrics   *metrics.Ledger
	cfg       EscrowConfig
	now       func() time.Time
	log       *zap.Logger
}

func NewEscrowService(
	store repositories.EscrowStore,
	gw gateway.Gateway,
	audit AuditLogger,
	publisher events.Publisher,
	m *metrics.Ledger,
	cfg EscrowConfig,
	log *zap.Logger,
) *EscrowService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if cfg.ReleasePolicy == nil {
		cfg.ReleasePolicy = ReleaseByPayerOrArbiter
	}
	if cfg.ExpirePolicy == "" {
		cfg.ExpirePolicy = ExpireRefund
	}
	return &EscrowService{
		store:     store,
		gw:        gw,
		audit:     audit,
		publisher: publisher,
		metrics:   m,
		cfg:       cfg,
		now:       time.Now,
		log:       log,
	}
}

// WithClock replaces the time source.
func (s *EscrowService) WithClock(now func() time.Time) *EscrowService {
	s.now = now
	return s
}

type CreateEscrowInput struct {
	Payee          string
	Amount         int64
	DeadlineOffset time.Duration
	Payload        []byte
}

// transferLeg is one gateway movement within an operation.
type transferLeg struct {
	from, to string
	amount   int64
	purpose  string
}

// unit collects what an operation emits while its store unit is open.
type unit struct {
	op      string
	pending []events.Event
	moved   []transferLeg
	audit   []models.AuditLog
}

// Create opens a Pending escrow funded by the caller.
func (s *EscrowService) Create(ctx context.Context, caller Caller, in CreateEscrowInput) (*models.EscrowRecord, error) {
	if err := s.validateCreate(caller, in); err != nil {
		s.reject(OpCreate, caller, 0, err, time.Now())
		return nil, err
	}

	var created *models.EscrowRecord
	err := s.execute(ctx, OpCreate, caller, 0, func(ctx context.Context, tx repositories.EscrowTx, u *unit, now time.Time) error {
		rec := &models.EscrowRecord{
			Payer:       caller.ID,
			Payee:       in.Payee,
			Amount:      in.Amount,
			ProtocolFee: s.cfg.ProtocolFee,
			FeeBPS:      s.cfg.FeeBPS,
			Status:      models.EscrowStatusPending,
			CreatedAt:   now,
			Deadline:    now.Add(in.DeadlineOffset),
		}
		if len(in.Payload) > 0 {
			rec.Payload = append([]byte(nil), in.Payload...)
		}
		if err := tx.Insert(ctx, rec); err != nil {
			return fmt.Errorf("insert escrow: %w", err)
		}

		if err := s.emit(ctx, tx, u, rec, events.EventEscrowCreated, now, map[string]any{
			"amount":   rec.Amount,
			"deadline": rec.Deadline,
		}); err != nil {
			return err
		}
		u.audit = append(u.audit, auditEntry(caller, rec, ""))

		if err := s.move(ctx, u,
			transferLeg{from: rec.Payer, to: s.cfg.CustodyAccount, amount: rec.Amount, purpose: "deposit"},
			transferLeg{from: rec.Payer, to: s.cfg.FeeCollectorAccount, amount: rec.ProtocolFee, purpose: "protocol_fee"},
		); err != nil {
			return err
		}

		created = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created.Clone(), nil
}

func (s *EscrowService) validateCreate(caller Caller, in CreateEscrowInput) error {
	switch {
	case caller.ID == "":
		return newError(KindNotAuthorized, OpCreate, "anonymous caller")
	case in.Payee == "":
		return newError(KindInvalidInput, OpCreate, "payee is required")
	case in.Payee == caller.ID:
		return newError(KindInvalidInput, OpCreate, "payee must differ from payer")
	case in.Payee == s.cfg.CustodyAccount || in.Payee == s.cfg.FeeCollectorAccount,
		caller.ID == s.cfg.CustodyAccount || caller.ID == s.cfg.FeeCollectorAccount:
		return newError(KindInvalidInput, OpCreate, "ledger accounts cannot be escrow parties")
	case in.Amount <= 0:
		return newError(KindInvalidInput, OpCreate, "amount must be positive, got %d", in.Amount)
	case in.Amount > math.MaxInt64-s.cfg.ProtocolFee:
		return newError(KindInvalidInput, OpCreate, "amount too large")
	case in.DeadlineOffset <= 0:
		return newError(KindInvalidInput, OpCreate, "deadline offset must be positive, got %s", in.DeadlineOffset)
	case in.DeadlineOffset < s.cfg.MinDeadline || in.DeadlineOffset > s.cfg.MaxDeadline:
		return newError(KindInvalidInput, OpCreate, "deadline offset %s outside [%s, %s]",
			in.DeadlineOffset, s.cfg.MinDeadline, s.cfg.MaxDeadline)
	case len(in.Payload) > s.cfg.MaxPayloadBytes:
		return newError(KindInvalidInput, OpCreate, "payload is %d bytes, max %d", len(in.Payload), s.cfg.MaxPayloadBytes)
	}
	return nil
}

// Confirm is called by the payee while the record is Pending and the
// deadline has not passed.
func (s *EscrowService) Confirm(ctx context.Context, caller Caller, id int64) (*models.EscrowRecord, error) {
	return s.transition(ctx, OpConfirm, caller, id, func(ctx context.Context, tx repositories.EscrowTx, u *unit, rec *models.EscrowRecord, now time.Time) ([]transferLeg, error) {
		if caller.ID != rec.Payee {
			return nil, newError(KindNotAuthorized, OpConfirm, "only the payee can confirm")
		}
		if rec.Status == models.EscrowStatusConfirmed {
			return nil, &Error{Kind: KindInvalidState, Op: OpConfirm, Msg: msgAlreadyConfirmed}
		}
		if rec.Status != models.EscrowStatusPending {
			return nil, newError(KindInvalidState, OpConfirm, "escrow is %s", rec.Status)
		}
		if now.After(rec.Deadline) {
			return nil, newError(KindDeadlinePassed, OpConfirm, "deadline was %s", rec.Deadline.Format(time.RFC3339))
		}

		rec.Status = models.EscrowStatusConfirmed
		rec.ConfirmedAt = &now
		return nil, s.emit(ctx, tx, u, rec, events.EventEscrowConfirmed, now, nil)
	})
}

// Release pays a Confirmed record out to the payee, less the fee.
func (s *EscrowService) Release(ctx context.Context, caller Caller, id int64) (*models.EscrowRecord, error) {
	return s.transition(ctx, OpRelease, caller, id, func(ctx context.Context, tx repositories.EscrowTx, u *unit, rec *models.EscrowRecord, now time.Time) ([]transferLeg, error) {
		if !s.cfg.ReleasePolicy.CanRelease(caller, rec) {
			return nil, newError(KindNotAuthorized, OpRelease, "release policy %s denies caller", s.cfg.ReleasePolicy.Name())
		}
		if rec.Status != models.EscrowStatusConfirmed {
			return nil, newError(KindInvalidState, OpRelease, "escrow is %s", rec.Status)
		}

		payout, fee := models.SplitFee(rec.Amount, rec.FeeBPS)
		rec.Status = models.EscrowStatusReleased
		rec.SettledAt = &now
		rec.PayoutAmount = &payout
		rec.FeeRetained = &fee

		if err := s.emit(ctx, tx, u, rec, events.EventEscrowReleased, now, map[string]any{
			"amount": payout,
			"fee":    fee,
		}); err != nil {
			return nil, err
		}
		return []transferLeg{
			{from: s.cfg.CustodyAccount, to: rec.Payee, amount: payout, purpose: "payout"},
			{from: s.cfg.CustodyAccount, to: s.cfg.FeeCollectorAccount, amount: fee, purpose: "release_fee"},
		}, nil
	})
}

// Refund returns a never-confirmed record's amount to the payer once the
// deadline has passed. Anyone may trigger it.
func (s *EscrowService) Refund(ctx context.Context, caller Caller, id int64) (*models.EscrowRecord, error) {
	return s.transition(ctx, OpRefund, caller, id, func(ctx context.Context, tx repositories.EscrowTx, u *unit, rec *models.EscrowRecord, now time.Time) ([]transferLeg, error) {
		if rec.Status != models.EscrowStatusPending {
			return nil, newError(KindInvalidState, OpRefund, "escrow is %s", rec.Status)
		}
		if !now.After(rec.Deadline) {
			return nil, newError(KindDeadlineNotReached, OpRefund, "deadline is %s", rec.Deadline.Format(time.RFC3339))
		}

		amount := rec.Amount
		rec.Status = models.EscrowStatusRefunded
		rec.SettledAt = &now
		rec.PayoutAmount = &amount

		if err := s.emit(ctx, tx, u, rec, events.EventEscrowRefunded, now, map[string]any{
			"amount": amount,
		}); err != nil {
			return nil, err
		}
		return []transferLeg{{from: s.cfg.CustodyAccount, to: rec.Payer, amount: amount, purpose: "refund"}}, nil
	})
}

// Expire closes any non-terminal record whose deadline has been reached.
// Where the funds go is decided by the configured ExpirePolicy.
func (s *EscrowService) Expire(ctx context.Context, caller Caller, id int64) (*models.EscrowRecord, error) {
	return s.transition(ctx, OpExpire, caller, id, func(ctx context.Context, tx repositories.EscrowTx, u *unit, rec *models.EscrowRecord, now time.Time) ([]transferLeg, error) {
		if rec.IsTerminal() {
			return nil, newError(KindInvalidState, OpExpire, "escrow is %s", rec.Status)
		}
		if now.Before(rec.Deadline) {
			return nil, newError(KindDeadlineNotReached, OpExpire, "deadline is %s", rec.Deadline.Format(time.RFC3339))
		}

		settlement := s.cfg.ExpirePolicy.settlement()
		rec.Status = models.EscrowStatusExpired
		rec.SettledAt = &now
		rec.ExpireSettlement = &settlement
		if s.cfg.ClearPayload {
			rec.Payload = nil
		}

		var legs []transferLeg
		switch s.cfg.ExpirePolicy {
		case ExpireRefund:
			legs = append(legs, transferLeg{from: s.cfg.CustodyAccount, to: rec.Payer, amount: rec.Amount, purpose: "expire_refund"})
		case ExpireForfeit:
			legs = append(legs, transferLeg{from: s.cfg.CustodyAccount, to: s.cfg.FeeCollectorAccount, amount: rec.Amount, purpose: "expire_forfeit"})
		}
		if len(legs) > 0 {
			amount := rec.Amount
			rec.PayoutAmount = &amount
		}

		if err := s.emit(ctx, tx, u, rec, events.EventEscrowExpired, now, map[string]any{
			"amount":     rec.Amount,
			"settlement": settlement,
		}); err != nil {
			return nil, err
		}
		return legs, nil
	})
}

// transitionFunc validates and mutates rec in place, emits its event and
// returns the transfers the transition needs.
type transitionFunc func(ctx context.Context, tx repositories.EscrowTx, u *unit, rec *models.EscrowRecord, now time.Time) ([]transferLeg, error)

// transition loads the record under lock, lets fn validate and mutate it,
// and writes it back conditioned on the status it was read in.
func (s *EscrowService) transition(ctx context.Context, op string, caller Caller, id int64, fn transitionFunc) (*models.EscrowRecord, error) {
	var out *models.EscrowRecord
	err := s.execute(ctx, op, caller, id, func(ctx context.Context, tx repositories.EscrowTx, u *unit, now time.Time) error {
		rec, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return s.storeError(op, id, err)
		}
		fromStatus := rec.Status

		legs, err := fn(ctx, tx, u, rec, now)
		if err != nil {
			return err
		}
		if !models.IsValidTransition(fromStatus, rec.Status) {
			return newError(KindInvalidState, op, "transition %s -> %s not allowed", fromStatus, rec.Status)
		}
		if err := tx.Update(ctx, rec, fromStatus); err != nil {
			return s.storeError(op, id, err)
		}
		u.audit = append(u.audit, auditEntry(caller, rec, fromStatus))
		if err := s.move(ctx, u, legs...); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out.Clone(), nil
}

// execute runs body as one serialized store unit and publishes the collected
// events only after the unit commits.
func (s *EscrowService) execute(ctx context.Context, op string, caller Caller, id int64, body func(ctx context.Context, tx repositories.EscrowTx, u *unit, now time.Time) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()
	now := s.now()
	u := &unit{op: op}

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repositories.EscrowTx) error {
		if err := body(ctx, tx, u, now); err != nil {
			return err
		}
		return s.writeAudit(ctx, u)
	})
	if err != nil {
		s.reject(op, caller, id, err, started)
		return err
	}

	for _, leg := range u.moved {
		s.metrics.Moved(leg.purpose, leg.amount)
	}
	for _, ev := range u.pending {
		if err := s.publisher.Publish(ctx, events.StreamEscrow, ev); err != nil {
			s.log.Warn("escrow event not delivered", zap.String("type", ev.Type), zap.Int64("seq", ev.Seq), zap.Error(err))
		}
		s.log.Info("escrow transition",
			zap.String("op", op),
			zap.String("type", ev.Type),
			zap.Int64("seq", ev.Seq),
			zap.Any("escrow_id", ev.Payload["escrow_id"]),
			zap.String("caller", caller.ID),
		)
	}
	s.metrics.Observe(op, "ok", started)
	return nil
}

func (s *EscrowService) reject(op string, caller Caller, id int64, err error, started time.Time) {
	kind := KindOf(err)
	outcome := string(kind)
	if kind == "" {
		outcome = "error"
		s.log.Error("escrow operation failed",
			zap.String("op", op),
			zap.Int64("escrow_id", id),
			zap.String("caller", caller.ID),
			zap.Error(err),
		)
	} else {
		s.log.Debug("escrow operation rejected",
			zap.String("op", op),
			zap.Int64("escrow_id", id),
			zap.String("caller", caller.ID),
			zap.String("kind", outcome),
			zap.Error(err),
		)
	}
	s.metrics.Observe(op, outcome, started)
}

// emit appends an event to the store log inside the unit; it is published
// after commit.
func (s *EscrowService) emit(ctx context.Context, tx repositories.EscrowTx, u *unit, rec *models.EscrowRecord, typ string, now time.Time, attrs map[string]any) error {
	payload := map[string]any{
		"escrow_id": rec.ID,
		"payer":     rec.Payer,
		"payee":     rec.Payee,
	}
	for k, v := range attrs {
		payload[k] = v
	}

	ev := &models.EscrowEvent{EscrowID: rec.ID, Type: typ, Attributes: payload, OccurredAt: now}
	if err := tx.AppendEvent(ctx, ev); err != nil {
		return fmt.Errorf("append %s event: %w", typ, err)
	}
	u.pending = append(u.pending, events.Event{
		Type:       typ,
		Seq:        ev.Seq,
		OccurredAt: now,
		Payload:    payload,
	})
	return nil
}

// move runs legs in order. When one fails the legs already applied are
// reversed, so a gateway outside the store's transaction is left as found.
func (s *EscrowService) move(ctx context.Context, u *unit, legs ...transferLeg) error {
	var done []transferLeg
	for _, leg := range legs {
		if leg.amount <= 0 {
			continue
		}
		if err := s.gw.Transfer(ctx, leg.from, leg.to, leg.amount); err != nil {
			s.compensate(ctx, u.op, done)
			return &Error{
				Kind: KindTransferFailed,
				Op:   u.op,
				Msg:  fmt.Sprintf("%s of %d from %s to %s", leg.purpose, leg.amount, leg.from, leg.to),
				Err:  err,
			}
		}
		done = append(done, leg)
	}
	u.moved = append(u.moved, done...)
	return nil
}

func (s *EscrowService) compensate(ctx context.Context, op string, done []transferLeg) {
	if t, ok := s.gw.(gateway.Transactional); ok && t.JoinsStoreTx() {
		return
	}
	for i := len(done) - 1; i >= 0; i-- {
		leg := done[i]
		if err := s.gw.Transfer(ctx, leg.to, leg.from, leg.amount); err != nil {
			s.log.Error("failed to reverse transfer leg",
				zap.String("op", op),
				zap.String("purpose", leg.purpose),
				zap.String("from", leg.from),
				zap.String("to", leg.to),
				zap.Int64("amount", leg.amount),
				zap.Error(err),
			)
		}
	}
}

func auditEntry(caller Caller, rec *models.EscrowRecord, fromStatus string) models.AuditLog {
	entry := models.AuditLog{
		ActorID:    caller.ID,
		ActorType:  caller.actorType(),
		Action:     "escrow_created",
		EntityType: auditEntityEscrow,
		EntityID:   rec.ID,
		Meta:       map[string]any{"new_status": rec.Status, "amount": rec.Amount},
	}
	if fromStatus != "" {
		entry.Action = fmt.Sprintf("escrow_%s_to_%s", fromStatus, rec.Status)
		entry.Meta = map[string]any{"old_status": fromStatus, "new_status": rec.Status}
	}
	return entry
}

// writeAudit is the last step of a unit. The pg audit repo joins the unit's
// transaction through ctx; if it fails the transfers already made are
// reversed before the unit aborts.
func (s *EscrowService) writeAudit(ctx context.Context, u *unit) error {
	if s.audit == nil {
		return nil
	}
	for _, entry := range u.audit {
		if err := s.audit.Log(ctx, entry); err != nil {
			s.compensate(ctx, u.op, u.moved)
			u.moved = nil
			return fmt.Errorf("audit escrow %d: %w", entry.EntityID, err)
		}
	}
	return nil
}

func (s *EscrowService) storeError(op string, id int64, err error) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return newError(KindNotFound, op, "escrow %d", id)
	case errors.Is(err, repositories.ErrConflict):
		return &Error{Kind: KindInvalidState, Op: op, Err: err}
	}
	return fmt.Errorf("%s escrow %d: %w", op, id, err)
}

// Get returns a record visible to caller: its payer, its payee, or a role
// with PermViewAnyEscrow.
func (s *EscrowService) Get(ctx context.Context, caller Caller, id int64) (*models.EscrowRecord, error) {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, s.storeError("get", id, err)
	}
	if !canView(caller, rec) {
		return nil, newError(KindNotAuthorized, "get", "escrow %d is not visible to caller", id)
	}
	return rec, nil
}

func canView(caller Caller, rec *models.EscrowRecord) bool {
	return caller.ID == rec.Payer || caller.ID == rec.Payee || caller.Can(rbac.PermViewAnyEscrow)
}

func (s *EscrowService) ListByPayer(ctx context.Context, caller Caller, payer string, f models.EscrowFilter) ([]models.EscrowRecord, error) {
	if payer != caller.ID && !caller.Can(rbac.PermViewAnyEscrow) {
		return nil, newError(KindNotAuthorized, "list", "cannot list escrows of %s", payer)
	}
	return s.store.ListByPayer(ctx, payer, f)
}

func (s *EscrowService) ListByPayee(ctx context.Context, caller Caller, payee string, f models.EscrowFilter) ([]models.EscrowRecord, error) {
	if payee != caller.ID && !caller.Can(rbac.PermViewAnyEscrow) {
		return nil, newError(KindNotAuthorized, "list", "cannot list escrows of %s", payee)
	}
	return s.store.ListByPayee(ctx, payee, f)
}

// TimeRemaining reports how long until the record's deadline; zero once
// the deadline is reached.
func (s *EscrowService) TimeRemaining(ctx context.Context, caller Caller, id int64) (time.Duration, error) {
	rec, err := s.Get(ctx, caller, id)
	if err != nil {
		return 0, err
	}
	return rec.TimeRemaining(s.now()), nil
}

func (s *EscrowService) Events(ctx context.Context, caller Caller, id int64) ([]models.EscrowEvent, error) {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return nil, err
	}
	return s.store.ListEvents(ctx, id)
}

// Account returns account's state when the gateway keeps accounts.
func (s *EscrowService) Account(ctx context.Context, caller Caller, id string) (*models.Account, error) {
	if id != caller.ID && !caller.Can(rbac.PermViewAnyAccount) {
		return nil, newError(KindNotAuthorized, "account", "cannot view account %s", id)
	}
	return s.lookupAccount(ctx, "account", id)
}

// SetAccountBlocked blocks or unblocks an account at the gateway. While it is
// blocked every operation moving funds to or from it fails with
// TransferFailed and leaves the ledger unchanged.
func (s *EscrowService) SetAccountBlocked(ctx context.Context, caller Caller, id string, blocked bool) (*models.Account, error) {
	const op = "block_account"
	if !caller.Can(rbac.PermManageAccounts) {
		return nil, newError(KindNotAuthorized, op, "caller cannot manage accounts")
	}
	if id == "" {
		return nil, newError(KindInvalidInput, op, "account is required")
	}
	accts, ok := s.gw.(gateway.Accounts)
	if !ok {
		return nil, newError(KindInvalidState, op, "gateway does not manage accounts")
	}
	if err := accts.SetBlocked(ctx, id, blocked); err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, id, err)
	}

	action := "account_unblocked"
	if blocked {
		action = "account_blocked"
	}
	if s.audit != nil {
		if err := s.audit.Log(ctx, models.AuditLog{
			ActorID:    caller.ID,
			ActorType:  caller.actorType(),
			Action:     action,
			EntityType: auditEntityAccount,
			Meta:       map[string]any{"account": id},
		}); err != nil {
			s.log.Error("failed to audit account change", zap.String("account", id), zap.Error(err))
		}
	}
	s.log.Info("account block changed",
		zap.String("account", id),
		zap.Bool("blocked", blocked),
		zap.String("caller", caller.ID),
	)
	return s.lookupAccount(ctx, op, id)
}

func (s *EscrowService) lookupAccount(ctx context.Context, op, id string) (*models.Account, error) {
	accts, ok := s.gw.(gateway.Accounts)
	if !ok {
		return nil, newError(KindInvalidState, op, "gateway does not manage accounts")
	}
	a, err := accts.GetByID(ctx, id)
	if errors.Is(err, gateway.ErrUnknownAccount) {
		return nil, newError(KindNotFound, op, "account %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, id, err)
	}
	return a, nil
}

type AuditReader interface {
	GetByEntity(ctx context.Context, entityType string, entityID int64, limit, offset int) ([]models.AuditLog, error)
}

// AuditTrail lists the audit entries of an escrow, oldest first.
func (s *EscrowService) AuditTrail(ctx context.Context, caller Caller, id int64, f models.EscrowFilter) ([]models.AuditLog, error) {
	if !caller.Can(rbac.PermViewAudit) {
		return nil, newError(KindNotAuthorized, "audit", "caller cannot read the audit log")
	}
	if _, err := s.Get(ctx, caller, id); err != nil {
		return nil, err
	}
	r, ok := s.audit.(AuditReader)
	if !ok {
		return nil, newError(KindInvalidState, "audit", "audit log is not readable")
	}
	return r.GetByEntity(ctx, auditEntityEscrow, id, f.Limit, f.Offset)
}

// SweepResult reports one SweepExpired page.
type SweepResult struct {
	Expired int
	Scanned int
	Next    models.OverdueCursor
}

// SweepExpired expires up to limit overdue records after cursor as the
// system caller. Records that fail or change state concurrently are skipped;
// Next lets the following page start past them.
func (s *EscrowService) SweepExpired(ctx context.Context, after models.OverdueCursor, limit int) (SweepResult, error) {
	res := SweepResult{Next: after}
	overdue, err := s.store.ListOverdue(ctx, s.now(), after, limit)
	if err != nil {
		return res, fmt.Errorf("list overdue escrows: %w", err)
	}

	for _, rec := range overdue {
		if ctx.Err() != nil {
			break
		}
		res.Scanned++
		res.Next = models.OverdueCursor{Deadline: rec.Deadline, ID: rec.ID}
		if _, err := s.Expire(ctx, SystemCaller, rec.ID); err != nil {
			if errors.Is(err, ErrInvalidState) || errors.Is(err, ErrDeadlineNotReached) {
				continue
			}
			s.log.Warn("janitor failed to expire escrow", zap.Int64("escrow_id", rec.ID), zap.Error(err))
			continue
		}
		res.Expired++
	}
	s.metrics.Swept(res.Expired)
	return res, nil
}

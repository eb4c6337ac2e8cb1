package services

import (
	"fmt"

	"github.com/escrow-ledger/backend/internal/models"
	"github.com/escrow-ledger/backend/internal/rbac"
)

// Caller is the authenticated principal invoking an operation.
type Caller struct {
	ID    string
	Roles []string
}

// SystemCaller is used by the janitor.
var SystemCaller = Caller{ID: "system", Roles: []string{rbac.RoleOperator}}

func (c Caller) Can(permission string) bool {
	return rbac.AnyHasPermission(c.Roles, permission)
}

func (c Caller) actorType() string {
	switch {
	case c.ID == SystemCaller.ID:
		return "system"
	case c.Can(rbac.PermReleaseEscrow):
		return "arbiter"
	case c.Can(rbac.PermManageAccounts):
		return "operator"
	}
	return "user"
}

// ReleasePolicy decides whether caller may release a confirmed record.
type ReleasePolicy interface {
	Name() string
	CanRelease(caller Caller, rec *models.EscrowRecord) bool
}

type payerOnly struct{}

func (payerOnly) Name() string { return "payer" }
func (payerOnly) CanRelease(caller Caller, rec *models.EscrowRecord) bool {
	return caller.ID == rec.Payer
}

type payerOrArbiter struct{}

func (payerOrArbiter) Name() string { return "payer_or_arbiter" }
func (payerOrArbiter) CanRelease(caller Caller, rec *models.EscrowRecord) bool {
	return caller.ID == rec.Payer || caller.Can(rbac.PermReleaseEscrow)
}

type anyAuthorized struct{}

func (anyAuthorized) Name() string { return "any_authorized" }
func (anyAuthorized) CanRelease(caller Caller, rec *models.EscrowRecord) bool {
	return caller.ID != ""
}

var (
	ReleaseByPayer          ReleasePolicy = payerOnly{}
	ReleaseByPayerOrArbiter ReleasePolicy = payerOrArbiter{}
	ReleaseByAnyAuthorized  ReleasePolicy = anyAuthorized{}
)

func ParseReleasePolicy(name string) (ReleasePolicy, error) {
	for _, p := range []ReleasePolicy{ReleaseByPayer, ReleaseByPayerOrArbiter, ReleaseByAnyAuthorized} {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unknown release policy %q", name)
}

// ExpirePolicy names where an expired record's funds go.
type ExpirePolicy string

const (
	// ExpireRefund returns the amount to the payer.
	ExpireRefund ExpirePolicy = "refund"
	// ExpireForfeit sends the amount to the fee collector.
	ExpireForfeit ExpirePolicy = "forfeit"
	// ExpireFreeze leaves the amount in custody.
	ExpireFreeze ExpirePolicy = "freeze"
)

func ParseExpirePolicy(name string) (ExpirePolicy, error) {
	switch p := ExpirePolicy(name); p {
	case ExpireRefund, ExpireForfeit, ExpireFreeze:
		return p, nil
	}
	return "", fmt.Errorf("unknown expire policy %q", name)
}

func (p ExpirePolicy) settlement() string {
	switch p {
	case ExpireForfeit:
		return models.ExpireSettlementForfeited
	case ExpireFreeze:
		return models.ExpireSettlementFrozen
	}
	return models.ExpireSettlementRefunded
}

package services

import (
	"testing"

	"github.com/escrow-ledger/backend/internal/models"
	"github.com/escrow-ledger/backend/internal/rbac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReleasePolicy(t *testing.T) {
	for _, name := range []string{"payer", "payer_or_arbiter", "any_authorized"} {
		p, err := ParseReleasePolicy(name)
		require.NoError(t, err)
		assert.Equal(t, name, p.Name())
	}

	_, err := ParseReleasePolicy("payee")
	assert.Error(t, err)
}

func TestParseExpirePolicy(t *testing.T) {
	tests := []struct {
		name       string
		settlement string
	}{
		{"refund", models.ExpireSettlementRefunded},
		{"forfeit", models.ExpireSettlementForfeited},
		{"freeze", models.ExpireSettlementFrozen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseExpirePolicy(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.settlement, p.settlement())
		})
	}

	_, err := ParseExpirePolicy("burn")
	assert.Error(t, err)
}

func TestCallerActorType(t *testing.T) {
	assert.Equal(t, "system", SystemCaller.actorType())
	assert.Equal(t, "arbiter", Caller{ID: "j", Roles: []string{rbac.RoleArbiter}}.actorType())
	assert.Equal(t, "user", Caller{ID: "u", Roles: []string{rbac.RoleUser}}.actorType())
	assert.Equal(t, "operator", Caller{ID: "o", Roles: []string{rbac.RoleOperator}}.actorType())
	assert.True(t, SystemCaller.Can(rbac.PermExpireEscrow))
	assert.False(t, Caller{ID: "u"}.Can(rbac.PermViewAnyEscrow))
}

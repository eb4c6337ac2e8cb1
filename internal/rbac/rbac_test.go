package rbac

import "testing"

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role     string
		perm     string
		expected bool
	}{
		{RoleUser, PermCreateEscrow, true},
		{RoleUser, PermReleaseEscrow, false},
		{RoleArbiter, PermReleaseEscrow, true},
		{RoleArbiter, PermCreateEscrow, false},
		{RoleOperator, PermViewAnyAccount, true},
		{RoleOperator, PermReleaseEscrow, false},
		{RoleOperator, PermManageAccounts, true},
		{RoleArbiter, PermViewAudit, true},
		{RoleArbiter, PermManageAccounts, false},
		{RoleUser, PermViewAudit, false},
		{"nonexistent", PermExpireEscrow, false},
	}

	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.perm, func(t *testing.T) {
			if got := HasPermission(tt.role, tt.perm); got != tt.expected {
				t.Errorf("HasPermission(%q, %q) = %v, want %v", tt.role, tt.perm, got, tt.expected)
			}
		})
	}
}

func TestAnyHasPermission(t *testing.T) {
	if AnyHasPermission(nil, PermReleaseEscrow) {
		t.Error("no roles should grant nothing")
	}
	if !AnyHasPermission([]string{RoleUser, RoleArbiter}, PermReleaseEscrow) {
		t.Error("arbiter role should grant release")
	}
}

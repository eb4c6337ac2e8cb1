package rbac

// Role constants
const (
	RoleUser     = "user"
	RoleArbiter  = "arbiter"
	RoleOperator = "operator"
)

// Permission constants
const (
	PermCreateEscrow   = "create_escrow"
	PermReleaseEscrow  = "release_escrow"
	PermExpireEscrow   = "expire_escrow"
	PermViewAnyEscrow  = "view_any_escrow"
	PermViewAnyAccount = "view_any_account"
	PermViewAudit      = "view_audit"
	PermManageAccounts = "manage_accounts"
)

// RolePermissions defines what each role can do.
var RolePermissions = map[string][]string{
	RoleUser: {
		PermCreateEscrow, PermExpireEscrow,
	},
	RoleArbiter: {
		PermReleaseEscrow, PermExpireEscrow, PermViewAnyEscrow, PermViewAudit,
		// Arbiter CANNOT: PermCreateEscrow, PermViewAnyAccount
	},
	RoleOperator: {
		PermExpireEscrow, PermViewAnyEscrow, PermViewAnyAccount, PermViewAudit,
		PermManageAccounts,
	},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// AnyHasPermission reports whether at least one of roles grants permission.
func AnyHasPermission(roles []string, permission string) bool {
	for _, r := range roles {
		if HasPermission(r, permission) {
			return true
		}
	}
	return false
}

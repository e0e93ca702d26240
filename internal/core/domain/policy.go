package domain

// Operation identifies a role-gated user operation.
type Operation string

const (
	OpListUsers  Operation = "list_users"
	OpReadUser   Operation = "read_user"
	OpDeleteUser Operation = "delete_user"
)

// anyRole matches every target role in the rules table.
const anyRole Role = "*"

// Denial messages returned to the caller.
const (
	msgAdminsOnly       = "somente admins podem acessar"
	msgNormalNoAccess   = "Usuários normais não tem acesso a essa ferramenta."
	msgNormalDeleteSelf = "Usuário NORMAL não tem permissão para deletar outro usuário."
	msgAdminDeleteSelf  = "Usuário 'ADMIN' pode deletar sua própria conta ou a conta de um usuário 'NORMAL'."
	msgNotPermitted     = "Operação não permitida."
)

// Rule is the outcome of looking up (operation, caller role, target role).
type Rule struct {
	// Allowed is false when the caller's role may never perform the operation.
	Allowed bool
	// SelfOnly restricts the operation to the caller's own account.
	SelfOnly bool
	// RequiresPassword demands the target's password be re-confirmed.
	RequiresPassword bool
	// PasswordFirst confirms the password before the self-only check.
	PasswordFirst bool
	// Denial is the message used when the rule rejects the caller.
	Denial string
}

// Permits applies the rule to a concrete caller and target.
func (r Rule) Permits(callerID, targetID string) bool {
	if !r.Allowed {
		return false
	}
	return !r.SelfOnly || callerID == targetID
}

type ruleKey struct {
	op     Operation
	caller Role
	target Role
}

var (
	allow         = Rule{Allowed: true}
	allowPassword = Rule{Allowed: true, RequiresPassword: true}
)

// rules is the complete authorization table. Deleting a NORMAL or MASTER
// account as ADMIN, and a non-MASTER account as MASTER, skips password
// confirmation.
var rules = map[ruleKey]Rule{
	{OpListUsers, RoleNormal, anyRole}: {Denial: msgAdminsOnly},
	{OpListUsers, RoleAdmin, anyRole}:  allow,
	{OpListUsers, RoleMaster, anyRole}: {Denial: msgAdminsOnly},

	{OpReadUser, RoleNormal, anyRole}: {Denial: msgNormalNoAccess},
	{OpReadUser, RoleAdmin, anyRole}:  allow,
	{OpReadUser, RoleMaster, anyRole}: allow,

	{OpDeleteUser, RoleNormal, anyRole}: {Allowed: true, SelfOnly: true, RequiresPassword: true, PasswordFirst: true, Denial: msgNormalDeleteSelf},

	{OpDeleteUser, RoleAdmin, RoleNormal}: allow,
	{OpDeleteUser, RoleAdmin, RoleAdmin}:  {Allowed: true, SelfOnly: true, RequiresPassword: true, Denial: msgAdminDeleteSelf},
	{OpDeleteUser, RoleAdmin, RoleMaster}: allow,

	{OpDeleteUser, RoleMaster, RoleNormal}: allow,
	{OpDeleteUser, RoleMaster, RoleAdmin}:  allow,
	{OpDeleteUser, RoleMaster, RoleMaster}: allowPassword,
}

// Authorize looks up the rule for caller acting on a target with the given
// role. Operations that do not depend on the target accept any target role.
// Unknown combinations are denied.
func Authorize(op Operation, caller, target Role) Rule {
	if r, ok := rules[ruleKey{op, caller, target}]; ok {
		return r
	}
	if r, ok := rules[ruleKey{op, caller, anyRole}]; ok {
		return r
	}
	return Rule{Denial: msgNotPermitted}
}

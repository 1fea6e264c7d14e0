// Package rbac maps registry roles onto the actions the API supports.
package rbac

type Role string
type Action string

const (
	// RoleViewer can browse the registry tree and assignments.
	RoleViewer Role = "viewer"
	// RoleManager can additionally edit purpose/category assignments.
	RoleManager Role = "manager"
	// RoleDPO is the data protection officer: full access, including
	// report exports and the registry history.
	RoleDPO Role = "dpo"
)

const (
	ActionRead   Action = "read"
	ActionManage Action = "manage"
	ActionExport Action = "export"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleDPO:
		return true
	case RoleManager:
		return action == ActionRead || action == ActionManage
	case RoleViewer:
		return action == ActionRead
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleViewer, RoleManager, RoleDPO:
		return Role(role)
	default:
		return RoleViewer
	}
}

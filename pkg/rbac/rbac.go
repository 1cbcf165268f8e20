package rbac

import "fmt"

// 权限常量
const (
	PermissionPostAnnouncement = "announcement:post"
	PermissionAssignProject    = "project:assign"
	PermissionUploadDesign     = "design:upload"
	PermissionReadNotification = "notification:read"
)

// 角色常量
const (
	RoleManager    = "Manager"
	RoleTeamMember = "Team Member"
	RoleHR         = "HR"
	RoleDesignTeam = "Design Team"
)

// 角色权限映射
var rolePermissions = map[string][]string{
	RoleManager: {
		PermissionReadNotification,
		PermissionAssignProject,
	},
	RoleTeamMember: {
		PermissionReadNotification,
	},
	RoleHR: {
		PermissionReadNotification,
		PermissionPostAnnouncement,
	},
	RoleDesignTeam: {
		PermissionReadNotification,
		PermissionUploadDesign,
	},
}

// HasPermission 检查角色是否有指定权限
func HasPermission(role, permission string) bool {
	permissions, ok := rolePermissions[role]
	if !ok {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission 检查角色是否有指定权限（返回错误而不是布尔值，便于处理）
func CheckPermission(role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("role %q lacks permission %q", e.Role, e.Permission)
}

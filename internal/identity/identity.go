package identity

import "errors"

// Role 表示账号的业务角色。
type Role string

const (
	RoleStudent  Role = "student"
	RoleEmployer Role = "employer"
)

// Valid 判断角色是否在允许范围内。
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleEmployer
}

// UnifiedUser 是认证后的统一用户视图：角色由 profile 行解析而来，
// DisplayName 对学生是 full_name，对雇主是 company_name。
type UnifiedUser struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	Role        Role   `json:"role"`
	DisplayName string `json:"display_name"`
}

var (
	// ErrInvalidCredentials 表示邮箱或密码错误。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken 表示邮箱已被注册。
	ErrEmailTaken = errors.New("email already taken")
	// ErrProfileNotFound 表示账号存在但没有任何角色 profile。
	ErrProfileNotFound = errors.New("profile not found")
	// ErrProfileConflict 表示同一账号同时存在学生与雇主 profile。
	// 该状态不会被自动修复，只在一致性检查时上报。
	ErrProfileConflict = errors.New("conflicting role profiles")
)

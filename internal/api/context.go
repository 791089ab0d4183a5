package api

import (
	"github.com/gin-gonic/gin"

	"unigig/internal/identity"
)

// userIDFromContext 读取认证中间件注入的用户 ID。
func userIDFromContext(c *gin.Context) (uint, bool) {
	value, ok := c.Get("userID")
	if !ok {
		return 0, false
	}
	userID, ok := value.(uint)
	return userID, ok
}

// roleFromContext 读取认证中间件注入的角色。
func roleFromContext(c *gin.Context) (identity.Role, bool) {
	value, ok := c.Get("userRole")
	if !ok {
		return "", false
	}
	raw, ok := value.(string)
	if !ok {
		return "", false
	}
	role := identity.Role(raw)
	return role, role.Valid()
}

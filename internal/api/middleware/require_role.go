package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireRole 要求令牌携带指定角色，否则返回 403。
// 角色只做路由分流；归属判断仍由网关层的查询条件保证。
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, ok := c.Get("userRole")
		if !ok {
			abortUnauthorized(c)
			return
		}
		current, ok := value.(string)
		if !ok || current != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}

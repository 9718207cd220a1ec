package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ==================== 管理员鉴权 ====================

// AdminAuth 校验管理员令牌
// 支持 "Authorization: Bearer <token>" 或 "X-Admin-Token: <token>"
// 未配置令牌时拒绝所有请求
func AdminAuth(token string) gin.HandlerFunc {
	expected := []byte(token)

	return func(c *gin.Context) {
		if token == "" {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    403,
				"message": "管理接口未启用",
			})
			c.Abort()
			return
		}

		provided := c.GetHeader("X-Admin-Token")
		if provided == "" {
			authHeader := c.GetHeader("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				provided = strings.TrimSpace(parts[1])
			}
		}

		if provided == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "未提供认证令牌",
			})
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    403,
				"message": "权限不足",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

package identity

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const contextUserKey = "current_user"

// Middleware 从请求头解析调用方身份并写入请求上下文
func Middleware(resolver Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := extractCredential(c)
		if credential == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "缺少身份凭证"})
			return
		}

		user, err := resolver.Resolve(c.Request.Context(), credential)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "身份验证失败"})
			return
		}

		c.Set(contextUserKey, user)
		c.Next()
	}
}

// CurrentUser 获取当前请求的用户身份
func CurrentUser(c *gin.Context) *User {
	value, exists := c.Get(contextUserKey)
	if !exists {
		return nil
	}
	user, ok := value.(*User)
	if !ok {
		return nil
	}
	return user
}

// extractCredential 提取请求凭证
func extractCredential(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return c.GetHeader("X-Api-Key")
}

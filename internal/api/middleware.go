package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portainer-monitor/utils"
)

// corsMiddleware CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// bearerToken 从 Authorization 头取 token
func bearerToken(c *gin.Context) string {
	parts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// authMiddleware JWT认证中间件
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "未授权")
			return
		}

		token := bearerToken(c)
		if token == "" {
			abort(c, http.StatusUnauthorized, "Token格式错误")
			return
		}

		claims, err := utils.VerifyJWT(token)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Token无效")
			return
		}

		if sub, ok := claims["sub"].(string); ok {
			c.Set("user", sub)
		}

		c.Next()
	}
}

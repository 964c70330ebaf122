package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Response 统一响应格式；Code 与 HTTP 状态码一致
type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:      http.StatusOK,
		Message:   "success",
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, Response{
		Code:      status,
		Message:   message,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// abort 中间件里用：写错误并终止后续处理
func abort(c *gin.Context, status int, message string) {
	fail(c, status, message)
	c.Abort()
}

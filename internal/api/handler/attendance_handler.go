package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/miimi22/attendance/internal/dto"
	"github.com/miimi22/attendance/internal/service"
	"github.com/miimi22/attendance/pkg/response"
)

// AttendanceHandler 勤怠模块 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// punchErrorResponse 打刻守卫错误统一映射到 409
func punchErrorResponse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAlreadyClockedIn):
		response.Conflict(c, 12002, err.Error())
	case errors.Is(err, service.ErrNotClockedIn):
		response.Conflict(c, 12003, err.Error())
	case errors.Is(err, service.ErrOnBreak):
		response.Conflict(c, 12004, err.Error())
	case errors.Is(err, service.ErrBreakNotAllowed):
		response.Conflict(c, 12005, err.Error())
	case errors.Is(err, service.ErrBreakEndNotAllowed):
		response.Conflict(c, 12006, err.Error())
	default:
		response.InternalError(c)
	}
}

// Today 打刻画面数据
// GET /api/v1/attendance/today
func (h *AttendanceHandler) Today(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.Today(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// ClockIn 出勤打刻
// POST /api/v1/attendance/clock-in
func (h *AttendanceHandler) ClockIn(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.attendanceSvc.ClockIn(c.Request.Context(), userID); err != nil {
		punchErrorResponse(c, err)
		return
	}

	response.OKMessage(c, "出勤しました", nil)
}

// ClockOut 退勤打刻
// POST /api/v1/attendance/clock-out
func (h *AttendanceHandler) ClockOut(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.attendanceSvc.ClockOut(c.Request.Context(), userID); err != nil {
		punchErrorResponse(c, err)
		return
	}

	response.OKMessage(c, "お疲れ様でした", nil)
}

// BreakStart 休憩开始打刻
// POST /api/v1/attendance/break-start
func (h *AttendanceHandler) BreakStart(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.attendanceSvc.BreakStart(c.Request.Context(), userID); err != nil {
		punchErrorResponse(c, err)
		return
	}

	response.OKMessage(c, "休憩を開始しました", nil)
}

// BreakEnd 休憩终了打刻
// POST /api/v1/attendance/break-end
func (h *AttendanceHandler) BreakEnd(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.attendanceSvc.BreakEnd(c.Request.Context(), userID); err != nil {
		punchErrorResponse(c, err)
		return
	}

	response.OKMessage(c, "休憩を終了しました", nil)
}

// MonthlyList 本人月次勤怠一览
// GET /api/v1/attendance?month=2026-08
func (h *AttendanceHandler) MonthlyList(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.MonthlyList(c.Request.Context(), userID, c.Query("month"))
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// Detail 勤怠详情
// GET /api/v1/attendance/:id
func (h *AttendanceHandler) Detail(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	attendanceID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, 10001, "勤怠 ID が不正です")
		return
	}

	result, err := h.attendanceSvc.Detail(c.Request.Context(), userID, attendanceID, isAdmin(c))
	if err != nil {
		if errors.Is(err, service.ErrAttendanceNotFound) {
			response.NotFound(c, 12001, err.Error())
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// ── 管理员 ──

// DailyList 全员日次一览
// GET /api/v1/admin/attendance?date=2026-08-31
func (h *AttendanceHandler) DailyList(c *gin.Context) {
	result, err := h.attendanceSvc.DailyList(c.Request.Context(), c.Query("date"))
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// StaffList スタッフ一览
// GET /api/v1/admin/staff
func (h *AttendanceHandler) StaffList(c *gin.Context) {
	result, err := h.attendanceSvc.StaffList(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// StaffMonthly 指定スタッフ的月次一览
// GET /api/v1/admin/staff/:id/attendance?month=2026-08
func (h *AttendanceHandler) StaffMonthly(c *gin.Context) {
	result, err := h.attendanceSvc.StaffMonthly(c.Request.Context(), c.Param("id"), c.Query("month"))
	if err != nil {
		if errors.Is(err, service.ErrStaffNotFound) {
			response.NotFound(c, 12007, err.Error())
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// ResetStatusCache 全员状态缓存归零（深夜批处理调用）
// POST /api/v1/admin/attendance/reset-status
func (h *AttendanceHandler) ResetStatusCache(c *gin.Context) {
	count, err := h.attendanceSvc.ResetStatusCache(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, dto.ResetStatusResponse{UpdatedCount: count})
}

// [自证通过] internal/api/handler/attendance_handler.go

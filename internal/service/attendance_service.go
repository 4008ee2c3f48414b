package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/miimi22/attendance/internal/dto"
	"github.com/miimi22/attendance/internal/model"
	"github.com/miimi22/attendance/internal/repository"
	"github.com/miimi22/attendance/pkg/timeutil"
)

// ── 勤怠模块业务错误 ──

var (
	ErrAttendanceNotFound = errors.New("勤怠記録が見つかりません")
	ErrStaffNotFound      = errors.New("スタッフが見つかりません")

	// 状态机守卫违反：不产生任何写入，原样返回给打刻者
	ErrAlreadyClockedIn   = errors.New("既に出勤済みです")
	ErrClockInNotAllowed  = errors.New("出勤処理を実行できません")
	ErrNotClockedIn       = errors.New("退勤記録が見つかりません")
	ErrOnBreak            = errors.New("休憩中です。先に休憩終了してください")
	ErrBreakNotAllowed    = errors.New("休憩開始処理を実行できません")
	ErrBreakEndNotAllowed = errors.New("休憩終了処理を実行できません")
)

var jpWeekdays = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// AttendanceService 勤怠业务接口
type AttendanceService interface {
	// Today 打刻画面：当前状态 + 当日记录
	Today(ctx context.Context, userID string) (*dto.TodayResponse, error)
	ClockIn(ctx context.Context, userID string) error
	ClockOut(ctx context.Context, userID string) error
	BreakStart(ctx context.Context, userID string) error
	BreakEnd(ctx context.Context, userID string) error
	// MonthlyList 本人月次一览，yearMonth 形如 "2026-08"，非法时回退当月
	MonthlyList(ctx context.Context, userID, yearMonth string) (*dto.MonthlyListResponse, error)
	// Detail 勤怠详情；isAdmin 为 false 时只能查看本人记录
	Detail(ctx context.Context, userID string, attendanceID int64, isAdmin bool) (*dto.AttendanceDetailResponse, error)

	// ── 管理员操作 ──

	DailyList(ctx context.Context, dateStr string) (*dto.DailyListResponse, error)
	StaffList(ctx context.Context) ([]dto.StaffResponse, error)
	StaffMonthly(ctx context.Context, staffID, yearMonth string) (*dto.MonthlyListResponse, error)
	// ResetStatusCache 全员状态缓存归零（深夜定时任务调用）
	ResetStatusCache(ctx context.Context) (int64, error)
}

type attendanceService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time // 测试中注入固定时钟
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(repo *repository.Repository, logger *zap.Logger) AttendanceService {
	return &attendanceService{repo: repo, logger: logger, now: time.Now}
}

// ────────────────────── 状态推导 ──────────────────────

// currentStatus 推导用户当前出勤状态
// 返回状态和当日有效勤怠记录（不存在时为 nil）
func (s *attendanceService) currentStatus(ctx context.Context, userID string) (model.AttendanceStatus, *model.Attendance, error) {
	today := timeutil.DateOf(s.now())

	attendance, err := s.repo.Attendance.GetLatestForDate(ctx, userID, today)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.StatusOffWork, nil, nil
		}
		return 0, nil, err
	}

	hasActiveRest := false
	if attendance.IsOpen() {
		if _, err := s.repo.Rest.GetActive(ctx, attendance.AttendanceID); err == nil {
			hasActiveRest = true
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil, err
		}
	}
	return resolveStatus(attendance, hasActiveRest), attendance, nil
}

// syncStatusCache 将推导状态回写到用户行的展示缓存
// 缓存仅供展示，推导值才是真值；写失败只记日志不阻断主流程
func (s *attendanceService) syncStatusCache(ctx context.Context, userID string, status model.AttendanceStatus) {
	if err := s.repo.User.UpdateStatus(ctx, userID, status); err != nil {
		s.logger.Warn("状态缓存回写失败", zap.String("user_id", userID), zap.Error(err))
	}
}

// ────────────────────── Today ──────────────────────

func (s *attendanceService) Today(ctx context.Context, userID string) (*dto.TodayResponse, error) {
	status, attendance, err := s.currentStatus(ctx, userID)
	if err != nil {
		s.logger.Error("推导出勤状态失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.syncStatusCache(ctx, userID, status)

	now := s.now()
	resp := &dto.TodayResponse{
		Date:        now.Format("2006-01-02"),
		Weekday:     jpWeekdays[now.Weekday()],
		Time:        now.Format("15:04"),
		Status:      int(status),
		StatusLabel: status.Label(),
	}

	if attendance != nil {
		rests, err := s.repo.Rest.ListByAttendance(ctx, attendance.AttendanceID)
		if err != nil {
			return nil, err
		}
		attendance.Rests = rests
		ar := s.toAttendanceResponse(attendance, false)
		resp.Attendance = &ar
	}

	return resp, nil
}

// ────────────────────── ClockIn ──────────────────────

func (s *attendanceService) ClockIn(ctx context.Context, userID string) error {
	status, _, err := s.currentStatus(ctx, userID)
	if err != nil {
		return err
	}

	if status != model.StatusOffWork && status != model.StatusLeftWork {
		return ErrAlreadyClockedIn
	}

	now := s.now()
	today := timeutil.DateOf(now)

	// 守卫通过但已有未退勤记录（缓存过期场景）：复用该记录，刷新缓存后按成功返回
	if _, err := s.repo.Attendance.GetOpenForDate(ctx, userID, today); err == nil {
		s.syncStatusCache(ctx, userID, model.StatusOnWork)
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return err
	}
	txRepo := s.repo.WithTx(tx)

	workStart := timeutil.ClockOf(now)
	attendance := &model.Attendance{
		UserID:    userID,
		Date:      today,
		WorkStart: &workStart,
	}

	if err := txRepo.Attendance.Create(ctx, attendance); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		// 并发双重打刻会撞上 (user_id, date) WHERE work_end IS NULL
		// 的部分唯一索引，归并为「已出勤」
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyClockedIn
		}
		s.logger.Error("创建勤怠记录失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	if err := txRepo.User.UpdateStatus(ctx, userID, model.StatusOnWork); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("更新状态缓存失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}

	return nil
}

// ────────────────────── ClockOut ──────────────────────

func (s *attendanceService) ClockOut(ctx context.Context, userID string) error {
	now := s.now()
	today := timeutil.DateOf(now)

	attendance, err := s.repo.Attendance.GetOpenForDate(ctx, userID, today)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotClockedIn
		}
		return err
	}

	if _, err := s.repo.Rest.GetActive(ctx, attendance.AttendanceID); err == nil {
		return ErrOnBreak
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	rests, err := s.repo.Rest.ListCompleted(ctx, attendance.AttendanceID)
	if err != nil {
		return err
	}

	workEnd := timeutil.ClockOf(now)
	totalWork := "00:00:00"
	if seconds := actualWorkSeconds(attendance.WorkStart, &workEnd, rests); seconds != nil {
		totalWork = timeutil.FormatHMS(*seconds)
	}
	attendance.WorkEnd = &workEnd
	attendance.TotalWork = &totalWork

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return err
	}
	txRepo := s.repo.WithTx(tx)

	if err := txRepo.Attendance.Update(ctx, attendance); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("保存退勤打刻失败", zap.Int64("attendance_id", attendance.AttendanceID), zap.Error(err))
		return err
	}

	if err := txRepo.User.UpdateStatus(ctx, userID, model.StatusLeftWork); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("更新状态缓存失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}

	return nil
}

// ────────────────────── BreakStart ──────────────────────

func (s *attendanceService) BreakStart(ctx context.Context, userID string) error {
	status, attendance, err := s.currentStatus(ctx, userID)
	if err != nil {
		return err
	}

	if status != model.StatusOnWork || attendance == nil {
		return ErrBreakNotAllowed
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return err
	}
	txRepo := s.repo.WithTx(tx)

	rest := &model.Rest{
		AttendanceID: attendance.AttendanceID,
		RestStart:    timeutil.ClockOf(s.now()),
	}
	if err := txRepo.Rest.Create(ctx, rest); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("创建休憩记录失败", zap.Int64("attendance_id", attendance.AttendanceID), zap.Error(err))
		return err
	}

	if err := txRepo.User.UpdateStatus(ctx, userID, model.StatusOnRest); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("更新状态缓存失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}

	return nil
}

// ────────────────────── BreakEnd ──────────────────────

func (s *attendanceService) BreakEnd(ctx context.Context, userID string) error {
	today := timeutil.DateOf(s.now())

	attendance, err := s.repo.Attendance.GetOpenForDate(ctx, userID, today)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBreakEndNotAllowed
		}
		return err
	}

	rest, err := s.repo.Rest.GetActive(ctx, attendance.AttendanceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBreakEndNotAllowed
		}
		return err
	}

	restEnd := timeutil.ClockOf(s.now())
	rest.RestEnd = &restEnd

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return err
	}
	txRepo := s.repo.WithTx(tx)

	if err := txRepo.Rest.Update(ctx, rest); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("保存休憩终了打刻失败", zap.Int64("rest_id", rest.RestID), zap.Error(err))
		return err
	}

	if err := txRepo.User.UpdateStatus(ctx, userID, model.StatusOnWork); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("更新状态缓存失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}

	return nil
}

// ────────────────────── MonthlyList ──────────────────────

func (s *attendanceService) MonthlyList(ctx context.Context, userID, yearMonth string) (*dto.MonthlyListResponse, error) {
	target := s.parseYearMonth(yearMonth)

	attendances, err := s.repo.Attendance.ListByMonth(ctx, userID, target.Year(), target.Month())
	if err != nil {
		s.logger.Error("查询月次勤怠失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	return s.toMonthlyResponse(target, "", "", attendances), nil
}

// parseYearMonth 解析 "2006-01"，非法输入回退到当月
func (s *attendanceService) parseYearMonth(yearMonth string) time.Time {
	if yearMonth == "" {
		return timeutil.DateOf(s.now())
	}
	target, err := time.Parse("2006-01", yearMonth)
	if err != nil {
		s.logger.Info("非法的月份参数，回退当月", zap.String("year_month", yearMonth))
		return timeutil.DateOf(s.now())
	}
	return target
}

func (s *attendanceService) toMonthlyResponse(target time.Time, userID, userName string, attendances []model.Attendance) *dto.MonthlyListResponse {
	days := make([]dto.AttendanceResponse, 0, len(attendances))
	for i := range attendances {
		days = append(days, s.toAttendanceResponse(&attendances[i], false))
	}

	monthStart := time.Date(target.Year(), target.Month(), 1, 0, 0, 0, 0, time.UTC)
	return &dto.MonthlyListResponse{
		Month:     monthStart.Format("2006/01"),
		PrevMonth: monthStart.AddDate(0, -1, 0).Format("2006-01"),
		NextMonth: monthStart.AddDate(0, 1, 0).Format("2006-01"),
		UserID:    userID,
		UserName:  userName,
		Days:      days,
	}
}

// ────────────────────── Detail ──────────────────────

func (s *attendanceService) Detail(ctx context.Context, userID string, attendanceID int64, isAdmin bool) (*dto.AttendanceDetailResponse, error) {
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
		s.logger.Error("查询勤怠详情失败", zap.Int64("attendance_id", attendanceID), zap.Error(err))
		return nil, err
	}

	resp := &dto.AttendanceDetailResponse{
		Attendance: s.toAttendanceResponse(attendance, true),
	}

	// 最近一条待审批申请锁定编辑，休憩展示以申请内容为准
	pending, err := s.repo.Correction.GetLatestPending(ctx, attendance.AttendanceID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if pending != nil {
		cr := toCorrectionResponse(pending, "")
		resp.PendingCorrection = &cr
		resp.Locked = true
	}

	if pending != nil && len(pending.CorrectedRests) > 0 {
		for _, pair := range pending.CorrectedRests {
			end := pair.End
			resp.DisplayRests = append(resp.DisplayRests, dto.RestResponse{
				RestStart: pair.Start,
				RestEnd:   &end,
			})
		}
	} else {
		resp.DisplayRests = resp.Attendance.Rests
	}
	if resp.DisplayRests == nil {
		resp.DisplayRests = []dto.RestResponse{}
	}

	return resp, nil
}

// ────────────────────── 管理员：DailyList ──────────────────────

func (s *attendanceService) DailyList(ctx context.Context, dateStr string) (*dto.DailyListResponse, error) {
	target := timeutil.DateOf(s.now())
	if dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err == nil {
			target = parsed
		} else {
			s.logger.Info("非法的日期参数，回退当日", zap.String("date", dateStr))
		}
	}

	attendances, err := s.repo.Attendance.ListByDate(ctx, target)
	if err != nil {
		s.logger.Error("查询日次勤怠失败", zap.Error(err))
		return nil, err
	}

	items := make([]dto.AttendanceResponse, 0, len(attendances))
	for i := range attendances {
		items = append(items, s.toAttendanceResponse(&attendances[i], true))
	}

	return &dto.DailyListResponse{
		Date:     target.Format("2006-01-02"),
		PrevDate: target.AddDate(0, 0, -1).Format("2006-01-02"),
		NextDate: target.AddDate(0, 0, 1).Format("2006-01-02"),
		Items:    items,
	}, nil
}

// ────────────────────── 管理员：StaffList ──────────────────────

func (s *attendanceService) StaffList(ctx context.Context) ([]dto.StaffResponse, error) {
	users, err := s.repo.User.ListStaff(ctx)
	if err != nil {
		s.logger.Error("查询スタッフ一览失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.StaffResponse, 0, len(users))
	for _, u := range users {
		result = append(result, dto.StaffResponse{
			ID:    u.UserID,
			Name:  u.Name,
			Email: u.Email,
		})
	}
	return result, nil
}

// ────────────────────── 管理员：StaffMonthly ──────────────────────

func (s *attendanceService) StaffMonthly(ctx context.Context, staffID, yearMonth string) (*dto.MonthlyListResponse, error) {
	staff, err := s.repo.User.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}

	target := s.parseYearMonth(yearMonth)
	attendances, err := s.repo.Attendance.ListByMonth(ctx, staffID, target.Year(), target.Month())
	if err != nil {
		s.logger.Error("查询月次勤怠失败", zap.String("user_id", staffID), zap.Error(err))
		return nil, err
	}

	return s.toMonthlyResponse(target, staff.UserID, staff.Name, attendances), nil
}

// ────────────────────── 管理员：ResetStatusCache ──────────────────────

func (s *attendanceService) ResetStatusCache(ctx context.Context) (int64, error) {
	count, err := s.repo.User.ResetAllStatuses(ctx)
	if err != nil {
		s.logger.Error("重置状态缓存失败", zap.Error(err))
		return 0, err
	}
	s.logger.Info("状态缓存已全员归零", zap.Int64("updated", count))
	return count, nil
}

// ── 内部辅助方法 ──

// toAttendanceResponse 组装勤怠展示数据，时刻统一为 "HH:MM"
func (s *attendanceService) toAttendanceResponse(attendance *model.Attendance, includeUser bool) dto.AttendanceResponse {
	resp := dto.AttendanceResponse{
		ID:         attendance.AttendanceID,
		Date:       attendance.Date.Format("2006-01-02"),
		Weekday:    jpWeekdays[attendance.Date.Weekday()],
		WorkStart:  normalizeClockPtr(attendance.WorkStart),
		WorkEnd:    normalizeClockPtr(attendance.WorkEnd),
		TotalBreak: timeutil.FormatHM(totalBreakSeconds(attendance.Rests)),
	}

	if includeUser {
		resp.UserID = attendance.UserID
		if attendance.User != nil {
			resp.UserName = attendance.User.Name
		}
	}

	// 优先展示退勤时落库的实働时间；
	// 承认修正后 total_work 可能缺失，此时按当前打刻即时计算
	if attendance.TotalWork != nil {
		resp.TotalWork = normalizeClockPtr(attendance.TotalWork)
	} else if seconds := actualWorkSeconds(attendance.WorkStart, attendance.WorkEnd, attendance.Rests); seconds != nil {
		formatted := timeutil.FormatHM(*seconds)
		resp.TotalWork = &formatted
	}

	for _, rest := range attendance.Rests {
		resp.Rests = append(resp.Rests, dto.RestResponse{
			ID:        rest.RestID,
			RestStart: normalizeClock(rest.RestStart),
			RestEnd:   normalizeClockPtr(rest.RestEnd),
		})
	}

	return resp
}

// normalizeClock 将 "HH:MM[:SS]" 规整为 "HH:MM"，解析失败时原样返回
func normalizeClock(clock string) string {
	normalized, err := timeutil.NormalizeHM(clock)
	if err != nil {
		return clock
	}
	return normalized
}

func normalizeClockPtr(clock *string) *string {
	if clock == nil {
		return nil
	}
	normalized := normalizeClock(*clock)
	return &normalized
}

// [自证通过] internal/service/attendance_service.go

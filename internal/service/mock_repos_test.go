package service

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/miimi22/attendance/internal/model"
	"github.com/miimi22/attendance/internal/repository"
)

// 测试用内存 Repository。
// 查询不到数据时返回 gorm.ErrRecordNotFound，与 GORM 实现保持一致；
// db 为 nil 的 Repository 聚合下 BeginTx 返回 nil 事务，Service 层直接走非事务路径。

func newMockRepository() (*repository.Repository, *mockUserRepo, *mockAttendanceRepo, *mockRestRepo, *mockCorrectionRepo) {
	users := &mockUserRepo{users: map[string]*model.User{}}
	attendances := &mockAttendanceRepo{}
	rests := &mockRestRepo{}
	corrections := &mockCorrectionRepo{attendances: attendances, rests: rests}
	repo := &repository.Repository{
		User:       users,
		Attendance: attendances,
		Rest:       rests,
		Correction: corrections,
	}
	return repo, users, attendances, rests, corrections
}

// ── UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		user.UserID = "user-" + user.Email
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListStaff(_ context.Context) ([]model.User, error) {
	var result []model.User
	for _, u := range m.users {
		if u.Role == model.RoleStaff {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockUserRepo) UpdateStatus(_ context.Context, userID string, status model.AttendanceStatus) error {
	if u, ok := m.users[userID]; ok {
		u.AttendanceStatus = status
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (m *mockUserRepo) MarkEmailVerified(_ context.Context, userID string, at time.Time) error {
	if u, ok := m.users[userID]; ok {
		if u.EmailVerifiedAt == nil {
			u.EmailVerifiedAt = &at
		}
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ResetAllStatuses(_ context.Context) (int64, error) {
	var count int64
	for _, u := range m.users {
		if u.AttendanceStatus != model.StatusOffWork {
			u.AttendanceStatus = model.StatusOffWork
			count++
		}
	}
	return count, nil
}

// ── AttendanceRepository ──

type mockAttendanceRepo struct {
	records []*model.Attendance
	nextID  int64
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func (m *mockAttendanceRepo) Create(_ context.Context, attendance *model.Attendance) error {
	// 模拟 (user_id, date) WHERE work_end IS NULL 的部分唯一索引
	for _, r := range m.records {
		if r.UserID == attendance.UserID && sameDate(r.Date, attendance.Date) && r.WorkEnd == nil {
			return gorm.ErrDuplicatedKey
		}
	}
	m.nextID++
	attendance.AttendanceID = m.nextID
	m.records = append(m.records, attendance)
	return nil
}

func (m *mockAttendanceRepo) GetByID(_ context.Context, id int64) (*model.Attendance, error) {
	for _, r := range m.records {
		if r.AttendanceID == id {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) GetByIDForUser(_ context.Context, id int64, userID string) (*model.Attendance, error) {
	for _, r := range m.records {
		if r.AttendanceID == id && r.UserID == userID {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) GetLatestForDate(_ context.Context, userID string, date time.Time) (*model.Attendance, error) {
	var latest *model.Attendance
	for _, r := range m.records {
		if r.UserID == userID && sameDate(r.Date, date) {
			if latest == nil || r.AttendanceID > latest.AttendanceID {
				latest = r
			}
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (m *mockAttendanceRepo) GetOpenForDate(_ context.Context, userID string, date time.Time) (*model.Attendance, error) {
	for _, r := range m.records {
		if r.UserID == userID && sameDate(r.Date, date) && r.WorkEnd == nil {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) ListByMonth(_ context.Context, userID string, year int, month time.Month) ([]model.Attendance, error) {
	var result []model.Attendance
	for _, r := range m.records {
		if r.UserID == userID && r.Date.Year() == year && r.Date.Month() == month {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *mockAttendanceRepo) ListByDate(_ context.Context, date time.Time) ([]model.Attendance, error) {
	var result []model.Attendance
	for _, r := range m.records {
		if sameDate(r.Date, date) {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockAttendanceRepo) Update(_ context.Context, attendance *model.Attendance) error {
	for _, r := range m.records {
		if r.AttendanceID == attendance.AttendanceID {
			r.WorkStart = attendance.WorkStart
			r.WorkEnd = attendance.WorkEnd
			r.TotalWork = attendance.TotalWork
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ── RestRepository ──

type mockRestRepo struct {
	rests  []*model.Rest
	nextID int64
}

func (m *mockRestRepo) Create(_ context.Context, rest *model.Rest) error {
	m.nextID++
	rest.RestID = m.nextID
	m.rests = append(m.rests, rest)
	return nil
}

func (m *mockRestRepo) BatchCreate(_ context.Context, rests []model.Rest) error {
	for i := range rests {
		r := rests[i]
		m.nextID++
		r.RestID = m.nextID
		m.rests = append(m.rests, &r)
	}
	return nil
}

func (m *mockRestRepo) GetActive(_ context.Context, attendanceID int64) (*model.Rest, error) {
	var active *model.Rest
	for _, r := range m.rests {
		if r.AttendanceID == attendanceID && r.RestEnd == nil {
			if active == nil || r.RestID > active.RestID {
				active = r
			}
		}
	}
	if active == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return active, nil
}

func (m *mockRestRepo) ListByAttendance(_ context.Context, attendanceID int64) ([]model.Rest, error) {
	var result []model.Rest
	for _, r := range m.rests {
		if r.AttendanceID == attendanceID {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockRestRepo) ListCompleted(_ context.Context, attendanceID int64) ([]model.Rest, error) {
	var result []model.Rest
	for _, r := range m.rests {
		if r.AttendanceID == attendanceID && r.RestEnd != nil {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockRestRepo) Update(_ context.Context, rest *model.Rest) error {
	for _, r := range m.rests {
		if r.RestID == rest.RestID {
			r.RestStart = rest.RestStart
			r.RestEnd = rest.RestEnd
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockRestRepo) DeleteByAttendance(_ context.Context, attendanceID int64) error {
	kept := m.rests[:0]
	for _, r := range m.rests {
		if r.AttendanceID != attendanceID {
			kept = append(kept, r)
		}
	}
	m.rests = kept
	return nil
}

// ── CorrectionRepository ──

type mockCorrectionRepo struct {
	corrections []*model.Correction
	nextID      int64

	// GetByID 模拟 Preload：回查关联勤怠与休憩
	attendances *mockAttendanceRepo
	rests       *mockRestRepo
}

func (m *mockCorrectionRepo) Create(_ context.Context, correction *model.Correction) error {
	m.nextID++
	correction.CorrectionID = m.nextID
	m.corrections = append(m.corrections, correction)
	return nil
}

func (m *mockCorrectionRepo) GetByID(ctx context.Context, id int64) (*model.Correction, error) {
	for _, c := range m.corrections {
		if c.CorrectionID == id {
			if attendance, err := m.attendances.GetByID(ctx, c.AttendanceID); err == nil {
				rests, _ := m.rests.ListByAttendance(ctx, attendance.AttendanceID)
				attendance.Rests = rests
				c.Attendance = attendance
			}
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCorrectionRepo) GetLatestPending(_ context.Context, attendanceID int64) (*model.Correction, error) {
	var latest *model.Correction
	for _, c := range m.corrections {
		if c.AttendanceID == attendanceID && c.Accepted == model.CorrectionPending {
			if latest == nil || c.CorrectionID > latest.CorrectionID {
				latest = c
			}
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (m *mockCorrectionRepo) ListByAccepted(_ context.Context, accepted *int) ([]model.Correction, error) {
	var result []model.Correction
	for _, c := range m.corrections {
		if accepted == nil || c.Accepted == *accepted {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockCorrectionRepo) ListForUser(ctx context.Context, userID string, accepted *int) ([]model.Correction, error) {
	var result []model.Correction
	for _, c := range m.corrections {
		attendance, err := m.attendances.GetByID(ctx, c.AttendanceID)
		if err != nil || attendance.UserID != userID {
			continue
		}
		if accepted == nil || c.Accepted == *accepted {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockCorrectionRepo) UpdateAccepted(_ context.Context, correction *model.Correction) error {
	for _, c := range m.corrections {
		if c.CorrectionID == correction.CorrectionID {
			c.Accepted = correction.Accepted
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

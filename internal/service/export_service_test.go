package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/miimi22/attendance/internal/model"
	"github.com/miimi22/attendance/internal/repository"
)

func seedExportMonth(users *mockUserRepo, attendances *mockAttendanceRepo, rests *mockRestRepo) {
	users.users["u1"] = &model.User{UserID: "u1", Name: "山田太郎", Email: "u1@example.com", Role: model.RoleStaff}

	start, end, total := "09:00:00", "18:00:00", "08:00:00"
	restEnd := "13:00:00"
	attendances.records = append(attendances.records, &model.Attendance{
		AttendanceID: 1,
		UserID:       "u1",
		Date:         time.Date(2026, 8, 3, 0, 0, 0, 0, time.Local),
		WorkStart:    &start,
		WorkEnd:      &end,
		TotalWork:    &total,
	})
	rests.rests = append(rests.rests, &model.Rest{
		RestID: 1, AttendanceID: 1, RestStart: "12:00:00", RestEnd: &restEnd,
	})
	attendances.records[0].Rests, _ = rests.ListByAttendance(context.Background(), 1)

	// 出勤打刻のみの日
	openStart := "10:00:00"
	attendances.records = append(attendances.records, &model.Attendance{
		AttendanceID: 2,
		UserID:       "u1",
		Date:         time.Date(2026, 8, 4, 0, 0, 0, 0, time.Local),
		WorkStart:    &openStart,
	})
}

func newTestExportService(repo *repository.Repository) *exportService {
	return &exportService{
		repo:   repo,
		logger: zap.NewNop(),
		now:    func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.Local) },
	}
}

func TestMonthlyCSV(t *testing.T) {
	repo, users, attendances, rests, _ := newMockRepository()
	seedExportMonth(users, attendances, rests)
	svc := newTestExportService(repo)

	file, err := svc.MonthlyCSV(context.Background(), "u1", "2026-08")
	if err != nil {
		t.Fatalf("MonthlyCSV() error = %v", err)
	}

	if file.Filename != "山田太郎_202608_attendance.csv" {
		t.Errorf("Filename = %s", file.Filename)
	}
	if !bytes.HasPrefix(file.Data, []byte(utf8BOM)) {
		t.Error("缺少 UTF-8 BOM")
	}

	rows, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(file.Data, []byte(utf8BOM)))).ReadAll()
	if err != nil {
		t.Fatalf("解析 CSV 失败: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("行数 = %d, want 表头+2", len(rows))
	}
	if rows[0][0] != "日付" || rows[0][5] != "実働時間合計" {
		t.Errorf("表头 = %v", rows[0])
	}

	want := []string{"2026/08/03", "月", "09:00", "18:00", "01:00", "08:00"}
	for i, cell := range want {
		if rows[1][i] != cell {
			t.Errorf("rows[1][%d] = %s, want %s", i, rows[1][i], cell)
		}
	}

	// 未退勤日：退勤時刻と実働は "-"
	if rows[2][3] != "-" || rows[2][5] != "-" {
		t.Errorf("未退勤行 = %v, want 退勤/実働为 -", rows[2])
	}
}

func TestMonthlyCSVUnknownUser(t *testing.T) {
	repo, _, _, _, _ := newMockRepository()
	svc := newTestExportService(repo)

	if _, err := svc.MonthlyCSV(context.Background(), "missing", "2026-08"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("MonthlyCSV() error = %v, want ErrUserNotFound", err)
	}
}

func TestMonthlyXLSX(t *testing.T) {
	repo, users, attendances, rests, _ := newMockRepository()
	seedExportMonth(users, attendances, rests)
	svc := newTestExportService(repo)

	file, err := svc.MonthlyXLSX(context.Background(), "u1", "2026-08")
	if err != nil {
		t.Fatalf("MonthlyXLSX() error = %v", err)
	}
	if file.Filename != "山田太郎_202608_attendance.xlsx" {
		t.Errorf("Filename = %s", file.Filename)
	}
	// XLSX 是 ZIP 容器
	if !bytes.HasPrefix(file.Data, []byte("PK")) {
		t.Error("产物不是 ZIP 容器")
	}
}

func TestMonthlyICS(t *testing.T) {
	repo, users, attendances, rests, _ := newMockRepository()
	seedExportMonth(users, attendances, rests)
	svc := newTestExportService(repo)

	file, err := svc.MonthlyICS(context.Background(), "u1", "2026-08")
	if err != nil {
		t.Fatalf("MonthlyICS() error = %v", err)
	}

	body := string(file.Data)
	if !strings.Contains(body, "BEGIN:VCALENDAR") {
		t.Error("缺少 VCALENDAR")
	}
	// 只有已退勤的那一天进日历
	if got := strings.Count(body, "BEGIN:VEVENT"); got != 1 {
		t.Errorf("VEVENT 数 = %d, want 1", got)
	}
	if !strings.Contains(body, "attendance-1@attendance") {
		t.Error("缺少事件 UID")
	}
}

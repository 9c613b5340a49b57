package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/config"
	"github.com/Veraticus/rupeeflow/internal/service"
)

// LogMailer writes links to the log instead of sending mail. It is the
// default when no SMTP host is configured.
type LogMailer struct {
	Logger *slog.Logger
}

// SendVerification logs the verification link.
func (m LogMailer) SendVerification(ctx context.Context, to, name, link string) error {
	common.LoggerOrDefault(m.Logger).InfoContext(ctx, "verification link", "to", to, "name", name, "link", link)
	return nil
}

// SendPasswordReset logs the reset link.
func (m LogMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	common.LoggerOrDefault(m.Logger).InfoContext(ctx, "password reset link", "to", to, "link", link)
	return nil
}

// SMTPMailer delivers plain-text mail through an SMTP relay.
type SMTPMailer struct {
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	cfg  config.MailConfig
}

// NewSMTPMailer creates a mailer for cfg.
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

// NewMailer picks SMTP when a host is configured and logging otherwise.
func NewMailer(cfg config.MailConfig, logger *slog.Logger) service.Mailer {
	if cfg.Host == "" {
		return LogMailer{Logger: logger}
	}
	return NewSMTPMailer(cfg)
}

// SendVerification mails the verification link.
func (m *SMTPMailer) SendVerification(_ context.Context, to, name, link string) error {
	greeting := "Hi"
	if name != "" {
		greeting = "Hi " + name
	}
	body := greeting + ",\n\nConfirm your RupeeFlow account by opening this link:\n\n" + link +
		"\n\nThe link expires in 24 hours.\n"
	return m.deliver(to, "Verify your RupeeFlow account", body)
}

// SendPasswordReset mails the reset link.
func (m *SMTPMailer) SendPasswordReset(_ context.Context, to, link string) error {
	body := "Someone asked to reset your RupeeFlow password. If it was you, open this link:\n\n" + link +
		"\n\nThe link expires in 1 hour. You can ignore this mail otherwise.\n"
	return m.deliver(to, "Reset your RupeeFlow password", body)
}

func (m *SMTPMailer) deliver(to, subject, body string) error {
	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(body)

	var smtpAuth smtp.Auth
	if m.cfg.Username != "" {
		smtpAuth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := m.cfg.Host + ":" + strconv.Itoa(m.cfg.Port)
	if err := m.send(addr, smtpAuth, from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

package utils

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// MailConfig carries the SMTP settings for outgoing mail.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	AppName  string
}

// Common header template for all emails
const emailHeader = `
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; margin: 0; padding: 0;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<div style="text-align: center; margin-bottom: 30px; background-color: #f9f9f9; padding: 20px;">
			<h2 style="color: #C62828; margin: 0;">%s</h2>
		</div>
`

// Common footer template for all emails
const emailFooter = `
		<div style="text-align: center; margin-top: 20px; font-size: 12px; color: #666; border-top: 1px solid #eee; padding-top: 20px;">
			<p>This is an automated message, please do not reply to this email.</p>
		</div>
	</div>
</body>
</html>
`

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer delivers transactional email over SMTP.
type Mailer struct {
	cfg  MailConfig
	send sendFunc
}

func NewMailer(cfg MailConfig) *Mailer {
	return &Mailer{cfg: cfg, send: smtp.SendMail}
}

// SendLoginOTP emails a login code that expires after expiryMinutes.
func (m *Mailer) SendLoginOTP(ctx context.Context, to, code string, expiryMinutes int) error {
	subject := fmt.Sprintf("%s - Your Login Code", m.cfg.AppName)
	body := fmt.Sprintf(emailHeader+`
				<div style="background-color: #f9f9f9; padding: 20px; border-radius: 5px;">
					<h1 style="color: #2c3e50; text-align: center;">Your Login Code</h1>
					<p>Hello,</p>
					<p>Use the code below to sign in to %s:</p>
					<p style="font-size: 32px; letter-spacing: 8px; text-align: center;"><strong>%s</strong></p>
					<p>This code expires in %d minutes. If you did not request it, you can ignore this email.</p>
				</div>`+emailFooter,
		m.cfg.AppName, m.cfg.AppName, code, expiryMinutes)

	return m.sendEmail(ctx, []string{to}, subject, body)
}

func (m *Mailer) sendEmail(ctx context.Context, to []string, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.cfg.Host == "" || m.cfg.Port == 0 || m.cfg.From == "" {
		return fmt.Errorf("email configuration not set")
	}

	headers := []string{
		fmt.Sprintf("From: %s <%s>", m.cfg.AppName, m.cfg.From),
		fmt.Sprintf("To: %s", strings.Join(to, ",")),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
		"",
		body,
	}
	message := strings.Join(headers, "\r\n")

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	if err := m.send(addr, auth, m.cfg.From, to, []byte(message)); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}

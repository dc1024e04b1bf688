package smtp

import (
	"fmt"
	"net/smtp"

	"github.com/barter-api/internal/config"
)

// Category selects the subject and wording of a verification email.
type Category string

const (
	CategoryRegister Category = "register"
	CategoryReset    Category = "reset"
)

// Mailer sends verification emails.
type Mailer interface {
	SendOTP(to, code string, category Category) error
}

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

func (m *mailer) SendOTP(to, code string, category Category) error {
	subject, body := composeOTP(code, category)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg))
}

func composeOTP(code string, category Category) (subject, body string) {
	switch category {
	case CategoryReset:
		subject = "Palitan Tayo: Password Reset Code"
		body = fmt.Sprintf("We received a request to reset your password.\r\n\r\nYour verification code is: %s\r\n\r\nThe code expires in 10 minutes. If you did not request this, you can ignore this email.", code)
	default:
		subject = "Palitan Tayo: Email Verification Code"
		body = fmt.Sprintf("Welcome to Palitan Tayo!\r\n\r\nYour verification code is: %s\r\n\r\nThe code expires in 10 minutes.", code)
	}
	return subject, body
}

package mailing

import (
	"crimson-backend/internal/utils"
	"fmt"
	"strconv"

	"gopkg.in/gomail.v2"
)

//go:generate mockgen -destination=mocks/mock_mailer.go -package=mocks crimson-backend/internal/utils/mailing Mailer

// Mailer sends one HTML message to a list of recipients.
type Mailer interface {
	Send(to []string, subject string, body string) error
}

type MailConfig struct {
	AppURL       string
	SMTPHost     string
	SMTPPort     string
	SMTPSender   string
	SMTPEmail    string
	SMTPPassword string
}

func LoadMailConfig() MailConfig {
	return MailConfig{
		AppURL:       utils.GetConfig("APP_URL"),
		SMTPHost:     utils.GetConfig("SMTP_HOST"),
		SMTPPort:     utils.GetConfig("SMTP_PORT"),
		SMTPSender:   utils.GetConfig("SMTP_SENDER_NAME"),
		SMTPEmail:    utils.GetConfig("SMTP_AUTH_EMAIL"),
		SMTPPassword: utils.GetConfig("SMTP_AUTH_PASSWORD"),
	}
}

type SMTPMailer struct {
	from   string
	dialer *gomail.Dialer
}

func NewSMTPMailer(cfg MailConfig) (*SMTPMailer, error) {
	port, err := strconv.Atoi(cfg.SMTPPort)
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT %q: %w", cfg.SMTPPort, err)
	}
	from := cfg.SMTPEmail
	if cfg.SMTPSender != "" {
		from = fmt.Sprintf("%s <%s>", cfg.SMTPSender, cfg.SMTPEmail)
	}
	return &SMTPMailer{
		from:   from,
		dialer: gomail.NewDialer(cfg.SMTPHost, port, cfg.SMTPEmail, cfg.SMTPPassword),
	}, nil
}

func (m *SMTPMailer) Send(to []string, subject string, body string) error {
	mailer := gomail.NewMessage()
	mailer.SetHeader("From", m.from)
	mailer.SetHeader("To", to...)
	mailer.SetHeader("Subject", subject)
	mailer.SetBody("text/html", body)

	return m.dialer.DialAndSend(mailer)
}

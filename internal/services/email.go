package services

import (
	"crypto/tls"
	"fmt"
	"html"
	"time"

	"github.com/princeprakhar/review-widget-backend/internal/config"
	"gopkg.in/gomail.v2"
)

type EmailService struct {
	config *config.Config
}

func NewEmailService(config *config.Config) *EmailService {
	return &EmailService{config: config}
}

var _ Alerter = (*EmailService)(nil)

func (s *EmailService) SendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.FromEmail)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)
	d.TLSConfig = &tls.Config{ServerName: s.config.SMTPHost}

	return d.DialAndSend(m)
}

// SendUpstreamAuthAlert tells the operator that the review provider rejected our credentials.
// Without a configured recipient the alert is dropped.
func (s *EmailService) SendUpstreamAuthAlert(provider string, cause error) error {
	if s.config.AlertEmail == "" {
		return nil
	}

	subject := fmt.Sprintf("[reviews widget] %s rejected API credentials", provider)
	body := fmt.Sprintf(`
		<h2>Review sweep aborted</h2>
		<p>The review provider <strong>%s</strong> rejected the configured API credentials.</p>
		<p><strong>Error:</strong> %s</p>
		<p><strong>Time:</strong> %s</p>
		<p>No widget will be refreshed until the key is fixed.</p>
	`, html.EscapeString(provider), html.EscapeString(cause.Error()), time.Now().UTC().Format(time.RFC1123))

	return s.SendEmail(s.config.AlertEmail, subject, body)
}

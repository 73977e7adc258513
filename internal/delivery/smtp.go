package delivery

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/rs/zerolog"

	"github.com/churnhealth/backend/internal/models"
	"github.com/churnhealth/backend/internal/outreach"
)

// MailDispatcher composes a retention email per customer and submits it
// to the configured relay over an authenticated STARTTLS session.
type MailDispatcher struct {
	Composer  outreach.Composer
	FromEmail string
	Server    string
	Port      int
	User      string
	Password  string
	Logger    zerolog.Logger
}

func (d *MailDispatcher) Mode() string { return ModeSMTP }

// Configured reports whether every required relay setting is present.
// Missing credentials disable sending; they are never guessed.
func (d *MailDispatcher) Configured() bool {
	return d.FromEmail != "" && d.Server != "" && d.Port != 0 && d.User != "" && d.Password != ""
}

func (d *MailDispatcher) Send(ctx context.Context, customer models.ScoredRecord, draft string) models.OutreachAttempt {
	attempt := models.OutreachAttempt{
		CustomerID:  customer.ID,
		Email:       customer.Email,
		HealthScore: customer.HealthScore,
		AttemptedAt: time.Now().UTC(),
	}

	if !d.Configured() {
		attempt.Status = models.StatusFailedToSend
		attempt.Detail = "mail relay not configured: set SMTP_FROM_EMAIL, SMTP_SERVER, SMTP_PORT, SMTP_USER, SMTP_PASSWORD"
		return attempt
	}
	if customer.Email == "" {
		attempt.Status = models.StatusFailedToSend
		attempt.Detail = "customer has no email address"
		return attempt
	}

	body := draft
	if body == "" {
		if d.Composer == nil {
			attempt.Status = models.StatusGenerationFailed
			attempt.Detail = "email generation is not configured"
			return attempt
		}
		var err error
		body, err = d.Composer.Compose(ctx, customer)
		if err != nil {
			d.Logger.Warn().Err(err).Str("customer_id", customer.ID).Msg("email generation failed")
			attempt.Status = models.StatusGenerationFailed
			attempt.Detail = err.Error()
			return attempt
		}
	}

	subject := outreach.Subject(customer.ID)
	msg := buildMessage(d.FromEmail, customer.Email, subject, body)
	if err := d.sendSMTP(ctx, customer.Email, msg); err != nil {
		d.Logger.Warn().Err(err).Str("customer_id", customer.ID).Msg("mail send failed")
		attempt.Status = models.StatusFailedToSend
		attempt.Detail = err.Error()
		return attempt
	}

	attempt.Status = models.StatusSent
	return attempt
}

// buildMessage assembles a single-part HTML email.
func buildMessage(from, to, subject, htmlBody string) []byte {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("From: %s\r\n", from))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", to))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(htmlBody)
	buf.WriteString("\r\n")
	return buf.Bytes()
}

// sendSMTP performs the relay transaction: connect, STARTTLS, AUTH PLAIN,
// hand off the message. Success is relay acceptance, not end-user receipt.
func (d *MailDispatcher) sendSMTP(ctx context.Context, to string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", d.Server, d.Port)
	dialer := &net.Dialer{Timeout: 30 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("SMTP connect to %s: %w", addr, err)
	}
	client, err := smtp.NewClient(conn, d.Server)
	if err != nil {
		conn.Close()
		return fmt.Errorf("SMTP client: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); !ok {
		return fmt.Errorf("relay %s does not support STARTTLS", addr)
	}
	if err := client.StartTLS(&tls.Config{ServerName: d.Server}); err != nil {
		return fmt.Errorf("STARTTLS: %w", err)
	}
	auth := smtp.PlainAuth("", d.User, d.Password, d.Server)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("AUTH: %w", err)
	}

	if err := client.Mail(d.FromEmail); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("DATA close: %w", err)
	}
	return client.Quit()
}

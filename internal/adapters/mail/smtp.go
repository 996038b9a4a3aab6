// Package mail implements outbound email delivery. SMTPMailer speaks to any
// STARTTLS-capable SMTP provider; QueuedMailer wraps a sender with a Redis
// queue so request handlers never wait on SMTP.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/lumioapp/auth-service/internal/ports"
)

// SMTPConfig holds the delivery settings for SMTPMailer.
type SMTPConfig struct {
	Host        string
	Port        string
	Username    string
	Password    string
	FromAddress string
}

// SMTPMailer sends email over SMTP with mandatory STARTTLS. Plaintext
// sessions are refused even if the server would accept them.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

var _ ports.EmailSender = (*SMTPMailer)(nil)

// NopMailer discards all outbound email. Used when SMTP is not configured.
type NopMailer struct{}

func (NopMailer) Send(context.Context, string, string, string, string) error { return nil }

// Send delivers a multipart/alternative message carrying both HTML and plain
// text bodies. Either part may be empty; at least one must be set.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, html, text string) error {
	if html == "" && text == "" {
		return fmt.Errorf("email to %s has no body", to)
	}
	msg := buildMessage(m.cfg.FromAddress, to, subject, html, text)
	if err := m.sendMail(ctx, to, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

const multipartBoundary = "=_auth_service_alt"

func buildMessage(from, to, subject, html, text string) string {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + sanitizeHeader(subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")

	switch {
	case html != "" && text != "":
		b.WriteString("Content-Type: multipart/alternative; boundary=\"" + multipartBoundary + "\"\r\n\r\n")
		b.WriteString("--" + multipartBoundary + "\r\n")
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		b.WriteString(text + "\r\n")
		b.WriteString("--" + multipartBoundary + "\r\n")
		b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		b.WriteString(html + "\r\n")
		b.WriteString("--" + multipartBoundary + "--\r\n")
	case html != "":
		b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		b.WriteString(html)
	default:
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		b.WriteString(text)
	}
	return b.String()
}

// sanitizeHeader strips CR/LF so user-influenced values cannot inject headers.
func sanitizeHeader(v string) string {
	v = strings.ReplaceAll(v, "\r", "")
	return strings.ReplaceAll(v, "\n", "")
}

// sendMail dials the SMTP server, enforces STARTTLS, authenticates, and
// delivers msg. The dial respects ctx cancellation.
func (m *SMTPMailer) sendMail(ctx context.Context, to, msg string) error {
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", m.cfg.Host+":"+m.cfg.Port)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); !ok {
		return fmt.Errorf("smtp server does not advertise STARTTLS: refusing plaintext session")
	}
	if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
		return fmt.Errorf("smtp starttls: %w", err)
	}

	if m.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(m.cfg.FromAddress); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("smtp RCPT TO: %w", err)
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := fmt.Fprint(wc, msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}

	return c.Quit()
}

package sender

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

const implicitTLSPort = 465

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// UseTLS upgrades plain connections with STARTTLS. Port 465 always
	// uses implicit TLS.
	UseTLS  bool
	Timeout time.Duration
}

type SMTPSender struct {
	cfg SMTPConfig
	now func() time.Time
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP_HOST not set")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP_FROM_EMAIL not set")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPSender{cfg: cfg, now: time.Now}, nil
}

// SendEmail makes a single delivery attempt. Retries are the caller's job.
func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, body string) (SendResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if err := s.send(ctx, to, subject, body); err != nil {
		return SendResult{}, fmt.Errorf("SMTP error sending email to %s: %w", to, err)
	}

	sentAt := s.now()
	return SendResult{
		MessageID: fmt.Sprintf("smtp-%d", sentAt.UnixNano()),
		SentAt:    sentAt,
	}, nil
}

func (s *SMTPSender) send(ctx context.Context, to, subject, body string) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	conn, err := s.dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if s.cfg.UseTLS && s.cfg.Port != implicitTLSPort {
		if ok, _ := c.Extension("STARTTLS"); !ok {
			return fmt.Errorf("server does not support STARTTLS")
		}
		if err := c.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if s.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := c.Mail(s.cfg.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(buildMessage(s.cfg.From, to, subject, body)); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (s *SMTPSender) dial(ctx context.Context, addr string) (net.Conn, error) {
	if s.cfg.Port == implicitTLSPort {
		d := &tls.Dialer{Config: &tls.Config{ServerName: s.cfg.Host}}
		return d.DialContext(ctx, "tcp", addr)
	}
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

// headerValue folds line breaks into spaces so a value can never start a
// new header.
var headerValue = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + headerValue.Replace(from) + "\r\n")
	b.WriteString("To: " + headerValue.Replace(to) + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", headerValue.Replace(subject)) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

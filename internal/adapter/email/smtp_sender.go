package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/donaldmo/pandopot-api/internal/app/config"
	"github.com/donaldmo/pandopot-api/internal/platform/logger"
	"gopkg.in/gomail.v2"
)

var ErrNoRecipients = errors.New("no recipients provided for email")

type EmailSender interface {
	Send(ctx context.Context, to []string, subject, bodyHTML, bodyText string) error
}

type smtpSender struct {
	from    string
	log     logger.Logger
	d       *gomail.Dialer
	timeout time.Duration
	slots   chan struct{}
	deliver func(*gomail.Message) error
}

func NewSMTPSender(cfg config.SMTPConfig, log logger.Logger) (EmailSender, error) {
	if cfg.Host == "" || cfg.Port == 0 || cfg.SenderEmail == "" {
		return nil, fmt.Errorf("SMTP host, port, and sender email must be configured")
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	serverName := cfg.ServerName
	if serverName == "" {
		serverName = cfg.Host
	}
	switch strings.ToLower(cfg.Encryption) {
	case "ssl":
		dialer.SSL = true
		dialer.TLSConfig = &tls.Config{ServerName: serverName, MinVersion: tls.VersionTLS12}
	case "tls", "starttls":
		dialer.TLSConfig = &tls.Config{ServerName: serverName, MinVersion: tls.VersionTLS12}
	case "none", "":
	default:
		return nil, fmt.Errorf("unknown SMTP encryption %q", cfg.Encryption)
	}

	concurrent := cfg.MaxConcurrent
	if concurrent <= 0 {
		concurrent = 4
	}
	from := cfg.SenderEmail
	if cfg.SenderName != "" {
		from = gomail.NewMessage().FormatAddress(cfg.SenderEmail, cfg.SenderName)
	}

	s := &smtpSender{
		from:    from,
		log:     log,
		d:       dialer,
		timeout: cfg.WriteTimeout,
		slots:   make(chan struct{}, concurrent),
	}
	s.deliver = func(m *gomail.Message) error { return dialer.DialAndSend(m) }
	return s, nil
}

func buildMessage(from string, to []string, subject, bodyHTML, bodyText string) (*gomail.Message, error) {
	if len(to) == 0 {
		return nil, ErrNoRecipients
	}
	if bodyHTML == "" && bodyText == "" {
		return nil, fmt.Errorf("email body (HTML or Text) must be provided")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetDateHeader("Date", time.Now())
	if bodyText != "" {
		m.SetBody("text/plain", bodyText)
		if bodyHTML != "" {
			m.AddAlternative("text/html", bodyHTML)
		}
	} else {
		m.SetBody("text/html", bodyHTML)
	}
	return m, nil
}

// Send waits for a free session slot, then delivers within the configured write timeout.
func (s *smtpSender) Send(ctx context.Context, to []string, subject, bodyHTML, bodyText string) error {
	m, err := buildMessage(s.from, to, subject, bodyHTML, bodyText)
	if err != nil {
		return err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("no SMTP session available for %q: %w", subject, ctx.Err())
	}

	done := make(chan error, 1)
	go func() {
		defer func() { <-s.slots }()
		done <- s.deliver(m)
	}()

	select {
	case <-ctx.Done():
		s.log.Warnf("SMTP delivery of %q to %d recipients timed out: %v", subject, len(to), ctx.Err())
		return fmt.Errorf("smtp delivery of %q: %w", subject, ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp delivery of %q: %w", subject, err)
		}
	}
	s.log.Debugf("SMTP delivered %q to %d recipients", subject, len(to))
	return nil
}

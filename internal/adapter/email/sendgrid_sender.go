package email

import (
	"context"
	"fmt"

	"github.com/donaldmo/pandopot-api/internal/app/config"
	"github.com/donaldmo/pandopot-api/internal/platform/logger"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendGridSender struct {
	client *sendgrid.Client
	from   *mail.Email
	log    logger.Logger
}

func NewSendGridSender(cfg config.SendGridConfig, log logger.Logger) (EmailSender, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("sendgrid api key is empty")
	}
	if cfg.FromEmail == "" {
		return nil, fmt.Errorf("sendgrid from address is empty")
	}
	return &sendGridSender{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.FromEmail),
		log:    log,
	}, nil
}

func buildSendGridMessage(from *mail.Email, to []string, subject, bodyHTML, bodyText string) (*mail.SGMailV3, error) {
	if len(to) == 0 {
		return nil, ErrNoRecipients
	}
	if bodyHTML == "" && bodyText == "" {
		return nil, fmt.Errorf("email body (HTML or Text) must be provided")
	}

	m := mail.NewV3Mail()
	m.SetFrom(from)
	m.Subject = subject

	p := mail.NewPersonalization()
	for _, addr := range to {
		p.AddTos(mail.NewEmail("", addr))
	}
	m.AddPersonalizations(p)

	if bodyText != "" {
		m.AddContent(mail.NewContent("text/plain", bodyText))
	}
	if bodyHTML != "" {
		m.AddContent(mail.NewContent("text/html", bodyHTML))
	}
	return m, nil
}

func (s *sendGridSender) Send(ctx context.Context, to []string, subject, bodyHTML, bodyText string) error {
	message, err := buildSendGridMessage(s.from, to, subject, bodyHTML, bodyText)
	if err != nil {
		return err
	}

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		s.log.Errorf("SendGrid send to %v failed: %v", to, err)
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if response.StatusCode >= 400 {
		s.log.Errorf("SendGrid rejected mail to %v: status=%d body=%s", to, response.StatusCode, response.Body)
		return fmt.Errorf("sendgrid send failed: status=%d", response.StatusCode)
	}

	s.log.Infof("SendGrid mail sent to %v, subject: %s, status=%d", to, subject, response.StatusCode)
	return nil
}

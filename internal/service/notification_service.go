package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"time"

	"github.com/donaldmo/pandopot-api/internal/domain/apperr"
	"github.com/donaldmo/pandopot-api/internal/platform/logger"
	"github.com/donaldmo/pandopot-api/internal/platform/metrics"
)

const (
	SubjectOrderReceipt = "Your order has been received"
	SubjectBoostReceipt = "Pandopot Product Boost Purchase"

	ReceiptKindOrder = "orders"
	ReceiptKindBoost = "boosts"

	defaultSendTimeout = 30 * time.Second
)

// EmailSender is satisfied by the SMTP and SendGrid senders.
type EmailSender interface {
	Send(ctx context.Context, to []string, subject, bodyHTML, bodyText string) error
}

// ReceiptArchiver stores a copy of every receipt that was sent.
type ReceiptArchiver interface {
	Put(ctx context.Context, kind, ref string, receipt interface{}) (string, error)
}

// ReceiptItem is one receipt row. Product sales fill Item/Description/Price,
// boosts fill Name/Price/ExpiryDate.
type ReceiptItem struct {
	Item        string `json:"item,omitempty"`
	Description string `json:"description,omitempty"`
	Name        string `json:"name,omitempty"`
	Price       string `json:"price"`
	ExpiryDate  string `json:"expiryDate,omitempty"`
}

type Receipt struct {
	Kind           string        `json:"kind"`
	Reference      string        `json:"reference"`
	RecipientEmail string        `json:"recipientEmail"`
	DisplayName    string        `json:"displayName"`
	Subject        string        `json:"subject"`
	Items          []ReceiptItem `json:"items"`
	IssuedAt       time.Time     `json:"issuedAt"`
}

type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (m ContactMessage) Validate() error {
	if strings.TrimSpace(m.Email) == "" || strings.TrimSpace(m.Message) == "" {
		return apperr.NewValidation("ContactMessage.Validate", "email and message are required")
	}
	return nil
}

// FormatRand renders an amount the way receipts show it.
func FormatRand(amount float64) string {
	return fmt.Sprintf("R%.2f", amount)
}

// Notifier sends mail without blocking the caller. Failures are logged and counted only.
type Notifier interface {
	SendReceipt(ctx context.Context, receipt Receipt)
	SendContactMessage(ctx context.Context, msg ContactMessage) error
	// Wait blocks until in-flight sends finish.
	Wait()
}

type notificationService struct {
	sender       EmailSender
	archive      ReceiptArchiver
	metrics      *metrics.Metrics
	log          logger.Logger
	contactEmail string
	sendTimeout  time.Duration
	wg           sync.WaitGroup
}

type NotificationServiceConfig struct {
	ContactEmail string
	SendTimeout  time.Duration
}

// NewNotificationService accepts a nil sender (mail disabled) and a nil archive.
func NewNotificationService(
	sender EmailSender,
	archive ReceiptArchiver,
	m *metrics.Metrics,
	log logger.Logger,
	cfg NotificationServiceConfig,
) Notifier {
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &notificationService{
		sender:       sender,
		archive:      archive,
		metrics:      m,
		log:          log,
		contactEmail: cfg.ContactEmail,
		sendTimeout:  timeout,
	}
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<html><body>
<p>Hi {{.DisplayName}},</p>
<p>{{.Subject}}.</p>
<table>
{{range .Items}}<tr>{{if .Item}}<td>{{.Item}}</td><td>{{.Description}}</td>{{else}}<td>{{.Name}}</td><td>{{.ExpiryDate}}</td>{{end}}<td>{{.Price}}</td></tr>
{{end}}</table>
<p>Reference: {{.Reference}}</p>
</body></html>`))

var contactTemplate = template.Must(template.New("contact").Parse(`<html><body>
<p><b>From:</b> {{.Name}} &lt;{{.Email}}&gt; {{.Phone}}</p>
<p><b>Subject:</b> {{.Subject}}</p>
<p>{{.Message}}</p>
</body></html>`))

func renderReceiptText(r Receipt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n%s.\n\n", r.DisplayName, r.Subject)
	for _, item := range r.Items {
		if item.Item != "" {
			fmt.Fprintf(&b, "- %s (%s): %s\n", item.Item, item.Description, item.Price)
		} else {
			fmt.Fprintf(&b, "- %s until %s: %s\n", item.Name, item.ExpiryDate, item.Price)
		}
	}
	fmt.Fprintf(&b, "\nReference: %s\n", r.Reference)
	return b.String()
}

func (s *notificationService) SendReceipt(ctx context.Context, receipt Receipt) {
	if receipt.IssuedAt.IsZero() {
		receipt.IssuedAt = time.Now().UTC()
	}
	detached := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sendCtx, cancel := context.WithTimeout(detached, s.sendTimeout)
		defer cancel()

		s.archiveReceipt(sendCtx, receipt)
		s.deliverReceipt(sendCtx, receipt)
	}()
}

func (s *notificationService) archiveReceipt(ctx context.Context, receipt Receipt) {
	if s.archive == nil {
		return
	}
	key, err := s.archive.Put(ctx, receipt.Kind, receipt.Reference, receipt)
	if err != nil {
		s.log.Warnf("Failed to archive %s receipt %s: %v", receipt.Kind, receipt.Reference, err)
		return
	}
	s.log.Debugf("Receipt %s archived as %s", receipt.Reference, key)
}

func (s *notificationService) deliverReceipt(ctx context.Context, receipt Receipt) {
	if s.sender == nil {
		s.metrics.Notification("receipt", "skipped")
		return
	}
	if receipt.RecipientEmail == "" {
		s.log.Warnf("Receipt %s has no recipient email, not sent", receipt.Reference)
		s.metrics.Notification("receipt", "skipped")
		return
	}

	var body bytes.Buffer
	if err := receiptTemplate.Execute(&body, receipt); err != nil {
		s.log.Errorf("Failed to render receipt %s: %v", receipt.Reference, err)
		s.metrics.Notification("receipt", "failed")
		return
	}

	if err := s.sender.Send(ctx, []string{receipt.RecipientEmail}, receipt.Subject, body.String(), renderReceiptText(receipt)); err != nil {
		s.log.Errorf("Failed to send receipt %s to %s: %v", receipt.Reference, receipt.RecipientEmail, err)
		s.metrics.Notification("receipt", "failed")
		return
	}
	s.log.Infof("Receipt %s sent to %s", receipt.Reference, receipt.RecipientEmail)
	s.metrics.Notification("receipt", "sent")
}

func (s *notificationService) SendContactMessage(ctx context.Context, msg ContactMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if s.sender == nil || s.contactEmail == "" {
		s.log.Warnf("Contact message from %s dropped: no mail transport configured", msg.Email)
		s.metrics.Notification("contact", "skipped")
		return nil
	}

	var body bytes.Buffer
	if err := contactTemplate.Execute(&body, msg); err != nil {
		return apperr.Wrap(apperr.KindInternal, "NotificationService.SendContactMessage", err)
	}
	subject := msg.Subject
	if subject == "" {
		subject = "Contact us message"
	}
	text := fmt.Sprintf("From: %s <%s> %s\n\n%s\n", msg.Name, msg.Email, msg.Phone, msg.Message)
	detached := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sendCtx, cancel := context.WithTimeout(detached, s.sendTimeout)
		defer cancel()

		if err := s.sender.Send(sendCtx, []string{s.contactEmail}, subject, body.String(), text); err != nil {
			s.log.Errorf("Failed to forward contact message from %s: %v", msg.Email, err)
			s.metrics.Notification("contact", "failed")
			return
		}
		s.metrics.Notification("contact", "sent")
	}()
	return nil
}

func (s *notificationService) Wait() {
	s.wg.Wait()
}

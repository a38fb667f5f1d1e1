package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/biolink/pkg/observability"
	"github.com/resend/resend-go/v2"
)

// ErrDisabled is returned when no email transport is configured
var ErrDisabled = errors.New("email delivery disabled")

// Message is a rendered email ready for delivery
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a rendered message and returns the provider message ID
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// ResendSender delivers through the Resend API
type ResendSender struct {
	client *resend.Client
}

// NewResendSender creates a sender for the given API key
func NewResendSender(apiKey string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey)}
}

// NewResendSenderWithClient wraps an existing client, e.g. one pointed at a test server
func NewResendSenderWithClient(client *resend.Client) *ResendSender {
	return &ResendSender{client: client}
}

func (s *ResendSender) Send(ctx context.Context, msg Message) (string, error) {
	resp, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return "", fmt.Errorf("resend: %w", err)
	}
	return resp.Id, nil
}

// Mailer renders and sends biolink's transactional emails
type Mailer struct {
	sender   Sender
	from     string
	logger   *observability.Logger
	recorder observability.Recorder
}

// NewMailer creates a mailer. A nil sender disables delivery: sends are
// logged and return ErrDisabled.
func NewMailer(sender Sender, from string, logger *observability.Logger, recorder observability.Recorder) *Mailer {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if recorder == nil {
		recorder = observability.Recorders{}
	}
	return &Mailer{
		sender:   sender,
		from:     from,
		logger:   logger.WithField("component", "mailer"),
		recorder: recorder,
	}
}

// Enabled reports whether a transport is configured
func (m *Mailer) Enabled() bool {
	return m.sender != nil
}

// SendOTP emails a login code
func (m *Mailer) SendOTP(ctx context.Context, to, code string, ttl time.Duration) error {
	data := otpData{Code: code, Minutes: int(ttl.Round(time.Minute) / time.Minute)}
	return m.send(ctx, templateOTP, to, "Your biolink login code", data)
}

// SendEarningsDigest emails a merchant their weekly earnings summary
func (m *Mailer) SendEarningsDigest(ctx context.Context, to string, digest Digest) error {
	subject := fmt.Sprintf("Your biolink earnings: %s", digest.PeriodLabel())
	return m.send(ctx, templateDigest, to, subject, digest.view())
}

func (m *Mailer) send(ctx context.Context, name, to, subject string, data interface{}) (err error) {
	defer func() { m.recorder.RecordEmail(ctx, name, err) }()

	log := m.logger.WithFields(map[string]interface{}{
		"template": name,
		"to":       to,
	})
	if !m.Enabled() {
		log.Warn("email delivery disabled, skipping send")
		return ErrDisabled
	}

	html, text, err := render(name, data)
	if err != nil {
		return err
	}

	id, err := m.sender.Send(ctx, Message{
		From:    m.from,
		To:      strings.TrimSpace(to),
		Subject: subject,
		HTML:    html,
		Text:    text,
	})
	if err != nil {
		log.WithError(err).Error("failed to send email")
		return fmt.Errorf("failed to send %s email: %w", name, err)
	}

	log.WithField("message_id", id).Info("email sent")
	return nil
}

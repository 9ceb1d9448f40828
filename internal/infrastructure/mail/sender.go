package mail

import (
	"context"
	"fmt"
	"log/slog"

	gomail "github.com/wneessen/go-mail"

	"github.com/acsclub/clubnews/internal/config"
	"github.com/acsclub/clubnews/internal/domain"
	"github.com/acsclub/clubnews/internal/ports"
)

// NewSender selects the SMTP transport when mail is configured and the
// console fallback otherwise. The fallback keeps local development working
// without credentials; its sends are reported as DeliveryConsole so callers
// can tell logged-only runs from delivered ones.
func NewSender(cfg config.MailConfig, logger *slog.Logger) (ports.DigestSender, error) {
	if !cfg.Configured() {
		if logger != nil {
			logger.Warn("mail transport not configured, digests will be logged only")
		}
		return &ConsoleSender{logger: logger}, nil
	}
	return NewSMTPSender(cfg)
}

// SMTPSender delivers digests over SMTP via go-mail.
type SMTPSender struct {
	client   *gomail.Client
	from     string
	fromName string
}

var _ ports.DigestSender = (*SMTPSender)(nil)

// NewSMTPSender builds the SMTP client from mail configuration.
func NewSMTPSender(cfg config.MailConfig) (*SMTPSender, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("new smtp client: %w", err)
	}

	return &SMTPSender{client: client, from: cfg.From, fromName: cfg.FromName}, nil
}

// Mode reports the delivery mode of this transport.
func (s *SMTPSender) Mode() domain.DeliveryMode { return domain.DeliverySMTP }

// Send delivers one HTML document to one recipient.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) (domain.DeliveryMode, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.from); err != nil {
		return domain.DeliverySMTP, fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return domain.DeliverySMTP, fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlBody)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return domain.DeliverySMTP, fmt.Errorf("send mail to %s: %w", to, err)
	}
	return domain.DeliverySMTP, nil
}

// ConsoleSender logs digests instead of delivering them.
type ConsoleSender struct {
	logger *slog.Logger
}

var _ ports.DigestSender = (*ConsoleSender)(nil)

// Mode reports the delivery mode of this transport.
func (s *ConsoleSender) Mode() domain.DeliveryMode { return domain.DeliveryConsole }

// Send records the digest in the log. It never fails.
func (s *ConsoleSender) Send(_ context.Context, to, subject, htmlBody string) (domain.DeliveryMode, error) {
	if s.logger != nil {
		s.logger.Info("digest logged (console mode)",
			"to", to,
			"subject", subject,
			"body_bytes", len(htmlBody),
		)
	}
	return domain.DeliveryConsole, nil
}

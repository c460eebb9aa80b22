package mail

import (
	"context"

	"github.com/tiptop/backend/internal/config"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// SMTPMailer delivers through an SMTP relay. STARTTLS is negotiated by the
// dialer when the server offers it.
type SMTPMailer struct {
	from string
	send func(...*gomail.Message) error
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)

	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTPMailer{from: from, send: dialer.DialAndSend}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", textBody)
	msg.AddAlternative("text/html", htmlBody)

	return m.send(msg)
}

// LogMailer logs outgoing mail instead of sending it. It is used when no SMTP
// host is configured. Bodies carry reset codes, so they only appear at debug
// level.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, to, subject, _, textBody string) error {
	m.log.Info("Mail delivery disabled, message dropped",
		zap.String("to", to),
		zap.String("subject", subject))
	m.log.Debug("Dropped message body", zap.String("to", to), zap.String("body", textBody))
	return nil
}

// New picks the SMTP mailer when a host is configured.
func New(cfg config.MailConfig, log *zap.Logger) Mailer {
	if cfg.Enabled() {
		return NewSMTPMailer(cfg)
	}
	return NewLogMailer(log)
}

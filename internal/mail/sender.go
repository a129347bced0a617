package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/spigell/hr-copilot/internal/session"
)

// Sender delivers messages over SMTP with STARTTLS, matching the endpoints
// most providers (gmail included) expose on port 587.
type Sender struct {
	cfg    SMTPConfig
	logger *zap.Logger
}

func NewSender(cfg SMTPConfig, logger *zap.Logger) *Sender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Sender{cfg: cfg, logger: logger}
}

// Send delivers the message, using the session credential override when set.
// All failures are wrapped in ErrSend so callers can preserve the draft.
func (s *Sender) Send(ctx context.Context, msg Message, override *session.Credentials) error {
	cfg := s.cfg.withOverride(override)

	if cfg.Server == "" || cfg.Username == "" || cfg.Password == "" {
		return fmt.Errorf("%w: smtp credentials are not configured", ErrSend)
	}

	if msg.To == "" {
		return fmt.Errorf("%w: recipient is required", ErrSend)
	}

	m := gomail.NewMsg()
	if err := m.From(cfg.Username); err != nil {
		return fmt.Errorf("%w: invalid sender address: %v", ErrSend, err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("%w: invalid recipient address: %v", ErrSend, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)

	client, err := gomail.NewClient(cfg.Server,
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSend, err)
	}

	s.logger.Debug("sending email",
		zap.String("smtp_server", cfg.Server),
		zap.Int("smtp_port", cfg.Port),
		zap.String("to", msg.To),
	)

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("%w: %v", ErrSend, err)
	}

	s.logger.Info("email sent", zap.String("to", msg.To))

	return nil
}

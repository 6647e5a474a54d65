// Package mail sends transactional email through a configurable transport.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"devtrack/internal/config"
)

// ErrNoRecipient is returned when a message has no To address.
var ErrNoRecipient = errors.New("mail message has no recipient")

// Message is a single HTML email.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

func (m Message) validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipient
	}
	if m.From == "" {
		return errors.New("mail message has no sender")
	}
	return nil
}

// Sender delivers messages. Implementations are safe for concurrent use
// and hold no per-message state.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender builds the Sender for the configured transport.
func NewSender(ctx context.Context, cfg config.MailConfig, logger *slog.Logger) (Sender, error) {
	switch cfg.Transport {
	case config.MailTransportSMTP:
		return NewSMTPSender(cfg)
	case config.MailTransportSES:
		return NewSESSender(ctx, cfg)
	case config.MailTransportLog, "":
		logger.Warn("no mail relay configured, outgoing mail will only be logged")
		return NewLogSender(logger), nil
	}
	return nil, fmt.Errorf("unknown mail transport %q", cfg.Transport)
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "mail not delivered (log transport)",
		"from", msg.From, "to", msg.To, "subject", msg.Subject, "html_bytes", len(msg.HTML))
	return nil
}

package notify

import (
	"fmt"
	"io"
	"log/slog"

	"formini/internal/config"
)

// New builds the notifier selected by cfg.Driver. Real transports fall back
// to the console. The returned closer releases transport resources.
func New(cfg config.NotifierConfig, logger *slog.Logger) (Notifier, io.Closer, error) {
	console := NewConsole(logger)
	switch cfg.Driver {
	case "", "console":
		return console, noopCloser{}, nil
	case "smtp":
		mailer, err := NewSMTPMailer(cfg.SMTP)
		if err != nil {
			return nil, nil, fmt.Errorf("notifier smtp: %w", err)
		}
		return WithFallback(mailer, console, logger), noopCloser{}, nil
	case "amqp":
		pub, err := NewQueuePublisher(cfg.AMQP)
		if err != nil {
			return nil, nil, fmt.Errorf("notifier amqp: %w", err)
		}
		return WithFallback(pub, console, logger), pub, nil
	default:
		return nil, nil, fmt.Errorf("unknown notifier driver %q", cfg.Driver)
	}
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

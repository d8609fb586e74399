package mail

import (
	"context"
	"log/slog"
)

// LogSender writes messages to a logger instead of delivering them. It is meant for
// development: bodies carry one-time tokens and are only logged at debug level.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a sender logging envelopes at info level and bodies at debug
// level on logger.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (l *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "email not delivered (log sender)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("tag", msg.Tag),
	)
	l.logger.DebugContext(ctx, "undelivered email body",
		slog.String("to", msg.To),
		slog.String("tag", msg.Tag),
		slog.String("body", msg.Text),
	)
	return nil
}

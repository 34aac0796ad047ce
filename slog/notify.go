package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/wikidigest"
)

// Ensure LoggingNotifier implements wikidigest.Notifier.
var _ wikidigest.Notifier = (*LoggingNotifier)(nil)

// LoggingNotifier wraps a Notifier with logging.
type LoggingNotifier struct {
	next   wikidigest.Notifier
	logger *slog.Logger
}

// NewLoggingNotifier creates a new LoggingNotifier.
func NewLoggingNotifier(next wikidigest.Notifier, logger *slog.Logger) *LoggingNotifier {
	return &LoggingNotifier{next: next, logger: logger}
}

// Send delegates to the wrapped notifier and logs the operation.
func (n *LoggingNotifier) Send(ctx context.Context, msg *wikidigest.Message) (err error) {
	defer func(begin time.Time) {
		n.logger.Info("send email",
			"to", msg.To,
			"subject", msg.Subject,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return n.next.Send(ctx, msg)
}

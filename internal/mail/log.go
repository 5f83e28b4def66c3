package mail

import (
	"context"

	"go.uber.org/zap"
)

// LogSender writes messages to the log instead of sending them. Used in
// development when no SMTP relay is configured.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender { return &LogSender{log: log} }

func (s *LogSender) Send(_ context.Context, m Message) error {
	s.log.Info("DEVELOPER MODE: email not sent",
		zap.String("to", m.To),
		zap.String("subject", m.Subject),
		zap.String("html", m.HTML))
	return nil
}

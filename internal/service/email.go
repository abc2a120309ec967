package service

import (
	"log/slog"
)

// LogEmailService stands in for a mail gateway and only records the email
// in the log.
type LogEmailService struct {
	logger *slog.Logger
}

func NewLogEmailService(logger *slog.Logger) *LogEmailService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmailService{logger: logger}
}

func (s *LogEmailService) SendEmail(to, subject, body string) error {
	s.logger.Info("Sending email notification",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", body))
	return nil
}

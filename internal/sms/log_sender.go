package sms

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSender заглушка SMS шлюза: пишет код в лог вместо отправки.
// Используется в development и в тестовых стендах.
type LogSender struct {
	log *logrus.Logger
}

// NewLogSender создаёт логирующий отправитель.
func NewLogSender(log *logrus.Logger) *LogSender {
	return &LogSender{log: log}
}

// Send пишет сообщение в лог.
func (s *LogSender) Send(ctx context.Context, phone, text string) error {
	s.log.WithFields(logrus.Fields{
		"phone": phone,
		"text":  text,
	}).Info("sms: отправка сообщения")
	return nil
}

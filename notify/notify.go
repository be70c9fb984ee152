// Package notify verschickt Benachrichtigungen per SMTP oder schreibt sie ins Log.
package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	mail "github.com/go-mail/mail/v2"
	"go.uber.org/zap"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/config"
)

// Message ist eine HTML-E-Mail an einen Empfänger.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Dispatcher verschickt Nachrichten.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// New wählt SMTP, wenn ein Host konfiguriert ist, sonst den Log-Versand.
func New(cfg *config.Config, logger *zap.Logger) Dispatcher {
	if cfg.SMTPHost == "" {
		logger.Info("Kein SMTP_HOST gesetzt, E-Mails werden nur geloggt.")
		return NewLogDispatcher(logger)
	}
	return NewSMTPDispatcher(cfg)
}

// SMTPDispatcher verschickt Mails über STARTTLS.
type SMTPDispatcher struct {
	from   string
	dialer *mail.Dialer
}

// NewSMTPDispatcher erstellt den Versand aus der SMTP-Konfiguration.
func NewSMTPDispatcher(cfg *config.Config) *SMTPDispatcher {
	d := mail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{ServerName: cfg.SMTPHost}
	return &SMTPDispatcher{from: cfg.MailFrom, dialer: d}
}

func (s *SMTPDispatcher) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("kein empfänger angegeben")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp-versand an %s: %w", msg.To, err)
	}
	return nil
}

// previewLen begrenzt den geloggten HTML-Text.
const previewLen = 500

// LogDispatcher schreibt Nachrichten nur ins Log.
type LogDispatcher struct {
	Logger *zap.Logger
}

// NewLogDispatcher erstellt einen LogDispatcher.
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{Logger: logger}
}

func (l *LogDispatcher) Send(_ context.Context, msg Message) error {
	preview := msg.HTML
	if len(preview) > previewLen {
		preview = preview[:previewLen] + "..."
	}
	l.Logger.Info("E-Mail-Simulation.",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body_preview", preview))
	return nil
}

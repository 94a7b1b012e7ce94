// Package sender получает напоминания из очереди и отправляет их письмом.
package sender

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/subify/internal/lib/sl"
	"github.com/magabrotheeeer/subify/internal/lib/smtp"
	"github.com/magabrotheeeer/subify/internal/models"
)

// ErrNoRecipient у напоминания нет адреса получателя.
var ErrNoRecipient = errors.New("reminder has no recipient")

// Transport открывает соединение с почтовым сервером.
type Transport interface {
	Connect() (smtp.Client, error)
	From() string
}

// SenderService отправляет письма-напоминания.
type SenderService struct {
	transport Transport
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(log *slog.Logger, transport Transport) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// SendRenewalReminder обрабатывает тело сообщения из очереди напоминаний.
// Напоминание без получателя подтверждается без отправки.
func (s *SenderService) SendRenewalReminder(body []byte) error {
	const op = "sender.SendRenewalReminder"

	var reminder models.Reminder
	if err := json.Unmarshal(body, &reminder); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("%s: error unmarshalling message: %w", op, err)
	}
	if reminder.Email == "" {
		s.log.Warn("dropping reminder", sl.Err(ErrNoRecipient))
		return nil
	}

	subject, text := RenderReminder(reminder)
	if err := s.sendEmail([]string{reminder.Email}, subject, text); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RenderReminder возвращает тему и текст письма.
func RenderReminder(r models.Reminder) (string, string) {
	subject := fmt.Sprintf("Subify: %d subscription(s) awaiting payment", len(r.Items))

	var b strings.Builder
	name := r.Name
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hello, %s!\n\n", name)
	fmt.Fprintf(&b, "As of %s the following renewals are due:\n\n", r.AsOf)
	for _, item := range r.Items {
		fmt.Fprintf(&b, "  - %s: %s %s (due %s)\n", item.Name, item.Price.StringFixed(2), item.Currency, item.NextRenewalDate)
	}
	b.WriteString("\nMark them as paid in Subify to move them to the next cycle.\n")
	return subject, b.String()
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	from := s.transport.From()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		strings.ReplaceAll(bodyText, "\n", "\r\n"),
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			s.log.Debug("smtp client close", sl.Err(err))
		}
	}()

	if err := client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.Any("to", to))
	return nil
}

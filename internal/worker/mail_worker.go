// Package worker processes queued temp-password mail deliveries.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"budgetbook/internal/amqp"
)

// Mailer delivers a temporary password to a recipient.
type Mailer interface {
	SendTemporaryPassword(ctx context.Context, email, tempPassword string) error
}

// LogMailer writes the mail to the log instead of sending it. Used in
// development and wherever no SMTP relay is configured.
type LogMailer struct{}

func (LogMailer) SendTemporaryPassword(ctx context.Context, email, tempPassword string) error {
	slog.InfoContext(ctx, "Temporary password mail",
		"to", email,
		"temp_password", tempPassword)
	return nil
}

// MailWorker consumes mail messages and hands them to the mailer.
type MailWorker struct {
	mailer Mailer
}

func NewMailWorker(mailer Mailer) *MailWorker {
	return &MailWorker{mailer: mailer}
}

// HandleMailMessage processes one queued delivery. Returning an error
// requeues the message.
func (w *MailWorker) HandleMailMessage(ctx context.Context, msg *amqp.MailMessage) error {
	if msg.Email == "" || msg.TempPassword == "" {
		return fmt.Errorf("incomplete mail message")
	}

	if err := w.mailer.SendTemporaryPassword(ctx, msg.Email, msg.TempPassword); err != nil {
		return fmt.Errorf("send temp password mail: %w", err)
	}

	slog.InfoContext(ctx, "Delivered temp password mail",
		"email", msg.Email,
		"enqueued_at", msg.Timestamp)
	return nil
}

package worker

import (
	"context"
	"errors"
	"testing"

	"budgetbook/internal/amqp"
)

type fakeMailer struct {
	sent []string
	err  error
}

func (m *fakeMailer) SendTemporaryPassword(_ context.Context, email, tempPassword string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email+":"+tempPassword)
	return nil
}

func TestHandleMailMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers complete messages", func(t *testing.T) {
		mailer := &fakeMailer{}
		w := NewMailWorker(mailer)

		err := w.HandleMailMessage(ctx, amqp.NewMailMessage("user@example.com", "abcd1234"))
		if err != nil {
			t.Fatalf("HandleMailMessage: %v", err)
		}
		if len(mailer.sent) != 1 || mailer.sent[0] != "user@example.com:abcd1234" {
			t.Errorf("sent = %v", mailer.sent)
		}
	})

	t.Run("rejects incomplete messages", func(t *testing.T) {
		w := NewMailWorker(&fakeMailer{})
		if err := w.HandleMailMessage(ctx, &amqp.MailMessage{Email: "user@example.com"}); err == nil {
			t.Error("missing temp password should error")
		}
		if err := w.HandleMailMessage(ctx, &amqp.MailMessage{TempPassword: "abcd1234"}); err == nil {
			t.Error("missing email should error")
		}
	})

	t.Run("propagates mailer failures for requeue", func(t *testing.T) {
		w := NewMailWorker(&fakeMailer{err: errors.New("smtp down")})
		if err := w.HandleMailMessage(ctx, amqp.NewMailMessage("user@example.com", "abcd1234")); err == nil {
			t.Error("mailer failure should propagate")
		}
	})
}

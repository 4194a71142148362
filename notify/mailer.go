// Package notify sends email when enrollments and class reviews happen.
package notify

import (
	"context"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"
	"go.uber.org/zap"
	"sporty-backend/errs"
	"sporty-backend/log"
)

type Mail struct {
	To      string
	Subject string
	Text    string
}

type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

type Mailgun struct {
	mg   mailgun.Mailgun
	from string
}

func NewMailgun(domain, apiKey, from string) *Mailgun {
	return &Mailgun{mg: mailgun.NewMailgun(domain, apiKey), from: from}
}

func (m *Mailgun) Send(ctx context.Context, mail Mail) error {
	msg := m.mg.NewMessage(m.from, mail.Subject, mail.Text, mail.To)

	_, id, err := m.mg.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrMail, err)
	}

	log.Logger.Debug("mail sent", zap.String("id", id), zap.String("to", mail.To))
	return nil
}

// LogMailer writes mail to the log instead of sending it.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, m Mail) error {
	log.Logger.Info("mail", zap.String("to", m.To), zap.String("subject", m.Subject))
	return nil
}

package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"sporty-backend/events"
	"sporty-backend/log"
)

const sendTimeout = 10 * time.Second

type Notifier struct {
	events events.Consumer
	mailer Mailer
}

func NewNotifier(c events.Consumer, m Mailer) *Notifier {
	return &Notifier{events: c, mailer: m}
}

// Run delivers mail for every event until ctx is done. Failed sends are
// logged and dropped.
func (n *Notifier) Run(ctx context.Context) error {
	enrollments, err := n.events.ConsumeEnrollments(ctx)
	if err != nil {
		return err
	}
	classes, err := n.events.ConsumeClasses(ctx)
	if err != nil {
		return err
	}

	for enrollments != nil || classes != nil {
		select {
		case ev, ok := <-enrollments:
			if !ok {
				enrollments = nil
				continue
			}
			n.send(ctx, receipt(ev))
		case ev, ok := <-classes:
			if !ok {
				classes = nil
				continue
			}
			n.send(ctx, review(ev))
		}
	}

	return nil
}

func (n *Notifier) send(ctx context.Context, m Mail) {
	if m.To == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	if err := n.mailer.Send(ctx, m); err != nil {
		log.Logger.Error("unable to send mail", zap.Error(err), zap.String("to", m.To))
	}
}

func receipt(ev *events.EnrollmentEvent) Mail {
	return Mail{
		To:      ev.Email,
		Subject: fmt.Sprintf("You are enrolled in %s", ev.ClassName),
		Text: fmt.Sprintf(
			"Thanks for your payment of $%.2f.\n\nClass: %s\nTransaction: %s\nDate: %s\n",
			ev.Price, ev.ClassName, ev.TransactionID, ev.At.Format(time.RFC1123),
		),
	}
}

func review(ev *events.ClassEvent) Mail {
	m := Mail{To: ev.InstructorEmail}

	switch ev.Type {
	case events.ClassApproved:
		m.Subject = fmt.Sprintf("%s was approved", ev.ClassName)
		m.Text = fmt.Sprintf("Your class %s is now open for enrollment.\n", ev.ClassName)
	case events.ClassDenied:
		m.Subject = fmt.Sprintf("%s was denied", ev.ClassName)
		m.Text = fmt.Sprintf("Your class %s was not approved.\n", ev.ClassName)
	case events.ClassFeedback:
		m.Subject = fmt.Sprintf("Feedback on %s", ev.ClassName)
		m.Text = fmt.Sprintf("An administrator left feedback on %s:\n\n%s\n", ev.ClassName, ev.Feedback)
	}

	return m
}

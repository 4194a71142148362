package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"sporty-backend/log"
)

const subscriberBuffer = 16

type subscriber[T any] struct {
	ID   uuid.UUID
	Ch   chan *T
	done <-chan struct{}
}

// Local fans events out to subscribers in the same process. Publishing never
// waits on a subscriber: one whose buffer is full misses the event.
type Local struct {
	lock        sync.Mutex
	enrollments []*subscriber[EnrollmentEvent]
	classes     []*subscriber[ClassEvent]
}

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Close() error {
	return nil
}

func (l *Local) PublishEnrollment(ctx context.Context, event *EnrollmentEvent) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	return deliver(ctx, l.enrollments, event)
}

func (l *Local) PublishClass(ctx context.Context, event *ClassEvent) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	return deliver(ctx, l.classes, event)
}

func (l *Local) ConsumeEnrollments(ctx context.Context) (<-chan *EnrollmentEvent, error) {
	return subscribe(ctx, &l.lock, &l.enrollments), nil
}

func (l *Local) ConsumeClasses(ctx context.Context) (<-chan *ClassEvent, error) {
	return subscribe(ctx, &l.lock, &l.classes), nil
}

func subscribe[T any](ctx context.Context, lock *sync.Mutex, list *[]*subscriber[T]) <-chan *T {
	sub := &subscriber[T]{
		ID:   uuid.New(),
		Ch:   make(chan *T, subscriberBuffer),
		done: ctx.Done(),
	}

	lock.Lock()
	*list = append(*list, sub)
	lock.Unlock()

	go func() {
		<-ctx.Done()
		lock.Lock()
		defer lock.Unlock()

		a := *list
		for k, v := range a {
			if v.ID == sub.ID {
				a[k] = a[len(a)-1]
				a[len(a)-1] = nil
				*list = a[:len(a)-1]
				break
			}
		}
		close(sub.Ch)
	}()

	return sub.Ch
}

// deliver runs with the list lock held, so no subscription can close its
// channel mid-send. Sends must not block while it is held.
func deliver[T any](ctx context.Context, subs []*subscriber[T], event *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, s := range subs {
		select {
		case s.Ch <- event:
		case <-s.done:
		default:
			log.Logger.Warn("subscriber is full, dropping event", zap.Stringer("subscriber", s.ID))
		}
	}
	return nil
}

// Subscribers reports the number of live subscriptions across both topics.
func (l *Local) Subscribers() int {
	l.lock.Lock()
	defer l.lock.Unlock()

	return len(l.enrollments) + len(l.classes)
}

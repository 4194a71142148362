package events

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
	"sporty-backend/errs"
	"sporty-backend/log"
)

const dialAttempts = 6

// Bus publishes and consumes events through fanout exchanges. Every
// consumer gets its own exclusive, auto-deleted queue, so each subscriber
// sees every event.
type Bus struct {
	conn *amqp.Connection
}

// Connect dials RabbitMQ, backing off exponentially between attempts, and
// declares the exchanges.
func Connect(url string) (*Bus, error) {
	log.Logger.Info("Trying to connect to rabbitmq...")

	var conn *amqp.Connection
	t := time.Second
	for i := 0; i < dialAttempts; i++ {
		var err error
		conn, err = amqp.Dial(url)
		if err != nil {
			if i == dialAttempts-1 {
				return nil, fmt.Errorf("%w: %v", errs.ErrQueue, err)
			}
			log.Logger.Warn("rabbitmq dial failed", zap.Error(err), zap.Duration("retry_in", t))
			time.Sleep(t)
			t *= 2

			continue
		}

		break
	}
	log.Logger.Info("Connected to rabbitmq")

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %v", errs.ErrQueue, err)
	}
	defer ch.Close()

	for _, name := range []string{EnrollmentsExchange, ClassesExchange} {
		err = ch.ExchangeDeclare(
			name,
			"fanout",
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%w: declare %s: %v", errs.ErrQueue, name, err)
		}
	}

	return &Bus{conn: conn}, nil
}

func (b *Bus) Close() error {
	return b.conn.Close()
}

func (b *Bus) PublishEnrollment(ctx context.Context, event *EnrollmentEvent) error {
	return b.publish(ctx, EnrollmentsExchange, event)
}

func (b *Bus) PublishClass(ctx context.Context, event *ClassEvent) error {
	return b.publish(ctx, ClassesExchange, event)
}

func (b *Bus) publish(ctx context.Context, exchange string, event interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(event); err != nil {
		return fmt.Errorf("%w: encode: %v", errs.ErrQueue, err)
	}

	rch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrQueue, err)
	}
	defer rch.Close()

	err = rch.Publish(exchange, "", false, false, amqp.Publishing{
		ContentType: "application/x-gob",
		Timestamp:   time.Now(),
		Body:        buf.Bytes(),
	})
	if err != nil {
		return fmt.Errorf("%w: publish: %v", errs.ErrQueue, err)
	}

	return nil
}

func (b *Bus) ConsumeEnrollments(ctx context.Context) (<-chan *EnrollmentEvent, error) {
	msgs, rch, err := b.subscribe(EnrollmentsExchange)
	if err != nil {
		return nil, err
	}

	ch := make(chan *EnrollmentEvent)
	go pump(ctx, rch, msgs, ch)
	return ch, nil
}

func (b *Bus) ConsumeClasses(ctx context.Context) (<-chan *ClassEvent, error) {
	msgs, rch, err := b.subscribe(ClassesExchange)
	if err != nil {
		return nil, err
	}

	ch := make(chan *ClassEvent)
	go pump(ctx, rch, msgs, ch)
	return ch, nil
}

func (b *Bus) subscribe(exchange string) (<-chan amqp.Delivery, *amqp.Channel, error) {
	rch, err := b.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errs.ErrQueue, err)
	}

	q, err := rch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = rch.Close()
		return nil, nil, fmt.Errorf("%w: %v", errs.ErrQueue, err)
	}

	if err := rch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		_ = rch.Close()
		return nil, nil, fmt.Errorf("%w: %v", errs.ErrQueue, err)
	}

	msgs, err := rch.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		_ = rch.Close()
		return nil, nil, fmt.Errorf("%w: %v", errs.ErrQueue, err)
	}

	return msgs, rch, nil
}

// pump decodes deliveries into out until ctx is done or the channel is
// closed by the broker. Undecodable deliveries are logged and skipped.
func pump[T any](ctx context.Context, rch *amqp.Channel, msgs <-chan amqp.Delivery, out chan<- *T) {
	defer close(out)
	defer func() {
		if err := rch.Close(); err != nil && err != amqp.ErrClosed {
			log.Logger.Error("unable to close channel", zap.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				return
			}

			var event T
			if err := gob.NewDecoder(bytes.NewReader(d.Body)).Decode(&event); err != nil {
				log.Logger.Error("unable to decode event", zap.Error(err))
				continue
			}

			select {
			case out <- &event:
			case <-ctx.Done():
				return
			}
		}
	}
}

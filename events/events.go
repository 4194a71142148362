// Package events carries enrollment and class status changes to whoever
// reacts to them, over RabbitMQ or within the process.
package events

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	EnrollmentsExchange = "enrollments"
	ClassesExchange     = "classes"
)

type EnrollmentEvent struct {
	EnrollmentID    primitive.ObjectID
	SelectionID     primitive.ObjectID
	ClassID         primitive.ObjectID
	Email           string
	TransactionID   string
	Price           float64
	ClassName       string
	InstructorEmail string
	At              time.Time
}

type ClassEventType uint32

const (
	ClassApproved ClassEventType = iota
	ClassDenied
	ClassFeedback
)

func (t ClassEventType) String() string {
	switch t {
	case ClassApproved:
		return "approved"
	case ClassDenied:
		return "denied"
	case ClassFeedback:
		return "feedback"
	}
	return "unknown"
}

type ClassEvent struct {
	Type            ClassEventType
	ClassID         primitive.ObjectID
	ClassName       string
	InstructorEmail string
	Feedback        string
	At              time.Time
}

type Publisher interface {
	PublishEnrollment(ctx context.Context, event *EnrollmentEvent) error
	PublishClass(ctx context.Context, event *ClassEvent) error
}

// Consumer subscriptions last until ctx is done, after which the returned
// channel is closed.
type Consumer interface {
	ConsumeEnrollments(ctx context.Context) (<-chan *EnrollmentEvent, error)
	ConsumeClasses(ctx context.Context) (<-chan *ClassEvent, error)
}

type Broker interface {
	Publisher
	Consumer
	Close() error
}

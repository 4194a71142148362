// Package enrollment turns a paid-for selection into an enrollment.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"sporty-backend/entity"
	"sporty-backend/errs"
	"sporty-backend/events"
	"sporty-backend/jwt"
	"sporty-backend/log"
	"sporty-backend/metrics"
	"sporty-backend/store"
)

const publishTimeout = 5 * time.Second

type Request struct {
	TransactionID string               `json:"transactionId"`
	Price         float64              `json:"price"`
	Date          time.Time            `json:"date"`
	EnrolledClass entity.EnrolledClass `json:"enrolledClass"`
}

// Result reports the outcome of each step in the order they ran.
type Result struct {
	PaymentResult     *store.InsertResult `json:"paymentResult"`
	DeleteResult      *store.DeleteResult `json:"deleteResult"`
	ClassUpdateResult *store.UpdateResult `json:"classUpdateResult"`
}

type Deps struct {
	Selections  store.Selections
	Enrollments store.Enrollments
	Classes     store.Classes
	Tx          store.Transactor
	Events      events.Publisher
	Metrics     metrics.Recorder
	Now         func() time.Time
}

type Options struct {
	// SeatGuard makes the seat decrement conditional on a free seat, so
	// availableSeats never goes below zero.
	SeatGuard bool
}

type Coordinator struct {
	deps Deps
	opts Options
}

func NewCoordinator(deps Deps, opts Options) *Coordinator {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Coordinator{deps: deps, opts: opts}
}

func (c *Coordinator) validate(req *Request) error {
	if math.IsNaN(req.Price) || math.IsInf(req.Price, 0) || req.Price <= 0 {
		return errs.ErrInvalidAmount
	}
	if req.TransactionID == "" {
		return fmt.Errorf("%w: transactionId required", errs.ErrInvalidBody)
	}
	if req.EnrolledClass.ID.IsZero() || req.EnrolledClass.ClassID.IsZero() {
		return errs.ErrInvalidID
	}
	return nil
}

// Enroll records the payment, consumes the selection and takes a seat, in
// that order, inside one transaction. A selection that is already gone
// fails with errs.ErrSelectionConsumed; with the seat guard on a full class
// fails with errs.ErrNoSeats. When the store rolls back, neither failure
// leaves an enrollment behind.
//
// Without rollback the steps persist one at a time. A full class is then
// refused before anything is written, and a step failing after the payment
// was recorded returns errs.ErrDatabase with the partial state logged.
func (c *Coordinator) Enroll(ctx context.Context, id jwt.Identity, req Request) (*Result, error) {
	if !id.Valid() {
		return nil, errs.ErrUnauthorized
	}

	logger := log.Logger.With(
		zap.String("email", id.Email()),
		zap.String("selection", req.EnrolledClass.ID.Hex()),
		zap.String("class", req.EnrolledClass.ClassID.Hex()),
	)

	if err := c.validate(&req); err != nil {
		c.deps.Metrics.RecordEnrollment(metrics.OutcomeRejected)
		return nil, err
	}

	date := req.Date
	if date.IsZero() {
		date = c.deps.Now()
	}

	if !c.deps.Tx.Atomic() && c.opts.SeatGuard {
		if err := c.checkSeats(ctx, req.EnrolledClass.ClassID); err != nil {
			return nil, c.fail(logger, err)
		}
	}

	var (
		res   = &Result{}
		en    *entity.Enrollment
		wrote bool
	)
	err := c.deps.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		wrote = false

		sel, err := c.deps.Selections.FindByID(ctx, req.EnrolledClass.ID)
		if errors.Is(err, errs.ErrNotFound) {
			return errs.ErrSelectionConsumed
		}
		if err != nil {
			return err
		}
		if sel.UserEmail != id.Email() {
			return errs.ErrForbidden
		}
		if sel.ClassID != req.EnrolledClass.ClassID {
			return fmt.Errorf("%w: selection is for another class", errs.ErrInvalidBody)
		}

		en = &entity.Enrollment{
			Email:         id.Email(),
			TransactionID: req.TransactionID,
			Price:         req.Price,
			Date:          date,
			EnrolledClass: entity.EnrolledClass{
				ID:            sel.ID,
				ClassSnapshot: sel.ClassSnapshot,
			},
		}

		res.PaymentResult, err = c.deps.Enrollments.Insert(ctx, en)
		if errors.Is(err, errs.ErrAlreadyExists) {
			return errs.ErrSelectionConsumed
		}
		if err != nil {
			return err
		}
		wrote = true

		res.DeleteResult, err = c.deps.Selections.Delete(ctx, sel.ID)
		if err != nil {
			return err
		}
		if res.DeleteResult.DeletedCount == 0 {
			return errs.ErrSelectionConsumed
		}

		res.ClassUpdateResult, err = c.deps.Classes.TakeSeat(ctx, sel.ClassID, c.opts.SeatGuard)
		if err != nil {
			return err
		}
		if c.opts.SeatGuard && res.ClassUpdateResult.MatchedCount == 0 {
			if err := c.checkSeats(ctx, sel.ClassID); err != nil {
				return err
			}
			return errs.ErrNoSeats
		}

		return nil
	})
	if err != nil {
		if wrote && !c.deps.Tx.Atomic() {
			logger.Error("partial enrollment",
				zap.Error(err),
				zap.String("enrollment", en.ID.Hex()),
				zap.Bool("selectionDeleted", res.DeleteResult != nil && res.DeleteResult.DeletedCount > 0),
			)
			c.deps.Metrics.RecordEnrollment(metrics.OutcomeFailed)
			return nil, errs.ErrDatabase
		}
		return nil, c.fail(logger, err)
	}

	c.deps.Metrics.RecordEnrollment(metrics.OutcomeEnrolled)
	logger.Info("enrolled", zap.String("enrollment", en.ID.Hex()))
	c.publish(ctx, en)

	return res, nil
}

// checkSeats fails when the class is gone or has no free seat.
func (c *Coordinator) checkSeats(ctx context.Context, classID primitive.ObjectID) error {
	class, err := c.deps.Classes.FindByID(ctx, classID)
	if errors.Is(err, errs.ErrNotFound) {
		return fmt.Errorf("%w: class does not exist", errs.ErrInvalidBody)
	}
	if err != nil {
		return err
	}
	if class.AvailableSeats <= 0 {
		return errs.ErrNoSeats
	}
	return nil
}

func (c *Coordinator) fail(logger *zap.Logger, err error) error {
	c.deps.Metrics.RecordEnrollment(outcome(err))
	if isExpected(err) {
		logger.Debug("enrollment refused", zap.Error(err))
		return err
	}

	logger.Error("enrollment failed", zap.Error(err))
	return errs.ErrDatabase
}

func (c *Coordinator) publish(ctx context.Context, en *entity.Enrollment) {
	if c.deps.Events == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err := c.deps.Events.PublishEnrollment(ctx, &events.EnrollmentEvent{
		EnrollmentID:    en.ID,
		SelectionID:     en.EnrolledClass.ID,
		ClassID:         en.EnrolledClass.ClassID,
		Email:           en.Email,
		TransactionID:   en.TransactionID,
		Price:           en.Price,
		ClassName:       en.EnrolledClass.Name,
		InstructorEmail: en.EnrolledClass.InstructorEmail,
		At:              en.Date,
	})
	if err != nil {
		log.Logger.Warn("unable to publish enrollment", zap.Error(err), zap.String("enrollment", en.ID.Hex()))
	}
}

func (c *Coordinator) ListByEmail(ctx context.Context, email string) ([]entity.Enrollment, error) {
	return c.deps.Enrollments.ListByEmail(ctx, email)
}

func isExpected(err error) bool {
	for _, e := range []error{
		errs.ErrSelectionConsumed,
		errs.ErrNoSeats,
		errs.ErrForbidden,
		errs.ErrInvalidBody,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

func outcome(err error) string {
	switch {
	case errors.Is(err, errs.ErrNoSeats):
		return metrics.OutcomeNoSeats
	case errors.Is(err, errs.ErrSelectionConsumed):
		return metrics.OutcomeSelectionConsumed
	case isExpected(err):
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeFailed
}

// Package store defines the persistence contracts used by the services. The
// mongostore package implements them against MongoDB and memstore keeps
// everything in process.
package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"sporty-backend/entity"
)

// PopularLimit is how many rows the popular classes and instructors
// reports return.
const PopularLimit = 6

type InsertResult struct {
	InsertedID primitive.ObjectID `json:"insertedId"`
}

type UpdateResult struct {
	MatchedCount  int64               `json:"matchedCount"`
	ModifiedCount int64               `json:"modifiedCount"`
	UpsertedID    *primitive.ObjectID `json:"upsertedId,omitempty"`
}

type DeleteResult struct {
	DeletedCount int64 `json:"deletedCount"`
}

type Users interface {
	List(ctx context.Context) ([]entity.User, error)
	ListByRole(ctx context.Context, role entity.Role) ([]entity.User, error)
	// FindByEmail returns errs.ErrNotFound when no user has the email.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	// InsertIfMissing inserts u unless a user with the same email exists, in
	// which case it returns a nil result and false.
	InsertIfMissing(ctx context.Context, u *entity.User) (*InsertResult, bool, error)
	SetRole(ctx context.Context, id primitive.ObjectID, role entity.Role) (*UpdateResult, error)
	// PopularInstructors ranks instructors by the students across all of
	// their classes, then by email.
	PopularInstructors(ctx context.Context, limit int) ([]entity.PopularInstructor, error)
}

type Classes interface {
	List(ctx context.Context) ([]entity.Class, error)
	ListByStatus(ctx context.Context, status entity.ClassStatus) ([]entity.Class, error)
	ListByInstructor(ctx context.Context, email string) ([]entity.Class, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*entity.Class, error)
	Insert(ctx context.Context, c *entity.Class) (*InsertResult, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status entity.ClassStatus) (*UpdateResult, error)
	SetFeedback(ctx context.Context, id primitive.ObjectID, feedback string) (*UpdateResult, error)
	// Popular ranks classes by numberOfStudents, then by id.
	Popular(ctx context.Context, limit int) ([]entity.Class, error)
	// TakeSeat decrements availableSeats and increments numberOfStudents.
	// With guard set the update only matches while availableSeats > 0.
	TakeSeat(ctx context.Context, id primitive.ObjectID, guard bool) (*UpdateResult, error)
}

type Selections interface {
	Insert(ctx context.Context, s *entity.Selection) (*InsertResult, error)
	ListByUser(ctx context.Context, email string) ([]entity.Selection, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*entity.Selection, error)
	// Delete reports zero deleted documents when the selection is absent
	// instead of failing.
	Delete(ctx context.Context, id primitive.ObjectID) (*DeleteResult, error)
}

type Enrollments interface {
	Insert(ctx context.Context, e *entity.Enrollment) (*InsertResult, error)
	ListByEmail(ctx context.Context, email string) ([]entity.Enrollment, error)
}

// Transactor runs fn so that either all of its writes persist or none do,
// when the backend supports it.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	// Atomic reports whether a failing fn currently rolls back its writes.
	Atomic() bool
}

// Store bundles the collections of one backend.
type Store struct {
	Users       Users
	Classes     Classes
	Selections  Selections
	Enrollments Enrollments
	Tx          Transactor

	Ping  func(ctx context.Context) error
	Close func(ctx context.Context) error
}

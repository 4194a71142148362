package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"sporty-backend/entity"
	"sporty-backend/store"
)

type Enrollments struct {
	col *mongo.Collection
}

func NewEnrollments(db *mongo.Database) *Enrollments {
	return &Enrollments{col: db.Collection(EnrollmentsCollection)}
}

func (e *Enrollments) Insert(ctx context.Context, en *entity.Enrollment) (*store.InsertResult, error) {
	if en.ID.IsZero() {
		en.ID = primitive.NewObjectID()
	}

	if _, err := e.col.InsertOne(ctx, en); err != nil {
		return nil, dbErr("insert enrollment", err)
	}
	return &store.InsertResult{InsertedID: en.ID}, nil
}

func (e *Enrollments) ListByEmail(ctx context.Context, email string) ([]entity.Enrollment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	return findAll[entity.Enrollment](ctx, e.col, "list enrollments", bson.M{"email": email}, opts)
}

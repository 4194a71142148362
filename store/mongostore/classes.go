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

type Classes struct {
	col *mongo.Collection
}

func NewClasses(db *mongo.Database) *Classes {
	return &Classes{col: db.Collection(ClassesCollection)}
}

func (c *Classes) List(ctx context.Context) ([]entity.Class, error) {
	return findAll[entity.Class](ctx, c.col, "list classes", bson.M{})
}

func (c *Classes) ListByStatus(ctx context.Context, status entity.ClassStatus) ([]entity.Class, error) {
	return findAll[entity.Class](ctx, c.col, "list classes by status", bson.M{"status": status})
}

func (c *Classes) ListByInstructor(ctx context.Context, email string) ([]entity.Class, error) {
	return findAll[entity.Class](ctx, c.col, "list classes by instructor", bson.M{"instructorEmail": email})
}

func (c *Classes) FindByID(ctx context.Context, id primitive.ObjectID) (*entity.Class, error) {
	var class entity.Class
	if err := c.col.FindOne(ctx, bson.M{"_id": id}).Decode(&class); err != nil {
		return nil, dbErr("find class", err)
	}
	return &class, nil
}

func (c *Classes) Insert(ctx context.Context, class *entity.Class) (*store.InsertResult, error) {
	if class.ID.IsZero() {
		class.ID = primitive.NewObjectID()
	}
	if class.Status == "" {
		class.Status = entity.StatusPending
	}

	if _, err := c.col.InsertOne(ctx, class); err != nil {
		return nil, dbErr("insert class", err)
	}
	return &store.InsertResult{InsertedID: class.ID}, nil
}

func (c *Classes) SetStatus(ctx context.Context, id primitive.ObjectID, status entity.ClassStatus) (*store.UpdateResult, error) {
	res, err := c.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return nil, dbErr("set class status", err)
	}
	return updateResult(res), nil
}

func (c *Classes) SetFeedback(ctx context.Context, id primitive.ObjectID, feedback string) (*store.UpdateResult, error) {
	res, err := c.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"feedback": feedback}})
	if err != nil {
		return nil, dbErr("set class feedback", err)
	}
	return updateResult(res), nil
}

func (c *Classes) Popular(ctx context.Context, limit int) ([]entity.Class, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "numberOfStudents", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))

	return findAll[entity.Class](ctx, c.col, "popular classes", bson.M{}, opts)
}

func (c *Classes) TakeSeat(ctx context.Context, id primitive.ObjectID, guard bool) (*store.UpdateResult, error) {
	filter := bson.M{"_id": id}
	if guard {
		filter["availableSeats"] = bson.M{"$gt": 0}
	}

	res, err := c.col.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{
		"availableSeats":   -1,
		"numberOfStudents": 1,
	}})
	if err != nil {
		return nil, dbErr("take seat", err)
	}
	return updateResult(res), nil
}

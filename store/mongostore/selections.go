package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"sporty-backend/entity"
	"sporty-backend/store"
)

type Selections struct {
	col *mongo.Collection
}

func NewSelections(db *mongo.Database) *Selections {
	return &Selections{col: db.Collection(SelectionsCollection)}
}

func (s *Selections) Insert(ctx context.Context, sel *entity.Selection) (*store.InsertResult, error) {
	if sel.ID.IsZero() {
		sel.ID = primitive.NewObjectID()
	}

	if _, err := s.col.InsertOne(ctx, sel); err != nil {
		return nil, dbErr("insert selection", err)
	}
	return &store.InsertResult{InsertedID: sel.ID}, nil
}

func (s *Selections) ListByUser(ctx context.Context, email string) ([]entity.Selection, error) {
	return findAll[entity.Selection](ctx, s.col, "list selections", bson.M{"userEmail": email})
}

func (s *Selections) FindByID(ctx context.Context, id primitive.ObjectID) (*entity.Selection, error) {
	var sel entity.Selection
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&sel); err != nil {
		return nil, dbErr("find selection", err)
	}
	return &sel, nil
}

func (s *Selections) Delete(ctx context.Context, id primitive.ObjectID) (*store.DeleteResult, error) {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, dbErr("delete selection", err)
	}
	return &store.DeleteResult{DeletedCount: res.DeletedCount}, nil
}

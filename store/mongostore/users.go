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

type Users struct {
	col *mongo.Collection
}

func NewUsers(db *mongo.Database) *Users {
	return &Users{col: db.Collection(UsersCollection)}
}

func (u *Users) List(ctx context.Context) ([]entity.User, error) {
	users, err := findAll[entity.User](ctx, u.col, "list users", bson.M{})
	if err != nil {
		return nil, err
	}
	normalize(users)
	return users, nil
}

func (u *Users) ListByRole(ctx context.Context, role entity.Role) ([]entity.User, error) {
	users, err := findAll[entity.User](ctx, u.col, "list users by role", bson.M{"role": role})
	if err != nil {
		return nil, err
	}
	normalize(users)
	return users, nil
}

func (u *Users) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	if err := u.col.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, dbErr("find user", err)
	}

	user.Normalize()
	return &user, nil
}

// InsertIfMissing is a single upsert with $setOnInsert, so two concurrent
// sign-ins for the same email cannot both create a user.
func (u *Users) InsertIfMissing(ctx context.Context, user *entity.User) (*store.InsertResult, bool, error) {
	user.Normalize()

	res, err := u.col.UpdateOne(ctx,
		bson.M{"email": user.Email},
		bson.M{"$setOnInsert": bson.M{
			"name":     user.Name,
			"photoURL": user.PhotoURL,
			"role":     user.Role,
		}},
		options.Update().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, dbErr("insert user", err)
	}

	id, ok := res.UpsertedID.(primitive.ObjectID)
	if !ok {
		return nil, false, nil
	}

	user.ID = id
	return &store.InsertResult{InsertedID: id}, true, nil
}

func (u *Users) SetRole(ctx context.Context, id primitive.ObjectID, role entity.Role) (*store.UpdateResult, error) {
	res, err := u.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return nil, dbErr("set role", err)
	}
	return updateResult(res), nil
}

func (u *Users) PopularInstructors(ctx context.Context, limit int) ([]entity.PopularInstructor, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"role": entity.RoleInstructor}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: ClassesCollection},
			{Key: "localField", Value: "email"},
			{Key: "foreignField", Value: "instructorEmail"},
			{Key: "as", Value: "classes"},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "name", Value: 1},
			{Key: "email", Value: 1},
			{Key: "photoURL", Value: bson.M{"$ifNull": bson.A{"$photoURL", ""}}},
			{Key: "numberOfStudents", Value: bson.M{"$sum": "$classes.numberOfStudents"}},
			{Key: "numberOfClasses", Value: bson.M{"$size": "$classes"}},
			{Key: "classes", Value: bson.M{"$ifNull": bson.A{
				bson.M{"$arrayElemAt": bson.A{"$classes.name", 0}}, "",
			}}},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "numberOfStudents", Value: -1},
			{Key: "email", Value: 1},
		}}},
		{{Key: "$limit", Value: limit}},
	}

	cur, err := u.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, dbErr("popular instructors", err)
	}

	out := []entity.PopularInstructor{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, dbErr("popular instructors", err)
	}
	return out, nil
}

func normalize(users []entity.User) {
	for i := range users {
		users[i].Normalize()
	}
}

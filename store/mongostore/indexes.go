package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"sporty-backend/log"
)

var indexes = map[string][]mongo.IndexModel{
	UsersCollection: {
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}}},
	},
	ClassesCollection: {
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "instructorEmail", Value: 1}}},
		{Keys: bson.D{{Key: "numberOfStudents", Value: -1}, {Key: "_id", Value: 1}}},
	},
	SelectionsCollection: {
		{Keys: bson.D{{Key: "userEmail", Value: 1}}},
	},
	EnrollmentsCollection: {
		{Keys: bson.D{{Key: "email", Value: 1}, {Key: "date", Value: -1}}},
		// one enrollment per consumed selection
		{Keys: bson.D{{Key: "enrolledClass._id", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
}

// EnsureIndexes creates the indexes the queries rely on. Creating an index
// that already exists is a no-op on the server.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	for col, models := range indexes {
		names, err := d.db.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return dbErr("create indexes on "+col, err)
		}
		log.Logger.Debug("indexes ensured", zap.String("collection", col), zap.Strings("indexes", names))
	}
	return nil
}

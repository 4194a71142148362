// Package mongostore implements the store contracts on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"sporty-backend/errs"
	"sporty-backend/log"
	"sporty-backend/store"
)

const (
	UsersCollection       = "user"
	ClassesCollection     = "classes"
	SelectionsCollection  = "selected"
	EnrollmentsCollection = "enrolled"

	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second
)

// DB owns the client for one process. It is created once at startup and
// handed to every store that needs a collection.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
	tx     *transactor
}

// Connect dials MongoDB and waits for a successful ping, so a returned DB
// is known to be reachable.
func Connect(ctx context.Context, uri, database string, maxPoolSize uint64) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(maxPoolSize).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", errs.ErrDatabase, err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: ping: %v", errs.ErrDatabase, err)
	}

	db := client.Database(database)
	d := &DB{client: client, db: db, tx: &transactor{client: client}}
	d.tx.supported.Store(supportsTransactions(ctx, db))
	if !d.tx.supported.Load() {
		log.Logger.Warn("deployment does not support transactions, enrollment steps run sequentially")
	}

	return d, nil
}

// NewDB wraps an existing database handle, for tests that manage their own
// client.
func NewDB(client *mongo.Client, db *mongo.Database) *DB {
	d := &DB{client: client, db: db, tx: &transactor{client: client}}
	d.tx.supported.Store(supportsTransactions(context.Background(), db))
	return d
}

func (d *DB) Database() *mongo.Database {
	return d.db
}

func (d *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := d.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: ping: %v", errs.ErrDatabase, err)
	}
	return nil
}

func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

func (d *DB) Store() *store.Store {
	return &store.Store{
		Users:       NewUsers(d.db),
		Classes:     NewClasses(d.db),
		Selections:  NewSelections(d.db),
		Enrollments: NewEnrollments(d.db),
		Tx:          d.tx,
		Ping:        d.Ping,
		Close:       d.Close,
	}
}

// supportsTransactions reports whether the deployment is a replica set or a
// sharded cluster; standalone servers reject multi-document transactions.
func supportsTransactions(ctx context.Context, db *mongo.Database) bool {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	err := db.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello)
	if err != nil {
		log.Logger.Debug("hello command failed", zap.Error(err))
		return false
	}

	return hello.SetName != "" || hello.Msg == "isdbgrid"
}

func dbErr(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errs.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", errs.ErrAlreadyExists, op)
	}

	log.Logger.Error("database error", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %s: %w", errs.ErrDatabase, op, err)
}

func findAll[T any](ctx context.Context, c *mongo.Collection, op string, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cur, err := c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, dbErr(op, err)
	}

	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, dbErr(op, err)
	}
	return out, nil
}

func updateResult(r *mongo.UpdateResult) *store.UpdateResult {
	return &store.UpdateResult{
		MatchedCount:  r.MatchedCount,
		ModifiedCount: r.ModifiedCount,
	}
}

package mongostore

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"sporty-backend/log"
)

const (
	maxAttempts    = 3
	transientLabel = "TransientTransactionError"
)

type transactor struct {
	client    *mongo.Client
	supported atomic.Bool

	// txn runs fn in a server transaction. Nil means t.session.
	txn func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (t *transactor) Atomic() bool {
	return t.supported.Load()
}

// WithTransaction runs fn inside a multi-document transaction. When the
// server aborts the transaction with a transient error, such as a write
// conflict with a concurrent enrollment, fn is run again in a fresh
// transaction, up to maxAttempts times. On deployments without transaction
// support fn runs once without a session and its writes are applied one at
// a time. The first call that finds the server rejecting transactions
// switches to that mode and runs fn again.
func (t *transactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.supported.Load() {
		return fn(ctx)
	}

	txn := t.txn
	if txn == nil {
		txn = t.session
	}

	err := txn(ctx, fn)
	if !IsNotSupported(err) {
		return err
	}

	t.supported.Store(false)
	log.Logger.Warn("transactions rejected by server, falling back to sequential writes", zap.Error(err))
	return fn(ctx)
}

func (t *transactor) session(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := t.client.StartSession()
	if err != nil {
		return dbErr("start session", err)
	}
	defer sess.EndSession(context.Background())

	for attempt := 1; ; attempt++ {
		err = mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
			return t.run(sc, sess, fn)
		})
		if err == nil || attempt == maxAttempts || !isTransient(err) || ctx.Err() != nil {
			return err
		}
		log.Logger.Debug("retrying transaction", zap.Int("attempt", attempt), zap.Error(err))
	}
}

func (t *transactor) run(sc mongo.SessionContext, sess mongo.Session, fn func(ctx context.Context) error) error {
	if err := sess.StartTransaction(); err != nil {
		return dbErr("start transaction", err)
	}

	if err := fn(sc); err != nil {
		if abortErr := sess.AbortTransaction(context.Background()); abortErr != nil {
			log.Logger.Error("abort transaction failed", zap.Error(abortErr))
		}
		return err
	}

	if err := sess.CommitTransaction(sc); err != nil {
		return dbErr("commit transaction", err)
	}
	return nil
}

func isTransient(err error) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorLabel(transientLabel)
}

// IsNotSupported reports whether err means the server cannot run
// multi-document transactions, e.g. a standalone mongod.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "transaction numbers are only allowed") ||
		(strings.Contains(msg, "transaction") && strings.Contains(msg, "replica set"))
}

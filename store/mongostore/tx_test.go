package mongostore

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
	"go.mongodb.org/mongo-driver/mongo"
)

var _ = Describe("transactor", func() {
	var (
		t      *transactor
		ctx    context.Context
		txns   int
		direct int
		fn     func(ctx context.Context) error
	)

	standalone := mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"}

	BeforeEach(func() {
		ctx = context.Background()
		txns, direct = 0, 0
		fn = func(context.Context) error {
			direct++
			return nil
		}
		t = &transactor{}
		t.supported.Store(true)
	})

	Specify("runs fn in a server transaction while supported", func() {
		t.txn = func(ctx context.Context, fn func(ctx context.Context) error) error {
			txns++
			return nil
		}

		Expect(t.WithTransaction(ctx, fn)).To(Succeed())
		Expect(txns).To(Equal(1))
		Expect(direct).To(BeZero())
		Expect(t.Atomic()).To(BeTrue())
	})

	Specify("the call that finds transactions rejected still runs fn", func() {
		t.txn = func(ctx context.Context, fn func(ctx context.Context) error) error {
			txns++
			return dbErr("insert enrollment", standalone)
		}

		Expect(t.WithTransaction(ctx, fn)).To(Succeed())
		Expect(txns).To(Equal(1))
		Expect(direct).To(Equal(1))
		Expect(t.Atomic()).To(BeFalse())

		Expect(t.WithTransaction(ctx, fn)).To(Succeed())
		Expect(txns).To(Equal(1))
		Expect(direct).To(Equal(2))
	})

	Specify("other errors are returned as they are", func() {
		boom := errors.New("boom")
		t.txn = func(ctx context.Context, fn func(ctx context.Context) error) error {
			return boom
		}

		Expect(t.WithTransaction(ctx, fn)).To(Equal(boom))
		Expect(direct).To(BeZero())
		Expect(t.Atomic()).To(BeTrue())
	})

	DescribeTable("IsNotSupported",
		func(err error, want bool) {
			Expect(IsNotSupported(err)).To(Equal(want))
		},
		Entry("nil", nil, false),
		Entry("illegal operation", mongo.CommandError{Code: 20}, true),
		Entry("wrapped", dbErr("find", mongo.CommandError{Code: 263}), true),
		Entry("replica set message", errors.New("Transaction numbers are only allowed on a replica set member"), true),
		Entry("write conflict", mongo.CommandError{Code: 112, Message: "WriteConflict"}, false),
		Entry("plain error", errors.New("connection refused"), false),
	)
})

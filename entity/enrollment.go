package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Enrollment struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email         string             `bson:"email" json:"email"`
	TransactionID string             `bson:"transactionId" json:"transactionId"`
	Price         float64            `bson:"price" json:"price"`
	Date          time.Time          `bson:"date" json:"date"`
	EnrolledClass EnrolledClass      `bson:"enrolledClass" json:"enrolledClass"`
}

// EnrolledClass is the selection that was paid for; its ID is the
// originating selection's ID.
type EnrolledClass struct {
	ID            primitive.ObjectID `bson:"_id" json:"_id"`
	ClassSnapshot `bson:",inline"`
}

package entity

import "go.mongodb.org/mongo-driver/bson/primitive"

// Selection is a pending cart entry. It is consumed by exactly one
// enrollment or removed by its owner.
type Selection struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserEmail     string             `bson:"userEmail" json:"userEmail"`
	ClassSnapshot `bson:",inline"`
}

package entity

import "go.mongodb.org/mongo-driver/bson/primitive"

type Class struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name             string             `bson:"name" json:"name"`
	Image            string             `bson:"image,omitempty" json:"image,omitempty"`
	InstructorName   string             `bson:"instructorName" json:"instructorName"`
	InstructorEmail  string             `bson:"instructorEmail" json:"instructorEmail"`
	Price            float64            `bson:"price" json:"price"`
	AvailableSeats   int64              `bson:"availableSeats" json:"availableSeats"`
	NumberOfStudents int64              `bson:"numberOfStudents" json:"numberOfStudents"`
	Status           ClassStatus        `bson:"status" json:"status"`
	Feedback         string             `bson:"feedback,omitempty" json:"feedback,omitempty"`
}

// Snapshot captures the parts of a class copied into selections and
// enrollments so they stay readable if the class changes later.
func (c *Class) Snapshot() ClassSnapshot {
	return ClassSnapshot{
		ClassID:         c.ID,
		Name:            c.Name,
		Image:           c.Image,
		InstructorName:  c.InstructorName,
		InstructorEmail: c.InstructorEmail,
		Price:           c.Price,
	}
}

type ClassSnapshot struct {
	ClassID         primitive.ObjectID `bson:"classId" json:"classId"`
	Name            string             `bson:"name" json:"name"`
	Image           string             `bson:"image,omitempty" json:"image,omitempty"`
	InstructorName  string             `bson:"instructorName,omitempty" json:"instructorName,omitempty"`
	InstructorEmail string             `bson:"instructorEmail,omitempty" json:"instructorEmail,omitempty"`
	Price           float64            `bson:"price" json:"price"`
}

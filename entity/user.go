package entity

import "go.mongodb.org/mongo-driver/bson/primitive"

type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email    string             `bson:"email" json:"email"`
	Name     string             `bson:"name" json:"name"`
	PhotoURL string             `bson:"photoURL,omitempty" json:"photoURL,omitempty"`
	Role     Role               `bson:"role" json:"role"`
}

// Normalize fills in the role for documents that predate the role field.
func (u *User) Normalize() {
	if u.Role == "" {
		u.Role = RoleNone
	}
}

// PopularInstructor is one row of the popular instructors report.
type PopularInstructor struct {
	Name             string `bson:"name" json:"name"`
	Email            string `bson:"email" json:"email"`
	PhotoURL         string `bson:"photoURL" json:"photoURL"`
	NumberOfStudents int64  `bson:"numberOfStudents" json:"numberOfStudents"`
	NumberOfClasses  int64  `bson:"numberOfClasses" json:"numberOfClasses"`
	Classes          string `bson:"classes" json:"classes"`
}

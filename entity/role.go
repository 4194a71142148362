package entity

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"sporty-backend/errs"
)

// Role is the closed set of permissions a user can hold. Documents written
// before roles existed carry no role field and decode as RoleNone.
type Role string

const (
	RoleNone       Role = "none"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "", RoleNone:
		return RoleNone, nil
	case RoleInstructor:
		return RoleInstructor, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}

	return "", fmt.Errorf("%w: %q", errs.ErrInvalidRole, s)
}

func (r Role) String() string {
	if r == "" {
		return string(RoleNone)
	}
	return string(r)
}

func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidRole, err)
	}

	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r *Role) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t == bsontype.Null || t == bsontype.Undefined {
		*r = RoleNone
		return nil
	}

	s, ok := bson.RawValue{Type: t, Value: data}.StringValueOK()
	if !ok {
		return fmt.Errorf("%w: role stored as %s", errs.ErrInvalidRole, t)
	}

	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

type ClassStatus string

const (
	StatusPending  ClassStatus = "pending"
	StatusApproved ClassStatus = "approved"
	StatusDenied   ClassStatus = "denied"
)

func ParseClassStatus(s string) (ClassStatus, error) {
	switch ClassStatus(s) {
	case "", StatusPending:
		return StatusPending, nil
	case StatusApproved:
		return StatusApproved, nil
	case StatusDenied:
		return StatusDenied, nil
	}

	return "", fmt.Errorf("%w: %q", errs.ErrInvalidStatus, s)
}

func (s *ClassStatus) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t == bsontype.Null || t == bsontype.Undefined {
		*s = StatusPending
		return nil
	}

	raw, ok := bson.RawValue{Type: t, Value: data}.StringValueOK()
	if !ok {
		return fmt.Errorf("%w: status stored as %s", errs.ErrInvalidStatus, t)
	}

	parsed, err := ParseClassStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

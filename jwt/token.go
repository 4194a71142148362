package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"sporty-backend/entity"
	"sporty-backend/errs"
	"sporty-backend/log"
)

const DefaultTTL = time.Hour

var ErrExpired = errs.ErrTokenExpired

// Claims are the caller-supplied parts of a token. Role is informational
// only; authorization always re-reads the stored role.
type Claims struct {
	Email string      `json:"email"`
	Role  entity.Role `json:"role,omitempty"`
}

type accessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type Service struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewService(key []byte, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Service{key: key, ttl: ttl, now: time.Now}
}

// WithClock returns a copy of s that stamps tokens using now.
func (s *Service) WithClock(now func() time.Time) *Service {
	c := *s
	c.now = now
	return &c
}

func (s *Service) TTL() time.Duration {
	return s.ttl
}

func (s *Service) Issue(c Claims) (string, error) {
	if c.Email == "" {
		return "", errs.ErrEmailRequired
	}

	now := s.now()
	ac := &accessClaims{
		Email: c.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	if c.Role != "" {
		if _, err := entity.ParseRole(string(c.Role)); err != nil {
			return "", err
		}
		ac.Role = string(c.Role)
	}

	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, ac).SignedString(s.key)
	if err != nil {
		log.Logger.Error("signing failure", zap.Error(err))
		return "", errs.ErrJWT
	}

	return ss, nil
}

// Verify returns errs.ErrUnauthorized for an empty token, ErrExpired for a
// token past its expiry and errs.ErrJWT for anything else that fails to
// validate.
func (s *Service) Verify(token string) (Identity, error) {
	if token == "" {
		return Identity{}, errs.ErrUnauthorized
	}

	t, err := jwt.ParseWithClaims(token, &accessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return Identity{}, ErrExpired
		}

		log.Logger.Debug("parse failure", zap.Error(err))
		return Identity{}, errs.ErrJWT
	}

	c, ok := t.Claims.(*accessClaims)
	if !ok || !t.Valid || c.Email == "" || c.ExpiresAt == nil {
		return Identity{}, errs.ErrJWT
	}

	if c.Role != "" {
		if _, err := entity.ParseRole(c.Role); err != nil {
			return Identity{}, errs.ErrJWT
		}
	}

	id := Identity{
		email:     c.Email,
		role:      entity.Role(c.Role),
		expiresAt: c.ExpiresAt.Time,
	}
	if c.IssuedAt != nil {
		id.issuedAt = c.IssuedAt.Time
	}

	return id, nil
}

// Identity is an email whose token has been verified. Its fields are only
// set by Service.Verify, so holding one proves verification happened.
type Identity struct {
	email     string
	role      entity.Role
	issuedAt  time.Time
	expiresAt time.Time
}

func (i Identity) Email() string {
	return i.email
}

// Role is the role claimed at issuance, empty when none was claimed. It is
// not the stored role.
func (i Identity) Role() entity.Role {
	return i.role
}

func (i Identity) IssuedAt() time.Time {
	return i.issuedAt
}

func (i Identity) ExpiresAt() time.Time {
	return i.expiresAt
}

func (i Identity) Valid() bool {
	return i.email != ""
}

func (i Identity) Claims() Claims {
	return Claims{Email: i.email, Role: i.role}
}

type ctxKey struct{}

func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok || !id.Valid() {
		return Identity{}, false
	}
	return id, true
}

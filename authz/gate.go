// Package authz decides whether a verified identity may act with a role.
package authz

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"sporty-backend/entity"
	"sporty-backend/errs"
	"sporty-backend/jwt"
	"sporty-backend/log"
)

// UserFinder is the part of the user directory the gate reads.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
}

type Gate struct {
	users UserFinder
}

func NewGate(users UserFinder) *Gate {
	return &Gate{users: users}
}

// Authorize looks the user up on every call, so a role change takes effect
// on the next request without reissuing tokens. The role claimed in the
// token is never consulted.
func (g *Gate) Authorize(ctx context.Context, required entity.Role, id jwt.Identity) error {
	logger := log.Logger.With(zap.String("email", id.Email()), zap.Stringer("required", required))

	if !id.Valid() {
		return errs.ErrUnauthorized
	}

	u, err := g.users.FindByEmail(ctx, id.Email())
	if errors.Is(err, errs.ErrNotFound) {
		logger.Debug("authorization denied, no such user")
		return errs.ErrForbidden
	}
	if err != nil {
		logger.Error("user lookup failed", zap.Error(err))
		return errs.ErrDatabase
	}

	if u.Role != required {
		logger.Debug("authorization denied", zap.Stringer("role", u.Role))
		return errs.ErrForbidden
	}

	return nil
}

// HasRole reports whether email currently holds role. A missing user holds
// no role.
func (g *Gate) HasRole(ctx context.Context, email string, role entity.Role) (bool, error) {
	u, err := g.users.FindByEmail(ctx, email)
	if errors.Is(err, errs.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		log.Logger.Error("user lookup failed", zap.Error(err), zap.String("email", email))
		return false, errs.ErrDatabase
	}

	return u.Role == role, nil
}

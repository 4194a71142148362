package handler

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
	"sporty-backend/authz"
	"sporty-backend/entity"
	"sporty-backend/errs"
	"sporty-backend/jwt"
	"sporty-backend/log"
)

type authHandler struct {
	tokens *jwt.Service
	gate   *authz.Gate
}

func newAuthHandler(tokens *jwt.Service, gate *authz.Gate) *authHandler {
	return &authHandler{tokens: tokens, gate: gate}
}

type tokenRequest struct {
	Email string      `json:"email"`
	Role  entity.Role `json:"role,omitempty"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// IssueToken mints a token for an email and an optional role. Sign-in
// itself happens with the identity provider in front of this service, so the
// email is taken as given. The role is informational; authorization reads
// the stored user.
func (h *authHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Email == "" {
		writeError(w, r, errs.ErrEmailRequired)
		return
	}

	token, err := h.tokens.Issue(jwt.Claims{Email: req.Email, Role: req.Role})
	if err != nil {
		writeError(w, r, err)
		return
	}

	ok(w, tokenResponse{Token: token})
}

// Authenticate verifies the bearer token and puts the identity on the
// request context. A missing header is 401, anything wrong with the token
// is 403.
func (h *authHandler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, r, errs.ErrUnauthorized)
			return
		}

		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			writeError(w, r, errs.ErrJWT)
			return
		}

		id, err := h.tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			log.Logger.Debug("token rejected", zap.Error(err), zap.String("request_id", requestIDFrom(r.Context())))
			writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(jwt.NewContext(r.Context(), id)))
	})
}

// Require lets the request through only when the caller currently holds
// role. It must run after Authenticate.
func (h *authHandler) Require(role entity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, found := jwt.FromContext(r.Context())
			if !found {
				writeError(w, r, errs.ErrUnauthorized)
				return
			}

			if err := h.gate.Authorize(r.Context(), role, id); err != nil {
				writeError(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// identity is only called behind Authenticate.
func identity(r *http.Request) jwt.Identity {
	id, _ := jwt.FromContext(r.Context())
	return id
}

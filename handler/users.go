package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"
	"sporty-backend/authz"
	"sporty-backend/entity"
	"sporty-backend/store"
)

type userHandler struct {
	users    store.Users
	gate     *authz.Gate
	sanitize *bluemonday.Policy
}

func newUserHandler(users store.Users, gate *authz.Gate, p *bluemonday.Policy) *userHandler {
	return &userHandler{users: users, gate: gate, sanitize: p}
}

type createUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"max=200"`
	PhotoURL string `json:"photoURL" validate:"omitempty,url,max=2048"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *userHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, users)
}

func (h *userHandler) ListInstructors(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListByRole(r.Context(), entity.RoleInstructor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, users)
}

func (h *userHandler) PopularInstructors(w http.ResponseWriter, r *http.Request) {
	rows, err := h.users.PopularInstructors(r.Context(), store.PopularLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, rows)
}

// Create stores a user on first sign-in. New users never get a role from
// the request.
func (h *userHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u := &entity.User{
		Email:    req.Email,
		Name:     h.sanitize.Sanitize(req.Name),
		PhotoURL: req.PhotoURL,
		Role:     entity.RoleNone,
	}
	res, inserted, err := h.users.InsertIfMissing(r.Context(), u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !inserted {
		ok(w, messageResponse{Message: "user already exists"})
		return
	}
	ok(w, res)
}

func (h *userHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.FindByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, u)
}

// CheckRole answers {key: bool} for the caller's own email. Asking about
// anyone else is answered false.
func (h *userHandler) CheckRole(role entity.Role, key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := chi.URLParam(r, "email")
		if identity(r).Email() != email {
			ok(w, map[string]bool{key: false})
			return
		}

		has, err := h.gate.HasRole(r.Context(), email, role)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ok(w, map[string]bool{key: has})
	}
}

func (h *userHandler) SetRole(role entity.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := objectID(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		res, err := h.users.SetRole(r.Context(), id, role)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ok(w, res)
	}
}

package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"sporty-backend/entity"
	"sporty-backend/errs"
	"sporty-backend/store"
)

type selectionHandler struct {
	selections store.Selections
	classes    store.Classes
}

func newSelectionHandler(selections store.Selections, classes store.Classes) *selectionHandler {
	return &selectionHandler{selections: selections, classes: classes}
}

type selectRequest struct {
	ClassID string `json:"classId" validate:"required"`
}

// Create puts a class in the caller's cart. The snapshot is taken from the
// stored class, not from the request.
func (h *selectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	classID, err := objectID(req.ClassID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.classes.FindByID(r.Context(), classID)
	if errors.Is(err, errs.ErrNotFound) {
		writeError(w, r, fmt.Errorf("%w: class does not exist", errs.ErrInvalidBody))
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if c.Status != entity.StatusApproved {
		writeError(w, r, fmt.Errorf("%w: class is not open for enrollment", errs.ErrInvalidBody))
		return
	}

	res, err := h.selections.Insert(r.Context(), &entity.Selection{
		UserEmail:     identity(r).Email(),
		ClassSnapshot: c.Snapshot(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, res)
}

func (h *selectionHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if identity(r).Email() != email {
		writeError(w, r, errs.ErrForbidden)
		return
	}

	list, err := h.selections.ListByUser(r.Context(), email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, list)
}

func (h *selectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sel, err := h.owned(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, sel)
}

// Delete removes one of the caller's selections. An absent selection is
// reported as zero deleted.
func (h *selectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sel, err := h.owned(r)
	if errors.Is(err, errs.ErrNotFound) {
		ok(w, &store.DeleteResult{})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.selections.Delete(r.Context(), sel.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, res)
}

func (h *selectionHandler) owned(r *http.Request) (*entity.Selection, error) {
	id, err := objectID(chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}

	sel, err := h.selections.FindByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if sel.UserEmail != identity(r).Email() {
		return nil, errs.ErrForbidden
	}
	return sel, nil
}

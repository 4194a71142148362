package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"sporty-backend/enrollment"
	"sporty-backend/errs"
	"sporty-backend/payment"
)

type enrollmentHandler struct {
	coordinator *enrollment.Coordinator
	payments    payment.Gateway
}

func newEnrollmentHandler(c *enrollment.Coordinator, p payment.Gateway) *enrollmentHandler {
	return &enrollmentHandler{coordinator: c, payments: p}
}

type intentRequest struct {
	Price float64 `json:"price" validate:"gt=0"`
}

type intentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

func (h *enrollmentHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	amount, err := payment.ToMinorUnits(req.Price)
	if err != nil {
		writeError(w, r, err)
		return
	}

	intent, err := h.payments.CreateIntent(r.Context(), amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, intentResponse{ClientSecret: intent.ClientSecret})
}

func (h *enrollmentHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollment.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.coordinator.Enroll(r.Context(), identity(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, res)
}

func (h *enrollmentHandler) ListByEmail(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if identity(r).Email() != email {
		writeError(w, r, errs.ErrForbidden)
		return
	}

	list, err := h.coordinator.ListByEmail(r.Context(), email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, list)
}

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"sporty-backend/errs"
	"sporty-backend/log"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

type errorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Logger.Debug("unable to write response", zap.Error(err))
	}
}

func ok(w http.ResponseWriter, v interface{}) {
	writeJSON(w, http.StatusOK, v)
}

var statuses = []struct {
	err    error
	status int
}{
	{errs.ErrUnauthorized, http.StatusUnauthorized},
	{errs.ErrForbidden, http.StatusForbidden},
	{errs.ErrTokenExpired, http.StatusForbidden},
	{errs.ErrJWT, http.StatusForbidden},
	{errs.ErrInvalidID, http.StatusBadRequest},
	{errs.ErrInvalidBody, http.StatusBadRequest},
	{errs.ErrEmailRequired, http.StatusBadRequest},
	{errs.ErrInvalidRole, http.StatusBadRequest},
	{errs.ErrInvalidStatus, http.StatusBadRequest},
	{errs.ErrInvalidAmount, http.StatusBadRequest},
	{errs.ErrInvalidSeats, http.StatusBadRequest},
	{errs.ErrNoSeats, http.StatusConflict},
	{errs.ErrSelectionConsumed, http.StatusConflict},
	{errs.ErrAlreadyExists, http.StatusConflict},
	{errs.ErrRateLimited, http.StatusTooManyRequests},
}

func statusOf(err error) int {
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// writeError answers with the status the error maps to. Not found is not
// an error to clients: they get a null body. Anything unmapped becomes a
// 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errs.ErrNotFound) {
		ok(w, nil)
		return
	}

	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Logger.Error("request failed",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFrom(r.Context())),
		)
		msg = "internal server error"
	}

	writeJSON(w, status, errorResponse{Error: true, Message: msg})
}

// decode reads a JSON body into v and validates it.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := decodeJSON(w, r, v); err != nil {
		return err
	}
	return check(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errs.ErrInvalidBody)
		}
		if errors.Is(err, errs.ErrInvalidRole) || errors.Is(err, errs.ErrInvalidStatus) {
			return err
		}
		return fmt.Errorf("%w: %v", errs.ErrInvalidBody, err)
	}
	return nil
}

func check(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidBody, err)
	}
	return nil
}

func objectID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, errs.ErrInvalidID
	}
	return id, nil
}

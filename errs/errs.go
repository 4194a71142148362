package errs

import "errors"

var (
	ErrEmailRequired     = errors.New("E0001: email is required")
	ErrUnauthorized      = errors.New("E0002: unauthorized access")
	ErrForbidden         = errors.New("E0003: forbidden access")
	ErrDatabase          = errors.New("E0004: database error")
	ErrTokenExpired      = errors.New("E0005: token expired")
	ErrJWT               = errors.New("E0006: JWT failure")
	ErrInvalidBody       = errors.New("E0007: invalid request body")
	ErrInvalidID         = errors.New("E0008: invalid ID")
	ErrInvalidRole       = errors.New("E0009: invalid role")
	ErrInvalidStatus     = errors.New("E0010: invalid class status")
	ErrAlreadyExists     = errors.New("E0011: already exists")
	ErrNotFound          = errors.New("E0012: not found")
	ErrNoSeats           = errors.New("E0013: no seats available")
	ErrSelectionConsumed = errors.New("E0014: selection already enrolled or removed")
	ErrInvalidAmount     = errors.New("E0015: invalid amount")
	ErrPayment           = errors.New("E0016: payment gateway error")
	ErrQueue             = errors.New("E0017: queue error")
	ErrMail              = errors.New("E0018: error sending email")
	ErrRateLimited       = errors.New("E0019: too many requests")
	ErrInvalidSeats      = errors.New("E0020: available seats must not be negative")
)

package apperr

import (
	"errors"
	"net/http"
)

// Typed failures surfaced by the order, appointment, review and rating
// components. Handlers translate them to HTTP with Status.
var (
	ErrValidation          = errors.New("invalid input")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrConflict            = errors.New("conflicting concurrent update")
	ErrAllocationExhausted = errors.New("order number allocation attempts exhausted")
	ErrAlreadyResponded    = errors.New("review already has a business response")
	ErrInvalidSchedule     = errors.New("schedule must be in the future")
	ErrInvalidCoupon       = errors.New("invalid coupon")
)

// Status maps a typed error to its HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidSchedule), errors.Is(err, ErrInvalidCoupon):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConflict), errors.Is(err, ErrAlreadyResponded):
		return http.StatusConflict
	case errors.Is(err, ErrAllocationExhausted):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

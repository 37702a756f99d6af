package domain

import "errors"

// Outcome categories shared by every core operation. Specific failures wrap one
// of these with %w so the transport layer can map them with errors.Is.
var (
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
)

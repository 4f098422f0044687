package repository

import "errors"

// Sentinel errors returned by repositories. Handlers map these onto the
// HTTP error taxonomy; nothing below the interface layer writes a status code.
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnavailable       = errors.New("store unavailable")
)

package domain

import "errors"

var (
	ErrMissingField       = errors.New("missing required field")
	ErrInvalidURL         = errors.New("invalid url")
	ErrInvalidCode        = errors.New("invalid short code")
	ErrInvalidExpiry      = errors.New("invalid expiry")
	ErrCodeConflict       = errors.New("short code taken")
	ErrNotFound           = errors.New("short url not found")
	ErrExpired            = errors.New("short url expired")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

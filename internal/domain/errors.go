package domain

import "errors"

var (
	ErrInvalidChoice     = errors.New("invalid choice")
	ErrDataIntegrity     = errors.New("data integrity")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionConflict   = errors.New("session conflict")
	ErrSessionInProgress = errors.New("session in progress")
)

package service

import "errors"

// Error taxonomy for session and pipeline operations. Validation, not-found
// and precondition failures abort a request; everything downstream of a
// running cycle degrades per language instead of erroring.
var (
	ErrValidation        = errors.New("invalid request")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionNotActive  = errors.New("session is not active")
	ErrSessionEnded      = errors.New("session has ended")
	ErrSessionFull       = errors.New("session is full")
	ErrPasswordMismatch  = errors.New("invalid session password")
	ErrNotSessionOwner   = errors.New("only the session owner may do this")
	ErrInvalidTransition = errors.New("illegal session status transition")
)

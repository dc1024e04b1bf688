package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without
// leaking infrastructure details. Anything not wrapping one of these is
// treated as an internal error and hidden from the client.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Verification-flow failures. ErrExpired means the passcode window has
	// passed and the flow must be restarted; ErrCodeMismatch means a wrong
	// code was submitted and a retry is allowed; ErrTooManyAttempts means
	// the retry budget is spent and the pending verification was discarded.
	ErrExpired         = errors.New("expired")
	ErrCodeMismatch    = errors.New("code mismatch")
	ErrTooManyAttempts = errors.New("too many attempts")
)

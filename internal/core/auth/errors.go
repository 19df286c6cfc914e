package auth

import "errors"

// Authentication errors. Messages are returned to clients verbatim.
// 401 for missing or invalid tokens, 403 when the principal lacks the admin role.
var (
	ErrMissingToken = errors.New("No token provided")
	ErrInvalidToken = errors.New("Invalid token")
	ErrForbidden    = errors.New("Access denied. Admins only.")
)

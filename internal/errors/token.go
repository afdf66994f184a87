package errors

var (
	ErrMissingToken = Unauthorized("No token provided")
	ErrTokenExpired = Unauthorized("Token expired")
	ErrInvalidToken = Unauthorized("Invalid token")
)

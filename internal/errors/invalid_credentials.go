package errors

// ErrInvalidCredentials is returned for both an unknown email and a wrong
// password so responses do not reveal which accounts exist.
var ErrInvalidCredentials = Unauthorized("Invalid credentials")

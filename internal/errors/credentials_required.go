package errors

var ErrCredentialsRequired = Validation("Email and password are required")

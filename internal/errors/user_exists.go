package errors

var ErrUserExists = Conflict("User already exists")

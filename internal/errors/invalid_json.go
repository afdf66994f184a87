package errors

var ErrInvalidJSON = Validation("Invalid JSON payload")

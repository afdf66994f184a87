package errors

var ErrTitleRequired = Validation("Title is required")

package errors

var ErrTaskNotFound = NotFound("Task not found")

package errors

var ErrInvalidStatus = Validation("Status must be pending or completed")

package errors

func InvalidDate(field string) *Exception {
	return Validation("Invalid date for " + field)
}

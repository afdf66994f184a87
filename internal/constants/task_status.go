package constants

type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
)

// ParseTaskStatus reports whether s names a known status exactly.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch TaskStatus(s) {
	case StatusPending, StatusCompleted:
		return TaskStatus(s), true
	default:
		return "", false
	}
}

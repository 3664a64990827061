package model

// NoticeLevel classifies a user-facing notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeWarning
	NoticeError
)

// Notice is a transient message surfaced to the user, such as
// "Task moved" or "Failed to move task".
type Notice struct {
	Level  NoticeLevel
	Title  string
	Detail string
}

package constants

// Session and context keys
const (
	SessionCookieName = "bounty_session"
	ContextKeyUserID  = "user_id"
	ContextKeyTaskID  = "task_id"
	HeaderRequestID   = "X-Request-ID"
)

// Account rules
const (
	MinPasswordLength = 8
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Counters
const (
	// TaskCounterName keys the single task-id counter row.
	TaskCounterName = "task_count"
)

// AI drafting
const (
	MaxAIGeneratedDrafts = 10
)

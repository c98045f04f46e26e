package constants

// Session and context keys
const (
	ContextKeyUserID  = "user_id"
	SessionCookieName = "kimai_session"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Authentication
const (
	MinPasswordLength = 8
)

// Timesheet meta fields
const (
	MaxMetaNameLength  = 50
	MaxMetaValueLength = 255
)

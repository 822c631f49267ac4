package list

import "errors"

// Domain validation errors. These are the only errors surfaced to the
// caller of a user-initiated action; storage and remote failures are
// handled below this layer and never reach it.
var (
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrUserNotFound       = errors.New("user not found")
	ErrLevelNotFound      = errors.New("level not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrInvalidBanTarget   = errors.New("user cannot be banned")
	ErrNotPublished       = errors.New("level is not published")
	ErrBadCredentials     = errors.New("invalid username or password")
	ErrUserBanned         = errors.New("user is banned")
)

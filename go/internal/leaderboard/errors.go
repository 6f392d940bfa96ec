package leaderboard

import "errors"

var (
	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidScore    = errors.New("invalid score")
)

// IsValidationError reports whether err was caused by a rejected submission.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidUsername) || errors.Is(err, ErrInvalidScore)
}

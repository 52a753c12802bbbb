package models

import "errors"

// Policy errors returned by the engine. They are caller-visible and never retried.
var (
	ErrValidation            = errors.New("validation error")
	ErrInvalidState          = errors.New("invalid state")
	ErrNotAcceptingResponses = errors.New("interaction is not accepting responses")
	ErrLateSubmission        = errors.New("interaction has ended and late responses are disabled")
	ErrAlreadyAnswered       = errors.New("already answered")
	ErrNotFound              = errors.New("not found")
	ErrRateLimited           = errors.New("rate limited")
)

// ErrConflict is returned by stores when a status-guarded update matched no row.
// Controllers translate it into a policy error after re-reading the record.
var ErrConflict = errors.New("conditional update conflict")

var domainErrors = []error{
	ErrValidation,
	ErrInvalidState,
	ErrNotAcceptingResponses,
	ErrLateSubmission,
	ErrAlreadyAnswered,
	ErrNotFound,
	ErrRateLimited,
}

// IsDomainError reports whether err is (or wraps) one of the policy errors above.
func IsDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

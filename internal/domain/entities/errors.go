package entities

import "errors"

// Domain errors
var (
	// Normalization errors
	ErrMalformedAnalysis = errors.New("malformed analysis payload")

	// Identity resolution errors
	ErrNoMatch = errors.New("no directory match above confidence floor")

	// Review errors
	ErrStaleReview       = errors.New("stale review: item version mismatch")
	ErrItemNotFound      = errors.New("review item not found")
	ErrItemNotReviewable = errors.New("review item already terminal")

	// Meeting lifecycle errors
	ErrMeetingNotFound   = errors.New("meeting not found")
	ErrMeetingTerminal   = errors.New("meeting is in a terminal state")
	ErrInvalidTransition = errors.New("invalid state transition")

	// Export errors
	ErrExportRecordNotFound = errors.New("export record not found")
	ErrExportNotRetryable   = errors.New("export record is not retryable")
)

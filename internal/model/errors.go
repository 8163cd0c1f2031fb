package model

import "errors"

// Error taxonomy for the decision/resolution state machine. Each failure
// class maps to a distinct outcome so callers can tell a conflict from a
// validation problem without string matching.
var (
	// ErrNotFound: unknown session, file, or suggestion.
	ErrNotFound = errors.New("not found")

	// ErrInvalidDecision: decision value outside accepted/rejected/modified.
	ErrInvalidDecision = errors.New("invalid decision value")

	// ErrMissingField: a required request field is absent.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidChunkIndex: chunk index outside [0, hunks_count).
	ErrInvalidChunkIndex = errors.New("chunk index out of range")

	// ErrAlreadyDecided: a decision already exists for this chunk.
	ErrAlreadyDecided = errors.New("chunk already decided")

	// ErrAlreadyResolved: the suggestion reached its terminal state.
	ErrAlreadyResolved = errors.New("suggestion already resolved")
)

// IsValidation reports whether err belongs to the validation class
// (malformed value or missing field).
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidDecision) || errors.Is(err, ErrMissingField)
}

// IsConflict reports whether err belongs to the conflict class
// (duplicate decision or double resolution).
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyDecided) || errors.Is(err, ErrAlreadyResolved)
}

// IsRange reports whether err is the out-of-range chunk index failure.
func IsRange(err error) bool {
	return errors.Is(err, ErrInvalidChunkIndex)
}

package domain

import "errors"

var (
	// ErrQuizNotFound indicates no quiz matches the slug (or it is unpublished outside preview).
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrSequenceNotFound is returned for an out of range sequence index.
	ErrSequenceNotFound = errors.New("sequence not found")
	// ErrSequenceLocked is returned when jumping past the first incomplete sequence.
	ErrSequenceLocked = errors.New("sequence locked")
	// ErrAnswerNotFound indicates the selected code is not offered by the current question.
	ErrAnswerNotFound = errors.New("answer not found")
	// ErrInvalidTransition is returned for an action the current screen does not accept.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrNoProgress is returned when resuming without saved answers.
	ErrNoProgress = errors.New("no saved progress")
	// ErrInvalidEmail rejects malformed contact addresses.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrResultNotFound indicates no stored result carries the session id.
	ErrResultNotFound = errors.New("result not found")
)

package domain

import "errors"

var (
	// ErrUnknownDifficulty is returned when a difficulty key is not in the fixed set.
	ErrUnknownDifficulty = errors.New("unknown difficulty")
	// ErrInvalidAmount is returned when a negative XP credit is attempted.
	ErrInvalidAmount = errors.New("xp amount must not be negative")
	// ErrNoActiveChallenge is returned when an answer arrives with no challenge in play.
	ErrNoActiveChallenge = errors.New("no active challenge")
	// ErrInvalidTransition is returned when an action does not apply to the current arena state.
	ErrInvalidTransition = errors.New("invalid arena transition")
	// ErrResultNotSaved signals that the session finished but the server did not record it.
	ErrResultNotSaved = errors.New("session result not saved")
	// ErrChallengesNotFound indicates no challenge content exists for a difficulty.
	ErrChallengesNotFound = errors.New("challenges not found")
)

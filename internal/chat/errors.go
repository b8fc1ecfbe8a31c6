package chat

import "errors"

var (
	ErrNotActive         = errors.New("complete onboarding first to find matches")
	ErrActiveMatchExists = errors.New("user already has an active match")
	ErrProfileIncomplete = errors.New("profile not complete")
	ErrNotParticipant    = errors.New("not part of this match")
	ErrMatchEnded        = errors.New("match has ended")
	ErrInvalidState      = errors.New("match is not in the required state")
	ErrInvalidDecision   = errors.New("decision must be continue or pass")
)

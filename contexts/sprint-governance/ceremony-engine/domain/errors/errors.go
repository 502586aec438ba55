package errors

import "errors"

var (
	ErrInvalidInput             = errors.New("invalid governance input")
	ErrNotAuthorized            = errors.New("caller lacks the required role")
	ErrNotAdmitted              = errors.New("identity is not admitted to the ceremony")
	ErrCeremonyNotFound         = errors.New("ceremony not found")
	ErrSessionNotFound          = errors.New("feature session not found")
	ErrCredentialNotFound       = errors.New("membership credential not found")
	ErrCeremonyNotOpen          = errors.New("ceremony is not open")
	ErrSessionClosed            = errors.New("feature session is closed")
	ErrAlreadyRegistered        = errors.New("identity already holds a credential")
	ErrAlreadyAdmitted          = errors.New("identity is already admitted")
	ErrAlreadyVoted             = errors.New("vote already recorded")
	ErrSessionAlreadyClosed     = errors.New("feature session is already closed")
	ErrCeremonyAlreadyConcluded = errors.New("ceremony is already concluded")
	ErrVoteOutOfRange           = errors.New("vote value is outside the configured bounds")
	ErrParticipantLimit         = errors.New("ceremony participant limit reached")
	ErrSessionLimit             = errors.New("ceremony feature session limit reached")
	ErrRightsNotVested          = errors.New("voting rights are not vested")
	ErrConflict                 = errors.New("governance state conflict")
)

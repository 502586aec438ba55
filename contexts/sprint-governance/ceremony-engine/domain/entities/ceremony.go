package entities

import "time"

type CeremonyStatus string

const (
	CeremonyStatusOpen      CeremonyStatus = "open"
	CeremonyStatusConcluded CeremonyStatus = "concluded"
)

// Ceremony is one time-boxed voting event tied to a sprint. The only
// transition is Open -> Concluded; there is no cancellation state.
// NextSessionIndex is the explicit counter for feature-session indexes,
// incremented in the same transaction that inserts the session.
type Ceremony struct {
	CeremonyID       int64
	SprintNumber     int64
	Facilitator      string
	Status           CeremonyStatus
	StartTime        time.Time
	EndTime          *time.Time
	NextSessionIndex int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (c Ceremony) IsOpen() bool {
	return c.Status == CeremonyStatusOpen
}

// Participant records one admitted identity. Position is the admission order
// within the ceremony, starting at 0; admission is never revoked.
type Participant struct {
	CeremonyID int64
	Identity   string
	Position   int
	AdmittedAt time.Time
}

// GeneralVote is the ceremony-wide ballot entry for one identity, write-once
// per (ceremony, identity).
type GeneralVote struct {
	CeremonyID int64
	Identity   string
	Points     int64
	CastAt     time.Time
}

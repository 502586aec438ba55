package entities

import "time"

type SessionStatus string

const (
	SessionStatusOpen   SessionStatus = "open"
	SessionStatusClosed SessionStatus = "closed"
)

// FeatureSession is an independent voting round on a named feature inside a
// ceremony. Sessions are keyed (ceremony_id, session_index); indexes start at
// 0, grow monotonically, and are never reused even after closure. Closing one
// session does not affect its siblings or the ceremony itself.
type FeatureSession struct {
	CeremonyID   int64
	SessionIndex int
	FeatureLabel string
	Status       SessionStatus
	OpenedAt     time.Time
	ClosedAt     *time.Time
}

func (s FeatureSession) IsOpen() bool {
	return s.Status == SessionStatusOpen
}

// FeatureVote is one identity's point vote inside a feature session,
// write-once per (ceremony, session, identity).
type FeatureVote struct {
	CeremonyID   int64
	SessionIndex int
	Identity     string
	Points       int64
	CastAt       time.Time
}

package commands

import (
	"time"

	"agora/contexts/sprint-governance/ceremony-engine/ports"
)

// Policy carries the configurable governance knobs shared by every command:
// the vesting cooldown, the vote bounds, the per-ceremony caps, and the
// ceremony-start restriction. The zero value reproduces the default policy
// (open self-service start, planning-poker vote range).
type Policy struct {
	VestingPeriod      time.Duration
	MinVotePoints      int64
	MaxVotePoints      int64
	MaxParticipants    int
	MaxFeatureSessions int
	// RestrictStart limits StartCeremony to administrators. The zero value
	// keeps the open policy where any caller becomes facilitator.
	RestrictStart bool
}

func (p Policy) vestingPeriod() time.Duration {
	return resolveVestingPeriod(p.VestingPeriod)
}

func (p Policy) voteBounds() (int64, int64) {
	return resolveVoteBounds(p.MinVotePoints, p.MaxVotePoints)
}

func (p Policy) maxParticipants() int {
	return resolveMaxParticipants(p.MaxParticipants)
}

func (p Policy) maxSessions() int {
	return resolveMaxSessions(p.MaxFeatureSessions)
}

// Policy defaults apply whenever a use case is wired with zero values, so
// test and production composition behave identically without extra setup.
const (
	defaultVestingPeriod   = 72 * time.Hour
	defaultMinPoints       = int64(1)
	defaultMaxPoints       = int64(21)
	defaultMaxParticipants = 256
	defaultMaxSessions     = 64
)

func resolveVestingPeriod(period time.Duration) time.Duration {
	if period <= 0 {
		return defaultVestingPeriod
	}
	return period
}

func resolveVoteBounds(minPoints, maxPoints int64) (int64, int64) {
	if minPoints <= 0 {
		minPoints = defaultMinPoints
	}
	if maxPoints <= 0 {
		maxPoints = defaultMaxPoints
	}
	if maxPoints < minPoints {
		maxPoints = minPoints
	}
	return minPoints, maxPoints
}

func resolveMaxParticipants(limit int) int {
	if limit <= 0 {
		return defaultMaxParticipants
	}
	return limit
}

func resolveMaxSessions(limit int) int {
	if limit <= 0 {
		return defaultMaxSessions
	}
	return limit
}

func resolveNow(clock ports.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now().UTC()
}

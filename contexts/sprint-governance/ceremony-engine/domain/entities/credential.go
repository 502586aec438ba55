package entities

import "time"

// Credential is the non-transferable membership badge held by exactly one
// identity. Issuance happens outside this module; the registry only records
// the resulting ownership and the vesting anchor.
type Credential struct {
	CredentialID int64
	Owner        string
	AcquiredAt   time.Time
}

// RightsActiveAt reports whether the voting cooldown has elapsed. The gate is
// re-evaluated on every call; nothing caches the outcome.
func (c Credential) RightsActiveAt(now time.Time, vestingPeriod time.Duration) bool {
	return !now.UTC().Before(c.AcquiredAt.UTC().Add(vestingPeriod))
}

// VestedAt returns the first instant at which voting rights are active.
func (c Credential) VestedAt(vestingPeriod time.Duration) time.Time {
	return c.AcquiredAt.UTC().Add(vestingPeriod)
}

// BadgeHistoryEntry is the immutable per-ceremony summary appended to a
// credential when its holder participated in a concluded ceremony.
// FeatureLabels and FeaturePoints are parallel lists in ascending
// session-index order, covering only the sessions the holder voted in.
type BadgeHistoryEntry struct {
	EntryID       int64
	CredentialID  int64
	CeremonyID    int64
	SprintNumber  int64
	StartTime     time.Time
	EndTime       time.Time
	TotalPoints   int64
	FeatureLabels []string
	FeaturePoints []int64
	RecordedAt    time.Time
}

// Package ceremonyengine implements the Ceremony Engine inside the
// sprint-governance context.
//
// The module owns the membership registry (one credential per identity with a
// vesting cooldown), the ceremony lifecycle (start, facilitator admission,
// feature sessions, conclusion), write-once vote collection, and the
// conclusion aggregation that appends immutable badge history. Events leave
// through an outbox-backed worker. Business rules live in the
// application/domain layers; infrastructure sits behind ports and adapters.
package ceremonyengine

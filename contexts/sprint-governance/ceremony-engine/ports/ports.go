package ports

import (
	"context"
	"time"

	"agora/contexts/sprint-governance/ceremony-engine/domain/entities"
	contractsv1 "agora/contracts/gen/events/v1"
)

// MembershipRepository owns credential ownership records and the append-only
// badge history attached to them. CreateCredential returns
// ErrAlreadyRegistered when the identity already holds a credential.
type MembershipRepository interface {
	CreateCredential(ctx context.Context, credential entities.Credential) error
	GetCredentialByOwner(ctx context.Context, identity string) (entities.Credential, error)
	GetCredential(ctx context.Context, credentialID int64) (entities.Credential, error)
	ListCredentialsByOwners(ctx context.Context, identities []string) (map[string]entities.Credential, error)
	ListBadgeHistory(ctx context.Context, credentialID int64) ([]entities.BadgeHistoryEntry, error)
}

// CeremonyRepository owns ceremony rows and their ordered admission lists.
// CreateCeremony assigns the next ceremony id and returns the stored row.
// AddParticipant returns ErrAlreadyAdmitted when the identity is present.
type CeremonyRepository interface {
	CreateCeremony(ctx context.Context, ceremony entities.Ceremony) (entities.Ceremony, error)
	GetCeremony(ctx context.Context, ceremonyID int64) (entities.Ceremony, error)
	ListCeremonies(ctx context.Context, limit int, offset int) ([]entities.Ceremony, error)
	AddParticipant(ctx context.Context, participant entities.Participant) error
	GetParticipant(ctx context.Context, ceremonyID int64, identity string) (entities.Participant, bool, error)
	ListParticipants(ctx context.Context, ceremonyID int64) ([]entities.Participant, error)
	CountParticipants(ctx context.Context, ceremonyID int64) (int, error)
}

// TallyRepository owns the general ballot and the feature-session arena.
// CreateSession assigns the ceremony's next session index and bumps the
// counter in the same transaction. Save*Vote return ErrAlreadyVoted on the
// write-once conflict; CloseSession returns ErrSessionAlreadyClosed when the
// session is not open.
type TallyRepository interface {
	SaveGeneralVote(ctx context.Context, vote entities.GeneralVote) error
	ListGeneralVotes(ctx context.Context, ceremonyID int64) ([]entities.GeneralVote, error)
	CreateSession(ctx context.Context, ceremonyID int64, label string, openedAt time.Time) (entities.FeatureSession, error)
	GetSession(ctx context.Context, ceremonyID int64, sessionIndex int) (entities.FeatureSession, error)
	ListSessions(ctx context.Context, ceremonyID int64) ([]entities.FeatureSession, error)
	CloseSession(ctx context.Context, ceremonyID int64, sessionIndex int, closedAt time.Time) error
	SaveFeatureVote(ctx context.Context, vote entities.FeatureVote) error
	ListFeatureVotes(ctx context.Context, ceremonyID int64) ([]entities.FeatureVote, error)
}

// ConclusionRepository commits a conclusion as one atomic unit: the
// Open -> Concluded transition, the force-close of still-open sessions, the
// history entries, and the staged events all land or none do. Implementations
// return ErrCeremonyAlreadyConcluded when the guarded transition touches no
// row.
type ConclusionRepository interface {
	FinalizeCeremony(
		ctx context.Context,
		ceremonyID int64,
		endTime time.Time,
		entries []entities.BadgeHistoryEntry,
		events []EventEnvelope,
	) error
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = contractsv1.Envelope

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxWriter stages an envelope for asynchronous publication.
type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// RoleDirectory resolves the process-wide administrator predicate. The
// ownership-transfer protocol that maintains the administrator set lives
// outside this module.
type RoleDirectory interface {
	IsAdministrator(identity string) bool
}

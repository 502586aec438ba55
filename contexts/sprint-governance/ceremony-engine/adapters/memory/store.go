package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"agora/contexts/sprint-governance/ceremony-engine/domain/entities"
	domainerrors "agora/contexts/sprint-governance/ceremony-engine/domain/errors"
	"agora/contexts/sprint-governance/ceremony-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store is the mutex-guarded in-memory backing used by unit tests and local
// wiring. Each public method holds the lock for its whole duration, which
// gives the serialized-transaction guarantee the engine relies on.
type Store struct {
	mu sync.RWMutex

	credentials    map[int64]entities.Credential
	ownerIndex     map[string]int64
	history        map[int64][]entities.BadgeHistoryEntry
	nextEntryID    int64
	ceremonies     map[int64]entities.Ceremony
	nextCeremonyID int64
	participants   map[int64][]entities.Participant
	generalVotes   map[int64]map[string]entities.GeneralVote
	sessions       map[int64][]entities.FeatureSession
	featureVotes   map[int64]map[int]map[string]entities.FeatureVote
	outbox         map[string]outboxRecord
}

func NewStore(seed []entities.Credential) *Store {
	store := &Store{
		credentials:  make(map[int64]entities.Credential, len(seed)),
		ownerIndex:   make(map[string]int64, len(seed)),
		history:      make(map[int64][]entities.BadgeHistoryEntry),
		ceremonies:   make(map[int64]entities.Ceremony),
		participants: make(map[int64][]entities.Participant),
		generalVotes: make(map[int64]map[string]entities.GeneralVote),
		sessions:     make(map[int64][]entities.FeatureSession),
		featureVotes: make(map[int64]map[int]map[string]entities.FeatureVote),
		outbox:       make(map[string]outboxRecord),
	}
	for _, credential := range seed {
		store.credentials[credential.CredentialID] = credential
		store.ownerIndex[strings.TrimSpace(credential.Owner)] = credential.CredentialID
	}
	return store
}

// SeedCredential installs a credential directly, bypassing the register
// command. Test helper.
func (s *Store) SeedCredential(credential entities.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[credential.CredentialID] = credential
	s.ownerIndex[strings.TrimSpace(credential.Owner)] = credential.CredentialID
}

func (s *Store) CreateCredential(_ context.Context, credential entities.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner := strings.TrimSpace(credential.Owner)
	if _, exists := s.ownerIndex[owner]; exists {
		return domainerrors.ErrAlreadyRegistered
	}
	if _, exists := s.credentials[credential.CredentialID]; exists {
		return domainerrors.ErrAlreadyRegistered
	}
	s.credentials[credential.CredentialID] = credential
	s.ownerIndex[owner] = credential.CredentialID
	return nil
}

func (s *Store) GetCredentialByOwner(_ context.Context, identity string) (entities.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	credentialID, ok := s.ownerIndex[strings.TrimSpace(identity)]
	if !ok {
		return entities.Credential{}, domainerrors.ErrCredentialNotFound
	}
	return s.credentials[credentialID], nil
}

func (s *Store) GetCredential(_ context.Context, credentialID int64) (entities.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	credential, ok := s.credentials[credentialID]
	if !ok {
		return entities.Credential{}, domainerrors.ErrCredentialNotFound
	}
	return credential, nil
}

func (s *Store) ListCredentialsByOwners(_ context.Context, identities []string) (map[string]entities.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make(map[string]entities.Credential, len(identities))
	for _, identity := range identities {
		identity = strings.TrimSpace(identity)
		if credentialID, ok := s.ownerIndex[identity]; ok {
			items[identity] = s.credentials[credentialID]
		}
	}
	return items, nil
}

func (s *Store) ListBadgeHistory(_ context.Context, credentialID int64) ([]entities.BadgeHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.history[credentialID]
	items := make([]entities.BadgeHistoryEntry, len(entries))
	copy(items, entries)
	return items, nil
}

func (s *Store) CreateCeremony(_ context.Context, ceremony entities.Ceremony) (entities.Ceremony, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCeremonyID++
	ceremony.CeremonyID = s.nextCeremonyID
	s.ceremonies[ceremony.CeremonyID] = ceremony
	return ceremony, nil
}

func (s *Store) GetCeremony(_ context.Context, ceremonyID int64) (entities.Ceremony, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ceremony, ok := s.ceremonies[ceremonyID]
	if !ok {
		return entities.Ceremony{}, domainerrors.ErrCeremonyNotFound
	}
	return ceremony, nil
}

func (s *Store) ListCeremonies(_ context.Context, limit int, offset int) ([]entities.Ceremony, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Ceremony, 0, len(s.ceremonies))
	for _, ceremony := range s.ceremonies {
		items = append(items, ceremony)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CeremonyID > items[j].CeremonyID
	})
	if offset >= len(items) {
		return []entities.Ceremony{}, nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) AddParticipant(_ context.Context, participant entities.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity := strings.TrimSpace(participant.Identity)
	for _, existing := range s.participants[participant.CeremonyID] {
		if existing.Identity == identity {
			return domainerrors.ErrAlreadyAdmitted
		}
	}
	participant.Identity = identity
	s.participants[participant.CeremonyID] = append(s.participants[participant.CeremonyID], participant)
	return nil
}

func (s *Store) GetParticipant(_ context.Context, ceremonyID int64, identity string) (entities.Participant, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity = strings.TrimSpace(identity)
	for _, participant := range s.participants[ceremonyID] {
		if participant.Identity == identity {
			return participant, true, nil
		}
	}
	return entities.Participant{}, false, nil
}

func (s *Store) ListParticipants(_ context.Context, ceremonyID int64) ([]entities.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	participants := s.participants[ceremonyID]
	items := make([]entities.Participant, len(participants))
	copy(items, participants)
	return items, nil
}

func (s *Store) CountParticipants(_ context.Context, ceremonyID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.participants[ceremonyID]), nil
}

func (s *Store) SaveGeneralVote(_ context.Context, vote entities.GeneralVote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	votes := s.generalVotes[vote.CeremonyID]
	if votes == nil {
		votes = make(map[string]entities.GeneralVote)
		s.generalVotes[vote.CeremonyID] = votes
	}
	identity := strings.TrimSpace(vote.Identity)
	if _, exists := votes[identity]; exists {
		return domainerrors.ErrAlreadyVoted
	}
	vote.Identity = identity
	votes[identity] = vote
	return nil
}

func (s *Store) ListGeneralVotes(_ context.Context, ceremonyID int64) ([]entities.GeneralVote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.GeneralVote, 0, len(s.generalVotes[ceremonyID]))
	for _, vote := range s.generalVotes[ceremonyID] {
		items = append(items, vote)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CastAt.Before(items[j].CastAt)
	})
	return items, nil
}

func (s *Store) CreateSession(_ context.Context, ceremonyID int64, label string, openedAt time.Time) (entities.FeatureSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ceremony, ok := s.ceremonies[ceremonyID]
	if !ok {
		return entities.FeatureSession{}, domainerrors.ErrCeremonyNotFound
	}
	session := entities.FeatureSession{
		CeremonyID:   ceremonyID,
		SessionIndex: ceremony.NextSessionIndex,
		FeatureLabel: strings.TrimSpace(label),
		Status:       entities.SessionStatusOpen,
		OpenedAt:     openedAt.UTC(),
	}
	ceremony.NextSessionIndex++
	ceremony.UpdatedAt = openedAt.UTC()
	s.ceremonies[ceremonyID] = ceremony
	s.sessions[ceremonyID] = append(s.sessions[ceremonyID], session)
	return session, nil
}

func (s *Store) GetSession(_ context.Context, ceremonyID int64, sessionIndex int) (entities.FeatureSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.sessions[ceremonyID] {
		if session.SessionIndex == sessionIndex {
			return session, nil
		}
	}
	return entities.FeatureSession{}, domainerrors.ErrSessionNotFound
}

func (s *Store) ListSessions(_ context.Context, ceremonyID int64) ([]entities.FeatureSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := s.sessions[ceremonyID]
	items := make([]entities.FeatureSession, len(sessions))
	copy(items, sessions)
	return items, nil
}

func (s *Store) CloseSession(_ context.Context, ceremonyID int64, sessionIndex int, closedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions := s.sessions[ceremonyID]
	for i, session := range sessions {
		if session.SessionIndex != sessionIndex {
			continue
		}
		if session.Status != entities.SessionStatusOpen {
			return domainerrors.ErrSessionAlreadyClosed
		}
		closed := closedAt.UTC()
		session.Status = entities.SessionStatusClosed
		session.ClosedAt = &closed
		sessions[i] = session
		return nil
	}
	return domainerrors.ErrSessionNotFound
}

func (s *Store) SaveFeatureVote(_ context.Context, vote entities.FeatureVote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bySession := s.featureVotes[vote.CeremonyID]
	if bySession == nil {
		bySession = make(map[int]map[string]entities.FeatureVote)
		s.featureVotes[vote.CeremonyID] = bySession
	}
	votes := bySession[vote.SessionIndex]
	if votes == nil {
		votes = make(map[string]entities.FeatureVote)
		bySession[vote.SessionIndex] = votes
	}
	identity := strings.TrimSpace(vote.Identity)
	if _, exists := votes[identity]; exists {
		return domainerrors.ErrAlreadyVoted
	}
	vote.Identity = identity
	votes[identity] = vote
	return nil
}

func (s *Store) ListFeatureVotes(_ context.Context, ceremonyID int64) ([]entities.FeatureVote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.FeatureVote, 0)
	for _, votes := range s.featureVotes[ceremonyID] {
		for _, vote := range votes {
			items = append(items, vote)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].SessionIndex == items[j].SessionIndex {
			return items[i].Identity < items[j].Identity
		}
		return items[i].SessionIndex < items[j].SessionIndex
	})
	return items, nil
}

// FinalizeCeremony commits a conclusion under one lock hold: the guarded
// Open -> Concluded transition, the force-close of open sessions, the history
// appends, and the event staging never interleave with another operation.
func (s *Store) FinalizeCeremony(
	_ context.Context,
	ceremonyID int64,
	endTime time.Time,
	entries []entities.BadgeHistoryEntry,
	events []ports.EventEnvelope,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ceremony, ok := s.ceremonies[ceremonyID]
	if !ok {
		return domainerrors.ErrCeremonyNotFound
	}
	if ceremony.Status != entities.CeremonyStatusOpen {
		return domainerrors.ErrCeremonyAlreadyConcluded
	}

	end := endTime.UTC()
	ceremony.Status = entities.CeremonyStatusConcluded
	ceremony.EndTime = &end
	ceremony.UpdatedAt = end
	s.ceremonies[ceremonyID] = ceremony

	sessions := s.sessions[ceremonyID]
	for i, session := range sessions {
		if session.Status != entities.SessionStatusOpen {
			continue
		}
		closed := end
		session.Status = entities.SessionStatusClosed
		session.ClosedAt = &closed
		sessions[i] = session
	}

	for _, entry := range entries {
		s.nextEntryID++
		entry.EntryID = s.nextEntryID
		s.history[entry.CredentialID] = append(s.history[entry.CredentialID], entry)
	}

	for _, event := range events {
		if err := s.appendOutboxLocked(event); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendOutboxLocked(envelope)
}

func (s *Store) appendOutboxLocked(envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if _, exists := s.outbox[outboxID]; exists {
		return domainerrors.ErrConflict
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].OutboxID < items[j].OutboxID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.MembershipRepository = (*Store)(nil)
var _ ports.CeremonyRepository = (*Store)(nil)
var _ ports.TallyRepository = (*Store)(nil)
var _ ports.ConclusionRepository = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)

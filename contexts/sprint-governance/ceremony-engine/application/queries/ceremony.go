package queries

import (
	"context"

	"agora/contexts/sprint-governance/ceremony-engine/domain/entities"
	"agora/contexts/sprint-governance/ceremony-engine/ports"
)

// CeremonyDetail is one ceremony with its ordered participants and sessions.
type CeremonyDetail struct {
	Ceremony     entities.Ceremony
	Participants []entities.Participant
	Sessions     []entities.FeatureSession
}

// CeremonyUseCase serves ceremony reads, including the provisional tally that
// previews the conclusion aggregation without any state change.
type CeremonyUseCase struct {
	Ceremonies ports.CeremonyRepository
	Members    ports.MembershipRepository
	Tally      ports.TallyRepository
}

func (uc CeremonyUseCase) GetCeremony(ctx context.Context, ceremonyID int64) (CeremonyDetail, error) {
	ceremony, err := uc.Ceremonies.GetCeremony(ctx, ceremonyID)
	if err != nil {
		return CeremonyDetail{}, err
	}
	participants, err := uc.Ceremonies.ListParticipants(ctx, ceremonyID)
	if err != nil {
		return CeremonyDetail{}, err
	}
	sessions, err := uc.Tally.ListSessions(ctx, ceremonyID)
	if err != nil {
		return CeremonyDetail{}, err
	}
	return CeremonyDetail{
		Ceremony:     ceremony,
		Participants: participants,
		Sessions:     sessions,
	}, nil
}

func (uc CeremonyUseCase) ListCeremonies(ctx context.Context, limit int, offset int) ([]entities.Ceremony, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return uc.Ceremonies.ListCeremonies(ctx, limit, offset)
}

// ProvisionalTally runs the conclusion arithmetic read-only against the live
// vote state. It shares the pure aggregation with ConcludeCeremony, so the
// preview and the final record can never drift.
func (uc CeremonyUseCase) ProvisionalTally(ctx context.Context, ceremonyID int64) ([]entities.ParticipantResult, error) {
	ceremony, err := uc.Ceremonies.GetCeremony(ctx, ceremonyID)
	if err != nil {
		return nil, err
	}
	participants, err := uc.Ceremonies.ListParticipants(ctx, ceremony.CeremonyID)
	if err != nil {
		return nil, err
	}
	generalVotes, err := uc.Tally.ListGeneralVotes(ctx, ceremony.CeremonyID)
	if err != nil {
		return nil, err
	}
	sessions, err := uc.Tally.ListSessions(ctx, ceremony.CeremonyID)
	if err != nil {
		return nil, err
	}
	featureVotes, err := uc.Tally.ListFeatureVotes(ctx, ceremony.CeremonyID)
	if err != nil {
		return nil, err
	}
	identities := make([]string, 0, len(participants))
	for _, participant := range participants {
		identities = append(identities, participant.Identity)
	}
	credentials, err := uc.Members.ListCredentialsByOwners(ctx, identities)
	if err != nil {
		return nil, err
	}
	return entities.AggregateResults(participants, credentials, generalVotes, sessions, featureVotes), nil
}

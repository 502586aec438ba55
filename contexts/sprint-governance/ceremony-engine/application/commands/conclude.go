package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "agora/contexts/sprint-governance/ceremony-engine/application"
	"agora/contexts/sprint-governance/ceremony-engine/domain/entities"
	domainerrors "agora/contexts/sprint-governance/ceremony-engine/domain/errors"
	"agora/contexts/sprint-governance/ceremony-engine/ports"
)

// ConcludeCeremonyCommand finalizes a ceremony.
type ConcludeCeremonyCommand struct {
	CeremonyID int64
	Caller     string
}

// ConcludeResult carries the finalized ceremony and the per-participant
// aggregation in admission order.
type ConcludeResult struct {
	Ceremony entities.Ceremony
	Results  []entities.ParticipantResult
}

// ConcludeUseCase is the badge ledger writer. It is the only code path that
// reads ceremony, tally, and membership state together and the only writer of
// credential history. The commit itself goes through a single repository
// call so the transition, the session force-close, the history entries, and
// the staged events land atomically.
type ConcludeUseCase struct {
	Ceremonies ports.CeremonyRepository
	Members    ports.MembershipRepository
	Tally      ports.TallyRepository
	Conclusion ports.ConclusionRepository
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Policy     Policy
	Logger     *slog.Logger
}

// ConcludeCeremony aggregates every participant's votes into one immutable
// history entry per credentialed participant and transitions the ceremony to
// Concluded exactly once. Participants without a credential are skipped, not
// failed: that state is only reachable through out-of-band registry
// manipulation and must not abort everyone else's record.
func (uc ConcludeUseCase) ConcludeCeremony(ctx context.Context, cmd ConcludeCeremonyCommand) (ConcludeResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	caller := strings.TrimSpace(cmd.Caller)
	logger.Info("ceremony conclusion started",
		"event", "governance_conclude_started",
		"module", "sprint-governance/ceremony-engine",
		"layer", "application",
		"ceremony_id", cmd.CeremonyID,
		"caller", caller,
	)
	if caller == "" || cmd.CeremonyID <= 0 {
		return ConcludeResult{}, domainerrors.ErrInvalidInput
	}

	ceremony, err := uc.Ceremonies.GetCeremony(ctx, cmd.CeremonyID)
	if err != nil {
		return ConcludeResult{}, err
	}
	if caller != ceremony.Facilitator {
		logger.Warn("ceremony conclusion not authorized",
			"event", "governance_conclude_not_authorized",
			"module", "sprint-governance/ceremony-engine",
			"layer", "application",
			"ceremony_id", cmd.CeremonyID,
			"caller", caller,
		)
		return ConcludeResult{}, domainerrors.ErrNotAuthorized
	}
	if !ceremony.IsOpen() {
		logger.Warn("ceremony already concluded",
			"event", "governance_conclude_duplicate",
			"module", "sprint-governance/ceremony-engine",
			"layer", "application",
			"ceremony_id", cmd.CeremonyID,
		)
		return ConcludeResult{}, domainerrors.ErrCeremonyAlreadyConcluded
	}

	participants, err := uc.Ceremonies.ListParticipants(ctx, cmd.CeremonyID)
	if err != nil {
		return ConcludeResult{}, err
	}
	generalVotes, err := uc.Tally.ListGeneralVotes(ctx, cmd.CeremonyID)
	if err != nil {
		return ConcludeResult{}, err
	}
	sessions, err := uc.Tally.ListSessions(ctx, cmd.CeremonyID)
	if err != nil {
		return ConcludeResult{}, err
	}
	featureVotes, err := uc.Tally.ListFeatureVotes(ctx, cmd.CeremonyID)
	if err != nil {
		return ConcludeResult{}, err
	}
	identities := make([]string, 0, len(participants))
	for _, participant := range participants {
		identities = append(identities, participant.Identity)
	}
	credentials, err := uc.Members.ListCredentialsByOwners(ctx, identities)
	if err != nil {
		return ConcludeResult{}, err
	}

	endTime := resolveNow(uc.Clock)
	results := entities.AggregateResults(participants, credentials, generalVotes, sessions, featureVotes)
	entries := entities.BuildHistoryEntries(ceremony, endTime, endTime, results)

	events, err := uc.buildConclusionEvents(ctx, ceremony, sessions, results, endTime)
	if err != nil {
		return ConcludeResult{}, err
	}

	if err := uc.Conclusion.FinalizeCeremony(ctx, cmd.CeremonyID, endTime, entries, events); err != nil {
		return ConcludeResult{}, err
	}

	ceremony.Status = entities.CeremonyStatusConcluded
	ceremony.EndTime = &endTime
	ceremony.UpdatedAt = endTime

	logger.Info("ceremony concluded",
		"event", "governance_ceremony_concluded",
		"module", "sprint-governance/ceremony-engine",
		"layer", "application",
		"ceremony_id", cmd.CeremonyID,
		"sprint_number", ceremony.SprintNumber,
		"participant_count", len(participants),
		"session_count", len(sessions),
		"history_entries", len(entries),
	)
	return ConcludeResult{Ceremony: ceremony, Results: results}, nil
}

// buildConclusionEvents stages the full conclusion event set: one close per
// still-open session, one history event per credentialed participant, and the
// final ceremony-level event.
func (uc ConcludeUseCase) buildConclusionEvents(
	ctx context.Context,
	ceremony entities.Ceremony,
	sessions []entities.FeatureSession,
	results []entities.ParticipantResult,
	endTime time.Time,
) ([]ports.EventEnvelope, error) {
	partitionKey := formatCeremonyID(ceremony.CeremonyID)
	events := make([]ports.EventEnvelope, 0, len(sessions)+len(results)+1)

	for _, session := range sessions {
		if !session.IsOpen() {
			continue
		}
		envelope, err := uc.newEvent(ctx, eventFeatureSessionClosed, partitionKey, endTime, map[string]any{
			"ceremony_id":   ceremony.CeremonyID,
			"session_index": session.SessionIndex,
			"feature_label": session.FeatureLabel,
			"reason":        "ceremony_concluded",
		})
		if err != nil {
			return nil, err
		}
		events = append(events, envelope)
	}

	for _, result := range results {
		envelope, err := uc.newEvent(ctx, eventBadgeHistoryAppended, partitionKey, endTime, map[string]any{
			"ceremony_id":   ceremony.CeremonyID,
			"sprint_number": ceremony.SprintNumber,
			"credential_id": result.CredentialID,
			"identity":      result.Identity,
			"total_points":  result.TotalPoints,
		})
		if err != nil {
			return nil, err
		}
		events = append(events, envelope)
	}

	envelope, err := uc.newEvent(ctx, eventCeremonyConcluded, partitionKey, endTime, map[string]any{
		"ceremony_id":       ceremony.CeremonyID,
		"sprint_number":     ceremony.SprintNumber,
		"facilitator":       ceremony.Facilitator,
		"participant_count": len(results),
		"session_count":     len(sessions),
		"end_time":          endTime.Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	return append(events, envelope), nil
}

func (uc ConcludeUseCase) newEvent(
	ctx context.Context,
	eventType string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	eventID := ""
	if uc.IDGen != nil {
		generated, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return ports.EventEnvelope{}, err
		}
		eventID = generated
	}
	return newGovernanceEnvelope(eventID, eventType, "ceremony_id", partitionKey, occurredAt, data)
}

package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "agora/contexts/sprint-governance/ceremony-engine/application"
	"agora/contexts/sprint-governance/ceremony-engine/domain/entities"
	domainerrors "agora/contexts/sprint-governance/ceremony-engine/domain/errors"
	"agora/contexts/sprint-governance/ceremony-engine/ports"
)

// CastGeneralVoteCommand records the ceremony-wide ballot for one identity.
type CastGeneralVoteCommand struct {
	CeremonyID int64
	Identity   string
	Points     int64
}

// CastFeatureVoteCommand records a vote inside one feature session.
type CastFeatureVoteCommand struct {
	CeremonyID   int64
	SessionIndex int
	Identity     string
	Points       int64
}

// TallyUseCase owns vote collection for a ceremony: the general ballot and
// the feature-session votes. Every cast re-evaluates the vesting gate against
// the current clock; nothing is cached.
type TallyUseCase struct {
	Ceremonies ports.CeremonyRepository
	Members    ports.MembershipRepository
	Tally      ports.TallyRepository
	Outbox     ports.OutboxWriter
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Policy     Policy
	Logger     *slog.Logger
}

// CastGeneralVote records the write-once general vote. Checks run in a fixed
// order: ceremony exists, ceremony open, identity admitted, rights vested,
// points in bounds, not already voted. Admission is checked before vesting so
// an un-admitted caller is rejected the same way regardless of vesting state.
func (uc TallyUseCase) CastGeneralVote(ctx context.Context, cmd CastGeneralVoteCommand) (entities.GeneralVote, error) {
	logger := application.ResolveLogger(uc.Logger)
	identity := strings.TrimSpace(cmd.Identity)
	logger.Info("general vote processing started",
		"event", "governance_general_vote_started",
		"module", "sprint-governance/ceremony-engine",
		"layer", "application",
		"ceremony_id", cmd.CeremonyID,
		"identity", identity,
		"points", cmd.Points,
	)
	if identity == "" || cmd.CeremonyID <= 0 {
		return entities.GeneralVote{}, domainerrors.ErrInvalidInput
	}

	now := resolveNow(uc.Clock)
	if err := uc.checkVoterPreconditions(ctx, cmd.CeremonyID, identity, cmd.Points, now, logger); err != nil {
		return entities.GeneralVote{}, err
	}

	vote := entities.GeneralVote{
		CeremonyID: cmd.CeremonyID,
		Identity:   identity,
		Points:     cmd.Points,
		CastAt:     now,
	}
	if err := uc.Tally.SaveGeneralVote(ctx, vote); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyVoted) {
			logger.Warn("general vote already recorded",
				"event", "governance_general_vote_duplicate",
				"module", "sprint-governance/ceremony-engine",
				"layer", "application",
				"ceremony_id", cmd.CeremonyID,
				"identity", identity,
			)
		}
		return entities.GeneralVote{}, err
	}

	if err := appendEnvelope(ctx, uc.Outbox, uc.IDGen, eventGeneralVoteCast, "ceremony_id", formatCeremonyID(cmd.CeremonyID), now, map[string]any{
		"ceremony_id": cmd.CeremonyID,
		"identity":    identity,
		"points":      cmd.Points,
	}); err != nil {
		return entities.GeneralVote{}, err
	}

	logger.Info("general vote cast",
		"event", "governance_general_vote_cast",
		"module", "sprint-governance/ceremony-engine",
		"layer", "application",
		"ceremony_id", cmd.CeremonyID,
		"identity", identity,
		"points", cmd.Points,
	)
	return vote, nil
}

// CastFeatureVote records a write-once vote in an open feature session. The
// session checks slot in after the ceremony checks and before admission.
func (uc TallyUseCase) CastFeatureVote(ctx context.Context, cmd CastFeatureVoteCommand) (entities.FeatureVote, error) {
	logger := application.ResolveLogger(uc.Logger)
	identity := strings.TrimSpace(cmd.Identity)
	logger.Info("feature vote processing started",
		"event", "governance_feature_vote_started",
		"module", "sprint-governance/ceremony-engine",
		"layer", "application",
		"ceremony_id", cmd.CeremonyID,
		"session_index", cmd.SessionIndex,
		"identity", identity,
		"points", cmd.Points,
	)
	if identity == "" || cmd.CeremonyID <= 0 || cmd.SessionIndex < 0 {
		return entities.FeatureVote{}, domainerrors.ErrInvalidInput
	}

	now := resolveNow(uc.Clock)
	ceremony, err := uc.Ceremonies.GetCeremony(ctx, cmd.CeremonyID)
	if err != nil {
		return entities.FeatureVote{}, err
	}
	if !ceremony.IsOpen() {
		return entities.FeatureVote{}, domainerrors.ErrCeremonyNotOpen
	}
	session, err := uc.Tally.GetSession(ctx, cmd.CeremonyID, cmd.SessionIndex)
	if err != nil {
		return entities.FeatureVote{}, err
	}
	if !session.IsOpen() {
		logger.Warn("feature vote rejected for closed session",
			"event", "governance_feature_vote_session_closed",
			"module", "sprint-governance/ceremony-engine",
			"layer", "application",
			"ceremony_id", cmd.CeremonyID,
			"session_index", cmd.SessionIndex,
			"identity", identity,
		)
		return entities.FeatureVote{}, domainerrors.ErrSessionClosed
	}
	if err := uc.checkVoterEligibility(ctx, cmd.CeremonyID, identity, cmd.Points, now, logger); err != nil {
		return entities.FeatureVote{}, err
	}

	vote := entities.FeatureVote{
		CeremonyID:   cmd.CeremonyID,
		SessionIndex: cmd.SessionIndex,
		Identity:     identity,
		Points:       cmd.Points,
		CastAt:       now,
	}
	if err := uc.Tally.SaveFeatureVote(ctx, vote); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyVoted) {
			logger.Warn("feature vote already recorded",
				"event", "governance_feature_vote_duplicate",
				"module", "sprint-governance/ceremony-engine",
				"layer", "application",
				"ceremony_id", cmd.CeremonyID,
				"session_index", cmd.SessionIndex,
				"identity", identity,
			)
		}
		return entities.FeatureVote{}, err
	}

	if err := appendEnvelope(ctx, uc.Outbox, uc.IDGen, eventFeatureVoteCast, "ceremony_id", formatCeremonyID(cmd.CeremonyID), now, map[string]any{
		"ceremony_id":   cmd.CeremonyID,
		"session_index": cmd.SessionIndex,
		"feature_label": session.FeatureLabel,
		"identity":      identity,
		"points":        cmd.Points,
	}); err != nil {
		return entities.FeatureVote{}, err
	}

	logger.Info("feature vote cast",
		"event", "governance_feature_vote_cast",
		"module", "sprint-governance/ceremony-engine",
		"layer", "application",
		"ceremony_id", cmd.CeremonyID,
		"session_index", cmd.SessionIndex,
		"identity", identity,
		"points", cmd.Points,
	)
	return vote, nil
}

// checkVoterPreconditions runs the general-vote check chain starting from the
// ceremony lookup.
func (uc TallyUseCase) checkVoterPreconditions(
	ctx context.Context,
	ceremonyID int64,
	identity string,
	points int64,
	now time.Time,
	logger *slog.Logger,
) error {
	ceremony, err := uc.Ceremonies.GetCeremony(ctx, ceremonyID)
	if err != nil {
		return err
	}
	if !ceremony.IsOpen() {
		return domainerrors.ErrCeremonyNotOpen
	}
	return uc.checkVoterEligibility(ctx, ceremonyID, identity, points, now, logger)
}

// checkVoterEligibility enforces admission, vesting, and vote bounds in that
// order for an already-validated open ceremony.
func (uc TallyUseCase) checkVoterEligibility(
	ctx context.Context,
	ceremonyID int64,
	identity string,
	points int64,
	now time.Time,
	logger *slog.Logger,
) error {
	_, admitted, err := uc.Ceremonies.GetParticipant(ctx, ceremonyID, identity)
	if err != nil {
		return err
	}
	if !admitted {
		logger.Warn("vote rejected for un-admitted identity",
			"event", "governance_vote_not_admitted",
			"module", "sprint-governance/ceremony-engine",
			"layer", "application",
			"ceremony_id", ceremonyID,
			"identity", identity,
		)
		return domainerrors.ErrNotAdmitted
	}

	active, err := uc.rightsActive(ctx, identity, now)
	if err != nil {
		return err
	}
	if !active {
		logger.Warn("vote rejected before vesting",
			"event", "governance_vote_rights_not_vested",
			"module", "sprint-governance/ceremony-engine",
			"layer", "application",
			"ceremony_id", ceremonyID,
			"identity", identity,
		)
		return domainerrors.ErrRightsNotVested
	}

	minPoints, maxPoints := uc.Policy.voteBounds()
	if points < minPoints || points > maxPoints {
		logger.Warn("vote value out of bounds",
			"event", "governance_vote_out_of_range",
			"module", "sprint-governance/ceremony-engine",
			"layer", "application",
			"ceremony_id", ceremonyID,
			"identity", identity,
			"points", points,
			"min_points", minPoints,
			"max_points", maxPoints,
		)
		return domainerrors.ErrVoteOutOfRange
	}
	return nil
}

// rightsActive is the vesting gate: false without a credential (fails
// closed), otherwise a pure comparison of now against the vesting horizon.
func (uc TallyUseCase) rightsActive(ctx context.Context, identity string, now time.Time) (bool, error) {
	credential, err := uc.Members.GetCredentialByOwner(ctx, identity)
	if err != nil {
		if errors.Is(err, domainerrors.ErrCredentialNotFound) {
			return false, nil
		}
		return false, err
	}
	return credential.RightsActiveAt(now, uc.Policy.vestingPeriod()), nil
}

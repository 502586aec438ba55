package commands

import (
	"context"
	"errors"
	"strings"

	application "agora/contexts/sprint-governance/ceremony-engine/application"
	"agora/contexts/sprint-governance/ceremony-engine/domain/entities"
	domainerrors "agora/contexts/sprint-governance/ceremony-engine/domain/errors"
)

// OpenFeatureSessionCommand opens a new voting round on a named feature.
type OpenFeatureSessionCommand struct {
	CeremonyID int64
	Label      string
	Caller     string
}

// CloseFeatureSessionCommand closes one feature session. Other sessions and
// the ceremony itself are unaffected.
type CloseFeatureSessionCommand struct {
	CeremonyID   int64
	SessionIndex int
	Caller       string
}

// OpenFeatureSession assigns the ceremony's next session index and opens the
// session. Indexes are 0-based, monotonic, and never reused even after a
// session closes, so the repository bumps the counter in the same transaction
// as the insert.
func (uc TallyUseCase) OpenFeatureSession(ctx context.Context, cmd OpenFeatureSessionCommand) (entities.FeatureSession, error) {
	logger := application.ResolveLogger(uc.Logger)
	label := strings.TrimSpace(cmd.Label)
	caller := strings.TrimSpace(cmd.Caller)
	logger.Info("feature session open started",
		"event", "governance_session_open_started",
		"module", "sprint-governance/ceremony-engine",
		"layer", "application",
		"ceremony_id", cmd.CeremonyID,
		"feature_label", label,
		"caller", caller,
	)
	if label == "" || caller == "" || cmd.CeremonyID <= 0 {
		return entities.FeatureSession{}, domainerrors.ErrInvalidInput
	}

	ceremony, err := uc.Ceremonies.GetCeremony(ctx, cmd.CeremonyID)
	if err != nil {
		return entities.FeatureSession{}, err
	}
	if caller != ceremony.Facilitator {
		logger.Warn("feature session open not authorized",
			"event", "governance_session_open_not_authorized",
			"module", "sprint-governance/ceremony-engine",
			"layer", "application",
			"ceremony_id", cmd.CeremonyID,
			"caller", caller,
		)
		return entities.FeatureSession{}, domainerrors.ErrNotAuthorized
	}
	if !ceremony.IsOpen() {
		return entities.FeatureSession{}, domainerrors.ErrCeremonyNotOpen
	}
	if ceremony.NextSessionIndex >= uc.Policy.maxSessions() {
		logger.Warn("feature session limit reached",
			"event", "governance_session_limit_reached",
			"module", "sprint-governance/ceremony-engine",
			"layer", "application",
			"ceremony_id", cmd.CeremonyID,
			"next_session_index", ceremony.NextSessionIndex,
		)
		return entities.FeatureSession{}, domainerrors.ErrSessionLimit
	}

	now := resolveNow(uc.Clock)
	session, err := uc.Tally.CreateSession(ctx, cmd.CeremonyID, label, now)
	if err != nil {
		return entities.FeatureSession{}, err
	}

	if err := appendEnvelope(ctx, uc.Outbox, uc.IDGen, eventFeatureSessionOpened, "ceremony_id", formatCeremonyID(cmd.CeremonyID), now, map[string]any{
		"ceremony_id":   cmd.CeremonyID,
		"session_index": session.SessionIndex,
		"feature_label": session.FeatureLabel,
	}); err != nil {
		return entities.FeatureSession{}, err
	}

	logger.Info("feature session opened",
		"event", "governance_feature_session_opened",
		"module", "sprint-governance/ceremony-engine",
		"layer", "application",
		"ceremony_id", cmd.CeremonyID,
		"session_index", session.SessionIndex,
		"feature_label", session.FeatureLabel,
	)
	return session, nil
}

// CloseFeatureSession blocks further votes in one session. Closing is
// write-once: a second close fails with ErrSessionAlreadyClosed.
func (uc TallyUseCase) CloseFeatureSession(ctx context.Context, cmd CloseFeatureSessionCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	caller := strings.TrimSpace(cmd.Caller)
	logger.Info("feature session close started",
		"event", "governance_session_close_started",
		"module", "sprint-governance/ceremony-engine",
		"layer", "application",
		"ceremony_id", cmd.CeremonyID,
		"session_index", cmd.SessionIndex,
		"caller", caller,
	)
	if caller == "" || cmd.CeremonyID <= 0 || cmd.SessionIndex < 0 {
		return domainerrors.ErrInvalidInput
	}

	ceremony, err := uc.Ceremonies.GetCeremony(ctx, cmd.CeremonyID)
	if err != nil {
		return err
	}
	if caller != ceremony.Facilitator {
		logger.Warn("feature session close not authorized",
			"event", "governance_session_close_not_authorized",
			"module", "sprint-governance/ceremony-engine",
			"layer", "application",
			"ceremony_id", cmd.CeremonyID,
			"session_index", cmd.SessionIndex,
			"caller", caller,
		)
		return domainerrors.ErrNotAuthorized
	}
	session, err := uc.Tally.GetSession(ctx, cmd.CeremonyID, cmd.SessionIndex)
	if err != nil {
		return err
	}
	if !session.IsOpen() {
		return domainerrors.ErrSessionAlreadyClosed
	}

	now := resolveNow(uc.Clock)
	if err := uc.Tally.CloseSession(ctx, cmd.CeremonyID, cmd.SessionIndex, now); err != nil {
		if errors.Is(err, domainerrors.ErrSessionAlreadyClosed) {
			logger.Warn("feature session already closed",
				"event", "governance_session_close_duplicate",
				"module", "sprint-governance/ceremony-engine",
				"layer", "application",
				"ceremony_id", cmd.CeremonyID,
				"session_index", cmd.SessionIndex,
			)
		}
		return err
	}

	if err := appendEnvelope(ctx, uc.Outbox, uc.IDGen, eventFeatureSessionClosed, "ceremony_id", formatCeremonyID(cmd.CeremonyID), now, map[string]any{
		"ceremony_id":   cmd.CeremonyID,
		"session_index": cmd.SessionIndex,
		"feature_label": session.FeatureLabel,
		"reason":        "facilitator_close",
	}); err != nil {
		return err
	}

	logger.Info("feature session closed",
		"event", "governance_feature_session_closed",
		"module", "sprint-governance/ceremony-engine",
		"layer", "application",
		"ceremony_id", cmd.CeremonyID,
		"session_index", cmd.SessionIndex,
	)
	return nil
}

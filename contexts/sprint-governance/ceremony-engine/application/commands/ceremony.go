package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	application "agora/contexts/sprint-governance/ceremony-engine/application"
	"agora/contexts/sprint-governance/ceremony-engine/domain/entities"
	domainerrors "agora/contexts/sprint-governance/ceremony-engine/domain/errors"
	"agora/contexts/sprint-governance/ceremony-engine/ports"
)

// StartCeremonyCommand opens a new ceremony for one sprint. The caller
// becomes the facilitator.
type StartCeremonyCommand struct {
	SprintNumber int64
	Caller       string
}

// AdmitParticipantCommand appends an identity to a ceremony's admission list.
type AdmitParticipantCommand struct {
	CeremonyID int64
	Identity   string
	Caller     string
}

// CeremonyUseCase drives the ceremony state machine: start and admission.
// Conclusion lives in ConcludeUseCase because it reads across every other
// component.
type CeremonyUseCase struct {
	Ceremonies ports.CeremonyRepository
	Roles      ports.RoleDirectory
	Outbox     ports.OutboxWriter
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Policy     Policy
	Logger     *slog.Logger
}

// StartCeremony creates an Open ceremony with an empty participant list. The
// repository assigns the next ceremony id. Under the default open policy any
// caller may start; with RestrictStart only administrators may.
func (uc CeremonyUseCase) StartCeremony(ctx context.Context, cmd StartCeremonyCommand) (entities.Ceremony, error) {
	logger := application.ResolveLogger(uc.Logger)
	caller := strings.TrimSpace(cmd.Caller)
	logger.Info("ceremony start processing started",
		"event", "governance_ceremony_start_started",
		"module", "sprint-governance/ceremony-engine",
		"layer", "application",
		"sprint_number", cmd.SprintNumber,
		"caller", caller,
	)
	if caller == "" || cmd.SprintNumber < 0 {
		logger.Warn("ceremony start validation failed",
			"event", "governance_ceremony_start_validation_failed",
			"module", "sprint-governance/ceremony-engine",
			"layer", "application",
			"sprint_number", cmd.SprintNumber,
			"caller", caller,
		)
		return entities.Ceremony{}, domainerrors.ErrInvalidInput
	}
	if uc.Policy.RestrictStart && !uc.isAdministrator(caller) {
		logger.Warn("ceremony start rejected by policy",
			"event", "governance_ceremony_start_not_authorized",
			"module", "sprint-governance/ceremony-engine",
			"layer", "application",
			"sprint_number", cmd.SprintNumber,
			"caller", caller,
		)
		return entities.Ceremony{}, domainerrors.ErrNotAuthorized
	}

	now := resolveNow(uc.Clock)
	ceremony, err := uc.Ceremonies.CreateCeremony(ctx, entities.Ceremony{
		SprintNumber: cmd.SprintNumber,
		Facilitator:  caller,
		Status:       entities.CeremonyStatusOpen,
		StartTime:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return entities.Ceremony{}, err
	}

	if err := appendEnvelope(ctx, uc.Outbox, uc.IDGen, eventCeremonyStarted, "ceremony_id", formatCeremonyID(ceremony.CeremonyID), now, map[string]any{
		"ceremony_id":   ceremony.CeremonyID,
		"sprint_number": ceremony.SprintNumber,
		"facilitator":   ceremony.Facilitator,
	}); err != nil {
		return entities.Ceremony{}, err
	}

	logger.Info("ceremony started",
		"event", "governance_ceremony_started",
		"module", "sprint-governance/ceremony-engine",
		"layer", "application",
		"ceremony_id", ceremony.CeremonyID,
		"sprint_number", ceremony.SprintNumber,
		"facilitator", ceremony.Facilitator,
	)
	return ceremony, nil
}

// AdmitParticipant appends an identity to the participant list in call order.
// Only the facilitator or an administrator may admit. Admission does not
// require vesting; un-vested members simply cannot vote yet.
func (uc CeremonyUseCase) AdmitParticipant(ctx context.Context, cmd AdmitParticipantCommand) (entities.Participant, error) {
	logger := application.ResolveLogger(uc.Logger)
	identity := strings.TrimSpace(cmd.Identity)
	caller := strings.TrimSpace(cmd.Caller)
	logger.Info("participant admission started",
		"event", "governance_admit_started",
		"module", "sprint-governance/ceremony-engine",
		"layer", "application",
		"ceremony_id", cmd.CeremonyID,
		"identity", identity,
		"caller", caller,
	)
	if identity == "" || caller == "" || cmd.CeremonyID <= 0 {
		logger.Warn("participant admission validation failed",
			"event", "governance_admit_validation_failed",
			"module", "sprint-governance/ceremony-engine",
			"layer", "application",
			"ceremony_id", cmd.CeremonyID,
			"identity", identity,
			"caller", caller,
		)
		return entities.Participant{}, domainerrors.ErrInvalidInput
	}

	ceremony, err := uc.Ceremonies.GetCeremony(ctx, cmd.CeremonyID)
	if err != nil {
		return entities.Participant{}, err
	}
	if caller != ceremony.Facilitator && !uc.isAdministrator(caller) {
		logger.Warn("participant admission not authorized",
			"event", "governance_admit_not_authorized",
			"module", "sprint-governance/ceremony-engine",
			"layer", "application",
			"ceremony_id", cmd.CeremonyID,
			"identity", identity,
			"caller", caller,
		)
		return entities.Participant{}, domainerrors.ErrNotAuthorized
	}
	if !ceremony.IsOpen() {
		return entities.Participant{}, domainerrors.ErrCeremonyNotOpen
	}

	count, err := uc.Ceremonies.CountParticipants(ctx, cmd.CeremonyID)
	if err != nil {
		return entities.Participant{}, err
	}
	if count >= uc.Policy.maxParticipants() {
		logger.Warn("participant limit reached",
			"event", "governance_admit_limit_reached",
			"module", "sprint-governance/ceremony-engine",
			"layer", "application",
			"ceremony_id", cmd.CeremonyID,
			"participant_count", count,
		)
		return entities.Participant{}, domainerrors.ErrParticipantLimit
	}

	now := resolveNow(uc.Clock)
	participant := entities.Participant{
		CeremonyID: cmd.CeremonyID,
		Identity:   identity,
		Position:   count,
		AdmittedAt: now,
	}
	if err := uc.Ceremonies.AddParticipant(ctx, participant); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyAdmitted) {
			logger.Warn("participant already admitted",
				"event", "governance_admit_duplicate",
				"module", "sprint-governance/ceremony-engine",
				"layer", "application",
				"ceremony_id", cmd.CeremonyID,
				"identity", identity,
			)
		}
		return entities.Participant{}, err
	}

	if err := appendEnvelope(ctx, uc.Outbox, uc.IDGen, eventParticipantAdmitted, "ceremony_id", formatCeremonyID(cmd.CeremonyID), now, map[string]any{
		"ceremony_id": cmd.CeremonyID,
		"identity":    identity,
		"position":    participant.Position,
		"admitted_by": caller,
	}); err != nil {
		return entities.Participant{}, err
	}

	logger.Info("participant admitted",
		"event", "governance_participant_admitted",
		"module", "sprint-governance/ceremony-engine",
		"layer", "application",
		"ceremony_id", cmd.CeremonyID,
		"identity", identity,
		"position", participant.Position,
	)
	return participant, nil
}

func (uc CeremonyUseCase) isAdministrator(identity string) bool {
	return uc.Roles != nil && uc.Roles.IsAdministrator(identity)
}

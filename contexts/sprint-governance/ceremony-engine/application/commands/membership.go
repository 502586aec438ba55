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

// RegisterMemberCommand records an externally issued credential for an
// identity. The credential id comes from the issuer; this module only stores
// the ownership mapping and the vesting anchor.
type RegisterMemberCommand struct {
	Identity     string
	CredentialID int64
}

// MembershipUseCase owns the membership registry write side.
type MembershipUseCase struct {
	Members ports.MembershipRepository
	Outbox  ports.OutboxWriter
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Logger  *slog.Logger
}

// RegisterMember stores the identity -> credential mapping with `now` as the
// vesting anchor. Registration is strictly once per identity: a second call
// fails with ErrAlreadyRegistered rather than replaying.
func (uc MembershipUseCase) RegisterMember(ctx context.Context, cmd RegisterMemberCommand) (entities.Credential, error) {
	logger := application.ResolveLogger(uc.Logger)
	identity := strings.TrimSpace(cmd.Identity)
	logger.Info("member registration started",
		"event", "governance_member_register_started",
		"module", "sprint-governance/ceremony-engine",
		"layer", "application",
		"identity", identity,
		"credential_id", cmd.CredentialID,
	)
	if identity == "" || cmd.CredentialID <= 0 {
		logger.Warn("member registration validation failed",
			"event", "governance_member_register_validation_failed",
			"module", "sprint-governance/ceremony-engine",
			"layer", "application",
			"identity", identity,
			"credential_id", cmd.CredentialID,
		)
		return entities.Credential{}, domainerrors.ErrInvalidInput
	}

	now := resolveNow(uc.Clock)
	credential := entities.Credential{
		CredentialID: cmd.CredentialID,
		Owner:        identity,
		AcquiredAt:   now,
	}
	if err := uc.Members.CreateCredential(ctx, credential); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyRegistered) {
			logger.Warn("member already registered",
				"event", "governance_member_register_duplicate",
				"module", "sprint-governance/ceremony-engine",
				"layer", "application",
				"identity", identity,
				"credential_id", cmd.CredentialID,
			)
		}
		return entities.Credential{}, err
	}

	if err := appendEnvelope(ctx, uc.Outbox, uc.IDGen, eventMemberRegistered, "identity", identity, now, map[string]any{
		"identity":      identity,
		"credential_id": cmd.CredentialID,
		"acquired_at":   now.Format(time.RFC3339),
	}); err != nil {
		return entities.Credential{}, err
	}

	logger.Info("member registered",
		"event", "governance_member_registered",
		"module", "sprint-governance/ceremony-engine",
		"layer", "application",
		"identity", identity,
		"credential_id", cmd.CredentialID,
	)
	return credential, nil
}

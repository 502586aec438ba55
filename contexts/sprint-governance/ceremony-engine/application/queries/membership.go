package queries

import (
	"context"
	"errors"
	"strings"
	"time"

	"agora/contexts/sprint-governance/ceremony-engine/domain/entities"
	domainerrors "agora/contexts/sprint-governance/ceremony-engine/domain/errors"
	"agora/contexts/sprint-governance/ceremony-engine/ports"
)

// RightsStatus is the vesting preview for one identity. Without a credential
// the gate fails closed: HasCredential and Active are both false.
type RightsStatus struct {
	Identity      string
	HasCredential bool
	CredentialID  int64
	AcquiredAt    time.Time
	VestedAt      time.Time
	Active        bool
}

// MembershipUseCase serves the registry read side: credential lookups, the
// vesting gate preview, and badge history.
type MembershipUseCase struct {
	Members       ports.MembershipRepository
	Clock         ports.Clock
	VestingPeriod time.Duration
}

func (uc MembershipUseCase) CredentialOf(ctx context.Context, identity string) (entities.Credential, error) {
	return uc.Members.GetCredentialByOwner(ctx, strings.TrimSpace(identity))
}

// Rights evaluates the vesting gate against the current clock. The result is
// never cached; every call recomputes against now.
func (uc MembershipUseCase) Rights(ctx context.Context, identity string) (RightsStatus, error) {
	identity = strings.TrimSpace(identity)
	status := RightsStatus{Identity: identity}

	credential, err := uc.Members.GetCredentialByOwner(ctx, identity)
	if err != nil {
		if errors.Is(err, domainerrors.ErrCredentialNotFound) {
			return status, nil
		}
		return RightsStatus{}, err
	}

	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	period := uc.VestingPeriod
	if period <= 0 {
		period = 72 * time.Hour
	}

	status.HasCredential = true
	status.CredentialID = credential.CredentialID
	status.AcquiredAt = credential.AcquiredAt.UTC()
	status.VestedAt = credential.VestedAt(period)
	status.Active = credential.RightsActiveAt(now, period)
	return status, nil
}

// BadgeHistory lists a credential's history entries in append order.
func (uc MembershipUseCase) BadgeHistory(ctx context.Context, credentialID int64) ([]entities.BadgeHistoryEntry, error) {
	if _, err := uc.Members.GetCredential(ctx, credentialID); err != nil {
		return nil, err
	}
	return uc.Members.ListBadgeHistory(ctx, credentialID)
}

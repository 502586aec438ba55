package ceremonyengine_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	ceremonyengine "agora/contexts/sprint-governance/ceremony-engine"
	"agora/contexts/sprint-governance/ceremony-engine/domain/entities"
	domainerrors "agora/contexts/sprint-governance/ceremony-engine/domain/errors"
	httptransport "agora/contexts/sprint-governance/ceremony-engine/transport/http"
)

func vestedCredential(id int64, owner string) entities.Credential {
	return entities.Credential{
		CredentialID: id,
		Owner:        owner,
		AcquiredAt:   time.Now().UTC().Add(-100 * time.Hour),
	}
}

func TestFullCeremonyLifecycle(t *testing.T) {
	module := ceremonyengine.NewInMemoryModule([]entities.Credential{
		vestedCredential(1, "alice"),
		vestedCredential(2, "bob"),
	}, nil, nil)
	ctx := context.Background()

	ceremony, err := module.Handler.StartCeremonyHandler(ctx, "alice", httptransport.StartCeremonyRequest{
		SprintNumber: 7,
	})
	if err != nil {
		t.Fatalf("start ceremony failed: %v", err)
	}
	if ceremony.Facilitator != "alice" || ceremony.Status != "open" {
		t.Fatalf("unexpected ceremony %+v", ceremony)
	}

	for _, identity := range []string{"alice", "bob"} {
		if _, err := module.Handler.AdmitParticipantHandler(ctx, ceremony.CeremonyID, "alice", httptransport.AdmitParticipantRequest{
			Identity: identity,
		}); err != nil {
			t.Fatalf("admit %s failed: %v", identity, err)
		}
	}

	if _, err := module.Handler.CastGeneralVoteHandler(ctx, ceremony.CeremonyID, "alice", httptransport.CastVoteRequest{Points: 5}); err != nil {
		t.Fatalf("alice general vote failed: %v", err)
	}
	if _, err := module.Handler.CastGeneralVoteHandler(ctx, ceremony.CeremonyID, "bob", httptransport.CastVoteRequest{Points: 8}); err != nil {
		t.Fatalf("bob general vote failed: %v", err)
	}

	session, err := module.Handler.OpenSessionHandler(ctx, ceremony.CeremonyID, "alice", httptransport.OpenSessionRequest{
		FeatureLabel: "checkout-flow",
	})
	if err != nil {
		t.Fatalf("open session failed: %v", err)
	}
	if session.SessionIndex != 0 {
		t.Fatalf("expected first session index 0, got %d", session.SessionIndex)
	}

	if _, err := module.Handler.CastFeatureVoteHandler(ctx, ceremony.CeremonyID, session.SessionIndex, "alice", httptransport.CastVoteRequest{Points: 3}); err != nil {
		t.Fatalf("alice feature vote failed: %v", err)
	}

	result, err := module.Handler.ConcludeCeremonyHandler(ctx, ceremony.CeremonyID, "alice")
	if err != nil {
		t.Fatalf("conclude failed: %v", err)
	}
	if result.Ceremony.Status != "concluded" {
		t.Fatalf("expected concluded status, got %s", result.Ceremony.Status)
	}
	if len(result.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(result.Results))
	}
	// Admission order: alice first with 5+3, bob second with 8.
	if result.Results[0].Identity != "alice" || result.Results[0].TotalPoints != 8 {
		t.Fatalf("unexpected alice result %+v", result.Results[0])
	}
	if result.Results[1].Identity != "bob" || result.Results[1].TotalPoints != 8 {
		t.Fatalf("unexpected bob result %+v", result.Results[1])
	}
	if len(result.Results[0].FeatureLabels) != 1 || result.Results[0].FeatureLabels[0] != "checkout-flow" {
		t.Fatalf("unexpected alice feature labels %v", result.Results[0].FeatureLabels)
	}
	if len(result.Results[1].FeatureLabels) != 0 {
		t.Fatalf("bob cast no feature vote, got labels %v", result.Results[1].FeatureLabels)
	}

	history, err := module.Handler.BadgeHistoryHandler(ctx, 1)
	if err != nil {
		t.Fatalf("badge history failed: %v", err)
	}
	if len(history.Items) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history.Items))
	}
	if history.Items[0].SprintNumber != 7 || history.Items[0].TotalPoints != 8 {
		t.Fatalf("unexpected history entry %+v", history.Items[0])
	}
}

func TestGeneralVoteIsWriteOnce(t *testing.T) {
	module := ceremonyengine.NewInMemoryModule([]entities.Credential{
		vestedCredential(1, "alice"),
	}, nil, nil)
	ctx := context.Background()

	ceremony, err := module.Handler.StartCeremonyHandler(ctx, "alice", httptransport.StartCeremonyRequest{SprintNumber: 1})
	if err != nil {
		t.Fatalf("start ceremony failed: %v", err)
	}
	if _, err := module.Handler.AdmitParticipantHandler(ctx, ceremony.CeremonyID, "alice", httptransport.AdmitParticipantRequest{Identity: "alice"}); err != nil {
		t.Fatalf("admit failed: %v", err)
	}

	if _, err := module.Handler.CastGeneralVoteHandler(ctx, ceremony.CeremonyID, "alice", httptransport.CastVoteRequest{Points: 5}); err != nil {
		t.Fatalf("first vote failed: %v", err)
	}
	_, err = module.Handler.CastGeneralVoteHandler(ctx, ceremony.CeremonyID, "alice", httptransport.CastVoteRequest{Points: 13})
	if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}
}

func TestUnadmittedVoterIsRejected(t *testing.T) {
	module := ceremonyengine.NewInMemoryModule([]entities.Credential{
		vestedCredential(1, "alice"),
		vestedCredential(2, "mallory"),
	}, nil, nil)
	ctx := context.Background()

	ceremony, err := module.Handler.StartCeremonyHandler(ctx, "alice", httptransport.StartCeremonyRequest{SprintNumber: 1})
	if err != nil {
		t.Fatalf("start ceremony failed: %v", err)
	}

	_, err = module.Handler.CastGeneralVoteHandler(ctx, ceremony.CeremonyID, "mallory", httptransport.CastVoteRequest{Points: 5})
	if !errors.Is(err, domainerrors.ErrNotAdmitted) {
		t.Fatalf("expected ErrNotAdmitted, got %v", err)
	}
}

func TestUnvestedRightsBlockVoting(t *testing.T) {
	module := ceremonyengine.NewInMemoryModule([]entities.Credential{
		vestedCredential(1, "alice"),
	}, nil, nil)
	ctx := context.Background()

	// Fresh registration: acquired now, 72h cooldown still running.
	if _, err := module.Handler.RegisterMemberHandler(ctx, httptransport.RegisterMemberRequest{
		Identity:     "carol",
		CredentialID: 9,
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	ceremony, err := module.Handler.StartCeremonyHandler(ctx, "alice", httptransport.StartCeremonyRequest{SprintNumber: 1})
	if err != nil {
		t.Fatalf("start ceremony failed: %v", err)
	}
	if _, err := module.Handler.AdmitParticipantHandler(ctx, ceremony.CeremonyID, "alice", httptransport.AdmitParticipantRequest{Identity: "carol"}); err != nil {
		t.Fatalf("admit failed: %v", err)
	}

	_, err = module.Handler.CastGeneralVoteHandler(ctx, ceremony.CeremonyID, "carol", httptransport.CastVoteRequest{Points: 5})
	if !errors.Is(err, domainerrors.ErrRightsNotVested) {
		t.Fatalf("expected ErrRightsNotVested, got %v", err)
	}

	rights, err := module.Handler.RightsHandler(ctx, "carol")
	if err != nil {
		t.Fatalf("rights failed: %v", err)
	}
	if rights.Active || !rights.HasCredential {
		t.Fatalf("expected inactive vested credential, got %+v", rights)
	}
}

func TestVestingBoundaryIsInclusive(t *testing.T) {
	boundary := entities.Credential{
		CredentialID: 1,
		Owner:        "alice",
		AcquiredAt:   time.Now().UTC().Add(-72 * time.Hour),
	}
	if !boundary.RightsActiveAt(time.Now().UTC(), 72*time.Hour) {
		t.Fatalf("rights must be active exactly at the vesting instant")
	}
	if boundary.RightsActiveAt(boundary.AcquiredAt.Add(72*time.Hour-time.Second), 72*time.Hour) {
		t.Fatalf("rights must be inactive one second before vesting")
	}
}

func TestVoteBoundsEnforced(t *testing.T) {
	module := ceremonyengine.NewInMemoryModule([]entities.Credential{
		vestedCredential(1, "alice"),
	}, nil, nil)
	ctx := context.Background()

	ceremony, err := module.Handler.StartCeremonyHandler(ctx, "alice", httptransport.StartCeremonyRequest{SprintNumber: 1})
	if err != nil {
		t.Fatalf("start ceremony failed: %v", err)
	}
	if _, err := module.Handler.AdmitParticipantHandler(ctx, ceremony.CeremonyID, "alice", httptransport.AdmitParticipantRequest{Identity: "alice"}); err != nil {
		t.Fatalf("admit failed: %v", err)
	}

	for _, points := range []int64{0, 22, -3} {
		_, err := module.Handler.CastGeneralVoteHandler(ctx, ceremony.CeremonyID, "alice", httptransport.CastVoteRequest{Points: points})
		if !errors.Is(err, domainerrors.ErrVoteOutOfRange) {
			t.Fatalf("points %d: expected ErrVoteOutOfRange, got %v", points, err)
		}
	}
	for _, points := range []int64{1, 21} {
		_, err := module.Handler.CastGeneralVoteHandler(ctx, ceremony.CeremonyID, "alice", httptransport.CastVoteRequest{Points: points})
		if points == 1 && err != nil {
			t.Fatalf("lower bound vote failed: %v", err)
		}
		if points == 21 && !errors.Is(err, domainerrors.ErrAlreadyVoted) {
			t.Fatalf("expected write-once conflict on second in-bounds vote, got %v", err)
		}
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	module := ceremonyengine.NewInMemoryModule([]entities.Credential{
		vestedCredential(1, "alice"),
	}, nil, nil)
	ctx := context.Background()

	ceremony, err := module.Handler.StartCeremonyHandler(ctx, "alice", httptransport.StartCeremonyRequest{SprintNumber: 2})
	if err != nil {
		t.Fatalf("start ceremony failed: %v", err)
	}
	if _, err := module.Handler.AdmitParticipantHandler(ctx, ceremony.CeremonyID, "alice", httptransport.AdmitParticipantRequest{Identity: "alice"}); err != nil {
		t.Fatalf("admit failed: %v", err)
	}

	first, err := module.Handler.OpenSessionHandler(ctx, ceremony.CeremonyID, "alice", httptransport.OpenSessionRequest{FeatureLabel: "search"})
	if err != nil {
		t.Fatalf("open first session failed: %v", err)
	}
	second, err := module.Handler.OpenSessionHandler(ctx, ceremony.CeremonyID, "alice", httptransport.OpenSessionRequest{FeatureLabel: "billing"})
	if err != nil {
		t.Fatalf("open second session failed: %v", err)
	}
	if first.SessionIndex != 0 || second.SessionIndex != 1 {
		t.Fatalf("expected indexes 0 and 1, got %d and %d", first.SessionIndex, second.SessionIndex)
	}

	if err := module.Handler.CloseSessionHandler(ctx, ceremony.CeremonyID, first.SessionIndex, "alice"); err != nil {
		t.Fatalf("close first session failed: %v", err)
	}

	// Vote in the closed session is rejected; the open sibling still accepts.
	_, err = module.Handler.CastFeatureVoteHandler(ctx, ceremony.CeremonyID, first.SessionIndex, "alice", httptransport.CastVoteRequest{Points: 5})
	if !errors.Is(err, domainerrors.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if _, err := module.Handler.CastFeatureVoteHandler(ctx, ceremony.CeremonyID, second.SessionIndex, "alice", httptransport.CastVoteRequest{Points: 5}); err != nil {
		t.Fatalf("vote in open sibling failed: %v", err)
	}

	err = module.Handler.CloseSessionHandler(ctx, ceremony.CeremonyID, first.SessionIndex, "alice")
	if !errors.Is(err, domainerrors.ErrSessionAlreadyClosed) {
		t.Fatalf("expected ErrSessionAlreadyClosed, got %v", err)
	}
}

func TestSessionIndexesNeverReused(t *testing.T) {
	module := ceremonyengine.NewInMemoryModule([]entities.Credential{
		vestedCredential(1, "alice"),
	}, nil, nil)
	ctx := context.Background()

	ceremony, err := module.Handler.StartCeremonyHandler(ctx, "alice", httptransport.StartCeremonyRequest{SprintNumber: 2})
	if err != nil {
		t.Fatalf("start ceremony failed: %v", err)
	}

	first, err := module.Handler.OpenSessionHandler(ctx, ceremony.CeremonyID, "alice", httptransport.OpenSessionRequest{FeatureLabel: "one"})
	if err != nil {
		t.Fatalf("open session failed: %v", err)
	}
	if err := module.Handler.CloseSessionHandler(ctx, ceremony.CeremonyID, first.SessionIndex, "alice"); err != nil {
		t.Fatalf("close session failed: %v", err)
	}
	next, err := module.Handler.OpenSessionHandler(ctx, ceremony.CeremonyID, "alice", httptransport.OpenSessionRequest{FeatureLabel: "two"})
	if err != nil {
		t.Fatalf("open next session failed: %v", err)
	}
	if next.SessionIndex != first.SessionIndex+1 {
		t.Fatalf("closed index must not be reused: got %d after %d", next.SessionIndex, first.SessionIndex)
	}
}

func TestOnlyFacilitatorAdmitsAndConcludes(t *testing.T) {
	module := ceremonyengine.NewInMemoryModule([]entities.Credential{
		vestedCredential(1, "alice"),
		vestedCredential(2, "bob"),
	}, nil, nil)
	ctx := context.Background()

	ceremony, err := module.Handler.StartCeremonyHandler(ctx, "alice", httptransport.StartCeremonyRequest{SprintNumber: 3})
	if err != nil {
		t.Fatalf("start ceremony failed: %v", err)
	}

	_, err = module.Handler.AdmitParticipantHandler(ctx, ceremony.CeremonyID, "bob", httptransport.AdmitParticipantRequest{Identity: "bob"})
	if !errors.Is(err, domainerrors.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for non-facilitator admit, got %v", err)
	}
	_, err = module.Handler.OpenSessionHandler(ctx, ceremony.CeremonyID, "bob", httptransport.OpenSessionRequest{FeatureLabel: "x"})
	if !errors.Is(err, domainerrors.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for non-facilitator session open, got %v", err)
	}
	_, err = module.Handler.ConcludeCeremonyHandler(ctx, ceremony.CeremonyID, "bob")
	if !errors.Is(err, domainerrors.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for non-facilitator conclude, got %v", err)
	}
}

func TestAdministratorMayAdmit(t *testing.T) {
	module := ceremonyengine.NewInMemoryModule([]entities.Credential{
		vestedCredential(1, "alice"),
		vestedCredential(2, "bob"),
	}, []string{"root"}, nil)
	ctx := context.Background()

	ceremony, err := module.Handler.StartCeremonyHandler(ctx, "alice", httptransport.StartCeremonyRequest{SprintNumber: 3})
	if err != nil {
		t.Fatalf("start ceremony failed: %v", err)
	}
	if _, err := module.Handler.AdmitParticipantHandler(ctx, ceremony.CeremonyID, "root", httptransport.AdmitParticipantRequest{Identity: "bob"}); err != nil {
		t.Fatalf("administrator admit failed: %v", err)
	}
}

func TestConcludeIsExactlyOnce(t *testing.T) {
	module := ceremonyengine.NewInMemoryModule([]entities.Credential{
		vestedCredential(1, "alice"),
	}, nil, nil)
	ctx := context.Background()

	ceremony, err := module.Handler.StartCeremonyHandler(ctx, "alice", httptransport.StartCeremonyRequest{SprintNumber: 4})
	if err != nil {
		t.Fatalf("start ceremony failed: %v", err)
	}
	if _, err := module.Handler.ConcludeCeremonyHandler(ctx, ceremony.CeremonyID, "alice"); err != nil {
		t.Fatalf("first conclude failed: %v", err)
	}
	_, err = module.Handler.ConcludeCeremonyHandler(ctx, ceremony.CeremonyID, "alice")
	if !errors.Is(err, domainerrors.ErrCeremonyAlreadyConcluded) {
		t.Fatalf("expected ErrCeremonyAlreadyConcluded, got %v", err)
	}

	_, err = module.Handler.CastGeneralVoteHandler(ctx, ceremony.CeremonyID, "alice", httptransport.CastVoteRequest{Points: 5})
	if !errors.Is(err, domainerrors.ErrCeremonyNotOpen) {
		t.Fatalf("expected ErrCeremonyNotOpen after conclusion, got %v", err)
	}
}

func TestConcludeForceClosesOpenSessions(t *testing.T) {
	module := ceremonyengine.NewInMemoryModule([]entities.Credential{
		vestedCredential(1, "alice"),
	}, nil, nil)
	ctx := context.Background()

	ceremony, err := module.Handler.StartCeremonyHandler(ctx, "alice", httptransport.StartCeremonyRequest{SprintNumber: 5})
	if err != nil {
		t.Fatalf("start ceremony failed: %v", err)
	}
	if _, err := module.Handler.OpenSessionHandler(ctx, ceremony.CeremonyID, "alice", httptransport.OpenSessionRequest{FeatureLabel: "left-open"}); err != nil {
		t.Fatalf("open session failed: %v", err)
	}
	if _, err := module.Handler.ConcludeCeremonyHandler(ctx, ceremony.CeremonyID, "alice"); err != nil {
		t.Fatalf("conclude failed: %v", err)
	}

	detail, err := module.Handler.GetCeremonyHandler(ctx, ceremony.CeremonyID)
	if err != nil {
		t.Fatalf("get ceremony failed: %v", err)
	}
	if len(detail.Sessions) != 1 || detail.Sessions[0].Status != "closed" {
		t.Fatalf("expected force-closed session, got %+v", detail.Sessions)
	}
}

func TestRegisterIsOnePerIdentity(t *testing.T) {
	module := ceremonyengine.NewInMemoryModule(nil, nil, nil)
	ctx := context.Background()

	if _, err := module.Handler.RegisterMemberHandler(ctx, httptransport.RegisterMemberRequest{
		Identity:     "alice",
		CredentialID: 1,
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	_, err := module.Handler.RegisterMemberHandler(ctx, httptransport.RegisterMemberRequest{
		Identity:     "alice",
		CredentialID: 2,
	})
	if !errors.Is(err, domainerrors.ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestProvisionalTallyMatchesConclusion(t *testing.T) {
	module := ceremonyengine.NewInMemoryModule([]entities.Credential{
		vestedCredential(1, "alice"),
		vestedCredential(2, "bob"),
	}, nil, nil)
	ctx := context.Background()

	ceremony, err := module.Handler.StartCeremonyHandler(ctx, "alice", httptransport.StartCeremonyRequest{SprintNumber: 6})
	if err != nil {
		t.Fatalf("start ceremony failed: %v", err)
	}
	for _, identity := range []string{"alice", "bob"} {
		if _, err := module.Handler.AdmitParticipantHandler(ctx, ceremony.CeremonyID, "alice", httptransport.AdmitParticipantRequest{Identity: identity}); err != nil {
			t.Fatalf("admit %s failed: %v", identity, err)
		}
	}
	if _, err := module.Handler.CastGeneralVoteHandler(ctx, ceremony.CeremonyID, "alice", httptransport.CastVoteRequest{Points: 13}); err != nil {
		t.Fatalf("vote failed: %v", err)
	}

	preview, err := module.Handler.ProvisionalTallyHandler(ctx, ceremony.CeremonyID)
	if err != nil {
		t.Fatalf("provisional tally failed: %v", err)
	}
	final, err := module.Handler.ConcludeCeremonyHandler(ctx, ceremony.CeremonyID, "alice")
	if err != nil {
		t.Fatalf("conclude failed: %v", err)
	}
	if len(preview.Items) != len(final.Results) {
		t.Fatalf("preview and conclusion diverge: %d vs %d", len(preview.Items), len(final.Results))
	}
	for i := range preview.Items {
		if !reflect.DeepEqual(preview.Items[i], final.Results[i]) {
			t.Fatalf("result %d diverged: %+v vs %+v", i, preview.Items[i], final.Results[i])
		}
	}
}

func TestParticipantLimitEnforced(t *testing.T) {
	module := ceremonyengine.NewInMemoryModule([]entities.Credential{
		vestedCredential(1, "alice"),
	}, nil, nil)
	module.Handler.Ceremonies.Policy.MaxParticipants = 1
	ctx := context.Background()

	ceremony, err := module.Handler.StartCeremonyHandler(ctx, "alice", httptransport.StartCeremonyRequest{SprintNumber: 1})
	if err != nil {
		t.Fatalf("start ceremony failed: %v", err)
	}
	if _, err := module.Handler.AdmitParticipantHandler(ctx, ceremony.CeremonyID, "alice", httptransport.AdmitParticipantRequest{Identity: "alice"}); err != nil {
		t.Fatalf("admit failed: %v", err)
	}
	_, err = module.Handler.AdmitParticipantHandler(ctx, ceremony.CeremonyID, "alice", httptransport.AdmitParticipantRequest{Identity: "bob"})
	if !errors.Is(err, domainerrors.ErrParticipantLimit) {
		t.Fatalf("expected ErrParticipantLimit, got %v", err)
	}
}

func TestOutboxAccumulatesLifecycleEvents(t *testing.T) {
	module := ceremonyengine.NewInMemoryModule([]entities.Credential{
		vestedCredential(1, "alice"),
	}, nil, nil)
	ctx := context.Background()

	ceremony, err := module.Handler.StartCeremonyHandler(ctx, "alice", httptransport.StartCeremonyRequest{SprintNumber: 1})
	if err != nil {
		t.Fatalf("start ceremony failed: %v", err)
	}
	if _, err := module.Handler.AdmitParticipantHandler(ctx, ceremony.CeremonyID, "alice", httptransport.AdmitParticipantRequest{Identity: "alice"}); err != nil {
		t.Fatalf("admit failed: %v", err)
	}
	if _, err := module.Handler.ConcludeCeremonyHandler(ctx, ceremony.CeremonyID, "alice"); err != nil {
		t.Fatalf("conclude failed: %v", err)
	}

	pending, err := module.Store.ListPendingOutbox(ctx, 100)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	kinds := make(map[string]int)
	for _, message := range pending {
		kinds[message.EventType]++
	}
	for _, expected := range []string{
		"governance.ceremony_started",
		"governance.participant_admitted",
		"governance.badge_history_appended",
		"governance.ceremony_concluded",
	} {
		if kinds[expected] == 0 {
			t.Fatalf("expected staged %s event, got %v", expected, kinds)
		}
	}
}

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"agora/contexts/sprint-governance/ceremony-engine/domain/entities"
	domainerrors "agora/contexts/sprint-governance/ceremony-engine/domain/errors"
	"agora/contexts/sprint-governance/ceremony-engine/ports"
)

func openCeremony(t *testing.T, store *Store) entities.Ceremony {
	t.Helper()
	ceremony, err := store.CreateCeremony(context.Background(), entities.Ceremony{
		SprintNumber: 1,
		Facilitator:  "alice",
		Status:       entities.CeremonyStatusOpen,
		StartTime:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create ceremony failed: %v", err)
	}
	return ceremony
}

func TestStoreCredentialOwnershipIsUnique(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	first := entities.Credential{CredentialID: 1, Owner: "alice", AcquiredAt: time.Now().UTC()}
	if err := store.CreateCredential(ctx, first); err != nil {
		t.Fatalf("create credential failed: %v", err)
	}
	// Same identity, new credential id.
	err := store.CreateCredential(ctx, entities.Credential{CredentialID: 2, Owner: "alice", AcquiredAt: time.Now().UTC()})
	if !errors.Is(err, domainerrors.ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered for duplicate owner, got %v", err)
	}
	// Same credential id, new identity.
	err = store.CreateCredential(ctx, entities.Credential{CredentialID: 1, Owner: "bob", AcquiredAt: time.Now().UTC()})
	if !errors.Is(err, domainerrors.ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered for duplicate credential id, got %v", err)
	}

	got, err := store.GetCredentialByOwner(ctx, "alice")
	if err != nil || got.CredentialID != 1 {
		t.Fatalf("owner lookup failed: %v %+v", err, got)
	}
	if _, err := store.GetCredentialByOwner(ctx, "nobody"); !errors.Is(err, domainerrors.ErrCredentialNotFound) {
		t.Fatalf("expected ErrCredentialNotFound, got %v", err)
	}
}

func TestStoreVotesAreWriteOnce(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	ceremony := openCeremony(t, store)

	vote := entities.GeneralVote{CeremonyID: ceremony.CeremonyID, Identity: "alice", Points: 5, CastAt: time.Now().UTC()}
	if err := store.SaveGeneralVote(ctx, vote); err != nil {
		t.Fatalf("save general vote failed: %v", err)
	}
	if err := store.SaveGeneralVote(ctx, vote); !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}

	session, err := store.CreateSession(ctx, ceremony.CeremonyID, "search", time.Now().UTC())
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	featureVote := entities.FeatureVote{
		CeremonyID:   ceremony.CeremonyID,
		SessionIndex: session.SessionIndex,
		Identity:     "alice",
		Points:       3,
		CastAt:       time.Now().UTC(),
	}
	if err := store.SaveFeatureVote(ctx, featureVote); err != nil {
		t.Fatalf("save feature vote failed: %v", err)
	}
	if err := store.SaveFeatureVote(ctx, featureVote); !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}
}

func TestStoreSessionIndexMonotonic(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	ceremony := openCeremony(t, store)

	first, err := store.CreateSession(ctx, ceremony.CeremonyID, "one", time.Now().UTC())
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	if err := store.CloseSession(ctx, ceremony.CeremonyID, first.SessionIndex, time.Now().UTC()); err != nil {
		t.Fatalf("close session failed: %v", err)
	}
	second, err := store.CreateSession(ctx, ceremony.CeremonyID, "two", time.Now().UTC())
	if err != nil {
		t.Fatalf("create second session failed: %v", err)
	}
	if second.SessionIndex != first.SessionIndex+1 {
		t.Fatalf("expected monotonic index, got %d after %d", second.SessionIndex, first.SessionIndex)
	}

	updated, err := store.GetCeremony(ctx, ceremony.CeremonyID)
	if err != nil {
		t.Fatalf("get ceremony failed: %v", err)
	}
	if updated.NextSessionIndex != 2 {
		t.Fatalf("expected counter 2, got %d", updated.NextSessionIndex)
	}
}

func TestStoreFinalizeCeremonyIsAtomicAndGuarded(t *testing.T) {
	store := NewStore([]entities.Credential{
		{CredentialID: 1, Owner: "alice", AcquiredAt: time.Now().UTC().Add(-100 * time.Hour)},
	})
	ctx := context.Background()
	ceremony := openCeremony(t, store)
	if _, err := store.CreateSession(ctx, ceremony.CeremonyID, "left-open", time.Now().UTC()); err != nil {
		t.Fatalf("create session failed: %v", err)
	}

	endTime := time.Now().UTC()
	entries := []entities.BadgeHistoryEntry{
		{CredentialID: 1, CeremonyID: ceremony.CeremonyID, SprintNumber: 1, EndTime: endTime, RecordedAt: endTime},
	}
	events := []ports.EventEnvelope{
		{EventID: "evt-concluded", EventType: "governance.ceremony_concluded", OccurredAt: endTime, SchemaVersion: 1},
	}

	if err := store.FinalizeCeremony(ctx, ceremony.CeremonyID, endTime, entries, events); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	err := store.FinalizeCeremony(ctx, ceremony.CeremonyID, endTime, nil, nil)
	if !errors.Is(err, domainerrors.ErrCeremonyAlreadyConcluded) {
		t.Fatalf("expected ErrCeremonyAlreadyConcluded, got %v", err)
	}

	concluded, err := store.GetCeremony(ctx, ceremony.CeremonyID)
	if err != nil {
		t.Fatalf("get ceremony failed: %v", err)
	}
	if concluded.Status != entities.CeremonyStatusConcluded || concluded.EndTime == nil {
		t.Fatalf("ceremony not finalized: %+v", concluded)
	}

	sessions, err := store.ListSessions(ctx, ceremony.CeremonyID)
	if err != nil {
		t.Fatalf("list sessions failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].IsOpen() {
		t.Fatalf("expected force-closed session, got %+v", sessions)
	}

	history, err := store.ListBadgeHistory(ctx, 1)
	if err != nil {
		t.Fatalf("list history failed: %v", err)
	}
	if len(history) != 1 || history[0].EntryID == 0 {
		t.Fatalf("expected one history entry with assigned id, got %+v", history)
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 1 || pending[0].EventType != "governance.ceremony_concluded" {
		t.Fatalf("expected staged conclusion event, got %+v", pending)
	}
}

func TestStoreAdmissionOrderIsStable(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	ceremony := openCeremony(t, store)

	for position, identity := range []string{"alice", "bob", "carol"} {
		err := store.AddParticipant(ctx, entities.Participant{
			CeremonyID: ceremony.CeremonyID,
			Identity:   identity,
			Position:   position,
			AdmittedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("admit %s failed: %v", identity, err)
		}
	}
	err := store.AddParticipant(ctx, entities.Participant{CeremonyID: ceremony.CeremonyID, Identity: "bob"})
	if !errors.Is(err, domainerrors.ErrAlreadyAdmitted) {
		t.Fatalf("expected ErrAlreadyAdmitted, got %v", err)
	}

	participants, err := store.ListParticipants(ctx, ceremony.CeremonyID)
	if err != nil {
		t.Fatalf("list participants failed: %v", err)
	}
	if len(participants) != 3 {
		t.Fatalf("expected 3 participants, got %d", len(participants))
	}
	for i, identity := range []string{"alice", "bob", "carol"} {
		if participants[i].Identity != identity || participants[i].Position != i {
			t.Fatalf("position %d: expected %s, got %+v", i, identity, participants[i])
		}
	}
}

package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"agora/contexts/sprint-governance/ceremony-engine/adapters/memory"
	"agora/contexts/sprint-governance/ceremony-engine/ports"
)

type capturePublisher struct {
	published []string
	failOn    string
}

func (p *capturePublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	if p.failOn != "" && event.EventType == p.failOn {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, topic)
	return nil
}

func stageEnvelope(t *testing.T, store *memory.Store, eventID string, eventType string) {
	t.Helper()
	err := store.AppendOutbox(context.Background(), ports.EventEnvelope{
		EventID:       eventID,
		EventType:     eventType,
		OccurredAt:    time.Now().UTC(),
		SourceService: "agora-ceremony-engine",
		SchemaVersion: 1,
	})
	if err != nil {
		t.Fatalf("stage envelope failed: %v", err)
	}
}

func TestOutboxRelayPublishesAndMarks(t *testing.T) {
	store := memory.NewStore(nil)
	stageEnvelope(t, store, "evt-1", "governance.ceremony_started")
	stageEnvelope(t, store, "evt-2", "governance.participant_admitted")

	publisher := &capturePublisher{}
	relay := OutboxRelay{
		Outbox:    store,
		Publisher: publisher,
		Clock:     store,
		BatchSize: 10,
	}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}
	if len(publisher.published) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(publisher.published))
	}
	// Topic is the event type.
	if publisher.published[0] != "governance.ceremony_started" {
		t.Fatalf("unexpected topic %s", publisher.published[0])
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected drained outbox, got %d rows", len(pending))
	}
}

func TestOutboxRelayStopsOnFirstFailure(t *testing.T) {
	store := memory.NewStore(nil)
	stageEnvelope(t, store, "evt-1", "governance.ceremony_started")
	stageEnvelope(t, store, "evt-2", "governance.general_vote_cast")
	stageEnvelope(t, store, "evt-3", "governance.ceremony_concluded")

	publisher := &capturePublisher{failOn: "governance.general_vote_cast"}
	relay := OutboxRelay{
		Outbox:    store,
		Publisher: publisher,
		Clock:     store,
		BatchSize: 10,
	}

	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected publish failure to surface")
	}
	// First row published and acknowledged; the failed row and everything
	// after it stay pending for the next cycle.
	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 rows still pending, got %d", len(pending))
	}
	if pending[0].EventType != "governance.general_vote_cast" {
		t.Fatalf("expected failed row first, got %s", pending[0].EventType)
	}
}

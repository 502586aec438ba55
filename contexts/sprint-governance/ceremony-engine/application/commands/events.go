package commands

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"agora/contexts/sprint-governance/ceremony-engine/ports"
)

// formatCeremonyID renders the partition key for ceremony-scoped events so
// every event of one ceremony lands on the same partition.
func formatCeremonyID(ceremonyID int64) string {
	return strconv.FormatInt(ceremonyID, 10)
}

const (
	eventMemberRegistered     = "governance.member_registered"
	eventCeremonyStarted      = "governance.ceremony_started"
	eventParticipantAdmitted  = "governance.participant_admitted"
	eventGeneralVoteCast      = "governance.general_vote_cast"
	eventFeatureSessionOpened = "governance.feature_session_opened"
	eventFeatureSessionClosed = "governance.feature_session_closed"
	eventFeatureVoteCast      = "governance.feature_vote_cast"
	eventBadgeHistoryAppended = "governance.badge_history_appended"
	eventCeremonyConcluded    = "governance.ceremony_concluded"
)

func newGovernanceEnvelope(
	eventID string,
	eventType string,
	partitionKeyPath string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}

	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "ceremony-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: partitionKeyPath,
		PartitionKey:     partitionKey,
		Data:             payload,
	}, nil
}

// appendEnvelope stages one event on the transactional outbox. Outbox and id
// generation are optional for pure read/test wiring, so nil is treated as
// no-op.
func appendEnvelope(
	ctx context.Context,
	outbox ports.OutboxWriter,
	idGen ports.IDGenerator,
	eventType string,
	partitionKeyPath string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]any,
) error {
	if outbox == nil || idGen == nil {
		return nil
	}

	eventID, err := idGen.NewID(ctx)
	if err != nil {
		return err
	}

	envelope, err := newGovernanceEnvelope(eventID, eventType, partitionKeyPath, partitionKey, occurredAt, data)
	if err != nil {
		return err
	}

	return outbox.AppendOutbox(ctx, envelope)
}

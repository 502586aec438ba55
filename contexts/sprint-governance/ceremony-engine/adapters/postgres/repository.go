package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"agora/contexts/sprint-governance/ceremony-engine/domain/entities"
	domainerrors "agora/contexts/sprint-governance/ceremony-engine/domain/errors"
	"agora/contexts/sprint-governance/ceremony-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

// Repository is the gorm-backed store for the whole governance module. The
// write-once invariants (one credential per identity, one vote per identity
// per round, one admission per identity per ceremony) are enforced by primary
// keys and surfaced as AlreadyDone sentinels, so they hold even if two
// processes race past the use-case pre-reads.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateCredential(ctx context.Context, credential entities.Credential) error {
	row := credentialModelFromEntity(credential)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrAlreadyRegistered
		}
		return r.logError("governance_repo_create_credential_failed", create.Error,
			"credential_id", credential.CredentialID,
			"identity", strings.TrimSpace(credential.Owner),
		)
	}
	if create.RowsAffected == 0 {
		return domainerrors.ErrAlreadyRegistered
	}
	return nil
}

func (r *Repository) GetCredentialByOwner(ctx context.Context, identity string) (entities.Credential, error) {
	var row credentialModel
	err := r.db.WithContext(ctx).
		Where("owner_identity = ?", strings.TrimSpace(identity)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Credential{}, domainerrors.ErrCredentialNotFound
		}
		return entities.Credential{}, r.logError("governance_repo_get_credential_by_owner_failed", err,
			"identity", strings.TrimSpace(identity),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetCredential(ctx context.Context, credentialID int64) (entities.Credential, error) {
	var row credentialModel
	err := r.db.WithContext(ctx).
		Where("credential_id = ?", credentialID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Credential{}, domainerrors.ErrCredentialNotFound
		}
		return entities.Credential{}, r.logError("governance_repo_get_credential_failed", err,
			"credential_id", credentialID,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListCredentialsByOwners(ctx context.Context, identities []string) (map[string]entities.Credential, error) {
	trimmed := make([]string, 0, len(identities))
	for _, identity := range identities {
		trimmed = append(trimmed, strings.TrimSpace(identity))
	}
	items := make(map[string]entities.Credential, len(trimmed))
	if len(trimmed) == 0 {
		return items, nil
	}
	var rows []credentialModel
	if err := r.db.WithContext(ctx).
		Where("owner_identity IN ?", trimmed).
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_credentials_failed", err,
			"identity_count", len(trimmed),
		)
	}
	for _, row := range rows {
		items[row.OwnerIdentity] = row.toEntity()
	}
	return items, nil
}

func (r *Repository) ListBadgeHistory(ctx context.Context, credentialID int64) ([]entities.BadgeHistoryEntry, error) {
	var rows []badgeHistoryModel
	if err := r.db.WithContext(ctx).
		Where("credential_id = ?", credentialID).
		Order("entry_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_badge_history_failed", err,
			"credential_id", credentialID,
		)
	}
	items := make([]entities.BadgeHistoryEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := row.toEntity()
		if err != nil {
			return nil, r.logError("governance_repo_decode_badge_history_failed", err,
				"credential_id", credentialID,
				"entry_id", row.EntryID,
			)
		}
		items = append(items, entry)
	}
	return items, nil
}

func (r *Repository) CreateCeremony(ctx context.Context, ceremony entities.Ceremony) (entities.Ceremony, error) {
	row := ceremonyModelFromEntity(ceremony)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return entities.Ceremony{}, r.logError("governance_repo_create_ceremony_failed", err,
			"sprint_number", ceremony.SprintNumber,
			"facilitator", strings.TrimSpace(ceremony.Facilitator),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetCeremony(ctx context.Context, ceremonyID int64) (entities.Ceremony, error) {
	var row ceremonyModel
	err := r.db.WithContext(ctx).
		Where("id = ?", ceremonyID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Ceremony{}, domainerrors.ErrCeremonyNotFound
		}
		return entities.Ceremony{}, r.logError("governance_repo_get_ceremony_failed", err,
			"ceremony_id", ceremonyID,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListCeremonies(ctx context.Context, limit int, offset int) ([]entities.Ceremony, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	var rows []ceremonyModel
	if err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_ceremonies_failed", err, "limit", limit, "offset", offset)
	}
	items := make([]entities.Ceremony, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) AddParticipant(ctx context.Context, participant entities.Participant) error {
	row := participantModelFromEntity(participant)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ceremony_id"}, {Name: "identity"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrAlreadyAdmitted
		}
		return r.logError("governance_repo_add_participant_failed", create.Error,
			"ceremony_id", participant.CeremonyID,
			"identity", strings.TrimSpace(participant.Identity),
		)
	}
	if create.RowsAffected == 0 {
		return domainerrors.ErrAlreadyAdmitted
	}
	return nil
}

func (r *Repository) GetParticipant(ctx context.Context, ceremonyID int64, identity string) (entities.Participant, bool, error) {
	var row participantModel
	err := r.db.WithContext(ctx).
		Where("ceremony_id = ?", ceremonyID).
		Where("identity = ?", strings.TrimSpace(identity)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Participant{}, false, nil
		}
		return entities.Participant{}, false, r.logError("governance_repo_get_participant_failed", err,
			"ceremony_id", ceremonyID,
			"identity", strings.TrimSpace(identity),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListParticipants(ctx context.Context, ceremonyID int64) ([]entities.Participant, error) {
	var rows []participantModel
	if err := r.db.WithContext(ctx).
		Where("ceremony_id = ?", ceremonyID).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_participants_failed", err,
			"ceremony_id", ceremonyID,
		)
	}
	items := make([]entities.Participant, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) CountParticipants(ctx context.Context, ceremonyID int64) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&participantModel{}).
		Where("ceremony_id = ?", ceremonyID).
		Count(&count).Error; err != nil {
		return 0, r.logError("governance_repo_count_participants_failed", err,
			"ceremony_id", ceremonyID,
		)
	}
	return int(count), nil
}

func (r *Repository) SaveGeneralVote(ctx context.Context, vote entities.GeneralVote) error {
	row := generalVoteModelFromEntity(vote)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ceremony_id"}, {Name: "identity"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrAlreadyVoted
		}
		return r.logError("governance_repo_save_general_vote_failed", create.Error,
			"ceremony_id", vote.CeremonyID,
			"identity", strings.TrimSpace(vote.Identity),
		)
	}
	if create.RowsAffected == 0 {
		return domainerrors.ErrAlreadyVoted
	}
	return nil
}

func (r *Repository) ListGeneralVotes(ctx context.Context, ceremonyID int64) ([]entities.GeneralVote, error) {
	var rows []generalVoteModel
	if err := r.db.WithContext(ctx).
		Where("ceremony_id = ?", ceremonyID).
		Order("cast_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_general_votes_failed", err,
			"ceremony_id", ceremonyID,
		)
	}
	items := make([]entities.GeneralVote, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// CreateSession allocates the ceremony's next session index and inserts the
// session in one transaction. The ceremony row is locked so the index can
// never be handed out twice.
func (r *Repository) CreateSession(ctx context.Context, ceremonyID int64, label string, openedAt time.Time) (entities.FeatureSession, error) {
	var created featureSessionModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ceremony ceremonyModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", ceremonyID).
			First(&ceremony).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrCeremonyNotFound
			}
			return err
		}
		created = featureSessionModel{
			CeremonyID:   ceremonyID,
			SessionIndex: ceremony.NextSessionIndex,
			FeatureLabel: strings.TrimSpace(label),
			Status:       string(entities.SessionStatusOpen),
			OpenedAt:     openedAt.UTC(),
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		return tx.Model(&ceremonyModel{}).
			Where("id = ?", ceremonyID).
			Updates(map[string]any{
				"next_session_index": ceremony.NextSessionIndex + 1,
				"updated_at":         openedAt.UTC(),
			}).Error
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrCeremonyNotFound) {
			return entities.FeatureSession{}, err
		}
		return entities.FeatureSession{}, r.logError("governance_repo_create_session_failed", err,
			"ceremony_id", ceremonyID,
			"feature_label", strings.TrimSpace(label),
		)
	}
	return created.toEntity(), nil
}

func (r *Repository) GetSession(ctx context.Context, ceremonyID int64, sessionIndex int) (entities.FeatureSession, error) {
	var row featureSessionModel
	err := r.db.WithContext(ctx).
		Where("ceremony_id = ?", ceremonyID).
		Where("session_index = ?", sessionIndex).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.FeatureSession{}, domainerrors.ErrSessionNotFound
		}
		return entities.FeatureSession{}, r.logError("governance_repo_get_session_failed", err,
			"ceremony_id", ceremonyID,
			"session_index", sessionIndex,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListSessions(ctx context.Context, ceremonyID int64) ([]entities.FeatureSession, error) {
	var rows []featureSessionModel
	if err := r.db.WithContext(ctx).
		Where("ceremony_id = ?", ceremonyID).
		Order("session_index ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_sessions_failed", err,
			"ceremony_id", ceremonyID,
		)
	}
	items := make([]entities.FeatureSession, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) CloseSession(ctx context.Context, ceremonyID int64, sessionIndex int, closedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&featureSessionModel{}).
		Where("ceremony_id = ?", ceremonyID).
		Where("session_index = ?", sessionIndex).
		Where("status = ?", string(entities.SessionStatusOpen)).
		Updates(map[string]any{
			"status":    string(entities.SessionStatusClosed),
			"closed_at": closedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("governance_repo_close_session_failed", result.Error,
			"ceremony_id", ceremonyID,
			"session_index", sessionIndex,
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrSessionAlreadyClosed
	}
	return nil
}

func (r *Repository) SaveFeatureVote(ctx context.Context, vote entities.FeatureVote) error {
	row := featureVoteModelFromEntity(vote)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ceremony_id"}, {Name: "session_index"}, {Name: "identity"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrAlreadyVoted
		}
		return r.logError("governance_repo_save_feature_vote_failed", create.Error,
			"ceremony_id", vote.CeremonyID,
			"session_index", vote.SessionIndex,
			"identity", strings.TrimSpace(vote.Identity),
		)
	}
	if create.RowsAffected == 0 {
		return domainerrors.ErrAlreadyVoted
	}
	return nil
}

func (r *Repository) ListFeatureVotes(ctx context.Context, ceremonyID int64) ([]entities.FeatureVote, error) {
	var rows []featureVoteModel
	if err := r.db.WithContext(ctx).
		Where("ceremony_id = ?", ceremonyID).
		Order("session_index ASC, identity ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_feature_votes_failed", err,
			"ceremony_id", ceremonyID,
		)
	}
	items := make([]entities.FeatureVote, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// FinalizeCeremony commits a conclusion atomically. The guarded status update
// is the authority for exactly-once: a concurrent conclude loses the race,
// touches no row, and rolls back with ErrCeremonyAlreadyConcluded.
func (r *Repository) FinalizeCeremony(
	ctx context.Context,
	ceremonyID int64,
	endTime time.Time,
	entries []entities.BadgeHistoryEntry,
	events []ports.EventEnvelope,
) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		transition := tx.Model(&ceremonyModel{}).
			Where("id = ?", ceremonyID).
			Where("status = ?", string(entities.CeremonyStatusOpen)).
			Updates(map[string]any{
				"status":     string(entities.CeremonyStatusConcluded),
				"end_time":   endTime.UTC(),
				"updated_at": endTime.UTC(),
			})
		if transition.Error != nil {
			return transition.Error
		}
		if transition.RowsAffected == 0 {
			return domainerrors.ErrCeremonyAlreadyConcluded
		}

		if err := tx.Model(&featureSessionModel{}).
			Where("ceremony_id = ?", ceremonyID).
			Where("status = ?", string(entities.SessionStatusOpen)).
			Updates(map[string]any{
				"status":    string(entities.SessionStatusClosed),
				"closed_at": endTime.UTC(),
			}).Error; err != nil {
			return err
		}

		for _, entry := range entries {
			row, err := badgeHistoryModelFromEntity(entry)
			if err != nil {
				return err
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}

		for _, event := range events {
			row, err := outboxModelFromEnvelope(event)
			if err != nil {
				return err
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "outbox_id"}},
				DoNothing: true,
			}).Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrCeremonyAlreadyConcluded) {
			return err
		}
		return r.logError("governance_repo_finalize_ceremony_failed", err,
			"ceremony_id", ceremonyID,
			"entry_count", len(entries),
		)
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	row, err := outboxModelFromEnvelope(envelope)
	if err != nil {
		return r.logError("governance_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("governance_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "sprint-governance/ceremony-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("governance repository operation failed", fields...)
	return err
}

type credentialModel struct {
	CredentialID  int64     `gorm:"column:credential_id;primaryKey"`
	OwnerIdentity string    `gorm:"column:owner_identity;uniqueIndex"`
	AcquiredAt    time.Time `gorm:"column:acquired_at"`
}

func (credentialModel) TableName() string {
	return "membership_credentials"
}

func credentialModelFromEntity(credential entities.Credential) credentialModel {
	return credentialModel{
		CredentialID:  credential.CredentialID,
		OwnerIdentity: strings.TrimSpace(credential.Owner),
		AcquiredAt:    credential.AcquiredAt.UTC(),
	}
}

func (m credentialModel) toEntity() entities.Credential {
	return entities.Credential{
		CredentialID: m.CredentialID,
		Owner:        m.OwnerIdentity,
		AcquiredAt:   m.AcquiredAt.UTC(),
	}
}

type ceremonyModel struct {
	ID               int64      `gorm:"column:id;primaryKey;autoIncrement"`
	SprintNumber     int64      `gorm:"column:sprint_number"`
	Facilitator      string     `gorm:"column:facilitator"`
	Status           string     `gorm:"column:status"`
	StartTime        time.Time  `gorm:"column:start_time"`
	EndTime          *time.Time `gorm:"column:end_time"`
	NextSessionIndex int        `gorm:"column:next_session_index"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

func (ceremonyModel) TableName() string {
	return "ceremonies"
}

func ceremonyModelFromEntity(ceremony entities.Ceremony) ceremonyModel {
	row := ceremonyModel{
		ID:               ceremony.CeremonyID,
		SprintNumber:     ceremony.SprintNumber,
		Facilitator:      strings.TrimSpace(ceremony.Facilitator),
		Status:           string(ceremony.Status),
		StartTime:        ceremony.StartTime.UTC(),
		NextSessionIndex: ceremony.NextSessionIndex,
		CreatedAt:        ceremony.CreatedAt.UTC(),
		UpdatedAt:        ceremony.UpdatedAt.UTC(),
	}
	if ceremony.EndTime != nil {
		end := ceremony.EndTime.UTC()
		row.EndTime = &end
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m ceremonyModel) toEntity() entities.Ceremony {
	ceremony := entities.Ceremony{
		CeremonyID:       m.ID,
		SprintNumber:     m.SprintNumber,
		Facilitator:      m.Facilitator,
		Status:           entities.CeremonyStatus(m.Status),
		StartTime:        m.StartTime.UTC(),
		NextSessionIndex: m.NextSessionIndex,
		CreatedAt:        m.CreatedAt.UTC(),
		UpdatedAt:        m.UpdatedAt.UTC(),
	}
	if m.EndTime != nil {
		end := m.EndTime.UTC()
		ceremony.EndTime = &end
	}
	return ceremony
}

type participantModel struct {
	CeremonyID int64     `gorm:"column:ceremony_id;primaryKey"`
	Identity   string    `gorm:"column:identity;primaryKey"`
	Position   int       `gorm:"column:position"`
	AdmittedAt time.Time `gorm:"column:admitted_at"`
}

func (participantModel) TableName() string {
	return "ceremony_participants"
}

func participantModelFromEntity(participant entities.Participant) participantModel {
	return participantModel{
		CeremonyID: participant.CeremonyID,
		Identity:   strings.TrimSpace(participant.Identity),
		Position:   participant.Position,
		AdmittedAt: participant.AdmittedAt.UTC(),
	}
}

func (m participantModel) toEntity() entities.Participant {
	return entities.Participant{
		CeremonyID: m.CeremonyID,
		Identity:   m.Identity,
		Position:   m.Position,
		AdmittedAt: m.AdmittedAt.UTC(),
	}
}

type generalVoteModel struct {
	CeremonyID int64     `gorm:"column:ceremony_id;primaryKey"`
	Identity   string    `gorm:"column:identity;primaryKey"`
	Points     int64     `gorm:"column:points"`
	CastAt     time.Time `gorm:"column:cast_at"`
}

func (generalVoteModel) TableName() string {
	return "general_votes"
}

func generalVoteModelFromEntity(vote entities.GeneralVote) generalVoteModel {
	return generalVoteModel{
		CeremonyID: vote.CeremonyID,
		Identity:   strings.TrimSpace(vote.Identity),
		Points:     vote.Points,
		CastAt:     vote.CastAt.UTC(),
	}
}

func (m generalVoteModel) toEntity() entities.GeneralVote {
	return entities.GeneralVote{
		CeremonyID: m.CeremonyID,
		Identity:   m.Identity,
		Points:     m.Points,
		CastAt:     m.CastAt.UTC(),
	}
}

type featureSessionModel struct {
	CeremonyID   int64      `gorm:"column:ceremony_id;primaryKey"`
	SessionIndex int        `gorm:"column:session_index;primaryKey"`
	FeatureLabel string     `gorm:"column:feature_label"`
	Status       string     `gorm:"column:status"`
	OpenedAt     time.Time  `gorm:"column:opened_at"`
	ClosedAt     *time.Time `gorm:"column:closed_at"`
}

func (featureSessionModel) TableName() string {
	return "feature_sessions"
}

func (m featureSessionModel) toEntity() entities.FeatureSession {
	session := entities.FeatureSession{
		CeremonyID:   m.CeremonyID,
		SessionIndex: m.SessionIndex,
		FeatureLabel: m.FeatureLabel,
		Status:       entities.SessionStatus(m.Status),
		OpenedAt:     m.OpenedAt.UTC(),
	}
	if m.ClosedAt != nil {
		closed := m.ClosedAt.UTC()
		session.ClosedAt = &closed
	}
	return session
}

type featureVoteModel struct {
	CeremonyID   int64     `gorm:"column:ceremony_id;primaryKey"`
	SessionIndex int       `gorm:"column:session_index;primaryKey"`
	Identity     string    `gorm:"column:identity;primaryKey"`
	Points       int64     `gorm:"column:points"`
	CastAt       time.Time `gorm:"column:cast_at"`
}

func (featureVoteModel) TableName() string {
	return "feature_votes"
}

func featureVoteModelFromEntity(vote entities.FeatureVote) featureVoteModel {
	return featureVoteModel{
		CeremonyID:   vote.CeremonyID,
		SessionIndex: vote.SessionIndex,
		Identity:     strings.TrimSpace(vote.Identity),
		Points:       vote.Points,
		CastAt:       vote.CastAt.UTC(),
	}
}

func (m featureVoteModel) toEntity() entities.FeatureVote {
	return entities.FeatureVote{
		CeremonyID:   m.CeremonyID,
		SessionIndex: m.SessionIndex,
		Identity:     m.Identity,
		Points:       m.Points,
		CastAt:       m.CastAt.UTC(),
	}
}

type badgeHistoryModel struct {
	EntryID       int64     `gorm:"column:entry_id;primaryKey;autoIncrement"`
	CredentialID  int64     `gorm:"column:credential_id;index"`
	CeremonyID    int64     `gorm:"column:ceremony_id"`
	SprintNumber  int64     `gorm:"column:sprint_number"`
	StartTime     time.Time `gorm:"column:start_time"`
	EndTime       time.Time `gorm:"column:end_time"`
	TotalPoints   int64     `gorm:"column:total_points"`
	FeatureLabels []byte    `gorm:"column:feature_labels"`
	FeaturePoints []byte    `gorm:"column:feature_points"`
	RecordedAt    time.Time `gorm:"column:recorded_at"`
}

func (badgeHistoryModel) TableName() string {
	return "badge_history_entries"
}

func badgeHistoryModelFromEntity(entry entities.BadgeHistoryEntry) (badgeHistoryModel, error) {
	labels, err := json.Marshal(entry.FeatureLabels)
	if err != nil {
		return badgeHistoryModel{}, err
	}
	points, err := json.Marshal(entry.FeaturePoints)
	if err != nil {
		return badgeHistoryModel{}, err
	}
	return badgeHistoryModel{
		CredentialID:  entry.CredentialID,
		CeremonyID:    entry.CeremonyID,
		SprintNumber:  entry.SprintNumber,
		StartTime:     entry.StartTime.UTC(),
		EndTime:       entry.EndTime.UTC(),
		TotalPoints:   entry.TotalPoints,
		FeatureLabels: labels,
		FeaturePoints: points,
		RecordedAt:    entry.RecordedAt.UTC(),
	}, nil
}

func (m badgeHistoryModel) toEntity() (entities.BadgeHistoryEntry, error) {
	labels := make([]string, 0)
	if len(m.FeatureLabels) > 0 {
		if err := json.Unmarshal(m.FeatureLabels, &labels); err != nil {
			return entities.BadgeHistoryEntry{}, err
		}
	}
	points := make([]int64, 0)
	if len(m.FeaturePoints) > 0 {
		if err := json.Unmarshal(m.FeaturePoints, &points); err != nil {
			return entities.BadgeHistoryEntry{}, err
		}
	}
	return entities.BadgeHistoryEntry{
		EntryID:       m.EntryID,
		CredentialID:  m.CredentialID,
		CeremonyID:    m.CeremonyID,
		SprintNumber:  m.SprintNumber,
		StartTime:     m.StartTime.UTC(),
		EndTime:       m.EndTime.UTC(),
		TotalPoints:   m.TotalPoints,
		FeatureLabels: labels,
		FeaturePoints: points,
		RecordedAt:    m.RecordedAt.UTC(),
	}, nil
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "ceremony_outbox"
}

func outboxModelFromEnvelope(envelope ports.EventEnvelope) (outboxModel, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return outboxModel{}, err
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.MembershipRepository = (*Repository)(nil)
var _ ports.CeremonyRepository = (*Repository)(nil)
var _ ports.TallyRepository = (*Repository)(nil)
var _ ports.ConclusionRepository = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)

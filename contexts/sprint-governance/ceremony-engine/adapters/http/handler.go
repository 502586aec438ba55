package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"agora/contexts/sprint-governance/ceremony-engine/application/commands"
	"agora/contexts/sprint-governance/ceremony-engine/application/queries"
	"agora/contexts/sprint-governance/ceremony-engine/domain/entities"
	httptransport "agora/contexts/sprint-governance/ceremony-engine/transport/http"
)

// Handler translates transport DTOs to use-case commands and back. It holds
// no behavior of its own; every precondition lives in the use cases.
type Handler struct {
	Membership      commands.MembershipUseCase
	Ceremonies      commands.CeremonyUseCase
	Tally           commands.TallyUseCase
	Conclusion      commands.ConcludeUseCase
	MembershipReads queries.MembershipUseCase
	CeremonyReads   queries.CeremonyUseCase
	Logger          *slog.Logger
}

func (h Handler) RegisterMemberHandler(ctx context.Context, req httptransport.RegisterMemberRequest) (httptransport.CredentialResponse, error) {
	credential, err := h.Membership.RegisterMember(ctx, commands.RegisterMemberCommand{
		Identity:     req.Identity,
		CredentialID: req.CredentialID,
	})
	if err != nil {
		return httptransport.CredentialResponse{}, err
	}
	return mapCredential(credential), nil
}

func (h Handler) RightsHandler(ctx context.Context, identity string) (httptransport.RightsResponse, error) {
	status, err := h.MembershipReads.Rights(ctx, identity)
	if err != nil {
		return httptransport.RightsResponse{}, err
	}
	resp := httptransport.RightsResponse{
		Identity:      status.Identity,
		HasCredential: status.HasCredential,
		Active:        status.Active,
	}
	if status.HasCredential {
		resp.CredentialID = status.CredentialID
		resp.AcquiredAt = status.AcquiredAt.Format(time.RFC3339)
		resp.VestedAt = status.VestedAt.Format(time.RFC3339)
	}
	return resp, nil
}

func (h Handler) CredentialHandler(ctx context.Context, identity string) (httptransport.CredentialResponse, error) {
	credential, err := h.MembershipReads.CredentialOf(ctx, identity)
	if err != nil {
		return httptransport.CredentialResponse{}, err
	}
	return mapCredential(credential), nil
}

func (h Handler) BadgeHistoryHandler(ctx context.Context, credentialID int64) (httptransport.BadgeHistoryResponse, error) {
	entries, err := h.MembershipReads.BadgeHistory(ctx, credentialID)
	if err != nil {
		return httptransport.BadgeHistoryResponse{}, err
	}
	items := make([]httptransport.BadgeHistoryItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, httptransport.BadgeHistoryItem{
			EntryID:       entry.EntryID,
			CredentialID:  entry.CredentialID,
			CeremonyID:    entry.CeremonyID,
			SprintNumber:  entry.SprintNumber,
			StartTime:     entry.StartTime.Format(time.RFC3339),
			EndTime:       entry.EndTime.Format(time.RFC3339),
			TotalPoints:   entry.TotalPoints,
			FeatureLabels: entry.FeatureLabels,
			FeaturePoints: entry.FeaturePoints,
			RecordedAt:    entry.RecordedAt.Format(time.RFC3339),
		})
	}
	return httptransport.BadgeHistoryResponse{
		CredentialID: credentialID,
		Items:        items,
	}, nil
}

func (h Handler) StartCeremonyHandler(ctx context.Context, caller string, req httptransport.StartCeremonyRequest) (httptransport.CeremonyResponse, error) {
	ceremony, err := h.Ceremonies.StartCeremony(ctx, commands.StartCeremonyCommand{
		SprintNumber: req.SprintNumber,
		Caller:       caller,
	})
	if err != nil {
		return httptransport.CeremonyResponse{}, err
	}
	return mapCeremony(ceremony), nil
}

func (h Handler) GetCeremonyHandler(ctx context.Context, ceremonyID int64) (httptransport.CeremonyDetailResponse, error) {
	detail, err := h.CeremonyReads.GetCeremony(ctx, ceremonyID)
	if err != nil {
		return httptransport.CeremonyDetailResponse{}, err
	}
	participants := make([]httptransport.ParticipantResponse, 0, len(detail.Participants))
	for _, participant := range detail.Participants {
		participants = append(participants, mapParticipant(participant))
	}
	sessions := make([]httptransport.SessionResponse, 0, len(detail.Sessions))
	for _, session := range detail.Sessions {
		sessions = append(sessions, mapSession(session))
	}
	return httptransport.CeremonyDetailResponse{
		Ceremony:     mapCeremony(detail.Ceremony),
		Participants: participants,
		Sessions:     sessions,
	}, nil
}

func (h Handler) ListCeremoniesHandler(ctx context.Context, limit int, offset int) (httptransport.CeremonyListResponse, error) {
	ceremonies, err := h.CeremonyReads.ListCeremonies(ctx, limit, offset)
	if err != nil {
		return httptransport.CeremonyListResponse{}, err
	}
	items := make([]httptransport.CeremonyResponse, 0, len(ceremonies))
	for _, ceremony := range ceremonies {
		items = append(items, mapCeremony(ceremony))
	}
	return httptransport.CeremonyListResponse{Items: items}, nil
}

func (h Handler) AdmitParticipantHandler(ctx context.Context, ceremonyID int64, caller string, req httptransport.AdmitParticipantRequest) (httptransport.ParticipantResponse, error) {
	participant, err := h.Ceremonies.AdmitParticipant(ctx, commands.AdmitParticipantCommand{
		CeremonyID: ceremonyID,
		Identity:   req.Identity,
		Caller:     caller,
	})
	if err != nil {
		return httptransport.ParticipantResponse{}, err
	}
	return mapParticipant(participant), nil
}

func (h Handler) CastGeneralVoteHandler(ctx context.Context, ceremonyID int64, caller string, req httptransport.CastVoteRequest) (httptransport.GeneralVoteResponse, error) {
	vote, err := h.Tally.CastGeneralVote(ctx, commands.CastGeneralVoteCommand{
		CeremonyID: ceremonyID,
		Identity:   caller,
		Points:     req.Points,
	})
	if err != nil {
		return httptransport.GeneralVoteResponse{}, err
	}
	return httptransport.GeneralVoteResponse{
		CeremonyID: vote.CeremonyID,
		Identity:   vote.Identity,
		Points:     vote.Points,
		CastAt:     vote.CastAt.Format(time.RFC3339),
	}, nil
}

func (h Handler) OpenSessionHandler(ctx context.Context, ceremonyID int64, caller string, req httptransport.OpenSessionRequest) (httptransport.SessionResponse, error) {
	session, err := h.Tally.OpenFeatureSession(ctx, commands.OpenFeatureSessionCommand{
		CeremonyID: ceremonyID,
		Label:      req.FeatureLabel,
		Caller:     caller,
	})
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return mapSession(session), nil
}

func (h Handler) CloseSessionHandler(ctx context.Context, ceremonyID int64, sessionIndex int, caller string) error {
	return h.Tally.CloseFeatureSession(ctx, commands.CloseFeatureSessionCommand{
		CeremonyID:   ceremonyID,
		SessionIndex: sessionIndex,
		Caller:       caller,
	})
}

func (h Handler) CastFeatureVoteHandler(ctx context.Context, ceremonyID int64, sessionIndex int, caller string, req httptransport.CastVoteRequest) (httptransport.FeatureVoteResponse, error) {
	vote, err := h.Tally.CastFeatureVote(ctx, commands.CastFeatureVoteCommand{
		CeremonyID:   ceremonyID,
		SessionIndex: sessionIndex,
		Identity:     caller,
		Points:       req.Points,
	})
	if err != nil {
		return httptransport.FeatureVoteResponse{}, err
	}
	return httptransport.FeatureVoteResponse{
		CeremonyID:   vote.CeremonyID,
		SessionIndex: vote.SessionIndex,
		Identity:     vote.Identity,
		Points:       vote.Points,
		CastAt:       vote.CastAt.Format(time.RFC3339),
	}, nil
}

func (h Handler) ProvisionalTallyHandler(ctx context.Context, ceremonyID int64) (httptransport.TallyResponse, error) {
	results, err := h.CeremonyReads.ProvisionalTally(ctx, ceremonyID)
	if err != nil {
		return httptransport.TallyResponse{}, err
	}
	return httptransport.TallyResponse{
		CeremonyID: ceremonyID,
		Items:      mapResults(results),
	}, nil
}

func (h Handler) ConcludeCeremonyHandler(ctx context.Context, ceremonyID int64, caller string) (httptransport.ConcludeResponse, error) {
	result, err := h.Conclusion.ConcludeCeremony(ctx, commands.ConcludeCeremonyCommand{
		CeremonyID: ceremonyID,
		Caller:     caller,
	})
	if err != nil {
		return httptransport.ConcludeResponse{}, err
	}
	return httptransport.ConcludeResponse{
		Ceremony: mapCeremony(result.Ceremony),
		Results:  mapResults(result.Results),
	}, nil
}

func mapCredential(credential entities.Credential) httptransport.CredentialResponse {
	return httptransport.CredentialResponse{
		CredentialID: credential.CredentialID,
		Identity:     credential.Owner,
		AcquiredAt:   credential.AcquiredAt.Format(time.RFC3339),
	}
}

func mapCeremony(ceremony entities.Ceremony) httptransport.CeremonyResponse {
	resp := httptransport.CeremonyResponse{
		CeremonyID:       ceremony.CeremonyID,
		SprintNumber:     ceremony.SprintNumber,
		Facilitator:      ceremony.Facilitator,
		Status:           string(ceremony.Status),
		StartTime:        ceremony.StartTime.Format(time.RFC3339),
		NextSessionIndex: ceremony.NextSessionIndex,
	}
	if ceremony.EndTime != nil {
		resp.EndTime = ceremony.EndTime.Format(time.RFC3339)
	}
	return resp
}

func mapParticipant(participant entities.Participant) httptransport.ParticipantResponse {
	return httptransport.ParticipantResponse{
		CeremonyID: participant.CeremonyID,
		Identity:   participant.Identity,
		Position:   participant.Position,
		AdmittedAt: participant.AdmittedAt.Format(time.RFC3339),
	}
}

func mapSession(session entities.FeatureSession) httptransport.SessionResponse {
	resp := httptransport.SessionResponse{
		CeremonyID:   session.CeremonyID,
		SessionIndex: session.SessionIndex,
		FeatureLabel: session.FeatureLabel,
		Status:       string(session.Status),
		OpenedAt:     session.OpenedAt.Format(time.RFC3339),
	}
	if session.ClosedAt != nil {
		resp.ClosedAt = session.ClosedAt.Format(time.RFC3339)
	}
	return resp
}

func mapResults(results []entities.ParticipantResult) []httptransport.TallyItem {
	items := make([]httptransport.TallyItem, 0, len(results))
	for _, result := range results {
		items = append(items, httptransport.TallyItem{
			Identity:      result.Identity,
			CredentialID:  result.CredentialID,
			TotalPoints:   result.TotalPoints,
			FeatureLabels: result.FeatureLabels,
			FeaturePoints: result.FeaturePoints,
		})
	}
	return items
}

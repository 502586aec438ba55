package entities

import (
	"sort"
	"time"
)

// ParticipantResult is the aggregation outcome for one credentialed
// participant: the general vote (if cast) plus every feature vote, with the
// feature pairs ordered by ascending session index.
type ParticipantResult struct {
	Identity      string
	CredentialID  int64
	TotalPoints   int64
	FeatureLabels []string
	FeaturePoints []int64
}

// AggregateResults runs the conclusion arithmetic over a ceremony's live
// state. Participants are processed in admission order; identities without a
// credential are skipped rather than failing the whole aggregation. The
// computation is pure, so the same code backs both the provisional tally and
// the final conclusion.
func AggregateResults(
	participants []Participant,
	credentials map[string]Credential,
	generalVotes []GeneralVote,
	sessions []FeatureSession,
	featureVotes []FeatureVote,
) []ParticipantResult {
	ordered := append([]Participant(nil), participants...)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})

	orderedSessions := append([]FeatureSession(nil), sessions...)
	sort.Slice(orderedSessions, func(i, j int) bool {
		return orderedSessions[i].SessionIndex < orderedSessions[j].SessionIndex
	})

	generalByIdentity := make(map[string]GeneralVote, len(generalVotes))
	for _, vote := range generalVotes {
		generalByIdentity[vote.Identity] = vote
	}
	votesBySession := make(map[int]map[string]FeatureVote)
	for _, vote := range featureVotes {
		byIdentity := votesBySession[vote.SessionIndex]
		if byIdentity == nil {
			byIdentity = make(map[string]FeatureVote)
			votesBySession[vote.SessionIndex] = byIdentity
		}
		byIdentity[vote.Identity] = vote
	}

	results := make([]ParticipantResult, 0, len(ordered))
	for _, participant := range ordered {
		credential, ok := credentials[participant.Identity]
		if !ok {
			continue
		}
		result := ParticipantResult{
			Identity:      participant.Identity,
			CredentialID:  credential.CredentialID,
			FeatureLabels: make([]string, 0, len(orderedSessions)),
			FeaturePoints: make([]int64, 0, len(orderedSessions)),
		}
		if vote, voted := generalByIdentity[participant.Identity]; voted {
			result.TotalPoints += vote.Points
		}
		for _, session := range orderedSessions {
			vote, voted := votesBySession[session.SessionIndex][participant.Identity]
			if !voted {
				continue
			}
			result.FeatureLabels = append(result.FeatureLabels, session.FeatureLabel)
			result.FeaturePoints = append(result.FeaturePoints, vote.Points)
			result.TotalPoints += vote.Points
		}
		results = append(results, result)
	}
	return results
}

// BuildHistoryEntries turns aggregation results into the immutable entries
// appended to each participant's credential at conclusion time.
func BuildHistoryEntries(ceremony Ceremony, endTime, recordedAt time.Time, results []ParticipantResult) []BadgeHistoryEntry {
	entries := make([]BadgeHistoryEntry, 0, len(results))
	for _, result := range results {
		entries = append(entries, BadgeHistoryEntry{
			CredentialID:  result.CredentialID,
			CeremonyID:    ceremony.CeremonyID,
			SprintNumber:  ceremony.SprintNumber,
			StartTime:     ceremony.StartTime.UTC(),
			EndTime:       endTime.UTC(),
			TotalPoints:   result.TotalPoints,
			FeatureLabels: append([]string(nil), result.FeatureLabels...),
			FeaturePoints: append([]int64(nil), result.FeaturePoints...),
			RecordedAt:    recordedAt.UTC(),
		})
	}
	return entries
}

package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RegisterMemberRequest struct {
	Identity     string `json:"identity"`
	CredentialID int64  `json:"credential_id"`
}

type CredentialResponse struct {
	CredentialID int64  `json:"credential_id"`
	Identity     string `json:"identity"`
	AcquiredAt   string `json:"acquired_at"`
}

type RightsResponse struct {
	Identity      string `json:"identity"`
	HasCredential bool   `json:"has_credential"`
	CredentialID  int64  `json:"credential_id,omitempty"`
	AcquiredAt    string `json:"acquired_at,omitempty"`
	VestedAt      string `json:"vested_at,omitempty"`
	Active        bool   `json:"active"`
}

type BadgeHistoryItem struct {
	EntryID       int64    `json:"entry_id"`
	CredentialID  int64    `json:"credential_id"`
	CeremonyID    int64    `json:"ceremony_id"`
	SprintNumber  int64    `json:"sprint_number"`
	StartTime     string   `json:"start_time"`
	EndTime       string   `json:"end_time"`
	TotalPoints   int64    `json:"total_points"`
	FeatureLabels []string `json:"feature_labels"`
	FeaturePoints []int64  `json:"feature_points"`
	RecordedAt    string   `json:"recorded_at"`
}

type BadgeHistoryResponse struct {
	CredentialID int64              `json:"credential_id"`
	Items        []BadgeHistoryItem `json:"items"`
}

type StartCeremonyRequest struct {
	SprintNumber int64 `json:"sprint_number"`
}

type CeremonyResponse struct {
	CeremonyID       int64  `json:"ceremony_id"`
	SprintNumber     int64  `json:"sprint_number"`
	Facilitator      string `json:"facilitator"`
	Status           string `json:"status"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time,omitempty"`
	NextSessionIndex int    `json:"next_session_index"`
}

type CeremonyListResponse struct {
	Items []CeremonyResponse `json:"items"`
}

type ParticipantResponse struct {
	CeremonyID int64  `json:"ceremony_id"`
	Identity   string `json:"identity"`
	Position   int    `json:"position"`
	AdmittedAt string `json:"admitted_at"`
}

type AdmitParticipantRequest struct {
	Identity string `json:"identity"`
}

type SessionResponse struct {
	CeremonyID   int64  `json:"ceremony_id"`
	SessionIndex int    `json:"session_index"`
	FeatureLabel string `json:"feature_label"`
	Status       string `json:"status"`
	OpenedAt     string `json:"opened_at"`
	ClosedAt     string `json:"closed_at,omitempty"`
}

type CeremonyDetailResponse struct {
	Ceremony     CeremonyResponse      `json:"ceremony"`
	Participants []ParticipantResponse `json:"participants"`
	Sessions     []SessionResponse     `json:"sessions"`
}

type OpenSessionRequest struct {
	FeatureLabel string `json:"feature_label"`
}

type CastVoteRequest struct {
	Points int64 `json:"points"`
}

type GeneralVoteResponse struct {
	CeremonyID int64  `json:"ceremony_id"`
	Identity   string `json:"identity"`
	Points     int64  `json:"points"`
	CastAt     string `json:"cast_at"`
}

type FeatureVoteResponse struct {
	CeremonyID   int64  `json:"ceremony_id"`
	SessionIndex int    `json:"session_index"`
	Identity     string `json:"identity"`
	Points       int64  `json:"points"`
	CastAt       string `json:"cast_at"`
}

type TallyItem struct {
	Identity      string   `json:"identity"`
	CredentialID  int64    `json:"credential_id"`
	TotalPoints   int64    `json:"total_points"`
	FeatureLabels []string `json:"feature_labels"`
	FeaturePoints []int64  `json:"feature_points"`
}

type TallyResponse struct {
	CeremonyID int64       `json:"ceremony_id"`
	Items      []TallyItem `json:"items"`
}

type ConcludeResponse struct {
	Ceremony CeremonyResponse `json:"ceremony"`
	Results  []TallyItem      `json:"results"`
}

package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	ceremonyengine "agora/contexts/sprint-governance/ceremony-engine"
	governanceerrors "agora/contexts/sprint-governance/ceremony-engine/domain/errors"
	governancehttp "agora/contexts/sprint-governance/ceremony-engine/transport/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	_ "agora/internal/platform/httpserver/docs"
)

type Server struct {
	mux        *http.ServeMux
	handler    http.Handler
	logger     *slog.Logger
	addr       string
	governance ceremonyengine.Module
}

func New(governance ceremonyengine.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		governance: governance,
	}
	s.registerRoutes()
	s.handler = instrumentRequests(s.mux)
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.handler)
}

// Handler exposes the instrumented mux for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.mux.HandleFunc("POST /api/governance/v1/members", s.handleRegisterMember)
	s.mux.HandleFunc("GET /api/governance/v1/members/{identity}/credential", s.handleGetCredential)
	s.mux.HandleFunc("GET /api/governance/v1/members/{identity}/rights", s.handleGetRights)
	s.mux.HandleFunc("GET /api/governance/v1/credentials/{credential_id}/history", s.handleBadgeHistory)

	s.mux.HandleFunc("POST /api/governance/v1/ceremonies", s.handleStartCeremony)
	s.mux.HandleFunc("GET /api/governance/v1/ceremonies", s.handleListCeremonies)
	s.mux.HandleFunc("GET /api/governance/v1/ceremonies/{ceremony_id}", s.handleGetCeremony)
	s.mux.HandleFunc("POST /api/governance/v1/ceremonies/{ceremony_id}/participants", s.handleAdmitParticipant)
	s.mux.HandleFunc("POST /api/governance/v1/ceremonies/{ceremony_id}/votes", s.handleCastGeneralVote)
	s.mux.HandleFunc("POST /api/governance/v1/ceremonies/{ceremony_id}/sessions", s.handleOpenSession)
	s.mux.HandleFunc("POST /api/governance/v1/ceremonies/{ceremony_id}/sessions/{session_index}/votes", s.handleCastFeatureVote)
	s.mux.HandleFunc("POST /api/governance/v1/ceremonies/{ceremony_id}/sessions/{session_index}/close", s.handleCloseSession)
	s.mux.HandleFunc("GET /api/governance/v1/ceremonies/{ceremony_id}/tally", s.handleProvisionalTally)
	s.mux.HandleFunc("POST /api/governance/v1/ceremonies/{ceremony_id}/conclude", s.handleConcludeCeremony)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegisterMember(w http.ResponseWriter, r *http.Request) {
	var req governancehttp.RegisterMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.RegisterMemberHandler(r.Context(), req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetCredential(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.CredentialHandler(r.Context(), r.PathValue("identity"))
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRights(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.RightsHandler(r.Context(), r.PathValue("identity"))
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBadgeHistory(w http.ResponseWriter, r *http.Request) {
	credentialID, ok := pathInt64(w, r, "credential_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.BadgeHistoryHandler(r.Context(), credentialID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStartCeremony(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req governancehttp.StartCeremonyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.StartCeremonyHandler(r.Context(), caller, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListCeremonies(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := 0
	offset := 0
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeGovernanceError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}
	if raw := query.Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeGovernanceError(w, http.StatusBadRequest, "invalid_offset", "offset must be an integer")
			return
		}
		offset = parsed
	}
	resp, err := s.governance.Handler.ListCeremoniesHandler(r.Context(), limit, offset)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetCeremony(w http.ResponseWriter, r *http.Request) {
	ceremonyID, ok := pathInt64(w, r, "ceremony_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.GetCeremonyHandler(r.Context(), ceremonyID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdmitParticipant(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	ceremonyID, ok := pathInt64(w, r, "ceremony_id")
	if !ok {
		return
	}
	var req governancehttp.AdmitParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.AdmitParticipantHandler(r.Context(), ceremonyID, caller, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCastGeneralVote(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	ceremonyID, ok := pathInt64(w, r, "ceremony_id")
	if !ok {
		return
	}
	var req governancehttp.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.CastGeneralVoteHandler(r.Context(), ceremonyID, caller, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	ceremonyID, ok := pathInt64(w, r, "ceremony_id")
	if !ok {
		return
	}
	var req governancehttp.OpenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.OpenSessionHandler(r.Context(), ceremonyID, caller, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCastFeatureVote(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	ceremonyID, ok := pathInt64(w, r, "ceremony_id")
	if !ok {
		return
	}
	sessionIndex, ok := pathInt(w, r, "session_index")
	if !ok {
		return
	}
	var req governancehttp.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.CastFeatureVoteHandler(r.Context(), ceremonyID, sessionIndex, caller, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	ceremonyID, ok := pathInt64(w, r, "ceremony_id")
	if !ok {
		return
	}
	sessionIndex, ok := pathInt(w, r, "session_index")
	if !ok {
		return
	}
	if err := s.governance.Handler.CloseSessionHandler(r.Context(), ceremonyID, sessionIndex, caller); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

func (s *Server) handleProvisionalTally(w http.ResponseWriter, r *http.Request) {
	ceremonyID, ok := pathInt64(w, r, "ceremony_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.ProvisionalTallyHandler(r.Context(), ceremonyID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConcludeCeremony(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	ceremonyID, ok := pathInt64(w, r, "ceremony_id")
	if !ok {
		return
	}
	resp, err := s.governance.Handler.ConcludeCeremonyHandler(r.Context(), ceremonyID, caller)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeGovernanceDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, governanceerrors.ErrInvalidInput):
		writeGovernanceError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, governanceerrors.ErrNotAuthorized):
		writeGovernanceError(w, http.StatusForbidden, "not_authorized", err.Error())
	case errors.Is(err, governanceerrors.ErrNotAdmitted):
		writeGovernanceError(w, http.StatusForbidden, "not_admitted", err.Error())
	case errors.Is(err, governanceerrors.ErrRightsNotVested):
		writeGovernanceError(w, http.StatusForbidden, "rights_not_vested", err.Error())
	case errors.Is(err, governanceerrors.ErrCeremonyNotFound):
		writeGovernanceError(w, http.StatusNotFound, "ceremony_not_found", err.Error())
	case errors.Is(err, governanceerrors.ErrSessionNotFound):
		writeGovernanceError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, governanceerrors.ErrCredentialNotFound):
		writeGovernanceError(w, http.StatusNotFound, "credential_not_found", err.Error())
	case errors.Is(err, governanceerrors.ErrCeremonyNotOpen):
		writeGovernanceError(w, http.StatusConflict, "ceremony_not_open", err.Error())
	case errors.Is(err, governanceerrors.ErrSessionClosed):
		writeGovernanceError(w, http.StatusConflict, "session_closed", err.Error())
	case errors.Is(err, governanceerrors.ErrAlreadyRegistered):
		writeGovernanceError(w, http.StatusConflict, "already_registered", err.Error())
	case errors.Is(err, governanceerrors.ErrAlreadyAdmitted):
		writeGovernanceError(w, http.StatusConflict, "already_admitted", err.Error())
	case errors.Is(err, governanceerrors.ErrAlreadyVoted):
		writeGovernanceError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, governanceerrors.ErrSessionAlreadyClosed):
		writeGovernanceError(w, http.StatusConflict, "session_already_closed", err.Error())
	case errors.Is(err, governanceerrors.ErrCeremonyAlreadyConcluded):
		writeGovernanceError(w, http.StatusConflict, "ceremony_already_concluded", err.Error())
	case errors.Is(err, governanceerrors.ErrConflict):
		writeGovernanceError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, governanceerrors.ErrVoteOutOfRange):
		writeGovernanceError(w, http.StatusUnprocessableEntity, "vote_out_of_range", err.Error())
	case errors.Is(err, governanceerrors.ErrParticipantLimit):
		writeGovernanceError(w, http.StatusUnprocessableEntity, "participant_limit", err.Error())
	case errors.Is(err, governanceerrors.ErrSessionLimit):
		writeGovernanceError(w, http.StatusUnprocessableEntity, "session_limit", err.Error())
	default:
		writeGovernanceError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeGovernanceError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, governancehttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func requireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if caller == "" {
		writeGovernanceError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return caller, true
}

func pathInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	value, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_path", name+" must be an integer")
		return 0, false
	}
	return value, true
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	value, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_path", name+" must be an integer")
		return 0, false
	}
	return value, true
}

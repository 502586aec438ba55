package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ceremonyengine "agora/contexts/sprint-governance/ceremony-engine"
	"agora/contexts/sprint-governance/ceremony-engine/domain/entities"
	governancehttp "agora/contexts/sprint-governance/ceremony-engine/transport/http"
)

func newTestServer() *Server {
	module := ceremonyengine.NewInMemoryModule([]entities.Credential{
		{CredentialID: 1, Owner: "alice", AcquiredAt: time.Now().UTC().Add(-100 * time.Hour)},
	}, nil, nil)
	return New(module, nil, ":0")
}

func TestStartCeremonyRequiresUserHeader(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/governance/v1/ceremonies", bytes.NewReader([]byte(`{"sprint_number":1}`)))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestStartCeremonyRejectsMalformedBody(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/governance/v1/ceremonies", bytes.NewReader([]byte(`{`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "alice")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestUnknownCeremonyMapsToNotFound(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/governance/v1/ceremonies/999", nil)

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload governancehttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("error body must be JSON: %v", err)
	}
	if payload.Code != "ceremony_not_found" {
		t.Fatalf("expected ceremony_not_found code, got %s", payload.Code)
	}
}

func TestCeremonyLifecycleOverHTTP(t *testing.T) {
	server := newTestServer()

	start := httptest.NewRequest(http.MethodPost, "/api/governance/v1/ceremonies", bytes.NewReader([]byte(`{"sprint_number":7}`)))
	start.Header.Set("X-User-Id", "alice")
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, start)
	if rr.Code != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var ceremony governancehttp.CeremonyResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &ceremony); err != nil {
		t.Fatalf("decode ceremony: %v", err)
	}

	admit := httptest.NewRequest(http.MethodPost, "/api/governance/v1/ceremonies/1/participants", bytes.NewReader([]byte(`{"identity":"alice"}`)))
	admit.Header.Set("X-User-Id", "alice")
	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, admit)
	if rr.Code != http.StatusCreated {
		t.Fatalf("admit: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	vote := httptest.NewRequest(http.MethodPost, "/api/governance/v1/ceremonies/1/votes", bytes.NewReader([]byte(`{"points":8}`)))
	vote.Header.Set("X-User-Id", "alice")
	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, vote)
	if rr.Code != http.StatusCreated {
		t.Fatalf("vote: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	duplicate := httptest.NewRequest(http.MethodPost, "/api/governance/v1/ceremonies/1/votes", bytes.NewReader([]byte(`{"points":3}`)))
	duplicate.Header.Set("X-User-Id", "alice")
	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, duplicate)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate vote: expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}

	conclude := httptest.NewRequest(http.MethodPost, "/api/governance/v1/ceremonies/1/conclude", nil)
	conclude.Header.Set("X-User-Id", "alice")
	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, conclude)
	if rr.Code != http.StatusOK {
		t.Fatalf("conclude: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var result governancehttp.ConcludeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode conclusion: %v", err)
	}
	if result.Ceremony.Status != "concluded" || len(result.Results) != 1 || result.Results[0].TotalPoints != 8 {
		t.Fatalf("unexpected conclusion %+v", result)
	}

	history := httptest.NewRequest(http.MethodGet, "/api/governance/v1/credentials/1/history", nil)
	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, history)
	if rr.Code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var historyResp governancehttp.BadgeHistoryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &historyResp); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(historyResp.Items) != 1 || historyResp.Items[0].SprintNumber != 7 {
		t.Fatalf("unexpected history %+v", historyResp)
	}
}

func TestVoteOutOfRangeMapsTo422(t *testing.T) {
	server := newTestServer()

	start := httptest.NewRequest(http.MethodPost, "/api/governance/v1/ceremonies", bytes.NewReader([]byte(`{"sprint_number":1}`)))
	start.Header.Set("X-User-Id", "alice")
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, start)
	if rr.Code != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d", rr.Code)
	}

	admit := httptest.NewRequest(http.MethodPost, "/api/governance/v1/ceremonies/1/participants", bytes.NewReader([]byte(`{"identity":"alice"}`)))
	admit.Header.Set("X-User-Id", "alice")
	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, admit)
	if rr.Code != http.StatusCreated {
		t.Fatalf("admit: expected 201, got %d", rr.Code)
	}

	vote := httptest.NewRequest(http.MethodPost, "/api/governance/v1/ceremonies/1/votes", bytes.NewReader([]byte(`{"points":99}`)))
	vote.Header.Set("X-User-Id", "alice")
	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, vote)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body=%s", rr.Code, rr.Body.String())
	}
}

package api

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"voting-registry/identity"
	"voting-registry/service"
)

type testServer struct {
	mux      *http.ServeMux
	registry *service.RegistryService
	owner    *ecdsa.PrivateKey
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	registryService, err := service.NewRegistryService(service.Config{StoragePath: t.TempDir()})
	if err != nil {
		t.Fatalf("NewRegistryService failed: %v", err)
	}

	creds, err := registryService.GetOwnerCredentials()
	if err != nil {
		t.Fatalf("GetOwnerCredentials failed: %v", err)
	}
	owner, err := identity.ParsePrivateKey(creds.PrivateKey)
	if err != nil {
		t.Fatalf("ParsePrivateKey failed: %v", err)
	}

	mux := http.NewServeMux()
	NewServer(registryService).Routes(mux)

	return &testServer{mux: mux, registry: registryService, owner: owner}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) initializeRequest(t *testing.T, key *ecdsa.PrivateKey, seed string) InitializeRequest {
	t.Helper()

	signature, err := identity.NewService().Sign(identity.InitializeMessage(ts.registry.Namespace(), seed), key)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	return InitializeRequest{Seed: seed, Signature: hex.EncodeToString(signature)}
}

func TestHandleInitialize(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/initialize", ts.initializeRequest(t, ts.owner, "alice"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp InitializeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Seed != "alice" || resp.Address == "" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleInitializeStatusCodes(t *testing.T) {
	ts := newTestServer(t)

	intruder, err := identity.NewService().GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	if rec := ts.do(t, http.MethodPost, "/api/initialize", ts.initializeRequest(t, ts.owner, "alice")); rec.Code != http.StatusOK {
		t.Fatalf("setup initialize failed: %d", rec.Code)
	}

	tests := []struct {
		name string
		req  InitializeRequest
		want int
	}{
		{"unauthorized signer", ts.initializeRequest(t, intruder, "bob"), http.StatusForbidden},
		{"duplicate seed", ts.initializeRequest(t, ts.owner, "alice"), http.StatusConflict},
		{"empty seed", ts.initializeRequest(t, ts.owner, ""), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/initialize", tt.req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleVote(t *testing.T) {
	ts := newTestServer(t)

	if rec := ts.do(t, http.MethodPost, "/api/initialize", ts.initializeRequest(t, ts.owner, "alice")); rec.Code != http.StatusOK {
		t.Fatalf("setup initialize failed: %d", rec.Code)
	}

	for i := 1; i <= 3; i++ {
		rec := ts.do(t, http.MethodPost, "/api/vote", VoteRequest{Seed: "alice"})
		if rec.Code != http.StatusOK {
			t.Fatalf("vote %d: expected 200, got %d: %s", i, rec.Code, rec.Body.String())
		}

		var receipt service.VoteReceipt
		if err := json.NewDecoder(rec.Body).Decode(&receipt); err != nil {
			t.Fatalf("failed to decode receipt: %v", err)
		}
		if receipt.Votes != uint64(i) {
			t.Errorf("expected tally %d, got %d", i, receipt.Votes)
		}
	}

	rec := ts.do(t, http.MethodGet, "/api/votes?seed=alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var votes VotesResponse
	if err := json.NewDecoder(rec.Body).Decode(&votes); err != nil {
		t.Fatalf("failed to decode votes: %v", err)
	}
	if votes.Votes != 3 {
		t.Errorf("expected 3 votes, got %d", votes.Votes)
	}
}

func TestHandleVoteUnknownSeed(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/vote", VoteRequest{Seed: "ghost"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/votes?seed=ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 from votes accessor, got %d", rec.Code)
	}

	// An invalid seed is a bad request, not a missing record
	rec = ts.do(t, http.MethodGet, "/api/votes", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an empty seed, got %d", rec.Code)
	}
}

func TestHandleMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	if rec := ts.do(t, http.MethodGet, "/api/initialize", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET initialize, got %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodPost, "/api/votes", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for POST votes, got %d", rec.Code)
	}
}

func TestHandleEndSession(t *testing.T) {
	ts := newTestServer(t)

	if rec := ts.do(t, http.MethodPost, "/api/initialize", ts.initializeRequest(t, ts.owner, "alice")); rec.Code != http.StatusOK {
		t.Fatalf("setup initialize failed: %d", rec.Code)
	}

	if rec := ts.do(t, http.MethodPost, "/api/end-session", nil); rec.Code != http.StatusOK {
		t.Fatalf("end-session failed: %d", rec.Code)
	}

	if rec := ts.do(t, http.MethodPost, "/api/vote", VoteRequest{Seed: "alice"}); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 after session end, got %d", rec.Code)
	}
}

func TestHandleStatusAndResults(t *testing.T) {
	ts := newTestServer(t)

	if rec := ts.do(t, http.MethodPost, "/api/initialize", ts.initializeRequest(t, ts.owner, "alice")); rec.Code != http.StatusOK {
		t.Fatalf("setup initialize failed: %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodPost, "/api/vote", VoteRequest{Seed: "alice"}); rec.Code != http.StatusOK {
		t.Fatalf("setup vote failed: %d", rec.Code)
	}

	rec := ts.do(t, http.MethodGet, "/api/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status failed: %d", rec.Code)
	}
	var status StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if status.CandidateCount != 1 || status.JournalEntries != 2 || !status.SessionActive {
		t.Errorf("unexpected status: %+v", status)
	}

	rec = ts.do(t, http.MethodGet, "/api/results", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("results failed: %d", rec.Code)
	}
	var results service.TallyResults
	if err := json.NewDecoder(rec.Body).Decode(&results); err != nil {
		t.Fatalf("failed to decode results: %v", err)
	}
	if results.TotalVotes != 1 || results.Results["alice"] != 1 {
		t.Errorf("unexpected results: %+v", results)
	}

	rec = ts.do(t, http.MethodGet, "/api/journal/validate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("journal validate failed: %d", rec.Code)
	}
	var validation JournalValidationResponse
	if err := json.NewDecoder(rec.Body).Decode(&validation); err != nil {
		t.Fatalf("failed to decode validation: %v", err)
	}
	if !validation.IsValid || validation.Entries != 2 {
		t.Errorf("unexpected validation: %+v", validation)
	}
}

// File: api/server.go
package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"voting-registry/registry"
	"voting-registry/service"
)

// Server exposes the registry over HTTP/JSON.
type Server struct {
	registryService *service.RegistryService
}

func NewServer(registryService *service.RegistryService) *Server {
	return &Server{registryService: registryService}
}

type InitializeRequest struct {
	Seed      string `json:"seed"`
	Signature string `json:"signature"` // hex signature over the canonical initialize message
}

type InitializeResponse struct {
	Seed      string `json:"seed"`
	Address   string `json:"address"`
	CreatedAt int64  `json:"created_at"`
}

type VoteRequest struct {
	Seed string `json:"seed"`
}

type VotesResponse struct {
	Seed  string `json:"seed"`
	Votes uint64 `json:"votes"`
}

type GrantRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

type StatusResponse struct {
	Namespace      string `json:"namespace"`
	Owner          string `json:"owner"`
	SessionActive  bool   `json:"session_active"`
	CandidateCount int    `json:"candidate_count"`
	JournalEntries int    `json:"journal_entries"`
}

type JournalValidationResponse struct {
	IsValid bool `json:"is_valid"`
	Entries int  `json:"entries"`
}

// Routes registers all handlers on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/initialize", s.handleInitialize)
	mux.HandleFunc("/api/vote", s.handleVote)
	mux.HandleFunc("/api/votes", s.handleGetVotes)
	mux.HandleFunc("/api/candidate", s.handleGetCandidate)
	mux.HandleFunc("/api/candidates", s.handleListCandidates)
	mux.HandleFunc("/api/results", s.handleGetResults)
	mux.HandleFunc("/api/results/verify", s.handleVerifyResults)
	mux.HandleFunc("/api/journal", s.handleGetJournal)
	mux.HandleFunc("/api/journal/validate", s.handleValidateJournal)
	mux.HandleFunc("/api/status", s.handleGetStatus)
	mux.HandleFunc("/api/metrics", s.handleGetMetrics)
	mux.HandleFunc("/api/end-session", s.handleEndSession)
	mux.HandleFunc("/api/admin/credentials", s.handleGetOwnerCredentials)
	mux.HandleFunc("/api/admin/grant", s.handleGrant)
	mux.HandleFunc("/api/admin/revoke", s.handleRevoke)
}

// errorStatus maps the registry's terminal errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, registry.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, registry.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrInvalidSeed):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSessionClosed):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func decodeSignature(signature string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(signature, "0x"))
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req InitializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	signature, err := decodeSignature(req.Signature)
	if err != nil {
		http.Error(w, "Invalid signature encoding", http.StatusBadRequest)
		return
	}

	candidate, err := s.registryService.Initialize(req.Seed, signature)
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	writeJSON(w, InitializeResponse{
		Seed:      candidate.Name,
		Address:   candidate.Address.Hex(),
		CreatedAt: candidate.CreatedAt,
	})
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	receipt, err := s.registryService.Vote(req.Seed)
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	writeJSON(w, receipt)
}

func (s *Server) handleGetVotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	seed := r.URL.Query().Get("seed")
	votes, err := s.registryService.GetVotes(seed)
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	writeJSON(w, VotesResponse{Seed: seed, Votes: votes})
}

func (s *Server) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	candidate, err := s.registryService.GetCandidate(r.URL.Query().Get("seed"))
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	writeJSON(w, candidate)
}

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, s.registryService.ListCandidates())
}

func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, s.registryService.Results())
}

func (s *Server) handleVerifyResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, s.registryService.VerifyResults())
}

func (s *Server) handleGetJournal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, s.registryService.JournalEntries())
}

func (s *Server) handleValidateJournal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, JournalValidationResponse{
		IsValid: s.registryService.ValidateJournal(),
		Entries: len(s.registryService.JournalEntries()),
	})
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, StatusResponse{
		Namespace:      s.registryService.Namespace().Hex(),
		Owner:          s.registryService.OwnerAddress().Hex(),
		SessionActive:  s.registryService.IsSessionActive(),
		CandidateCount: len(s.registryService.ListCandidates()),
		JournalEntries: len(s.registryService.JournalEntries()),
	})
}

func (s *Server) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, s.registryService.Metrics())
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.registryService.EndSession()
	writeJSON(w, map[string]bool{"session_active": false})
}

func (s *Server) handleGetOwnerCredentials(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	creds, err := s.registryService.GetOwnerCredentials()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, creds)
}

func (s *Server) handleGrant(w http.ResponseWriter, r *http.Request) {
	s.handleAccessChange(w, r, s.registryService.GrantInitializer)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	s.handleAccessChange(w, r, s.registryService.RevokeInitializer)
}

func (s *Server) handleAccessChange(w http.ResponseWriter, r *http.Request, change func(common.Address, []byte) error) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !common.IsHexAddress(req.Address) {
		http.Error(w, "Invalid address", http.StatusBadRequest)
		return
	}

	signature, err := decodeSignature(req.Signature)
	if err != nil {
		http.Error(w, "Invalid signature encoding", http.StatusBadRequest)
		return
	}

	if err := change(common.HexToAddress(req.Address), signature); err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	writeJSON(w, map[string]bool{"success": true})
}

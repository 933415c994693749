package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"voting-registry/models"
)

// MaxSeedLength mirrors on-chain seed limits.
const MaxSeedLength = 64

// Errors
var (
	ErrUnauthorized  = errors.New("caller is not an authorized initializer")
	ErrAlreadyExists = errors.New("candidate already initialized")
	ErrNotFound      = errors.New("candidate not found")
	ErrInvalidSeed   = errors.New("invalid seed")
)

// CandidateRegistry holds candidate records keyed by their derived address.
// All state mutation goes through Initialize and Vote; records are never
// deleted and tallies only ever grow.
type CandidateRegistry struct {
	namespace  common.Address
	candidates map[common.Address]*models.Candidate
	mu         sync.RWMutex
}

func New(namespace common.Address) *CandidateRegistry {
	return &CandidateRegistry{
		namespace:  namespace,
		candidates: make(map[common.Address]*models.Candidate),
	}
}

func (cr *CandidateRegistry) Namespace() common.Address {
	return cr.namespace
}

// ValidateSeed rejects seeds the registry cannot derive an address for.
func ValidateSeed(seed string) error {
	if seed == "" {
		return fmt.Errorf("%w: empty seed", ErrInvalidSeed)
	}
	if len(seed) > MaxSeedLength {
		return fmt.Errorf("%w: seed exceeds %d bytes", ErrInvalidSeed, MaxSeedLength)
	}
	return nil
}

// Initialize creates the record for seed. Re-creation is always rejected,
// there is no idempotent path.
func (cr *CandidateRegistry) Initialize(seed string, createdAt int64) (*models.Candidate, error) {
	if err := ValidateSeed(seed); err != nil {
		return nil, err
	}

	cr.mu.Lock()
	defer cr.mu.Unlock()

	address := DeriveAddress(seed, cr.namespace)
	if _, exists := cr.candidates[address]; exists {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, seed)
	}

	candidate := &models.Candidate{
		Name:      seed,
		Address:   address,
		Votes:     0,
		CreatedAt: createdAt,
	}
	cr.candidates[address] = candidate

	copied := *candidate
	return &copied, nil
}

// Exists reports whether a record backs the address derived from seed.
func (cr *CandidateRegistry) Exists(seed string) bool {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	_, exists := cr.candidates[DeriveAddress(seed, cr.namespace)]
	return exists
}

// Vote increments the tally for seed by exactly one and returns the new
// tally. A vote for an unregistered seed fails with ErrNotFound; absence of
// the backing record is the membership check.
func (cr *CandidateRegistry) Vote(seed string) (uint64, error) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	address := DeriveAddress(seed, cr.namespace)
	candidate, exists := cr.candidates[address]
	if !exists {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, seed)
	}

	candidate.Votes++
	return candidate.Votes, nil
}

// Votes returns the current tally for seed.
func (cr *CandidateRegistry) Votes(seed string) (uint64, error) {
	if err := ValidateSeed(seed); err != nil {
		return 0, err
	}

	cr.mu.RLock()
	defer cr.mu.RUnlock()

	address := DeriveAddress(seed, cr.namespace)
	candidate, exists := cr.candidates[address]
	if !exists {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, seed)
	}
	return candidate.Votes, nil
}

// Get returns a copy of the record for seed.
func (cr *CandidateRegistry) Get(seed string) (*models.Candidate, error) {
	if err := ValidateSeed(seed); err != nil {
		return nil, err
	}

	cr.mu.RLock()
	defer cr.mu.RUnlock()

	address := DeriveAddress(seed, cr.namespace)
	candidate, exists := cr.candidates[address]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, seed)
	}

	copied := *candidate
	return &copied, nil
}

// List returns copies of all records.
func (cr *CandidateRegistry) List() []*models.Candidate {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	candidates := make([]*models.Candidate, 0, len(cr.candidates))
	for _, candidate := range cr.candidates {
		copied := *candidate
		candidates = append(candidates, &copied)
	}
	return candidates
}

// Tally returns the current vote counts keyed by candidate name.
func (cr *CandidateRegistry) Tally() map[string]uint64 {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	tally := make(map[string]uint64, len(cr.candidates))
	for _, candidate := range cr.candidates {
		tally[candidate.Name] = candidate.Votes
	}
	return tally
}

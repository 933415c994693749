package service

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"voting-registry/acl"
	"voting-registry/identity"
	"voting-registry/journal"
	"voting-registry/models"
	"voting-registry/registry"
	"voting-registry/storage"
)

// ErrSessionClosed rejects mutations outside the voting session window.
var ErrSessionClosed = errors.New("voting session has ended")

// Config carries the service wiring options.
type Config struct {
	StoragePath     string
	Namespace       string // hex address; empty scopes the registry to the owner address
	SessionDuration time.Duration
}

// RegistryService ties the candidate registry to caller authorization, the
// operation journal, and persistence. One mutex serializes every mutating
// operation, so each accepted operation is applied atomically and in total
// order, matching the single-threaded execution model the registry assumes.
type RegistryService struct {
	store      *storage.JSONStore
	identity   *identity.Service
	registry   *registry.CandidateRegistry
	journal    *journal.Journal
	accessList *acl.FileAccessList
	session    *VotingSession
	metrics    *MetricsCollector
	ownerKey   *ecdsa.PrivateKey
	ownerAddr  common.Address
	mu         sync.Mutex
}

// VoteReceipt is returned for every accepted vote.
type VoteReceipt struct {
	ReceiptID string         `json:"receipt_id"`
	Seed      string         `json:"seed"`
	Address   common.Address `json:"address"`
	Votes     uint64         `json:"votes"`
	Timestamp int64          `json:"timestamp"`
}

// NewRegistryService restores persisted state and wires the service together.
func NewRegistryService(cfg Config) (*RegistryService, error) {
	store, err := storage.NewJSONStore(cfg.StoragePath)
	if err != nil {
		return nil, err
	}

	ownerKey, err := identity.LoadOrGenerateOwnerKey(store.DataDir())
	if err != nil {
		return nil, fmt.Errorf("failed to setup owner key: %v", err)
	}

	identityService := identity.NewService()
	ownerAddr := identityService.Address(ownerKey)

	namespace := ownerAddr
	if cfg.Namespace != "" {
		if !common.IsHexAddress(cfg.Namespace) {
			return nil, fmt.Errorf("invalid namespace address: %s", cfg.Namespace)
		}
		namespace = common.HexToAddress(cfg.Namespace)
	}

	candidateRegistry := registry.New(namespace)

	operationJournal, err := journal.Load(store)
	if err != nil {
		return nil, fmt.Errorf("failed to load journal: %w", err)
	}

	accessList, err := acl.New(acl.Config{
		FilePath: filepath.Join(store.DataDir(), "assets/initializers.json"),
		AutoSave: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize access list: %v", err)
	}
	if err := accessList.LoadFromFile(); err != nil {
		return nil, fmt.Errorf("failed to load access list: %v", err)
	}

	rs := &RegistryService{
		store:      store,
		identity:   identityService,
		registry:   candidateRegistry,
		journal:    operationJournal,
		accessList: accessList,
		session:    NewVotingSession(cfg.SessionDuration),
		metrics:    NewMetricsCollector(),
		ownerKey:   ownerKey,
		ownerAddr:  ownerAddr,
	}

	if err := rs.replayJournal(); err != nil {
		return nil, err
	}

	if count := operationJournal.Len(); count > 0 {
		log.Printf("Restored registry state from %d journal entries", count)
	}

	return rs, nil
}

// replayJournal rebuilds the in-memory registry from the accepted operations.
func (rs *RegistryService) replayJournal() error {
	return rs.journal.Replay(func(op string, data []byte) error {
		switch op {
		case models.OpInitialize:
			var payload models.InitializePayload
			if err := json.Unmarshal(data, &payload); err != nil {
				return err
			}
			_, err := rs.registry.Initialize(payload.Seed, payload.Timestamp)
			return err
		case models.OpVote:
			var payload models.VotePayload
			if err := json.Unmarshal(data, &payload); err != nil {
				return err
			}
			_, err := rs.registry.Vote(payload.Seed)
			return err
		default:
			return fmt.Errorf("unknown journal operation: %s", op)
		}
	})
}

// Initialize creates the candidate record for seed. The signature must cover
// identity.InitializeMessage(namespace, seed); the recovered signer has to be
// the owner or an address on the access list. The record is journaled before
// it becomes visible, so a persistence failure creates nothing.
func (rs *RegistryService) Initialize(seed string, signature []byte) (*models.Candidate, error) {
	start := time.Now()

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.session.IsActive() {
		return nil, ErrSessionClosed
	}

	if err := registry.ValidateSeed(seed); err != nil {
		rs.metrics.RecordRejection()
		return nil, err
	}

	caller, err := rs.identity.RecoverSigner(identity.InitializeMessage(rs.registry.Namespace(), seed), signature)
	if err != nil {
		rs.metrics.RecordRejection()
		return nil, fmt.Errorf("%w: %v", registry.ErrUnauthorized, err)
	}

	if caller != rs.ownerAddr && !rs.accessList.IsAuthorized(caller) {
		rs.metrics.RecordRejection()
		return nil, fmt.Errorf("%w: %s", registry.ErrUnauthorized, caller.Hex())
	}

	if rs.registry.Exists(seed) {
		rs.metrics.RecordRejection()
		return nil, fmt.Errorf("%w: %s", registry.ErrAlreadyExists, seed)
	}

	payload := models.InitializePayload{
		Seed:        seed,
		Address:     registry.DeriveAddress(seed, rs.registry.Namespace()),
		Initializer: caller,
		Timestamp:   time.Now().Unix(),
	}
	if _, err := rs.journal.Append(models.OpInitialize, payload); err != nil {
		return nil, err
	}

	candidate, err := rs.registry.Initialize(seed, payload.Timestamp)
	if err != nil {
		return nil, err
	}

	rs.metrics.RecordInitialize(start)
	log.Printf("Initialized candidate %q at %s by %s", seed, candidate.Address.Hex(), caller.Hex())
	return candidate, nil
}

// Vote increments the tally for seed by one. Membership is enforced by the
// derived record's existence, nothing else is validated.
func (rs *RegistryService) Vote(seed string) (*VoteReceipt, error) {
	start := time.Now()

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.session.IsActive() {
		return nil, ErrSessionClosed
	}

	if !rs.registry.Exists(seed) {
		rs.metrics.RecordRejection()
		return nil, fmt.Errorf("%w: %s", registry.ErrNotFound, seed)
	}

	payload := models.VotePayload{
		Seed:      seed,
		Address:   registry.DeriveAddress(seed, rs.registry.Namespace()),
		ReceiptID: uuid.New().String(),
		Timestamp: time.Now().Unix(),
	}
	if _, err := rs.journal.Append(models.OpVote, payload); err != nil {
		return nil, err
	}

	votes, err := rs.registry.Vote(seed)
	if err != nil {
		return nil, err
	}

	rs.metrics.RecordVote(start)
	return &VoteReceipt{
		ReceiptID: payload.ReceiptID,
		Seed:      seed,
		Address:   payload.Address,
		Votes:     votes,
		Timestamp: payload.Timestamp,
	}, nil
}

// GetVotes returns the current tally for seed.
func (rs *RegistryService) GetVotes(seed string) (uint64, error) {
	return rs.registry.Votes(seed)
}

// GetCandidate returns the record for seed.
func (rs *RegistryService) GetCandidate(seed string) (*models.Candidate, error) {
	return rs.registry.Get(seed)
}

// ListCandidates returns all records.
func (rs *RegistryService) ListCandidates() []*models.Candidate {
	return rs.registry.List()
}

// Results returns a tally snapshot across all candidates.
func (rs *RegistryService) Results() *TallyResults {
	return NewTallyResults(rs.registry.Tally())
}

// VerifyResults cross-checks the registry tallies against the journal.
func (rs *RegistryService) VerifyResults() *TallyVerification {
	return VerifyTally(rs.registry.Tally(), rs.journal.Entries())
}

// ValidateJournal rechecks the hash chain of recorded operations.
func (rs *RegistryService) ValidateJournal() bool {
	return rs.journal.Validate()
}

// JournalEntries returns the recorded operations.
func (rs *RegistryService) JournalEntries() []*models.Entry {
	return rs.journal.Entries()
}

// GrantInitializer authorizes an additional initializer. The grant itself
// must be signed by the owner.
func (rs *RegistryService) GrantInitializer(grantee common.Address, signature []byte) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	caller, err := rs.identity.RecoverSigner(identity.GrantMessage(rs.registry.Namespace(), "grant", grantee), signature)
	if err != nil {
		return fmt.Errorf("%w: %v", registry.ErrUnauthorized, err)
	}
	if caller != rs.ownerAddr {
		return fmt.Errorf("%w: %s", registry.ErrUnauthorized, caller.Hex())
	}

	return rs.accessList.Grant(grantee)
}

// RevokeInitializer removes an initializer. Owner-signed, like grants.
func (rs *RegistryService) RevokeInitializer(grantee common.Address, signature []byte) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	caller, err := rs.identity.RecoverSigner(identity.GrantMessage(rs.registry.Namespace(), "revoke", grantee), signature)
	if err != nil {
		return fmt.Errorf("%w: %v", registry.ErrUnauthorized, err)
	}
	if caller != rs.ownerAddr {
		return fmt.Errorf("%w: %s", registry.ErrUnauthorized, caller.Hex())
	}

	return rs.accessList.Revoke(grantee)
}

// AuthorizedInitializers lists the access list entries. The owner is always
// authorized and is not part of the list.
func (rs *RegistryService) AuthorizedInitializers() []common.Address {
	return rs.accessList.Authorized()
}

// OwnerAddress returns the configured owner identity.
func (rs *RegistryService) OwnerAddress() common.Address {
	return rs.ownerAddr
}

// Namespace returns the namespace scoping derived addresses.
func (rs *RegistryService) Namespace() common.Address {
	return rs.registry.Namespace()
}

// GetOwnerCredentials reads the persisted owner key pair.
func (rs *RegistryService) GetOwnerCredentials() (*identity.OwnerCredentials, error) {
	return identity.ReadOwnerCredentials(rs.store.DataDir())
}

// IsSessionActive reports whether mutating operations are being accepted.
func (rs *RegistryService) IsSessionActive() bool {
	return rs.session.IsActive()
}

// EndSession closes the voting window.
func (rs *RegistryService) EndSession() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.session.End()
}

// Metrics returns a snapshot of operation metrics.
func (rs *RegistryService) Metrics() *MetricsResponse {
	return rs.metrics.GetMetrics()
}

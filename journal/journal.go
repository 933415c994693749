// File: journal/journal.go
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"voting-registry/models"
	"voting-registry/storage"
)

// ErrCorrupted is returned when a loaded journal fails chain validation.
var ErrCorrupted = errors.New("journal failed validation")

// Journal is the append-only, hash-chained log of accepted operations. The
// registry's in-memory state is a pure function of the journal, so replaying
// it after a restart reconstructs every candidate and tally.
type Journal struct {
	entries []*models.Entry
	store   *storage.JSONStore
	mu      sync.RWMutex
}

func New(store *storage.JSONStore) *Journal {
	return &Journal{
		entries: make([]*models.Entry, 0),
		store:   store,
	}
}

// Load restores the journal from the latest snapshot and validates the chain.
func Load(store *storage.JSONStore) (*Journal, error) {
	entries, err := store.LoadJournal()
	if err != nil {
		return nil, err
	}

	if !models.ValidateJournal(entries) {
		return nil, ErrCorrupted
	}

	return &Journal{
		entries: entries,
		store:   store,
	}, nil
}

// Append records an accepted operation and persists the snapshot.
func (j *Journal) Append(op string, payload interface{}) (*models.Entry, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", op, err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	timestamp := ensureUniqueTimestamp(j.lastTimestamp())
	entry := models.NewEntry(uint64(len(j.entries)), timestamp, op, data, j.lastHash())
	j.entries = append(j.entries, entry)

	if err := j.store.SaveJournal(j.entries); err != nil {
		// Roll back the in-memory append so state stays a function of what
		// is durably recorded.
		j.entries = j.entries[:len(j.entries)-1]
		return nil, fmt.Errorf("failed to persist journal: %w", err)
	}

	return entry, nil
}

// Replay invokes fn for every entry in order. Used on startup to rebuild
// registry state.
func (j *Journal) Replay(fn func(op string, data []byte) error) error {
	j.mu.RLock()
	defer j.mu.RUnlock()

	for _, entry := range j.entries {
		if err := fn(entry.Op, entry.Data); err != nil {
			return fmt.Errorf("replay failed at entry %d: %w", entry.Index, err)
		}
	}
	return nil
}

// Entries returns a deep copy of the journal.
func (j *Journal) Entries() []*models.Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	entries := make([]*models.Entry, len(j.entries))
	for i, entry := range j.entries {
		entries[i] = entry.Clone()
	}
	return entries
}

func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries)
}

// Validate rechecks the whole chain.
func (j *Journal) Validate() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return models.ValidateJournal(j.entries)
}

// LastHash returns the hash the next entry must link to.
func (j *Journal) LastHash() []byte {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lastHash()
}

func (j *Journal) lastHash() []byte {
	if len(j.entries) == 0 {
		return make([]byte, 32)
	}
	return j.entries[len(j.entries)-1].Hash
}

func (j *Journal) lastTimestamp() int64 {
	if len(j.entries) == 0 {
		return 0
	}
	return j.entries[len(j.entries)-1].Timestamp
}

func ensureUniqueTimestamp(lastTimestamp int64) int64 {
	currentTime := time.Now().Unix()
	if currentTime <= lastTimestamp {
		return lastTimestamp + 1
	}
	return currentTime
}

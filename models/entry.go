package models

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Entry is one accepted operation in the hash-chained journal. Each entry
// links to its predecessor through PrevHash, so tampering with any recorded
// operation invalidates the rest of the chain.
type Entry struct {
	Index     uint64 `json:"index"`
	Timestamp int64  `json:"timestamp"`
	Op        string `json:"op"`
	Data      []byte `json:"data"`
	PrevHash  []byte `json:"prev_hash"`
	Hash      []byte `json:"hash"`
}

func NewEntry(index uint64, timestamp int64, op string, data, prevHash []byte) *Entry {
	entry := &Entry{
		Index:     index,
		Timestamp: timestamp,
		Op:        op,
		Data:      data,
		PrevHash:  prevHash,
	}

	entry.Hash = entry.calculateHash()
	return entry
}

func (e *Entry) calculateHash() []byte {
	buffer := new(bytes.Buffer)
	binary.Write(buffer, binary.BigEndian, e.Index)
	binary.Write(buffer, binary.BigEndian, e.Timestamp)
	buffer.WriteString(e.Op)
	buffer.Write(e.Data)
	buffer.Write(e.PrevHash)

	hash := sha256.Sum256(buffer.Bytes())
	return hash[:]
}

func (e *Entry) Validate() bool {
	return bytes.Equal(e.calculateHash(), e.Hash)
}

// Clone returns a deep copy so callers cannot modify journal state through
// shared slices.
func (e *Entry) Clone() *Entry {
	copied := *e
	copied.Data = append([]byte(nil), e.Data...)
	copied.PrevHash = append([]byte(nil), e.PrevHash...)
	copied.Hash = append([]byte(nil), e.Hash...)
	return &copied
}

// ValidateJournal validates the entire journal chain.
func ValidateJournal(entries []*Entry) bool {
	if len(entries) == 0 {
		return true
	}

	if !entries[0].Validate() {
		fmt.Printf("Journal validation: genesis entry invalid\nHash: %x\nCalculated Hash: %x\n",
			entries[0].Hash, entries[0].calculateHash())
		return false
	}

	for i := 1; i < len(entries); i++ {
		currentEntry := entries[i]
		previousEntry := entries[i-1]

		if !currentEntry.Validate() {
			fmt.Printf("Journal validation: entry %d has invalid hash\n", i)
			return false
		}

		if !bytes.Equal(currentEntry.PrevHash, previousEntry.Hash) {
			fmt.Printf("Journal validation: entry %d has invalid previous hash link\n", i)
			return false
		}

		if currentEntry.Index != previousEntry.Index+1 {
			fmt.Printf("Journal validation: entry %d has invalid index\n", i)
			return false
		}

		// Timestamps must be strictly increasing so the chain has a total order
		if currentEntry.Timestamp <= previousEntry.Timestamp {
			fmt.Printf("Journal validation: entry %d has invalid timestamp\n", i)
			return false
		}
	}

	return true
}

// File: models/types.go
package models

import "github.com/ethereum/go-ethereum/common"

// Journal operation kinds.
const (
	OpInitialize = "initialize"
	OpVote       = "vote"
)

// InitializePayload is the journal payload for an accepted initialization.
type InitializePayload struct {
	Seed        string         `json:"seed"`
	Address     common.Address `json:"address"`
	Initializer common.Address `json:"initializer"`
	Timestamp   int64          `json:"timestamp"`
}

// VotePayload is the journal payload for an accepted vote.
type VotePayload struct {
	Seed      string         `json:"seed"`
	Address   common.Address `json:"address"`
	ReceiptID string         `json:"receipt_id"`
	Timestamp int64          `json:"timestamp"`
}

package models

import "github.com/ethereum/go-ethereum/common"

// Candidate is a registry record: created once, incremented only, never
// deleted. The address is derived from the name and the registry namespace,
// so no secondary index is needed to locate it.
type Candidate struct {
	Name      string         `json:"name"`
	Address   common.Address `json:"address"`
	Votes     uint64         `json:"votes"`
	CreatedAt int64          `json:"created_at"`
}

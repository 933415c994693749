package service

import (
	"encoding/json"

	"voting-registry/models"
)

// TallyResults represents the current vote count across candidates
type TallyResults struct {
	TotalVotes     uint64            `json:"total_votes"`
	Results        map[string]uint64 `json:"results"`
	CandidateCount int               `json:"candidate_count"`
}

// TallyVerification cross-checks registry tallies against the journal
type TallyVerification struct {
	JournalVotes   int    `json:"journal_votes"`
	TalliedVotes   uint64 `json:"tallied_votes"`
	JournalEntries int    `json:"journal_entries"`
	IsValid        bool   `json:"is_valid"`
}

// NewTallyResults builds a results snapshot from a tally map.
func NewTallyResults(tally map[string]uint64) *TallyResults {
	results := &TallyResults{
		Results:        tally,
		CandidateCount: len(tally),
	}
	for _, votes := range tally {
		results.TotalVotes += votes
	}
	return results
}

// VerifyTally confirms that the sum of registry tallies equals the number of
// vote operations in the journal, and that every journaled vote targets a
// known candidate.
func VerifyTally(tally map[string]uint64, entries []*models.Entry) *TallyVerification {
	verification := &TallyVerification{
		JournalEntries: len(entries),
	}

	for _, votes := range tally {
		verification.TalliedVotes += votes
	}

	votesMatch := true
	for _, entry := range entries {
		if entry.Op != models.OpVote {
			continue
		}
		verification.JournalVotes++

		var payload models.VotePayload
		if err := json.Unmarshal(entry.Data, &payload); err != nil {
			votesMatch = false
			continue
		}
		if _, known := tally[payload.Seed]; !known {
			votesMatch = false
		}
	}

	verification.IsValid = votesMatch && uint64(verification.JournalVotes) == verification.TalliedVotes
	return verification
}

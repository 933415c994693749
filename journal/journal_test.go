package journal

import (
	"bytes"
	"encoding/json"
	"testing"

	"voting-registry/models"
	"voting-registry/storage"
)

func newTestStore(t *testing.T) *storage.JSONStore {
	t.Helper()

	store, err := storage.NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore failed: %v", err)
	}
	return store
}

func TestAppendLinksEntries(t *testing.T) {
	j := New(newTestStore(t))

	first, err := j.Append(models.OpInitialize, models.InitializePayload{Seed: "alice"})
	if err != nil {
		t.Fatalf("first Append failed: %v", err)
	}
	if !bytes.Equal(first.PrevHash, make([]byte, 32)) {
		t.Error("genesis entry should link to the zero hash")
	}

	second, err := j.Append(models.OpVote, models.VotePayload{Seed: "alice"})
	if err != nil {
		t.Fatalf("second Append failed: %v", err)
	}
	if !bytes.Equal(second.PrevHash, first.Hash) {
		t.Error("entry should link to its predecessor")
	}
	if second.Index != first.Index+1 {
		t.Errorf("expected index %d, got %d", first.Index+1, second.Index)
	}
	if second.Timestamp <= first.Timestamp {
		t.Error("timestamps should be strictly increasing")
	}

	if !j.Validate() {
		t.Error("journal should validate after appends")
	}
}

func TestLoadRestoresJournal(t *testing.T) {
	store := newTestStore(t)

	j := New(store)
	if _, err := j.Append(models.OpInitialize, models.InitializePayload{Seed: "alice"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if _, err := j.Append(models.OpVote, models.VotePayload{Seed: "alice"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	restored, err := Load(store)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if restored.Len() != 2 {
		t.Errorf("expected 2 entries after reload, got %d", restored.Len())
	}
	if !bytes.Equal(restored.LastHash(), j.LastHash()) {
		t.Error("reloaded journal should end at the same hash")
	}
}

func TestReplayOrder(t *testing.T) {
	j := New(newTestStore(t))

	seeds := []string{"alice", "bob", "carol"}
	for _, seed := range seeds {
		if _, err := j.Append(models.OpInitialize, models.InitializePayload{Seed: seed}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	var replayed []string
	err := j.Replay(func(op string, data []byte) error {
		var payload models.InitializePayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		replayed = append(replayed, payload.Seed)
		return nil
	})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}

	if len(replayed) != len(seeds) {
		t.Fatalf("expected %d replayed ops, got %d", len(seeds), len(replayed))
	}
	for i, seed := range seeds {
		if replayed[i] != seed {
			t.Errorf("replay out of order at %d: got %q, want %q", i, replayed[i], seed)
		}
	}
}

func TestLoadRejectsTamperedJournal(t *testing.T) {
	store := newTestStore(t)

	j := New(store)
	if _, err := j.Append(models.OpInitialize, models.InitializePayload{Seed: "alice"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if _, err := j.Append(models.OpVote, models.VotePayload{Seed: "alice"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// Rewrite the snapshot with a tampered payload
	entries := j.Entries()
	entries[0].Data = []byte(`{"seed":"mallory"}`)
	if err := store.SaveJournal(entries); err != nil {
		t.Fatalf("SaveJournal failed: %v", err)
	}

	if _, err := Load(store); err == nil {
		t.Error("loading a tampered journal should fail")
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	j := New(newTestStore(t))

	if _, err := j.Append(models.OpVote, models.VotePayload{Seed: "alice"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries := j.Entries()
	entries[0] = nil

	if j.Entries()[0] == nil {
		t.Error("mutating the returned slice should not affect the journal")
	}
}

func TestEntriesDoNotAliasJournalState(t *testing.T) {
	j := New(newTestStore(t))

	if _, err := j.Append(models.OpInitialize, models.InitializePayload{Seed: "alice"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if _, err := j.Append(models.OpVote, models.VotePayload{Seed: "alice"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// Corrupting a handed-out entry must not reach the live journal
	entries := j.Entries()
	entries[0].Data = []byte(`{"seed":"mallory"}`)
	entries[1].PrevHash[0] ^= 0xff

	if !j.Validate() {
		t.Error("journal should still validate after a caller mutates returned entries")
	}
	if string(j.Entries()[0].Data) == `{"seed":"mallory"}` {
		t.Error("returned entries should be deep copies")
	}
}

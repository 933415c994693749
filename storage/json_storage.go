// File: storage/json_storage.go
package storage

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"voting-registry/models"
)

// JSONStore persists journal snapshots as timestamped JSON files and keeps a
// bounded history of them.
type JSONStore struct {
	dataDir string
	mutex   sync.RWMutex
}

// Helper struct for file sorting
type snapshotFile struct {
	path      string
	timestamp int64
}

type snapshotFiles []snapshotFile

func (f snapshotFiles) Len() int           { return len(f) }
func (f snapshotFiles) Less(i, j int) bool { return f[i].timestamp < f[j].timestamp }
func (f snapshotFiles) Swap(i, j int)      { f[i], f[j] = f[j], f[i] }

func NewJSONStore(dataDir string) (*JSONStore, error) {
	absPath, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %v", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %v", err)
	}

	return &JSONStore{
		dataDir: absPath,
	}, nil
}

// DataDir returns the resolved storage directory.
func (s *JSONStore) DataDir() string {
	return s.dataDir
}

// Helper function to get the latest file from a pattern
func (s *JSONStore) getLatestFile(pattern string) (string, error) {
	files, err := filepath.Glob(filepath.Join(s.dataDir, pattern))
	if err != nil {
		return "", fmt.Errorf("failed to list files: %v", err)
	}

	if len(files) == 0 {
		return "", nil
	}

	var snapshots snapshotFiles
	for _, file := range files {
		// Extract timestamp from filename
		base := filepath.Base(file)
		parts := strings.Split(base, "_")
		if len(parts) >= 2 {
			timestampStr := strings.TrimSuffix(parts[len(parts)-1], ".json")
			timestamp, err := time.Parse("20060102150405", timestampStr)
			if err != nil {
				log.Printf("Warning: Invalid timestamp in filename %s: %v", base, err)
				continue
			}
			snapshots = append(snapshots, snapshotFile{
				path:      file,
				timestamp: timestamp.Unix(),
			})
		}
	}

	if len(snapshots) == 0 {
		return "", nil
	}

	sort.Sort(snapshots)

	return snapshots[len(snapshots)-1].path, nil
}

// LoadJournal loads the most recent journal snapshot. A missing snapshot
// yields a nil slice, not an error.
func (s *JSONStore) LoadJournal() ([]*models.Entry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	latestFile, err := s.getLatestFile("journal_*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to get latest journal file: %v", err)
	}

	if latestFile == "" {
		return nil, nil
	}

	file, err := os.Open(latestFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %v", latestFile, err)
	}
	defer file.Close()

	var entries []*models.Entry
	if err := json.NewDecoder(file).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode journal from %s: %v", latestFile, err)
	}

	log.Printf("Loaded journal with %d entries from %s", len(entries), latestFile)
	return entries, nil
}

// SaveJournal writes a full journal snapshot.
func (s *JSONStore) SaveJournal(entries []*models.Entry) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(entries) == 0 {
		return fmt.Errorf("cannot save empty journal")
	}

	timestamp := time.Now().Format("20060102150405") // YYYYMMDDhhmmss
	filename := filepath.Join(s.dataDir, fmt.Sprintf("journal_%s.json", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %v", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "    ")
	if err := encoder.Encode(entries); err != nil {
		return fmt.Errorf("failed to encode journal: %v", err)
	}

	// Cleanup old snapshots
	if err := s.cleanupOldFiles("journal_*.json", 5); err != nil {
		log.Printf("Warning: Failed to cleanup old journal files: %v", err)
	}

	return nil
}

// cleanupOldFiles removes all but the keep most recent files matching pattern.
func (s *JSONStore) cleanupOldFiles(pattern string, keep int) error {
	files, err := filepath.Glob(filepath.Join(s.dataDir, pattern))
	if err != nil {
		return fmt.Errorf("failed to list files: %v", err)
	}

	if len(files) <= keep {
		return nil
	}

	var snapshots snapshotFiles
	for _, file := range files {
		base := filepath.Base(file)
		parts := strings.Split(base, "_")
		if len(parts) >= 2 {
			timestampStr := strings.TrimSuffix(parts[len(parts)-1], ".json")
			timestamp, err := time.Parse("20060102150405", timestampStr)
			if err != nil {
				continue
			}
			snapshots = append(snapshots, snapshotFile{
				path:      file,
				timestamp: timestamp.Unix(),
			})
		}
	}

	sort.Sort(snapshots)

	for i := 0; i < len(snapshots)-keep; i++ {
		if err := os.Remove(snapshots[i].path); err != nil {
			log.Printf("Warning: Failed to remove old file %s: %v", snapshots[i].path, err)
		}
	}

	return nil
}

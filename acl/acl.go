package acl

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// AccessControlList defines the methods required for initializer authorization
type AccessControlList interface {
	IsAuthorized(address common.Address) bool
	Grant(address common.Address) error
	Revoke(address common.Address) error
	Authorized() []common.Address
}

// Entry records one authorized initializer.
type Entry struct {
	Address   common.Address `json:"address"`
	GrantedAt time.Time      `json:"granted_at"`
}

// Config controls where the list is persisted.
type Config struct {
	FilePath string `json:"file_path"`
	AutoSave bool   `json:"auto_save"`
}

// FileAccessList implements AccessControlList backed by a JSON file
type FileAccessList struct {
	entries map[common.Address]*Entry
	mu      sync.RWMutex
	config  Config
}

// New creates a new instance of FileAccessList
func New(config Config) (*FileAccessList, error) {
	list := &FileAccessList{
		entries: make(map[common.Address]*Entry),
		config:  config,
	}

	dir := filepath.Dir(config.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %v", err)
	}

	return list, nil
}

// LoadFromFile loads persisted entries. A missing file is not an error; the
// list starts empty and the owner is always authorized implicitly by the
// service layer.
func (l *FileAccessList) LoadFromFile() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.config.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read access list file: %v", err)
	}

	var listData struct {
		Initializers []*Entry `json:"initializers"`
	}

	if err := json.Unmarshal(data, &listData); err != nil {
		return fmt.Errorf("failed to unmarshal access list: %v", err)
	}

	l.entries = make(map[common.Address]*Entry)
	for _, entry := range listData.Initializers {
		l.entries[entry.Address] = entry
	}

	return nil
}

func (l *FileAccessList) saveToFile() error {
	listData := struct {
		Initializers []*Entry `json:"initializers"`
	}{
		Initializers: make([]*Entry, 0, len(l.entries)),
	}
	for _, entry := range l.entries {
		listData.Initializers = append(listData.Initializers, entry)
	}

	data, err := json.MarshalIndent(listData, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal access list: %v", err)
	}

	if err := os.WriteFile(l.config.FilePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write access list file: %v", err)
	}

	return nil
}

// IsAuthorized reports whether address may initialize candidates.
func (l *FileAccessList) IsAuthorized(address common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.entries[address]
	return ok
}

// Grant adds address to the list.
func (l *FileAccessList) Grant(address common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.entries[address]; exists {
		return fmt.Errorf("address %s already authorized", address.Hex())
	}

	l.entries[address] = &Entry{
		Address:   address,
		GrantedAt: time.Now(),
	}

	if l.config.AutoSave {
		return l.saveToFile()
	}
	return nil
}

// Revoke removes address from the list.
func (l *FileAccessList) Revoke(address common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.entries[address]; !exists {
		return fmt.Errorf("address %s not authorized", address.Hex())
	}

	delete(l.entries, address)

	if l.config.AutoSave {
		return l.saveToFile()
	}
	return nil
}

// Authorized returns all authorized addresses.
func (l *FileAccessList) Authorized() []common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()

	addresses := make([]common.Address, 0, len(l.entries))
	for address := range l.entries {
		addresses = append(addresses, address)
	}
	return addresses
}

// Save persists the list regardless of the AutoSave setting.
func (l *FileAccessList) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saveToFile()
}

package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"qapi/internal/model"
)

const (
	consoleFile = "console.json"

	// Secure file permissions - owner read/write only
	jsonSecureFileMode = 0600 // -rw-------
	jsonSecureDirMode  = 0700 // drwx------
)

// State is the full persisted console state: the preset library, the
// shared auth config, and the active selection, serialized as one JSON
// blob.
type State struct {
	Presets  []model.Preset   `json:"presets"`
	Auth     model.AuthConfig `json:"auth"`
	ActiveID string           `json:"activeId,omitempty"`
}

// DefaultState returns the built-in preset set and empty-token auth.
func DefaultState() *State {
	return &State{
		Presets: model.DefaultPresets(),
		Auth:    model.DefaultAuth(),
	}
}

// Store persists console state as a single JSON file in the data
// directory. Every Save writes the complete blob, so readers never
// observe a partially updated library.
type Store struct {
	dataDir string
}

// NewStore creates a store rooted at ~/.qapi.
func NewStore() (*Store, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewStoreAt(filepath.Join(homeDir, ".qapi"))
}

// NewStoreAt creates a store rooted at an explicit directory.
func NewStoreAt(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, jsonSecureDirMode); err != nil {
		return nil, err
	}
	return &Store{dataDir: dataDir}, nil
}

// DataDir returns the directory holding all persisted console files.
func (s *Store) DataDir() string {
	return s.dataDir
}

func (s *Store) consolePath() string {
	return filepath.Join(s.dataDir, consoleFile)
}

// Load reads the persisted state. A missing or malformed blob falls back
// to the built-in defaults rather than failing: a corrupt library should
// never lock the user out of the console.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.consolePath())
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultState(), nil
		}
		return nil, err
	}

	state := &State{}
	if err := json.Unmarshal(data, state); err != nil {
		return DefaultState(), nil
	}
	if state.Presets == nil {
		state.Presets = []model.Preset{}
	}
	return state, nil
}

// Save persists the full state synchronously.
func (s *Store) Save(state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.consolePath(), data, jsonSecureFileMode)
}
